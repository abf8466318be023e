package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/casualjim/swamp"
	"github.com/casualjim/swamp/ownership"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[exchange]
mode = "shared"
strict_paths = true

[log]
level = "debug"

[nats]
url = "nats://localhost:4222"
codec = "cbor"
export = ["/out"]
import = ["/in"]

[seed]
nodes = ["/in/deep", "/in", "/out"]

[[seed.subscriptions]]
node = "/in"
subscriber = "/out"
`

func memFS(t *testing.T, files map[string]string) afero.Fs {
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(memFS(t, map[string]string{"swamp.toml": sample}), "swamp.toml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ownership.Shared, cfg.Mode())
	assert.True(t, cfg.Exchange.StrictPaths)
	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	assert.True(t, cfg.BridgeEnabled())
	assert.Equal(t, "swamp", cfg.NATS.Prefix, "defaults survive a partial file")
	assert.Equal(t, "cbor", cfg.NATS.Codec)
	assert.Equal(t, []string{"/out"}, cfg.NATS.Export)
	assert.Equal(t, []Subscription{{Node: "/in", Subscriber: "/out"}}, cfg.Seed.Subscriptions)
	assert.Len(t, cfg.BridgeOptions(), 2)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ownership.Exclusive, cfg.Mode())
	assert.False(t, cfg.BridgeEnabled())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "missing.toml")
	assert.Error(t, err)

	_, err = Load(memFS(t, map[string]string{"bad.toml": "[exchange\nmode ="}), "bad.toml")
	assert.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDefault(&buf))
	assert.Contains(t, buf.String(), `mode = 'exclusive'`)

	cfg, err := Load(memFS(t, map[string]string{"swamp.toml": buf.String()}), "swamp.toml")
	require.NoError(t, err)
	assert.Equal(t, Default().Exchange, cfg.Exchange)
	assert.Equal(t, Default().Log, cfg.Log)
	assert.Equal(t, Default().NATS.Prefix, cfg.NATS.Prefix)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env(map[string]string{
		EnvMode:        "shared",
		EnvStrictPaths: "true",
		EnvLogLevel:    "warn",
		EnvNATSURL:     "nats://env:4222",
	})))
	assert.Equal(t, "shared", cfg.Exchange.Mode)
	assert.True(t, cfg.Exchange.StrictPaths)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "nats://env:4222", cfg.NATS.URL)
	require.NoError(t, cfg.Validate())

	err := Default().ApplyEnv(env(map[string]string{EnvStrictPaths: "maybe"}))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	untouched := Default()
	require.NoError(t, untouched.ApplyEnv(env(nil)))
	assert.Equal(t, Default(), untouched)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Exchange.Mode = "sometimes" }},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }},
		{"bridge needs shared mode", func(c *Config) { c.NATS.URL = "nats://localhost:4222" }},
		{"unknown codec", func(c *Config) {
			c.Exchange.Mode = "shared"
			c.NATS.URL = "nats://localhost:4222"
			c.NATS.Codec = "xml"
		}},
		{"unmappable export", func(c *Config) {
			c.Exchange.Mode = "shared"
			c.NATS.URL = "nats://localhost:4222"
			c.NATS.Export = []string{"/a.b"}
		}},
		{"incomplete subscription", func(c *Config) {
			c.Seed.Subscriptions = []Subscription{{Node: "/a"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSeedApply(t *testing.T) {
	cfg, err := Load(memFS(t, map[string]string{"swamp.toml": sample}), "swamp.toml")
	require.NoError(t, err)

	x := swamp.New(cfg.ExchangeOptions()...)
	defer x.Close()
	require.NoError(t, cfg.Seed.Apply(x))
	require.NoError(t, cfg.Seed.Apply(x))

	paths, err := x.Paths()
	require.NoError(t, err)
	assert.Equal(t, []swamp.Path{swamp.NewPath("/in"), swamp.NewPath("/in/deep"), swamp.NewPath("/out")}, paths)

	subs, err := x.Subscribers(swamp.NewPath("/in"))
	require.NoError(t, err)
	assert.Equal(t, []swamp.Path{swamp.NewPath("/out")}, subs)

	bad := SeedConfig{Subscriptions: []Subscription{{Node: "/nope", Subscriber: "/out"}}}
	assert.ErrorIs(t, bad.Apply(x), swamp.ErrNodeNotFound)
}
