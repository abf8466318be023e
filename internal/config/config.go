// Package config loads the settings of the swamp host process from TOML,
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"github.com/casualjim/swamp"
	"github.com/casualjim/swamp/codec"
	"github.com/casualjim/swamp/natsbridge"
	"github.com/casualjim/swamp/ownership"
	"github.com/fogfish/opts"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Environment variables read by ApplyEnv.
const (
	EnvMode        = "SWAMP_MODE"
	EnvStrictPaths = "SWAMP_STRICT_PATHS"
	EnvLogLevel    = "SWAMP_LOG_LEVEL"
	EnvNATSURL     = "NATS_URL"
)

// Config is the configuration of the swamp host process. The zero value is
// not usable, start from Default or Load.
type Config struct {
	Exchange ExchangeConfig `toml:"exchange"`
	Log      LogConfig      `toml:"log"`
	NATS     NATSConfig     `toml:"nats"`
	Seed     SeedConfig     `toml:"seed"`
}

// ExchangeConfig selects the ownership mode and the path policy of the
// exchange.
type ExchangeConfig struct {
	Mode        string `toml:"mode"`
	StrictPaths bool   `toml:"strict_paths"`
}

// LogConfig holds the log level, one of debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// NATSConfig enables the bridge when URL is set.
type NATSConfig struct {
	URL    string   `toml:"url"`
	Prefix string   `toml:"prefix"`
	Codec  string   `toml:"codec"`
	Export []string `toml:"export"`
	Import []string `toml:"import"`
}

// SeedConfig lists nodes and subscriptions created at start up.
type SeedConfig struct {
	Nodes         []string       `toml:"nodes"`
	Subscriptions []Subscription `toml:"subscriptions"`
}

// Subscription makes Subscriber receive the messages sent to Node.
type Subscription struct {
	Node       string `toml:"node"`
	Subscriber string `toml:"subscriber"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{Mode: ownership.Exclusive.String()},
		Log:      LogConfig{Level: "info"},
		NATS:     NATSConfig{Prefix: "swamp", Codec: codec.JSON().Name()},
	}
}

// Load reads a TOML file from fs over the defaults. An empty path returns
// the defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration as TOML.
func WriteDefault(w io.Writer) error {
	data, err := toml.Marshal(Default())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvMode); ok {
		c.Exchange.Mode = v
	}
	if v, ok := lookup(EnvStrictPaths); ok {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvStrictPaths, err)
		}
		c.Exchange.StrictPaths = strict
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvNATSURL); ok {
		c.NATS.URL = v
	}
	return nil
}

// Validate reports every problem with the configuration at once, wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	mode, err := ownership.ParseMode(c.Exchange.Mode)
	if err != nil {
		errs = append(errs, err)
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	if c.BridgeEnabled() {
		if mode != ownership.Shared {
			errs = append(errs, fmt.Errorf("the nats bridge needs exchange mode %q", ownership.Shared))
		}
		if _, err := codec.ByName(c.NATS.Codec); err != nil {
			errs = append(errs, err)
		}
		for _, p := range slices.Concat(c.NATS.Export, c.NATS.Import) {
			if _, err := natsbridge.SubjectFor(c.NATS.Prefix, swamp.NewPath(p)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, sub := range c.Seed.Subscriptions {
		if sub.Node == "" || sub.Subscriber == "" {
			errs = append(errs, fmt.Errorf("subscription %q -> %q is incomplete", sub.Node, sub.Subscriber))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// BridgeEnabled reports whether a NATS url is configured.
func (c *Config) BridgeEnabled() bool {
	return c.NATS.URL != ""
}

// Mode is the parsed exchange mode. Call Validate first.
func (c *Config) Mode() ownership.Mode {
	mode, _ := ownership.ParseMode(c.Exchange.Mode)
	return mode
}

// LogLevel parses the log level. An empty level is info.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// ExchangeOptions turns the exchange section into exchange options.
func (c *Config) ExchangeOptions() []opts.Option[swamp.Exchange] {
	return []opts.Option[swamp.Exchange]{
		swamp.Mode(c.Mode()),
		swamp.StrictPaths(c.Exchange.StrictPaths),
	}
}

// BridgeOptions turns the nats section into bridge options.
func (c *Config) BridgeOptions() []opts.Option[natsbridge.Bridge] {
	options := []opts.Option[natsbridge.Bridge]{natsbridge.Prefix(c.NATS.Prefix)}
	if cd, err := codec.ByName(c.NATS.Codec); err == nil {
		options = append(options, natsbridge.Codec(cd))
	}
	return options
}

// Apply creates the seed nodes, parents before children, then the seed
// subscriptions.
func (s SeedConfig) Apply(x *swamp.Exchange) error {
	nodes := make([]swamp.Path, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes = append(nodes, swamp.NewPath(n))
	}
	slices.SortStableFunc(nodes, func(a, b swamp.Path) int {
		return a.Depth() - b.Depth()
	})

	for _, p := range nodes {
		if err := x.CreateNode(p); err != nil && !errors.Is(err, swamp.ErrPathCollision) {
			return err
		}
	}
	for _, sub := range s.Subscriptions {
		if err := x.AddSubscription(swamp.NewPath(sub.Node), swamp.NewPath(sub.Subscriber)); err != nil {
			return err
		}
	}
	return nil
}
