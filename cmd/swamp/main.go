package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casualjim/swamp"
	"github.com/casualjim/swamp/internal/config"
	"github.com/casualjim/swamp/internal/shell"
	"github.com/casualjim/swamp/natsbridge"
	"github.com/casualjim/swamp/pkg/natsx"
	"github.com/casualjim/swamp/pkg/slogx"
	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var (
	configFile           string
	generateSampleConfig bool

	log      zerolog.Logger
	logLevel = new(slog.LevelVar)
)

func init() {
	flag.StringVar(&configFile, "c", "", "-c=swamp.toml")
	flag.BoolVar(&generateSampleConfig, "gencfg", false, "-gencfg")

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log = zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: logLevel}),
	))
}

func main() {
	flag.Parse()
	fs := afero.NewOsFs()

	if generateSampleConfig {
		if err := writeSample(fs, "swamp.toml.example"); err != nil {
			slog.Error("failed to write sample config", slogx.Error(err))
			os.Exit(1)
		}
		slog.Info("wrote swamp.toml.example")
		return
	}

	cfg, err := config.Load(fs, configFile)
	if err == nil {
		err = cfg.ApplyEnv(os.LookupEnv)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("invalid configuration", slogx.Error(err))
		os.Exit(1)
	}
	level, _ := cfg.LogLevel()
	logLevel.Set(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("swamp failed", slogx.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	x := swamp.New(cfg.ExchangeOptions()...)
	defer x.Close()
	slog.Info("exchange ready", slogx.Mode(x.Mode()))

	if err := cfg.Seed.Apply(x); err != nil {
		return err
	}

	if cfg.BridgeEnabled() {
		stop, err := startBridge(ctx, cfg, x)
		if err != nil {
			return err
		}
		defer stop()
	}

	sh := shell.New(x, os.Stdout)
	defer sh.Close()
	return sh.Run(ctx, os.Stdin)
}

func startBridge(ctx context.Context, cfg *config.Config, x *swamp.Exchange) (func(), error) {
	nc, err := natsx.NewClient(cfg.NATS.URL)
	if err != nil {
		return nil, err
	}
	b := natsbridge.New(nc, x, cfg.BridgeOptions()...)

	for _, p := range cfg.NATS.Export {
		if err := b.Export(ctx, swamp.NewPath(p)); err != nil {
			_ = b.Close()
			nc.Close()
			return nil, err
		}
	}
	for _, p := range cfg.NATS.Import {
		if err := b.Import(ctx, swamp.NewPath(p)); err != nil {
			_ = b.Close()
			nc.Close()
			return nil, err
		}
	}

	go func() {
		if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("bridge stopped", slogx.Error(err))
		}
	}()
	slog.Info("nats bridge ready", slog.String("url", nc.ConnectedUrlRedacted()), slog.String("bridge", b.ID()))

	return func() {
		if err := b.Close(); err != nil {
			slog.Warn("failed to close bridge", slogx.Error(err))
		}
		nc.Close()
	}, nil
}

func writeSample(fs afero.Fs, name string) error {
	f, err := fs.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return config.WriteDefault(f)
}
