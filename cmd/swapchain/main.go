package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/defistate/swapchain-go/cmd/swapchain/config"
	"github.com/defistate/swapchain-go/orchestrator"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/protocols/orca"
	"github.com/defistate/swapchain-go/protocols/raydium"
	"github.com/defistate/swapchain-go/protocols/saber"
	"github.com/defistate/swapchain-go/protocols/serum"
	"github.com/defistate/swapchain-go/store/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const usage = `usage: swapchain <command> [-config file]

commands:
  address    print the chain state address and bump
  simulate   run the configured route on a local ledger
  submit     send the configured chain to the cluster
  history    list recent chain runs
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", "config.yaml", "Path to the configuration file.")
	initialize := flags.Bool("initialize", false, "submit: initialize the chain state account first.")
	limit := flags.Int("limit", 20, "history: number of runs to list.")
	_ = flags.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	rootLogger := newLogger(cfg.Log)

	// Create a context that cancels when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "address":
		err = runAddress(os.Stdout, cfg)
	case "simulate":
		err = withStore(cfg, func(store *sqlite.Store) error {
			return runSimulate(ctx, os.Stdout, cfg, store, rootLogger, prometheus.DefaultRegisterer)
		})
	case "submit":
		err = withStore(cfg, func(store *sqlite.Store) error {
			return runSubmit(ctx, os.Stdout, cfg, store, rootLogger, *initialize)
		})
	case "history":
		err = withStore(cfg, func(store *sqlite.Store) error {
			return runHistory(ctx, os.Stdout, store, *limit)
		})
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		rootLogger.Error("Command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var writer io.Writer = os.Stderr
	if cfg.File != "" {
		writer = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}
	return slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
}

func withStore(cfg *config.Config, fn func(*sqlite.Store) error) error {
	store, err := sqlite.Open(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// newVenues registers every supported venue at its mainnet program.
func newVenues() (*protocols.Registry, error) {
	return protocols.NewRegistry(
		orca.New(orca.ProgramID),
		raydium.New(raydium.ProgramID),
		saber.New(saber.ProgramID),
		serum.New(serum.ProgramID),
	)
}

func runAddress(w io.Writer, cfg *config.Config) error {
	address, bump, err := orchestrator.StateAddress(cfg.ProgramID.PublicKey())
	if err != nil {
		return fmt.Errorf("derive state address: %w", err)
	}
	fmt.Fprintf(w, "program: %s\nstate:   %s\nbump:    %d\n", cfg.ProgramID.PublicKey(), address, bump)
	return nil
}
