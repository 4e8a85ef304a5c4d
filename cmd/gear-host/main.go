package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gearxr/gear/internal/config"
	"github.com/gearxr/gear/internal/logging"
	intOtel "github.com/gearxr/gear/internal/otel"

	"github.com/rs/zerolog"
)

// BuildDate and Version can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const program = "gear-host"

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLog carries the access log and the infrastructure managers.
	ZLog zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	closers []io.Closer
)

func usage() {
	fmt.Fprintf(os.Stderr, `%s %s (%s)

Usage:
  %s serve [seed.json]               run the host, optionally loading users and activities first
  %s adduser <first> <last> [manager] create a user and print its token
  %s addactivity <activity.json>      create an activity and print its gear id

The config file %s is read from $GEAR_CONFIG_DIR (default: current directory).
`, program, Version, BuildDate, program, program, program, config.FileName)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := setup(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer teardown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch strings.ToLower(args[0]) {
	case "serve":
		seed := ""
		if len(args) > 1 {
			seed = args[1]
		}
		err = serve(ctx, seed)
	case "adduser":
		err = addUser(ctx, args[1:])
	case "addactivity":
		err = addActivity(ctx, args[1:])
	default:
		usage()
		teardown()
		os.Exit(2)
	}
	if err != nil {
		Logger.Error("Command failed", "command", args[0], "error", err)
		teardown()
		os.Exit(1)
	}
}

func setup() error {
	configDir := os.Getenv("GEAR_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	cfgErr := config.Load(configDir)

	level := config.GetString("logLevel")
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logsDir, program, time.Now()))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	closers = append(closers, logFile)
	out := io.MultiWriter(os.Stdout, logFile)

	opts := logging.Options{Level: level, File: out, ServiceName: program}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address, program)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		} else {
			opts.Graylog = w
			closers = append(closers, w)
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelFile, err := os.Create(logging.LogFilePath(logsDir, program+".otel", time.Now()))
		if err != nil {
			return fmt.Errorf("creating otel log file: %w", err)
		}
		closers = append(closers, otelFile)
		intOtel.Version = Version
		cfg := intOtel.FromConfig(otelCfg, otelFile)
		cfg.Program = program
		OTelProvider, err = intOtel.New(cfg)
		if err != nil {
			return fmt.Errorf("setting up otel: %w", err)
		}
		opts.Provider = OTelProvider.LoggerProvider()
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	ZLog = zerolog.New(out).With().Timestamp().Str("program", program).Logger().
		Level(logging.ZerologLevel(level))

	if cfgErr != nil {
		Logger.Warn("Config file not loaded, using defaults", "dir", configDir, "error", cfgErr)
	}
	Logger.Info("Starting", "program", program, "version", Version, "build", BuildDate)
	return nil
}

func teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		_ = OTelProvider.Shutdown(ctx)
		OTelProvider = nil
	}
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i].Close()
	}
	closers = nil
}
