package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gearxr/gear/internal/ai"
	"github.com/gearxr/gear/internal/config"
	"github.com/gearxr/gear/internal/dispatcher"
	"github.com/gearxr/gear/internal/handlers"
	"github.com/gearxr/gear/internal/host"
	"github.com/gearxr/gear/internal/influx"
	"github.com/gearxr/gear/internal/logging"
	"github.com/gearxr/gear/internal/monitor"
	"github.com/gearxr/gear/internal/worker"
)

func serve(ctx context.Context, seedPath string) error {
	hostCfg := config.GetHostConfig()
	storageCfg := config.GetStorageConfig()
	if err := os.MkdirAll(hostCfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbm, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer dbm.Close()

	// the final dump runs after the worker below has flushed
	dumpCtx, cancelDump := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancelDump()
		wg.Wait()
	}()
	if dbm.InMemory {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dbm.RunDumpLoop(dumpCtx, storageCfg.SQLite.DumpInterval)
		}()
	}

	if seedPath != "" {
		if err := loadSeed(ctx, store, seedPath); err != nil {
			return err
		}
	}

	presenceStore, err := createPresenceStore(ctx, store, config.GetPresenceConfig(), hostCfg.Freshness)
	if err != nil {
		return err
	}
	defer presenceStore.Close()

	// analytics
	var sink worker.Sink
	im := influx.NewManager(ZLog, filepath.Join(hostCfg.DataDir, "influx_backup.lp.gz"))
	switch err := im.Connect(ctx, config.GetInfluxConfig()); {
	case errors.Is(err, influx.ErrDisabled):
		Logger.Info("Influx analytics disabled")
	case err != nil:
		Logger.Error("Influx analytics unavailable", "error", err)
	default:
		sink = im
		defer im.Close()
	}

	generator := ai.New(config.GetAIConfig())
	if !generator.Enabled() {
		Logger.Info("AI content generation disabled")
	}

	tracker := worker.NewManager(worker.Dependencies{
		Store:  store,
		Sink:   sink,
		Logger: Logger.With("component", "worker"),
	})
	tracker.Start()
	defer tracker.Stop()

	svc := handlers.NewService(handlers.Dependencies{
		Store:     store,
		Presence:  presenceStore,
		Generator: generator,
		Tracker:   tracker,
		Logger:    Logger.With("component", "handlers"),
		Freshness: hostCfg.Freshness,
	})
	d, err := dispatcher.New(logging.NewBusLogger(ZLog))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	svc.Register(d)
	Logger.Info("Methods registered", "methods", d.Methods())

	mon := monitor.NewService(monitor.Dependencies{
		Presence:  presenceStore,
		Worker:    tracker,
		Logger:    Logger.With("component", "monitor"),
		DataDir:   hostCfg.DataDir,
		Interval:  hostCfg.SweepInterval,
		Retention: hostCfg.Freshness,
	})
	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Stop()

	srv := host.New(host.Dependencies{
		Store:          store,
		Service:        svc,
		Dispatcher:     d,
		Logger:         Logger.With("component", "http"),
		AccessLog:      ZLog.With().Str("component", "access").Logger(),
		StreamInterval: hostCfg.Freshness / 2,
	})
	return srv.ListenAndServe(ctx, hostCfg.Listen)
}
