package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gearxr/gear/internal/config"
	"github.com/gearxr/gear/internal/engine"
	"github.com/gearxr/gear/internal/engine/gltf"
	"github.com/gearxr/gear/internal/engine/headless"
	"github.com/gearxr/gear/internal/gateway"
	"github.com/gearxr/gear/internal/logging"
	"github.com/gearxr/gear/internal/presence"
	gearsignal "github.com/gearxr/gear/internal/signal"
	"github.com/gearxr/gear/internal/viewer"

	"github.com/rs/zerolog"
)

// Version can be set at build time via ldflags.
var Version = "0.1.0"

const program = "gear-viewer"

func usage() {
	fmt.Fprintf(os.Stderr, `%s %s

Usage:
  %s view <cmid>          open a course module and stay in the scene until interrupted
  %s leaderboard <cmid>   print the quiz leaderboard of a course module

The host URL and token come from viewer.serverUrl and viewer.token in %s.
`, program, Version, program, program, config.FileName)
}

func main() {
	args := os.Args[1:]
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	cmid, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		usage()
		os.Exit(2)
	}

	configDir := os.Getenv("GEAR_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	cfgErr := config.Load(configDir)

	level := config.GetString("logLevel")
	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{Level: level, ServiceName: program})
	logger := slogManager.Logger()
	if cfgErr != nil {
		logger.Warn("Config file not loaded, using defaults", "dir", configDir, "error", cfgErr)
	}
	zlog := zerolog.New(os.Stderr).With().Timestamp().Str("program", program).Logger().
		Level(logging.ZerologLevel(level))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch strings.ToLower(args[0]) {
	case "view":
		err = view(ctx, cmid, logger, zlog)
	case "leaderboard":
		err = leaderboard(ctx, cmid, logger, zlog)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Viewer failed", "error", err)
		os.Exit(1)
	}
}

// openSession connects to the host and initializes a session for cmid.
func openSession(ctx context.Context, cmid int64, logger *slog.Logger, bus *gearsignal.Bus) (*viewer.Session, *gateway.Client, error) {
	cfg := config.GetViewerConfig()
	client := gateway.New(cfg.ServerURL, cfg.Token, logger)
	if err := client.Healthcheck(ctx); err != nil {
		return nil, nil, err
	}
	boot, err := client.FetchBootstrap(ctx, cmid)
	if err != nil {
		return nil, nil, err
	}

	eng := &engine.Engine{
		Renderer: headless.NewRenderer(cfg.FrameInterval, 1280, 720),
		Loader:   gltf.NewLoader(gltf.WithLogger(logger)),
		Audio:    headless.NewAudio(),
		XR:       headless.NewXR(engine.ImmersiveVR),
	}
	session := viewer.New(boot, viewer.Deps{
		Engine:   engine.Static(eng),
		Gateway:  client,
		UI:       &consoleUI{logger: logger},
		Notifier: &consoleNotifier{logger: logger},
		Signals:  bus,
	}, viewer.WithLogger(logger), viewer.WithLeaderboardLimit(cfg.LeaderboardLimit))
	return session, client, nil
}

// observeSignals logs every viewer signal from a queue of its own so the
// emitting session never waits on the console.
func observeSignals(bus *gearsignal.Bus, logger *slog.Logger) {
	for _, name := range []string{gearsignal.SceneLoaded, gearsignal.ARStarted, gearsignal.VRStarted} {
		bus.Subscribe(name, func(_ context.Context, sig gearsignal.Signal) error {
			logger.Info("Signal", "name", sig.Name, "cmid", sig.CMID, "gearid", sig.GearID)
			return nil
		}, gearsignal.Buffered(8))
	}
}

func view(ctx context.Context, cmid int64, logger *slog.Logger, zlog zerolog.Logger) error {
	bus, err := gearsignal.New(logging.NewBusLogger(zlog))
	if err != nil {
		return err
	}
	defer bus.Close()
	observeSignals(bus, logger)

	session, client, err := openSession(ctx, cmid, logger, bus)
	if err != nil {
		return err
	}
	defer session.Close()

	heartbeat, err := presence.New(presence.Dependencies{
		Source:   session,
		Syncer:   client,
		Logger:   logger,
		Interval: config.GetPresenceConfig().Interval,
	})
	if err != nil {
		return err
	}
	boot := presence.Bind(bus, heartbeat)
	defer boot.Release()

	if err := session.Init(ctx); err != nil {
		return err
	}
	if err := session.WaitLoaded(ctx); err != nil {
		return err
	}
	logger.Info("Scene ready", "hotspots", len(session.Hotspots()), "placeholder", session.HasPlaceholder())

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Leaving scene")
			return nil
		case <-ticker.C:
			logger.Info("Participants", "avatars", heartbeat.Avatars().IDs())
		}
	}
}

func leaderboard(ctx context.Context, cmid int64, logger *slog.Logger, zlog zerolog.Logger) error {
	bus, err := gearsignal.New(logging.NewBusLogger(zlog))
	if err != nil {
		return err
	}
	defer bus.Close()

	session, _, err := openSession(ctx, cmid, logger, bus)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Init(ctx); err != nil {
		return err
	}
	if err := session.ShowLeaderboard(ctx); err != nil {
		return err
	}
	lb := session.Leaderboard()
	if len(lb.Rows) == 0 {
		fmt.Println(lb.Message)
		return nil
	}
	for _, r := range lb.Rows {
		fmt.Printf("%s %2d. %-30s %d\n", r.Badge, r.Rank, r.Name, r.Score)
	}
	return nil
}
