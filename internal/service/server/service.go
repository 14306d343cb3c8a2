package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Doaky/pi-alarm-block/internal/api/rest"
	"github.com/Doaky/pi-alarm-block/internal/api/ws"
	"github.com/Doaky/pi-alarm-block/internal/audio"
	"github.com/Doaky/pi-alarm-block/internal/config"
	"github.com/Doaky/pi-alarm-block/internal/hardware"
	"github.com/Doaky/pi-alarm-block/internal/logger"
	"github.com/Doaky/pi-alarm-block/internal/notify"
	alarmrepo "github.com/Doaky/pi-alarm-block/internal/repository/alarms"
	"github.com/Doaky/pi-alarm-block/internal/repository/settings"
	"github.com/Doaky/pi-alarm-block/internal/scheduler"
	"github.com/Doaky/pi-alarm-block/internal/service/alarms"
)

const (
	// shutdownTimeout bounds the HTTP server drain on exit.
	shutdownTimeout = 5 * time.Second
	// readHeaderTimeout guards against slow-header clients.
	readHeaderTimeout = 10 * time.Second
	// dirPermissions is applied to created data and log directories.
	dirPermissions = 0o755
)

// Options controls the alarm-block process.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file. Empty runs
	// with built-in defaults.
	ConfigPath string
	// ListenAddress overrides the configured HTTP listen address.
	ListenAddress string
	// DataDir overrides the configured data directory.
	DataDir string
}

// Run starts the service and blocks until the context is canceled or a
// component fails to come up.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-block")

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = setupLogging(cfg); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	if err = os.MkdirAll(cfg.DataDir, dirPermissions); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Realtime feed: hub fans frames to browsers, the dispatcher decouples
	// state changes from delivery. The hub runs on its own context so it
	// cannot tear clients down before the shutdown frame is handed off.
	hub := ws.NewHub()
	wsSink := ws.NewSink(hub)
	dispatcher := notify.NewDispatcher(wsSink)

	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	defer stopHub()

	go hub.Run(hubCtx)
	go dispatcher.Run(ctx)

	store := settings.NewStore(ctx, cfg.SettingsFile())

	source := buildSource(ctx, cfg)
	defer source.Close()

	audioSvc := audio.NewCoordinator(source, store, dispatcher)
	defer audioSvc.Close(ctx)

	// The trigger closure runs on cron goroutines after Start, by which
	// time alarmSvc is assigned.
	var alarmSvc *alarms.Coordinator

	sched := scheduler.NewCronScheduler(func(id string) {
		alarmSvc.HandleTrigger(ctx, id)
	})

	alarmSvc = alarms.NewCoordinator(ctx, alarmrepo.NewFileRepository(cfg.AlarmsFile()), store, sched, audioSvc, dispatcher)

	sched.Start()
	defer sched.Stop(ctx)

	if cfg.HardwareMode == config.HardwareEvdev {
		controls := hardware.NewControls(audioSvc, alarmSvc)
		reader := hardware.NewReader(controls, cfg.InputDevices)

		go func() {
			if err := reader.Run(ctx); err != nil {
				logger.ErrorKV(ctx, "Hardware input reader exited", "error", err)
			}
		}()
	}

	restSrv := rest.NewServer(alarmSvc, audioSvc, hub, cfg.FrontendDir, cfg.LogFile)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           restSrv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.InfoKV(ctx, "Alarm block service listening",
		"listen_address", cfg.ListenAddress,
		"data_dir", cfg.DataDir,
		"hardware_mode", cfg.HardwareMode)

	// Done channel is closed after Shutdown finishes so we block until the
	// server fully drains before returning.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down")
		wsSink.NotifyShutdown()
		stopHub()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "HTTP shutdown was not clean", "error", err)
		}
	}()

	if err = httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "Alarm block service stopped")

	return nil
}

// loadConfig resolves settings from the config file or defaults and
// applies command-line overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}

	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupLogging applies the configured level and attaches the log file
// when one is configured.
func setupLogging(cfg *config.Config) error {
	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), dirPermissions); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}

		fileLogger, err := logger.NewWithFile(nil, cfg.LogFile)
		if err != nil {
			return err
		}

		logger.SetLogger(fileLogger)
	}

	logger.SetLevel(level)

	return nil
}

// buildSource opens the real audio backend, degrading to the silent
// simulated source when the device or sound files are unavailable.
func buildSource(ctx context.Context, cfg *config.Config) audio.SoundSource {
	source, err := audio.NewBeepSource(ctx, cfg.SoundsDir, cfg.WhiteNoisePath())
	if err != nil {
		logger.ErrorKV(ctx, "Audio backend unavailable, running silent", "error", err)

		return audio.NewSimulatedSource(nil, "")
	}

	return source
}
