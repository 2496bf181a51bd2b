package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eyelink-control/elg/internal/api"
	"github.com/eyelink-control/elg/internal/audit"
	"github.com/eyelink-control/elg/internal/auth"
	"github.com/eyelink-control/elg/internal/calibration"
	"github.com/eyelink-control/elg/internal/command"
	"github.com/eyelink-control/elg/internal/config"
	"github.com/eyelink-control/elg/internal/events"
	"github.com/eyelink-control/elg/internal/session"
	"github.com/eyelink-control/elg/internal/tracker"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.envFile == "" {
		return config.Load(opts.configPath)
	}
	return config.Load(opts.configPath, opts.envFile)
}

// setupLogging sends the standard logger to stderr and a rotated file.
func setupLogging(cfg config.LoggingConfig) (io.Closer, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.File),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	return file, nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Load configuration
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logFile, err := setupLogging(cfg.Logging)
	if err != nil {
		return err
	}
	defer logFile.Close()

	log.Printf("Starting EyeLink gateway v%s", Version)
	if cfg.Tracker.DummyMode {
		log.Println("Dummy mode: commands are acknowledged without tracker access")
	}

	// Step 2: Results folder
	if err := os.MkdirAll(cfg.Results.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	// Step 3: Tracker session
	tr, err := tracker.Open(cfg.Tracker.Driver, cfg.Tracker.Address)
	if err != nil {
		return fmt.Errorf("failed to open tracker driver: %w", err)
	}
	sess := session.New(tr)
	log.Printf("Tracker driver %q at %s", cfg.Tracker.Driver, cfg.Tracker.Address)

	if cfg.Tracker.ConnectOnStart && !cfg.Tracker.DummyMode {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Tracker.CommandTimeout)
		if err := sess.EnsureConnected(connectCtx); err != nil {
			// Commands reconnect lazily.
			log.Printf("Tracker not reachable at startup: %v", err)
		} else {
			log.Println("Tracker connected")
		}
		cancel()
	}

	// Step 4: Event hub
	hub := events.NewHub(events.Config{
		BufferSize:        cfg.Events.BufferSize,
		HeartbeatInterval: cfg.Events.HeartbeatInterval,
	}, func() interface{} {
		return sess.Snapshot()
	})

	// Step 5: Audit logger
	auditLogger, err := audit.NewLogger(cfg.Logging.Dir, audit.Options{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	log.Printf("Audit log at %s", auditLogger.GetFilePath())

	// Step 6: Calibration supervisor
	supervisor := calibration.NewSupervisor(calibration.SupervisorConfig{
		Args:    calibrateArgs(opts),
		Timeout: cfg.Calibration.Timeout,
	})
	supervisor.OnTransition(func(from, to calibration.State, detail string) {
		data := map[string]interface{}{"from": string(from), "state": string(to)}
		if detail != "" {
			data["detail"] = detail
		}
		if err := hub.Publish(events.Event{Type: events.TypeCalibration, Data: data}); err != nil {
			log.Printf("Failed to publish calibration event: %v", err)
		}
	})

	// Step 7: Command gateway
	gateway := command.NewGateway(sess, supervisor, command.Options{
		ResultsDir:      cfg.Results.Dir,
		Preamble:        cfg.Recording.Preamble,
		SettleDelay:     cfg.Recording.SettleDelay,
		Profile:         profileFromConfig(cfg.Recording),
		DummyMode:       cfg.Tracker.DummyMode,
		CommandTimeout:  cfg.Tracker.CommandTimeout,
		TransferTimeout: cfg.Tracker.TransferTimeout,
	})
	gateway.SetEventPublisher(hub)
	gateway.SetAuditLogger(auditLogger)

	// Step 8: API server
	server := api.NewServer(gateway, hub, sess, supervisor, api.Options{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		DummyMode:      cfg.Tracker.DummyMode,
	})
	if cfg.Auth.Enabled {
		verifier, err := newVerifier(cfg.Auth)
		if err != nil {
			return err
		}
		server.SetAuthMiddleware(auth.NewMiddleware(verifier))
		log.Printf("Bearer authentication enabled (%s)", cfg.Auth.Algorithm)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Server.Addr)
	}()
	log.Printf("Listening on http://%s/send_command", cfg.Server.Addr)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Println("Shutdown requested")
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.Stop()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	}
	if err := sess.Close(); err != nil {
		log.Printf("Error closing tracker link: %v", err)
	}
	if err := auditLogger.Close(); err != nil {
		log.Printf("Error closing audit logger: %v", err)
	}

	log.Println("EyeLink gateway stopped")
	return nil
}

// calibrateArgs re-runs this binary as the calibration child with the same
// configuration sources.
func calibrateArgs(opts *rootOptions) []string {
	args := []string{"calibrate"}
	if opts.configPath != "" {
		args = append(args, "--config", opts.configPath)
	}
	if opts.envFile != "" {
		args = append(args, "--env-file", opts.envFile)
	}
	return args
}

func profileFromConfig(r config.RecordingConfig) tracker.RecordingProfile {
	return tracker.RecordingProfile{
		SampleRate:                   r.SampleRate,
		CalibrationType:              r.CalibrationType,
		SaccadeVelocityThreshold:     r.SaccadeVelocityThreshold,
		SaccadeAccelerationThreshold: r.SaccadeAccelerationThreshold,
	}
}

func newVerifier(cfg config.AuthConfig) (*auth.Verifier, error) {
	vc := auth.VerifierConfig{
		Algorithm: cfg.Algorithm,
		SecretKey: cfg.SecretKey,
		Issuer:    cfg.Issuer,
	}
	if cfg.PublicKeyFile != "" {
		pem, err := os.ReadFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read public key: %w", err)
		}
		vc.PublicKeyPEM = string(pem)
	}

	verifier, err := auth.NewVerifier(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}
	return verifier, nil
}
