package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eyelink-control/elg/internal/calibration"
	"github.com/eyelink-control/elg/internal/config"
	"github.com/eyelink-control/elg/internal/tracker"
)

func newCalibrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:    "calibrate",
		Short:  "Run one tracker calibration and report the outcome on stdout",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalibrate(cmd.Context(), opts)
		},
	}
}

// runCalibrate is the calibration child. stdout carries only the outcome
// line; logs go to stderr, which the parent forwards to its own log.
func runCalibrate(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log.SetOutput(os.Stderr)
	log.SetPrefix("calibrate: ")

	fail := func(err error) error {
		_ = calibration.WriteOutcome(os.Stdout, calibration.OutcomeFailed, err)
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return fail(err)
	}

	tr, err := tracker.Open(cfg.Tracker.Driver, cfg.Tracker.Address)
	if err != nil {
		return fail(err)
	}
	tk, err := calibration.OpenToolkit(cfg.Calibration.Toolkit)
	if err != nil {
		return fail(err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if calibration.RunChild(sigCtx, tr, tk, childConfig(cfg.Calibration), os.Stdout) != calibration.OutcomeComplete {
		return errors.New("calibration failed")
	}
	return nil
}

func childConfig(c config.CalibrationConfig) calibration.ChildConfig {
	return calibration.ChildConfig{
		Window: calibration.WindowOptions{
			FullScreen: c.FullScreen,
			Monitor: calibration.Monitor{
				Name:       "myMonitor",
				WidthCm:    c.MonitorWidthCm,
				DistanceCm: c.MonitorDistanceCm,
			},
			Width:  c.ScreenWidth,
			Height: c.ScreenHeight,
		},
		Foreground:   colorFromConfig(c.ForegroundColor),
		Background:   colorFromConfig(c.BackgroundColor),
		Target:       calibration.Target{Type: c.TargetType, Picture: c.PictureTarget},
		Instructions: c.Instructions,
	}
}

func colorFromConfig(rgb []float64) calibration.Color {
	if len(rgb) != 3 {
		return calibration.Color{}
	}
	return calibration.Color{R: rgb[0], G: rgb[1], B: rgb[2]}
}
