package calibration

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/eyelink-control/elg/internal/tracker"
)

// DefaultInstructions is shown before the tracker setup starts.
const DefaultInstructions = "press ENTER twice to calibrate tracker"

// ChildConfig configures the calibration child.
type ChildConfig struct {
	Window       WindowOptions
	Foreground   Color
	Background   Color
	Target       Target
	Instructions string
}

// DefaultChildConfig returns a 53cm monitor at 70cm, full screen, black
// targets on a grey background.
func DefaultChildConfig() ChildConfig {
	return ChildConfig{
		Window: WindowOptions{
			FullScreen: true,
			Monitor:    Monitor{Name: "myMonitor", WidthCm: 53.0, DistanceCm: 70.0},
		},
		Foreground:   Color{-1, -1, -1},
		Background:   Color{0, 0, 0},
		Target:       Target{Type: "picture", Picture: "images/fixTarget.bmp"},
		Instructions: DefaultInstructions,
	}
}

// RunChild performs one calibration and writes the outcome line to out.
// It returns the outcome written.
func RunChild(ctx context.Context, tr tracker.Tracker, tk Toolkit, cfg ChildConfig, out io.Writer) Outcome {
	outcome, err := OutcomeComplete, calibrate(ctx, tr, tk, cfg)
	if err != nil {
		log.Printf("Error during calibration setup: %v", err)
		outcome = OutcomeFailed
	}

	if werr := WriteOutcome(out, outcome, err); werr != nil {
		log.Printf("Failed to report calibration outcome: %v", werr)
	}
	return outcome
}

func calibrate(ctx context.Context, tr tracker.Tracker, tk Toolkit, cfg ChildConfig) error {
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer tr.Close()

	if err := tr.SetOfflineMode(ctx); err != nil {
		return err
	}

	win, err := tk.OpenWindow(ctx, cfg.Window)
	if err != nil {
		return fmt.Errorf("open window: %w", err)
	}
	defer win.Close()

	w, h := win.Size()
	if err := tr.SendCommand(ctx, fmt.Sprintf("screen_pixel_coords = 0 0 %d %d", w-1, h-1)); err != nil {
		return err
	}
	if err := tr.SendMessage(ctx, fmt.Sprintf("DISPLAY_COORDS 0 0 %d %d", w-1, h-1)); err != nil {
		return err
	}

	if err := win.SetCalibrationColors(cfg.Foreground, cfg.Background); err != nil {
		return err
	}
	if err := win.SetTarget(cfg.Target); err != nil {
		return err
	}

	instructions := cfg.Instructions
	if instructions == "" {
		instructions = DefaultInstructions
	}
	if err := win.ShowMessage(ctx, instructions, true); err != nil {
		return err
	}

	if err := tr.DoTrackerSetup(ctx, win); err != nil {
		return fmt.Errorf("tracker setup: %w", err)
	}

	return win.Close()
}
