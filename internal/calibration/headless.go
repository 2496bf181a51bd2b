package calibration

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
)

// HeadlessName is the registry name of the headless toolkit.
const HeadlessName = "headless"

func init() {
	RegisterToolkit(HeadlessName, &HeadlessToolkit{})
}

// HeadlessToolkit opens windows that only log what would be drawn. It is
// used on machines without a display and in development with the sim driver.
type HeadlessToolkit struct{}

// OpenWindow opens a headless window of the configured size.
func (HeadlessToolkit) OpenWindow(ctx context.Context, opts WindowOptions) (Window, error) {
	w, h := opts.Width, opts.Height
	if w <= 0 || h <= 0 {
		w, h = 1920, 1080
	}

	log.Printf("Headless window %dx%d (monitor %.0fcm at %.0fcm, fullscreen=%t)",
		w, h, opts.Monitor.WidthCm, opts.Monitor.DistanceCm, opts.FullScreen)
	return &HeadlessWindow{width: w, height: h}, nil
}

// HeadlessWindow records drawing calls.
type HeadlessWindow struct {
	width, height int

	mu       sync.Mutex
	target   Target
	fg, bg   Color
	messages []string
	targets  [][2]int
	closed   bool
}

// Size returns the window size.
func (w *HeadlessWindow) Size() (int, int) {
	return w.width, w.height
}

// DrawTarget records a target.
func (w *HeadlessWindow) DrawTarget(x, y int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("window closed")
	}
	w.targets = append(w.targets, [2]int{x, y})
	log.Printf("Calibration target (%s) at %d,%d", w.target.Type, x, y)
	return nil
}

// ClearTarget is a no-op.
func (w *HeadlessWindow) ClearTarget() error {
	return nil
}

// SetCalibrationColors stores the colours.
func (w *HeadlessWindow) SetCalibrationColors(fg, bg Color) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fg, w.bg = fg, bg
	return nil
}

// SetTarget selects the target. A missing picture falls back to a circle.
func (w *HeadlessWindow) SetTarget(t Target) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t.Type == "picture" {
		if _, err := os.Stat(t.Picture); err != nil {
			log.Printf("Picture target %s unavailable (%v), using circle", t.Picture, err)
			t = Target{Type: "circle"}
		}
	}
	w.target = t
	return nil
}

// ShowMessage logs the text. There is no keyboard, so it never waits.
func (w *HeadlessWindow) ShowMessage(ctx context.Context, text string, waitForKey bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, text)
	log.Printf("Calibration message: %s", text)
	return ctx.Err()
}

// Close closes the window.
func (w *HeadlessWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Messages returns the shown messages.
func (w *HeadlessWindow) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.messages...)
}

// Targets returns the drawn target positions.
func (w *HeadlessWindow) Targets() [][2]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][2]int(nil), w.targets...)
}

// CurrentTarget returns the selected target.
func (w *HeadlessWindow) CurrentTarget() Target {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}

// Closed reports whether Close was called.
func (w *HeadlessWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
