package calibration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eyelink-control/elg/internal/tracker"
)

// Monitor describes the physical display.
type Monitor struct {
	Name       string
	WidthCm    float64
	DistanceCm float64
}

// WindowOptions configures the calibration window.
type WindowOptions struct {
	FullScreen bool
	Monitor    Monitor

	// Width and Height are used when the toolkit cannot query the display
	Width  int
	Height int
}

// Color is an RGB triple in the range -1..1.
type Color struct {
	R, G, B float64
}

// Target selects the calibration target drawing.
type Target struct {
	// Type is "picture" or "circle"
	Type string

	// Picture is the image path for picture targets
	Picture string
}

// Window is a calibration window. The tracker draws targets on it during
// setup.
type Window interface {
	tracker.SetupDisplay

	// SetCalibrationColors sets target and background colours.
	SetCalibrationColors(foreground, background Color) error

	// SetTarget selects the target drawing.
	SetTarget(t Target) error

	// ShowMessage displays text, optionally waiting for a key press.
	ShowMessage(ctx context.Context, text string, waitForKey bool) error

	// Close closes the window.
	Close() error
}

// Toolkit opens calibration windows.
type Toolkit interface {
	OpenWindow(ctx context.Context, opts WindowOptions) (Window, error)
}

var (
	toolkitsMu sync.RWMutex
	toolkits   = make(map[string]Toolkit)
)

// RegisterToolkit makes a toolkit available under name.
func RegisterToolkit(name string, tk Toolkit) {
	toolkitsMu.Lock()
	defer toolkitsMu.Unlock()

	if tk == nil {
		panic("calibration: RegisterToolkit toolkit is nil")
	}
	if _, dup := toolkits[name]; dup {
		panic("calibration: RegisterToolkit called twice for " + name)
	}
	toolkits[name] = tk
}

// OpenToolkit returns the named toolkit.
func OpenToolkit(name string) (Toolkit, error) {
	toolkitsMu.RLock()
	defer toolkitsMu.RUnlock()

	tk, ok := toolkits[name]
	if !ok {
		names := make([]string, 0, len(toolkits))
		for n := range toolkits {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("calibration: unknown toolkit %q (registered: %v)", name, names)
	}
	return tk, nil
}
