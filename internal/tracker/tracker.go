package tracker

import (
	"context"
)

// TrialOK is the result code written with the TRIAL_RESULT end-of-trial marker.
const TrialOK = 0

// RecordingOptions selects which streams the host records and forwards.
type RecordingOptions struct {
	FileSamples bool
	FileEvents  bool
	LinkSamples bool
	LinkEvents  bool
}

// AllStreams records samples and events to the data file and over the link.
func AllStreams() RecordingOptions {
	return RecordingOptions{
		FileSamples: true,
		FileEvents:  true,
		LinkSamples: true,
		LinkEvents:  true,
	}
}

// SetupDisplay is the calibration surface the tracker draws targets on while
// the interactive setup runs. It is provided by the graphics toolkit.
type SetupDisplay interface {
	// Size returns the display resolution in pixels.
	Size() (width, height int)

	// DrawTarget shows the calibration target centred at (x, y).
	DrawTarget(x, y int) error

	// ClearTarget removes the target from the display.
	ClearTarget() error
}

// Tracker defines the southbound contract for the eye-tracker host link.
type Tracker interface {
	// Connect opens the link to the tracker host.
	Connect(ctx context.Context) error

	// IsConnected reports whether the link is open.
	IsConnected() bool

	// Close closes the link. Closing a closed link is not an error.
	Close() error

	// SetOfflineMode stops recording and puts the host in idle mode.
	// Required before most configuration commands.
	SetOfflineMode(ctx context.Context) error

	// VersionString returns the host software identification,
	// e.g. "EYELINK CL 5.12".
	VersionString(ctx context.Context) (string, error)

	// OpenDataFile opens a data file on the host.
	OpenDataFile(ctx context.Context, name string) error

	// CloseDataFile closes the open data file on the host.
	CloseDataFile(ctx context.Context) error

	// ReceiveDataFile transfers a host data file to a local path.
	ReceiveDataFile(ctx context.Context, src, dest string) error

	// SendCommand sends a configuration command to the host.
	SendCommand(ctx context.Context, command string) error

	// SendMessage writes a timestamped message into the data file.
	SendMessage(ctx context.Context, message string) error

	// StartRecording starts recording the selected streams.
	StartRecording(ctx context.Context, opts RecordingOptions) error

	// StopRecording stops recording.
	StopRecording(ctx context.Context) error

	// DoTrackerSetup runs the interactive camera setup and calibration
	// on the given display. Blocks until the operator leaves setup.
	DoTrackerSetup(ctx context.Context, display SetupDisplay) error
}

// Base provides common bookkeeping for driver implementations.
type Base struct {
	// Driver is the registered driver name
	Driver string

	// Address is the host address the driver connects to
	Address string
}

// GetDriver returns the driver name.
func (b *Base) GetDriver() string {
	return b.Driver
}

// GetAddress returns the host address.
func (b *Base) GetAddress() string {
	return b.Address
}
