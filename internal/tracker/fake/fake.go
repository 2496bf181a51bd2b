// Package fake provides a recording fake tracker for tests.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/eyelink-control/elg/internal/tracker"
)

// Call is one recorded driver invocation.
type Call struct {
	Method string
	Args   []string
}

// FakeTracker implements tracker.Tracker and records every call.
type FakeTracker struct {
	tracker.Base

	mu        sync.Mutex
	connected bool
	version   string
	openFile  string
	recording bool
	calls     []Call

	// Error simulation
	simulateErrors bool
	errorType      string
	failOn         map[string]error
	connectErr     error

	// hook runs before each call without the lock held
	hook func(method string)
}

// NewFakeTracker creates a disconnected fake tracker.
func NewFakeTracker(address string) *FakeTracker {
	return &FakeTracker{
		Base: tracker.Base{
			Driver:  "fake",
			Address: address,
		},
		version: "EYELINK CL 5.12",
		failOn:  make(map[string]error),
	}
}

// Connect opens the fake link.
func (f *FakeTracker) Connect(ctx context.Context) error {
	if err := f.enter(ctx, "Connect"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

// IsConnected reports the fake link state.
func (f *FakeTracker) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Close closes the fake link.
func (f *FakeTracker) Close() error {
	f.record("Close")

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failOn["Close"]; err != nil {
		return err
	}
	f.connected = false
	f.recording = false
	return nil
}

// SetOfflineMode stops recording.
func (f *FakeTracker) SetOfflineMode(ctx context.Context) error {
	if err := f.enter(ctx, "SetOfflineMode"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.recording = false
	return nil
}

// VersionString returns the configured version string.
func (f *FakeTracker) VersionString(ctx context.Context) (string, error) {
	if err := f.enter(ctx, "VersionString"); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version, nil
}

// OpenDataFile records the open file name.
func (f *FakeTracker) OpenDataFile(ctx context.Context, name string) error {
	if err := f.enter(ctx, "OpenDataFile", name); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.openFile = name
	return nil
}

// CloseDataFile clears the open file name.
func (f *FakeTracker) CloseDataFile(ctx context.Context) error {
	if err := f.enter(ctx, "CloseDataFile"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.openFile = ""
	return nil
}

// ReceiveDataFile records the transfer. No file is written.
func (f *FakeTracker) ReceiveDataFile(ctx context.Context, src, dest string) error {
	return f.enter(ctx, "ReceiveDataFile", src, dest)
}

// SendCommand records the command.
func (f *FakeTracker) SendCommand(ctx context.Context, command string) error {
	return f.enter(ctx, "SendCommand", command)
}

// SendMessage records the message.
func (f *FakeTracker) SendMessage(ctx context.Context, message string) error {
	return f.enter(ctx, "SendMessage", message)
}

// StartRecording marks the fake as recording.
func (f *FakeTracker) StartRecording(ctx context.Context, opts tracker.RecordingOptions) error {
	if err := f.enter(ctx, "StartRecording",
		fmt.Sprint(opts.FileSamples), fmt.Sprint(opts.FileEvents),
		fmt.Sprint(opts.LinkSamples), fmt.Sprint(opts.LinkEvents)); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.recording = true
	return nil
}

// StopRecording clears the recording flag.
func (f *FakeTracker) StopRecording(ctx context.Context) error {
	if err := f.enter(ctx, "StopRecording"); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.recording = false
	return nil
}

// DoTrackerSetup draws a single target at the display centre.
func (f *FakeTracker) DoTrackerSetup(ctx context.Context, display tracker.SetupDisplay) error {
	if err := f.enter(ctx, "DoTrackerSetup"); err != nil {
		return err
	}
	if display == nil {
		return fmt.Errorf("INVALID_STATE: no setup display")
	}

	w, h := display.Size()
	if err := display.DrawTarget(w/2, h/2); err != nil {
		return err
	}
	return display.ClearTarget()
}

// Helper methods for testing

// SetErrorSimulation makes every call after Connect fail with errorType.
func (f *FakeTracker) SetErrorSimulation(errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = true
	f.errorType = errorType
}

// DisableErrorSimulation disables error simulation.
func (f *FakeTracker) DisableErrorSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = false
	f.errorType = ""
}

// FailOn makes the named method return err.
func (f *FakeTracker) FailOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[method] = err
}

// SetConnectError makes Connect fail with err.
func (f *FakeTracker) SetConnectError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

// SetVersion sets the string returned by VersionString.
func (f *FakeTracker) SetVersion(version string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version = version
}

// SetHook installs a function run at the start of every call.
func (f *FakeTracker) SetHook(hook func(method string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
}

// Calls returns a copy of the recorded calls.
func (f *FakeTracker) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the recorded calls to method.
func (f *FakeTracker) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns the recorded method names in call order.
func (f *FakeTracker) Methods() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// ResetCalls forgets the recorded calls.
func (f *FakeTracker) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// GetCurrentState returns link, open file and recording state.
func (f *FakeTracker) GetCurrentState() (connected bool, openFile string, recording bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected, f.openFile, f.recording
}

// enter records the call, runs the hook and applies error simulation.
func (f *FakeTracker) enter(ctx context.Context, method string, args ...string) error {
	f.record(method, args...)

	f.mu.Lock()
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(method)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failOn[method]; err != nil {
		return err
	}
	if method == "Connect" {
		return nil
	}
	if !f.connected {
		return fmt.Errorf("UNAVAILABLE: %s: link not connected", method)
	}
	if f.simulateErrors {
		return f.getSimulatedError()
	}
	return nil
}

func (f *FakeTracker) record(method string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Method: method, Args: args})
}

// getSimulatedError returns a simulated error for the configured type.
func (f *FakeTracker) getSimulatedError() error {
	switch f.errorType {
	case "INVALID_STATE":
		return fmt.Errorf("INVALID_STATE: simulated state error")
	case "BUSY":
		return fmt.Errorf("BUSY: simulated busy error")
	case "UNAVAILABLE":
		return fmt.Errorf("UNAVAILABLE: simulated unavailable error")
	case "INTERNAL":
		return fmt.Errorf("INTERNAL: simulated internal error")
	default:
		return fmt.Errorf("INTERNAL: unknown simulated error")
	}
}

var _ tracker.Tracker = (*FakeTracker)(nil)
