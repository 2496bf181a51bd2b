// Package sim provides a simulated tracker host for development without
// hardware.
//
// The simulation keeps host-side data files in memory, enforces the link and
// recording preconditions a real host enforces, and writes a text rendition
// of the data file on transfer.
package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/eyelink-control/elg/internal/tracker"
)

// DriverName is the registry name of the simulated host.
const DriverName = "sim"

// DefaultVersion is the version string reported by the simulated host.
const DefaultVersion = "EYELINK CL 5.12"

// Host data file names follow the 8.3 convention.
var dataFileName = regexp.MustCompile(`^[A-Za-z0-9_]{1,8}(\.[Ee][Dd][Ff])?$`)

func init() {
	tracker.Register(DriverName, func(address string) (tracker.Tracker, error) {
		return NewSimTracker(address), nil
	})
}

// SimTracker implements tracker.Tracker with simulated host behaviour.
type SimTracker struct {
	tracker.Base

	mu          sync.RWMutex
	connected   bool
	recording   bool
	version     string
	linkOpened  time.Time
	openFile    string
	openLines   []string
	hostFiles   map[string][]string
	commands    []string
	calibrated  bool
	targetDelay time.Duration

	// Fault injection mode: "ReturnBusy", "ReturnUnavailable", "ReturnInvalidState", ""
	faultMode string
}

// NewSimTracker creates a disconnected simulated host.
func NewSimTracker(address string) *SimTracker {
	return &SimTracker{
		Base: tracker.Base{
			Driver:  DriverName,
			Address: address,
		},
		version:   DefaultVersion,
		hostFiles: make(map[string][]string),
	}
}

// Connect opens the simulated link.
func (s *SimTracker) Connect(ctx context.Context) error {
	if err := s.precheck(ctx, "Connect", false); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = true
	s.recording = false
	s.linkOpened = time.Now()
	return nil
}

// IsConnected reports the link state.
func (s *SimTracker) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Close closes the link. An open data file stays open on the host.
func (s *SimTracker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	s.recording = false
	return nil
}

// SetOfflineMode stops recording.
func (s *SimTracker) SetOfflineMode(ctx context.Context) error {
	if err := s.precheck(ctx, "SetOfflineMode", true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		s.appendLocked("END")
	}
	s.recording = false
	return nil
}

// VersionString returns the simulated host version.
func (s *SimTracker) VersionString(ctx context.Context) (string, error) {
	if err := s.precheck(ctx, "VersionString", true); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

// OpenDataFile opens a data file on the simulated host.
func (s *SimTracker) OpenDataFile(ctx context.Context, name string) error {
	if err := s.precheck(ctx, "OpenDataFile", true); err != nil {
		return err
	}

	if !dataFileName.MatchString(name) {
		return fmt.Errorf("invalid filename %q: host data files use at most 8 characters [A-Za-z0-9_]", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openFile != "" {
		return fmt.Errorf("file already open: %s", s.openFile)
	}

	s.openFile = name
	s.openLines = []string{fmt.Sprintf("** CONVERTED FROM %s", name), "** " + s.version}
	return nil
}

// CloseDataFile closes the open data file and keeps it on the host.
func (s *SimTracker) CloseDataFile(ctx context.Context) error {
	if err := s.precheck(ctx, "CloseDataFile", true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openFile == "" {
		return fmt.Errorf("no data file open")
	}

	s.hostFiles[s.openFile] = s.openLines
	s.openFile = ""
	s.openLines = nil
	return nil
}

// ReceiveDataFile writes the host data file to dest.
func (s *SimTracker) ReceiveDataFile(ctx context.Context, src, dest string) error {
	if err := s.precheck(ctx, "ReceiveDataFile", true); err != nil {
		return err
	}

	s.mu.RLock()
	lines, ok := s.hostFiles[src]
	stillOpen := s.openFile == src
	s.mu.RUnlock()

	if stillOpen {
		return fmt.Errorf("file already open: close %s before transfer", src)
	}
	if !ok {
		return fmt.Errorf("no data file named %s on host", src)
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("transfer %s: %w", src, err)
		}
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(dest, []byte(content), 0644); err != nil {
		return fmt.Errorf("transfer %s: %w", src, err)
	}
	return nil
}

// SendCommand records a host command.
func (s *SimTracker) SendCommand(ctx context.Context, command string) error {
	if err := s.precheck(ctx, "SendCommand", true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, command)
	if strings.HasPrefix(command, "add_file_preamble_text") && s.openFile != "" {
		s.openLines = append(s.openLines, "** "+strings.TrimSpace(strings.TrimPrefix(command, "add_file_preamble_text")))
	}
	return nil
}

// SendMessage writes a timestamped message into the open data file.
func (s *SimTracker) SendMessage(ctx context.Context, message string) error {
	if err := s.precheck(ctx, "SendMessage", true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked("MSG " + message)
	return nil
}

// StartRecording starts a recording block.
func (s *SimTracker) StartRecording(ctx context.Context, opts tracker.RecordingOptions) error {
	if err := s.precheck(ctx, "StartRecording", true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		return fmt.Errorf("already recording")
	}

	s.recording = true
	s.appendLocked(fmt.Sprintf("START samples=%t events=%t", opts.FileSamples, opts.FileEvents))
	return nil
}

// StopRecording ends the recording block. Stopping while idle is a no-op.
func (s *SimTracker) StopRecording(ctx context.Context) error {
	if err := s.precheck(ctx, "StopRecording", true); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		s.appendLocked("END")
	}
	s.recording = false
	return nil
}

// DoTrackerSetup presents a nine-point grid on the display.
func (s *SimTracker) DoTrackerSetup(ctx context.Context, display tracker.SetupDisplay) error {
	if err := s.precheck(ctx, "DoTrackerSetup", true); err != nil {
		return err
	}
	if display == nil {
		return fmt.Errorf("INVALID_STATE: no setup display")
	}

	s.mu.RLock()
	delay := s.targetDelay
	s.mu.RUnlock()

	w, h := display.Size()
	for _, p := range ninePointGrid(w, h) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := display.DrawTarget(p[0], p[1]); err != nil {
			return fmt.Errorf("draw target at %d,%d: %w", p[0], p[1], err)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		if err := display.ClearTarget(); err != nil {
			return fmt.Errorf("clear target: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrated = true
	s.appendLocked("MSG !CAL CALIBRATION HV9 GOOD")
	return nil
}

// Fault injection methods

// SetFaultMode sets the fault injection mode.
func (s *SimTracker) SetFaultMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultMode = mode
}

// ClearFaultMode clears the fault injection mode.
func (s *SimTracker) ClearFaultMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultMode = ""
}

// Helper methods for testing

// SetVersion overrides the reported version string.
func (s *SimTracker) SetVersion(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = version
}

// SetTargetDelay sets how long each calibration target stays up.
func (s *SimTracker) SetTargetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetDelay = d
}

// Commands returns the host commands received so far.
func (s *SimTracker) Commands() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// HostFiles returns the names of closed data files held by the host.
func (s *SimTracker) HostFiles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.hostFiles))
	for name := range s.hostFiles {
		names = append(names, name)
	}
	return names
}

// GetCurrentState returns open file, recording and calibration state.
func (s *SimTracker) GetCurrentState() (openFile string, recording bool, calibrated bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openFile, s.recording, s.calibrated
}

// precheck applies cancellation, fault injection and the link requirement.
func (s *SimTracker) precheck(ctx context.Context, operation string, needLink bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := s.checkFaultMode(operation); err != nil {
		return err
	}

	if needLink && !s.IsConnected() {
		return fmt.Errorf("%s: link not connected", operation)
	}
	return nil
}

// checkFaultMode returns the injected fault for operation, if any.
func (s *SimTracker) checkFaultMode(operation string) error {
	s.mu.RLock()
	mode := s.faultMode
	s.mu.RUnlock()

	switch mode {
	case "ReturnBusy":
		return fmt.Errorf("host busy: simulated busy error for %s", operation)
	case "ReturnUnavailable":
		return fmt.Errorf("link timeout: simulated unavailable error for %s", operation)
	case "ReturnInvalidState":
		return fmt.Errorf("INVALID_STATE: simulated state error for %s", operation)
	default:
		return nil
	}
}

// appendLocked adds a timestamped line to the open data file. Caller holds s.mu.
func (s *SimTracker) appendLocked(line string) {
	if s.openFile == "" {
		return
	}
	ts := time.Since(s.linkOpened).Milliseconds()
	s.openLines = append(s.openLines, fmt.Sprintf("%d\t%s", ts, line))
}

// ninePointGrid returns the HV9 target positions at 10/50/90 percent.
func ninePointGrid(w, h int) [][2]int {
	xs := []int{w / 10, w / 2, w - w/10}
	ys := []int{h / 10, h / 2, h - h/10}

	points := make([][2]int, 0, 9)
	for _, y := range ys {
		for _, x := range xs {
			points = append(points, [2]int{x, y})
		}
	}
	return points
}

var _ tracker.Tracker = (*SimTracker)(nil)
