// Package trackertest provides driver-agnostic conformance testing for
// tracker drivers.
package trackertest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eyelink-control/elg/internal/tracker"
)

// Capabilities describes what the driver under test is expected to do.
type Capabilities struct {
	// VendorID selects the error mapping table.
	VendorID string

	// DataFileName is a host data file name the driver accepts.
	DataFileName string

	// WritesDataFile is true when ReceiveDataFile produces a local file.
	WritesDataFile bool
}

// ConformanceResult represents the result of one conformance check.
type ConformanceResult struct {
	TestName string
	Passed   bool
	Error    string
	Duration time.Duration
}

// ConformanceReport collects the results of a run.
type ConformanceReport struct {
	DriverName    string
	TotalTests    int
	PassedTests   int
	FailedTests   int
	Results       []ConformanceResult
	OverallPassed bool
	Duration      time.Duration
}

// RecordingDisplay is a SetupDisplay that records drawn targets.
type RecordingDisplay struct {
	Width, Height int

	mu      sync.Mutex
	targets [][2]int
	clears  int
}

// Size returns the configured resolution.
func (d *RecordingDisplay) Size() (int, int) {
	return d.Width, d.Height
}

// DrawTarget records the target position.
func (d *RecordingDisplay) DrawTarget(x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, [2]int{x, y})
	return nil
}

// ClearTarget counts the clear.
func (d *RecordingDisplay) ClearTarget() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	return nil
}

// Targets returns the drawn target positions.
func (d *RecordingDisplay) Targets() [][2]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][2]int, len(d.targets))
	copy(out, d.targets)
	return out
}

// Clears returns how many times the target was cleared.
func (d *RecordingDisplay) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}

// RunConformance runs the conformance suite against fresh drivers from newTracker.
func RunConformance(t *testing.T, newTracker func() tracker.Tracker, caps Capabilities) {
	startTime := time.Now()

	if caps.VendorID == "" {
		caps.VendorID = "generic"
	}
	if caps.DataFileName == "" {
		caps.DataFileName = "conf1.EDF"
	}

	report := &ConformanceReport{
		DriverName:    fmt.Sprintf("%T", newTracker()),
		OverallPassed: true,
	}

	checks := []struct {
		name string
		fn   func(ctx context.Context, tr tracker.Tracker) error
	}{
		{"Disconnected_Unavailable", func(ctx context.Context, tr tracker.Tracker) error {
			return checkDisconnected(ctx, tr, caps)
		}},
		{"Connect_Version", checkConnectVersion},
		{"DataFile_Lifecycle", func(ctx context.Context, tr tracker.Tracker) error {
			return checkDataFileLifecycle(ctx, tr, caps, t.TempDir())
		}},
		{"Recording_StartStop", checkRecording},
		{"Setup_DrawsTargets", checkSetup},
		{"Close_Idempotent", checkCloseIdempotent},
		{"Cancelled_Context", checkCancelled},
	}

	for _, check := range checks {
		result := ConformanceResult{TestName: check.name}
		start := time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := check.fn(ctx, newTracker())
		cancel()

		result.Duration = time.Since(start)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Passed = true
		}
		report.addResult(result)
	}

	report.Duration = time.Since(startTime)
	printConformanceReport(t, report)

	if !report.OverallPassed {
		t.Fatalf("Tracker conformance test failed: %d/%d tests passed", report.PassedTests, report.TotalTests)
	}
}

func checkDisconnected(ctx context.Context, tr tracker.Tracker, caps Capabilities) error {
	if tr.IsConnected() {
		return fmt.Errorf("new driver reports connected before Connect")
	}

	err := tr.SendCommand(ctx, "echo conformance")
	if err == nil {
		return fmt.Errorf("SendCommand without link succeeded")
	}

	normalized := tracker.NormalizeVendorErrorWithVendor(err, nil, caps.VendorID)
	if !errors.Is(normalized, tracker.ErrUnavailable) {
		return fmt.Errorf("SendCommand without link mapped to %v, want UNAVAILABLE (%v)", normalized, err)
	}
	return nil
}

func checkConnectVersion(ctx context.Context, tr tracker.Tracker) error {
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("Connect failed: %w", err)
	}
	defer tr.Close()

	if !tr.IsConnected() {
		return fmt.Errorf("IsConnected false after Connect")
	}

	vstr, err := tr.VersionString(ctx)
	if err != nil {
		return fmt.Errorf("VersionString failed: %w", err)
	}
	if _, err := tracker.ParseMajorVersion(vstr); err != nil {
		return err
	}
	return nil
}

func checkDataFileLifecycle(ctx context.Context, tr tracker.Tracker, caps Capabilities, dir string) error {
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("Connect failed: %w", err)
	}
	defer tr.Close()

	if err := tr.OpenDataFile(ctx, caps.DataFileName); err != nil {
		return fmt.Errorf("OpenDataFile(%s) failed: %w", caps.DataFileName, err)
	}
	if err := tr.SendMessage(ctx, "TRIALID conformance"); err != nil {
		return fmt.Errorf("SendMessage failed: %w", err)
	}
	if err := tr.CloseDataFile(ctx); err != nil {
		return fmt.Errorf("CloseDataFile failed: %w", err)
	}

	dest := filepath.Join(dir, "results", caps.DataFileName)
	if err := tr.ReceiveDataFile(ctx, caps.DataFileName, dest); err != nil {
		return fmt.Errorf("ReceiveDataFile failed: %w", err)
	}

	if caps.WritesDataFile {
		data, err := os.ReadFile(dest)
		if err != nil {
			return fmt.Errorf("transferred file missing: %w", err)
		}
		if !strings.Contains(string(data), "TRIALID conformance") {
			return fmt.Errorf("transferred file lacks the sent message")
		}
	}
	return nil
}

func checkRecording(ctx context.Context, tr tracker.Tracker) error {
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("Connect failed: %w", err)
	}
	defer tr.Close()

	if err := tr.SetOfflineMode(ctx); err != nil {
		return fmt.Errorf("SetOfflineMode failed: %w", err)
	}
	if err := tr.StartRecording(ctx, tracker.AllStreams()); err != nil {
		return fmt.Errorf("StartRecording failed: %w", err)
	}
	if err := tr.StopRecording(ctx); err != nil {
		return fmt.Errorf("StopRecording failed: %w", err)
	}
	return nil
}

func checkSetup(ctx context.Context, tr tracker.Tracker) error {
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("Connect failed: %w", err)
	}
	defer tr.Close()

	display := &RecordingDisplay{Width: 1920, Height: 1080}
	if err := tr.DoTrackerSetup(ctx, display); err != nil {
		return fmt.Errorf("DoTrackerSetup failed: %w", err)
	}

	targets := display.Targets()
	if len(targets) == 0 {
		return fmt.Errorf("no calibration targets drawn")
	}
	if display.Clears() != len(targets) {
		return fmt.Errorf("drew %d targets but cleared %d", len(targets), display.Clears())
	}
	for _, p := range targets {
		if p[0] < 0 || p[0] >= display.Width || p[1] < 0 || p[1] >= display.Height {
			return fmt.Errorf("target %v outside %dx%d display", p, display.Width, display.Height)
		}
	}
	return nil
}

func checkCloseIdempotent(ctx context.Context, tr tracker.Tracker) error {
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("Connect failed: %w", err)
	}
	if err := tr.Close(); err != nil {
		return fmt.Errorf("first Close failed: %w", err)
	}
	if err := tr.Close(); err != nil {
		return fmt.Errorf("second Close failed: %w", err)
	}
	if tr.IsConnected() {
		return fmt.Errorf("IsConnected true after Close")
	}
	return nil
}

func checkCancelled(ctx context.Context, tr tracker.Tracker) error {
	if err := tr.Connect(ctx); err != nil {
		return fmt.Errorf("Connect failed: %w", err)
	}
	defer tr.Close()

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	if err := tr.SendCommand(cancelled, "echo cancelled"); !errors.Is(err, context.Canceled) {
		return fmt.Errorf("SendCommand with cancelled context returned %v, want context.Canceled", err)
	}
	return nil
}

func (r *ConformanceReport) addResult(result ConformanceResult) {
	r.TotalTests++
	if result.Passed {
		r.PassedTests++
	} else {
		r.FailedTests++
		r.OverallPassed = false
	}
	r.Results = append(r.Results, result)
}

func printConformanceReport(t *testing.T, report *ConformanceReport) {
	t.Logf("\n%s", strings.Repeat("=", 80))
	t.Logf("TRACKER CONFORMANCE REPORT")
	t.Logf("%s", strings.Repeat("=", 80))
	t.Logf("Driver: %s", report.DriverName)
	t.Logf("Passed: %d/%d", report.PassedTests, report.TotalTests)
	t.Logf("Overall: %s", map[bool]string{true: "PASS", false: "FAIL"}[report.OverallPassed])
	t.Logf("Duration: %v", report.Duration)
	t.Logf("%s", strings.Repeat("-", 80))

	for _, result := range report.Results {
		status := "PASS"
		if !result.Passed {
			status = "FAIL"
		}
		t.Logf("%-28s %-6s %-12v %s", result.TestName, status, result.Duration, result.Error)
	}
}
