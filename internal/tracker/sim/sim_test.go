package sim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eyelink-control/elg/internal/tracker"
	"github.com/eyelink-control/elg/internal/trackertest"
)

func TestSimTrackerConformance(t *testing.T) {
	trackertest.RunConformance(t, func() tracker.Tracker {
		return NewSimTracker("100.1.1.1")
	}, trackertest.Capabilities{
		VendorID:       "eyelink",
		DataFileName:   "trial1.EDF",
		WritesDataFile: true,
	})
}

func TestSimRegistered(t *testing.T) {
	tr, err := tracker.Open(DriverName, "100.1.1.1")
	if err != nil {
		t.Fatalf("Open(sim) failed: %v", err)
	}
	if _, ok := tr.(*SimTracker); !ok {
		t.Errorf("Expected *SimTracker, got %T", tr)
	}
}

func TestSimDataFileTransfer(t *testing.T) {
	s := NewSimTracker("100.1.1.1")
	ctx := context.Background()
	dir := t.TempDir()

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := s.OpenDataFile(ctx, "trial1.EDF"); err != nil {
		t.Fatalf("OpenDataFile failed: %v", err)
	}
	if err := s.SendCommand(ctx, "add_file_preamble_text 'RECORDED BY elg'"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if err := s.StartRecording(ctx, tracker.AllStreams()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := s.SendMessage(ctx, "TRIALID 7"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if err := s.StopRecording(ctx); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}

	dest := filepath.Join(dir, "results", "trial1.EDF")

	// Transfer while open is refused
	err := s.ReceiveDataFile(ctx, "trial1.EDF", dest)
	if err == nil {
		t.Fatal("Expected transfer of open file to fail")
	}
	if !errors.Is(tracker.NormalizeVendorErrorWithVendor(err, nil, "eyelink"), tracker.ErrInvalidState) {
		t.Errorf("Expected INVALID_STATE, got %v", err)
	}

	if err := s.CloseDataFile(ctx); err != nil {
		t.Fatalf("CloseDataFile failed: %v", err)
	}
	if err := s.ReceiveDataFile(ctx, "trial1.EDF", dest); err != nil {
		t.Fatalf("ReceiveDataFile failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("Expected transferred file: %v", err)
	}
	content := string(data)
	for _, want := range []string{"RECORDED BY elg", "START", "MSG TRIALID 7", "END"} {
		if !strings.Contains(content, want) {
			t.Errorf("Transferred file missing %q:\n%s", want, content)
		}
	}
}

func TestSimPreconditions(t *testing.T) {
	s := NewSimTracker("100.1.1.1")
	ctx := context.Background()
	_ = s.Connect(ctx)

	if err := s.OpenDataFile(ctx, "participant_001.EDF"); err == nil {
		t.Error("Expected long file name to be rejected")
	}

	if err := s.OpenDataFile(ctx, "a.EDF"); err != nil {
		t.Fatalf("OpenDataFile failed: %v", err)
	}
	if err := s.OpenDataFile(ctx, "b.EDF"); err == nil {
		t.Error("Expected second open to fail")
	}

	if err := s.StartRecording(ctx, tracker.AllStreams()); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := s.StartRecording(ctx, tracker.AllStreams()); err == nil {
		t.Error("Expected second StartRecording to fail")
	}

	// Offline mode ends recording
	if err := s.SetOfflineMode(ctx); err != nil {
		t.Fatalf("SetOfflineMode failed: %v", err)
	}
	if _, recording, _ := s.GetCurrentState(); recording {
		t.Error("Expected recording to stop in offline mode")
	}

	if err := s.ReceiveDataFile(ctx, "missing.EDF", filepath.Join(t.TempDir(), "missing.EDF")); err == nil {
		t.Error("Expected transfer of unknown file to fail")
	}
}

func TestSimFaultModes(t *testing.T) {
	s := NewSimTracker("100.1.1.1")
	ctx := context.Background()
	_ = s.Connect(ctx)

	tests := []struct {
		mode string
		want error
	}{
		{"ReturnBusy", tracker.ErrBusy},
		{"ReturnUnavailable", tracker.ErrUnavailable},
		{"ReturnInvalidState", tracker.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			s.SetFaultMode(tt.mode)
			defer s.ClearFaultMode()

			err := s.SendCommand(ctx, "echo x")
			if got := tracker.NormalizeVendorErrorWithVendor(err, nil, "eyelink"); !errors.Is(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}

	if err := s.SendCommand(ctx, "echo x"); err != nil {
		t.Errorf("Expected success after ClearFaultMode, got %v", err)
	}
}

func TestSimSetupGrid(t *testing.T) {
	s := NewSimTracker("100.1.1.1")
	ctx := context.Background()
	_ = s.Connect(ctx)

	display := &trackertest.RecordingDisplay{Width: 1000, Height: 500}
	if err := s.DoTrackerSetup(ctx, display); err != nil {
		t.Fatalf("DoTrackerSetup failed: %v", err)
	}

	targets := display.Targets()
	if len(targets) != 9 {
		t.Fatalf("Expected 9 targets, got %d", len(targets))
	}
	if targets[4] != [2]int{500, 250} {
		t.Errorf("Expected centre target at 500,250, got %v", targets[4])
	}
	if _, _, calibrated := s.GetCurrentState(); !calibrated {
		t.Error("Expected calibrated after setup")
	}
}
