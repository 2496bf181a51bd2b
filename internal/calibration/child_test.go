package calibration

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyelink-control/elg/internal/tracker/fake"
)

type recordingToolkit struct {
	win *HeadlessWindow
	err error
}

func (r *recordingToolkit) OpenWindow(ctx context.Context, opts WindowOptions) (Window, error) {
	if r.err != nil {
		return nil, r.err
	}
	win, err := HeadlessToolkit{}.OpenWindow(ctx, opts)
	if err != nil {
		return nil, err
	}
	r.win = win.(*HeadlessWindow)
	return r.win, nil
}

func TestRunChildComplete(t *testing.T) {
	tr := fake.NewFakeTracker("100.1.1.1")
	tk := &recordingToolkit{}
	cfg := DefaultChildConfig()
	cfg.Window.Width, cfg.Window.Height = 1920, 1080

	var out bytes.Buffer
	outcome := RunChild(context.Background(), tr, tk, cfg, &out)

	assert.Equal(t, OutcomeComplete, outcome)
	got, _ := ReadOutcome(&out)
	assert.Equal(t, OutcomeComplete, got)

	assert.Equal(t, []string{
		"Connect", "SetOfflineMode", "SendCommand", "SendMessage", "DoTrackerSetup", "Close",
	}, tr.Methods())

	assert.Equal(t, "screen_pixel_coords = 0 0 1919 1079", tr.CallsTo("SendCommand")[0].Args[0])
	assert.Equal(t, "DISPLAY_COORDS 0 0 1919 1079", tr.CallsTo("SendMessage")[0].Args[0])

	require.NotNil(t, tk.win)
	assert.Equal(t, []string{DefaultInstructions}, tk.win.Messages())
	assert.Len(t, tk.win.Targets(), 1)
	assert.True(t, tk.win.Closed())

	// The default picture is not present in the test directory
	assert.Equal(t, "circle", tk.win.CurrentTarget().Type)
}

func TestRunChildFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fake.FakeTracker, *recordingToolkit)
	}{
		{"connect refused", func(f *fake.FakeTracker, _ *recordingToolkit) {
			f.SetConnectError(errors.New("connection refused"))
		}},
		{"no window", func(_ *fake.FakeTracker, tk *recordingToolkit) {
			tk.err = errors.New("no display")
		}},
		{"setup aborted", func(f *fake.FakeTracker, _ *recordingToolkit) {
			f.FailOn("DoTrackerSetup", errors.New("setup aborted by operator"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := fake.NewFakeTracker("100.1.1.1")
			tk := &recordingToolkit{}
			tt.setup(tr, tk)

			var out bytes.Buffer
			outcome := RunChild(context.Background(), tr, tk, DefaultChildConfig(), &out)

			assert.Equal(t, OutcomeFailed, outcome)
			assert.True(t, strings.Contains(out.String(), `"outcome":"failed"`), out.String())
			assert.False(t, tr.IsConnected())
		})
	}
}

func TestToolkitRegistry(t *testing.T) {
	tk, err := OpenToolkit(HeadlessName)
	require.NoError(t, err)
	assert.NotNil(t, tk)

	_, err = OpenToolkit("psychopy")
	assert.Error(t, err)
}
