package calibration

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is the calibration child started
// by the supervisor tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("HELPER_MODE") {
	case "complete":
		_ = WriteOutcome(os.Stdout, OutcomeComplete, nil)
		os.Exit(0)
	case "failed":
		_ = WriteOutcome(os.Stdout, OutcomeFailed, fmt.Errorf("operator aborted"))
		os.Exit(0)
	case "crash":
		fmt.Fprintln(os.Stderr, "panic: window system gone")
		os.Exit(2)
	case "silent":
		fmt.Fprintln(os.Stdout, "calibrating...")
		os.Exit(0)
	case "complete-then-crash":
		_ = WriteOutcome(os.Stdout, OutcomeComplete, nil)
		os.Exit(3)
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "slow-complete":
		time.Sleep(500 * time.Millisecond)
		_ = WriteOutcome(os.Stdout, OutcomeComplete, nil)
		os.Exit(0)
	case "complete-with-grandchild":
		_ = WriteOutcome(os.Stdout, OutcomeComplete, nil)
		// The grandchild inherits stdout and outlives this process.
		gc := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--")
		gc.Env = append(os.Environ(), "HELPER_MODE=linger")
		gc.Stdout = os.Stdout
		if err := gc.Start(); err != nil {
			os.Exit(4)
		}
		os.Exit(0)
	case "linger":
		time.Sleep(5 * time.Second)
		os.Exit(0)
	}
	os.Exit(1)
}

func helperSupervisor(mode string, timeout time.Duration) *Supervisor {
	return NewSupervisor(SupervisorConfig{
		Executable: os.Args[0],
		Args:       []string{"-test.run=TestHelperProcess", "--"},
		Env:        []string{"GO_WANT_HELPER_PROCESS=1", "HELPER_MODE=" + mode},
		Timeout:    timeout,
		Stderr:     io.Discard,
	})
}

func TestSupervisorOutcomes(t *testing.T) {
	tests := []struct {
		mode      string
		want      Outcome
		wantState State
	}{
		{"complete", OutcomeComplete, StateComplete},
		{"failed", OutcomeFailed, StateFailed},
		{"crash", OutcomeFailed, StateFailed},
		{"silent", OutcomeFailed, StateFailed},
		{"complete-then-crash", OutcomeComplete, StateComplete},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			s := helperSupervisor(tt.mode, 30*time.Second)
			assert.Equal(t, StateIdle, s.State())

			outcome, err := s.Calibrate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
			assert.Equal(t, tt.wantState, s.State())
		})
	}
}

func TestSupervisorFailureDetail(t *testing.T) {
	s := helperSupervisor("failed", 30*time.Second)
	_, _ = s.Calibrate(context.Background())
	assert.Equal(t, "operator aborted", s.LastError())

	s = helperSupervisor("crash", 30*time.Second)
	_, _ = s.Calibrate(context.Background())
	assert.Contains(t, s.LastError(), "exited without outcome")
}

func TestSupervisorTimeoutKillsChild(t *testing.T) {
	s := helperSupervisor("hang", 300*time.Millisecond)

	start := time.Now()
	outcome, err := s.Calibrate(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out after 300ms")
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, StateFailed, s.State())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSupervisorOutlivesCallerCancel(t *testing.T) {
	s := helperSupervisor("slow-complete", 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	defer cancel()

	outcome, err := s.Calibrate(ctx)

	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, outcome)
	assert.Equal(t, StateComplete, s.State())
}

func TestSupervisorDoesNotWaitForInheritedStdout(t *testing.T) {
	s := helperSupervisor("complete-with-grandchild", 30*time.Second)

	start := time.Now()
	outcome, err := s.Calibrate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OutcomeComplete, outcome)
	assert.Less(t, time.Since(start), 4*time.Second, "must not wait for the grandchild to close stdout")
}

func TestSupervisorStartFailure(t *testing.T) {
	s := NewSupervisor(SupervisorConfig{Executable: "/nonexistent/elg", Timeout: time.Second})

	outcome, err := s.Calibrate(context.Background())
	assert.Error(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, StateFailed, s.State())
}

func TestSupervisorTransitions(t *testing.T) {
	s := helperSupervisor("complete", 30*time.Second)

	var mu sync.Mutex
	var seen []string
	s.OnTransition(func(from, to State, detail string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, fmt.Sprintf("%s->%s", from, to))
	})

	_, err := s.Calibrate(context.Background())
	require.NoError(t, err)
	_, err = s.Calibrate(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"idle->running", "running->complete",
		"complete->running", "running->complete",
	}, seen)
}
