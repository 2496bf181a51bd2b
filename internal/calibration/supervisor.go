package calibration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrAlreadyRunning is returned when a calibration is in progress.
var ErrAlreadyRunning = errors.New("calibration already running")

// SupervisorConfig describes how to start the calibration child.
type SupervisorConfig struct {
	// Executable defaults to the running binary
	Executable string

	// Args are passed to the executable, e.g. ["calibrate"]
	Args []string

	// Env is appended to the parent environment
	Env []string

	// Timeout bounds the whole child run
	Timeout time.Duration

	// Stderr receives the child's log output. Defaults to the log writer.
	Stderr io.Writer
}

// Supervisor starts calibration children one at a time.
type Supervisor struct {
	cfg SupervisorConfig

	mu           sync.Mutex
	state        State
	lastError    string
	onTransition func(from, to State, detail string)
}

type childResult struct {
	outcome Outcome
	detail  string
}

// NewSupervisor creates an idle supervisor.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Supervisor{cfg: cfg, state: StateIdle}
}

// OnTransition registers a function called on every state change.
func (s *Supervisor) OnTransition(fn func(from, to State, detail string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransition = fn
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the failure detail of the last run, if any.
func (s *Supervisor) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Calibrate runs one calibration child and returns its outcome. The outcome
// is OutcomeFailed whenever err is non-nil.
// Cancelling ctx does not stop the child; the configured timeout does.
func (s *Supervisor) Calibrate(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return OutcomeFailed, ErrAlreadyRunning
	}
	s.mu.Unlock()
	s.transition(StateRunning, "")

	outcome, detail, err := s.run(ctx)
	if err != nil {
		detail = err.Error()
		outcome = OutcomeFailed
	}

	if outcome == OutcomeComplete {
		s.transition(StateComplete, "")
	} else {
		s.transition(StateFailed, detail)
	}
	return outcome, err
}

// outcomeGrace bounds the wait for the outcome reader once the child has
// exited. A descendant that inherited stdout can hold the pipe open.
const outcomeGrace = 2 * time.Second

func (s *Supervisor) run(ctx context.Context) (Outcome, string, error) {
	exe := s.cfg.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return OutcomeFailed, "", fmt.Errorf("locate executable: %w", err)
		}
	}

	// The caller going away does not stop a calibration in progress; only
	// the configured timeout does.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()

	cmd := exec.Command(exe, s.cfg.Args...)
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	cmd.Stderr = s.cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = log.Writer()
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return OutcomeFailed, "", fmt.Errorf("calibration child stdout: %w", err)
	}
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return OutcomeFailed, "", fmt.Errorf("start calibration child: %w", err)
	}
	pw.Close()
	log.Printf("Calibration child started (pid %d)", cmd.Process.Pid)

	reported := make(chan childResult, 1)
	go func() {
		outcome, detail := ReadOutcome(pr)
		reported <- childResult{outcome: outcome, detail: detail}
		// Keep writers from blocking on a full pipe.
		_, _ = io.Copy(io.Discard, pr)
		pr.Close()
	}()

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	select {
	case waitErr := <-exited:
		var res childResult
		select {
		case res = <-reported:
		case <-time.After(outcomeGrace):
			res = childResult{outcome: OutcomeFailed, detail: noOutcomeDetail}
		}
		if waitErr != nil {
			log.Printf("Calibration child exited: %v", waitErr)
			if res.detail == noOutcomeDetail {
				res.detail = fmt.Sprintf("calibration child exited without outcome: %v", waitErr)
			}
		}
		return res.outcome, res.detail, nil

	case <-ctx.Done():
		log.Printf("Calibration child did not finish within %v, killing pid %d", s.cfg.Timeout, cmd.Process.Pid)
		killTree(cmd.Process.Pid)
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Printf("Failed to kill calibration child: %v", err)
		}

		select {
		case <-exited:
		case <-time.After(5 * time.Second):
			log.Printf("Calibration child pid %d did not exit after kill", cmd.Process.Pid)
		}
		return OutcomeFailed, "", fmt.Errorf("calibration timed out after %v", s.cfg.Timeout)
	}
}

func (s *Supervisor) transition(to State, detail string) {
	s.mu.Lock()
	from := s.state
	s.state = to
	if to == StateFailed {
		s.lastError = detail
	} else if to == StateRunning {
		s.lastError = ""
	}
	fn := s.onTransition
	s.mu.Unlock()

	log.Printf("Calibration %s -> %s", from, to)
	if fn != nil {
		fn(from, to, detail)
	}
}

// killTree kills the descendants of pid, deepest first.
func killTree(pid int) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return
	}
	killChildren(ctx, p)
}

func killChildren(ctx context.Context, p *process.Process) {
	children, err := p.ChildrenWithContext(ctx)
	if err != nil {
		return
	}
	for _, child := range children {
		killChildren(ctx, child)
		if err := child.KillWithContext(ctx); err != nil {
			log.Printf("Failed to kill calibration descendant %d: %v", child.Pid, err)
		}
	}
}
