package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eyelink-control/elg/internal/tracker"
)

// Session errors.
var (
	ErrConnect      = errors.New("Unable to establish EyeLink connection")
	ErrDataFileOpen = errors.New("DATA_FILE_OPEN")
)

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	Driver      string    `json:"driver,omitempty"`
	Address     string    `json:"address,omitempty"`
	Connected   bool      `json:"connected"`
	DataFile    string    `json:"dataFile,omitempty"`
	ConnectedAt time.Time `json:"connectedAt,omitempty"`
}

type describer interface {
	GetDriver() string
	GetAddress() string
}

// Session holds the tracker link and the open data file record.
type Session struct {
	mu          sync.Mutex
	tracker     tracker.Tracker
	dataFile    string
	connectedAt time.Time
}

// New creates a session around t. The link is not opened.
func New(t tracker.Tracker) *Session {
	return &Session{tracker: t}
}

// Tracker returns the underlying driver.
func (s *Session) Tracker() tracker.Tracker {
	return s.tracker
}

// EnsureConnected opens the link if it is not open.
func (s *Session) EnsureConnected(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker.IsConnected() {
		return nil
	}

	if err := s.tracker.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnect, err)
	}
	s.connectedAt = time.Now()
	return nil
}

// Connected reports whether the link is open.
func (s *Session) Connected() bool {
	return s.tracker.IsConnected()
}

// DataFile returns the open data file name, or "" when none is open.
func (s *Session) DataFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataFile
}

// CheckDataFileFree returns ErrDataFileOpen when a data file is already open.
func (s *Session) CheckDataFileFree() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataFile != "" {
		return fmt.Errorf("%w: %s must be closed before opening another", ErrDataFileOpen, s.dataFile)
	}
	return nil
}

// SetDataFile records name as the open data file.
func (s *Session) SetDataFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataFile != "" {
		return fmt.Errorf("%w: %s must be closed before opening another", ErrDataFileOpen, s.dataFile)
	}
	s.dataFile = name
	return nil
}

// ClearDataFile forgets the open data file and returns its name.
func (s *Session) ClearDataFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.dataFile
	s.dataFile = ""
	return name
}

// Release closes the link but keeps the data file record, so another
// process can hold the host link for a while.
func (s *Session) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tracker.IsConnected() {
		return nil
	}
	s.connectedAt = time.Time{}
	return s.tracker.Close()
}

// Close closes the link and forgets the data file.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dataFile = ""
	s.connectedAt = time.Time{}
	return s.tracker.Close()
}

// Snapshot returns the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Connected:   s.tracker.IsConnected(),
		DataFile:    s.dataFile,
		ConnectedAt: s.connectedAt,
	}
	if d, ok := s.tracker.(describer); ok {
		snap.Driver = d.GetDriver()
		snap.Address = d.GetAddress()
	}
	return snap
}
