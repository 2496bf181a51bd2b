package api

import (
	"context"
	"net/http"

	"github.com/eyelink-control/elg/internal/calibration"
	"github.com/eyelink-control/elg/internal/command"
	"github.com/eyelink-control/elg/internal/events"
	"github.com/eyelink-control/elg/internal/session"
)

// GatewayPort executes raw command strings.
type GatewayPort interface {
	Execute(ctx context.Context, raw string) (*command.Result, error)
}

// EventsPort streams events to one HTTP client.
type EventsPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// SessionPort reports the tracker session.
type SessionPort interface {
	Snapshot() session.Snapshot
}

// CalibrationPort reports the calibration state machine.
type CalibrationPort interface {
	State() calibration.State
	LastError() string
}

// Compile-time assertions for port conformance
var (
	_ GatewayPort     = (*command.Gateway)(nil)
	_ EventsPort      = (*events.Hub)(nil)
	_ SessionPort     = (*session.Session)(nil)
	_ CalibrationPort = (*calibration.Supervisor)(nil)
)
