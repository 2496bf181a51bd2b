package command

import (
	"context"
	"time"

	"github.com/eyelink-control/elg/internal/calibration"
	"github.com/eyelink-control/elg/internal/events"
)

// GatewayPort is what the API needs from the gateway.
type GatewayPort interface {
	Execute(ctx context.Context, raw string) (*Result, error)
}

// Calibrator runs one calibration and reports its outcome.
type Calibrator interface {
	Calibrate(ctx context.Context) (calibration.Outcome, error)
}

// EventPublisher receives gateway events.
type EventPublisher interface {
	Publish(event events.Event) error
}

// AuditLogger records dispatched commands.
type AuditLogger interface {
	LogCommand(ctx context.Context, verb, argument, outcome string, latency time.Duration)
}

// Compile-time assertions
var (
	_ GatewayPort    = (*Gateway)(nil)
	_ Calibrator     = (*calibration.Supervisor)(nil)
	_ EventPublisher = (*events.Hub)(nil)
)
