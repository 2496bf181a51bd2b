package calibration

import (
	"bufio"
	"encoding/json"
	"io"
)

// Outcome is the single result of a calibration run.
type Outcome string

// Calibration outcomes.
const (
	OutcomeComplete Outcome = "complete"
	OutcomeFailed   Outcome = "failed"
)

// State is the supervisor state.
type State string

// Supervisor states: idle -> running -> complete | failed.
const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// report is the line the child writes to stdout.
type report struct {
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// WriteOutcome writes the outcome line. cause may be nil.
func WriteOutcome(w io.Writer, outcome Outcome, cause error) error {
	r := report{Outcome: outcome}
	if cause != nil {
		r.Error = cause.Error()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// noOutcomeDetail is the detail reported when no valid line was read.
const noOutcomeDetail = "no outcome reported"

// ReadOutcome returns the first valid outcome line read from r, with the
// child's error text if it sent one. It stops reading at that line; without
// one it reads to EOF and reports failed.
func ReadOutcome(r io.Reader) (Outcome, string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var rep report
		if err := json.Unmarshal(scanner.Bytes(), &rep); err != nil {
			continue
		}
		switch rep.Outcome {
		case OutcomeComplete, OutcomeFailed:
			return rep.Outcome, rep.Error
		}
	}
	return OutcomeFailed, noOutcomeDetail
}
