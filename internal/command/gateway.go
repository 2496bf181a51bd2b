package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/eyelink-control/elg/internal/audit"
	"github.com/eyelink-control/elg/internal/calibration"
	"github.com/eyelink-control/elg/internal/events"
	"github.com/eyelink-control/elg/internal/session"
	"github.com/eyelink-control/elg/internal/tracker"
)

// Options configures command dispatch.
type Options struct {
	// ResultsDir receives transferred data files
	ResultsDir string

	// Preamble names the recorder in the data file preamble
	Preamble string

	// SettleDelay is waited after starting and before stopping recording
	SettleDelay time.Duration

	// Profile is the recording configuration block
	Profile tracker.RecordingProfile

	// DummyMode answers every command without touching the tracker
	DummyMode bool

	// CommandTimeout bounds the tracker calls of one command
	CommandTimeout time.Duration

	// TransferTimeout bounds terminateTask, which transfers the data file
	TransferTimeout time.Duration

	// VendorID selects the error mapping table
	VendorID string
}

// Result is a successful dispatch.
type Result struct {
	Verb     string
	Argument string
	Message  string
}

// Gateway dispatches commands to the session's tracker.
type Gateway struct {
	session    *session.Session
	calibrator Calibrator
	events     EventPublisher
	audit      AuditLogger
	opts       Options
}

// NewGateway creates a gateway. calibrator may be nil when calibration is
// not available, in which case doTrackerSetup always fails.
func NewGateway(sess *session.Session, calibrator Calibrator, opts Options) *Gateway {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 5 * time.Second
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = 2 * time.Minute
	}
	if opts.VendorID == "" {
		opts.VendorID = "eyelink"
	}
	if opts.ResultsDir == "" {
		opts.ResultsDir = "results"
	}

	return &Gateway{
		session:    sess,
		calibrator: calibrator,
		opts:       opts,
	}
}

// SetEventPublisher sets where command and session events go.
func (g *Gateway) SetEventPublisher(p EventPublisher) {
	g.events = p
}

// SetAuditLogger sets the audit logger.
func (g *Gateway) SetAuditLogger(a AuditLogger) {
	g.audit = a
}

// Execute parses, decodes and dispatches one raw command.
func (g *Gateway) Execute(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()

	verb, arg, hasArg := Parse(raw)

	if g.opts.DummyMode {
		log.Printf("Simulated sending command: %s with argument '%s'", verb, arg)
		g.finish(ctx, verb, arg, audit.OutcomeSimulated, start)
		return &Result{
			Verb:     verb,
			Argument: arg,
			Message:  fmt.Sprintf("Command \"%s\" simulated in dummy mode", verb),
		}, nil
	}

	cmd, err := Decode(verb, arg, hasArg)
	if err != nil {
		log.Printf("Rejected command %q: %v", raw, outcomeFor(err))
		g.finish(ctx, verb, arg, outcomeFor(err), start)
		return nil, err
	}

	if _, isSetup := cmd.(DoTrackerSetup); !isSetup {
		wasConnected := g.session.Connected()
		if err := g.session.EnsureConnected(ctx); err != nil {
			log.Printf("Error executing command %s with argument '%s': %v", verb, arg, err)
			g.finish(ctx, verb, arg, outcomeFor(err), start)
			return nil, err
		}
		if !wasConnected {
			g.publishSessionEvent()
		}
	}

	message, err := g.dispatch(ctx, cmd)
	if err != nil {
		err = g.classify(err)
		log.Printf("Error executing command %s with argument '%s': %v", verb, arg, err)
		g.finish(ctx, verb, arg, outcomeFor(err), start)
		return nil, err
	}

	if message == "" {
		message = successMessage(verb, arg)
	}

	g.finish(ctx, verb, arg, audit.OutcomeSuccess, start)
	return &Result{Verb: verb, Argument: arg, Message: message}, nil
}

// dispatch performs the tracker calls for cmd. A non-empty message replaces
// the default success message.
func (g *Gateway) dispatch(ctx context.Context, cmd Command) (string, error) {
	if _, isSetup := cmd.(DoTrackerSetup); isSetup {
		return g.doTrackerSetup(ctx)
	}

	timeout := g.opts.CommandTimeout
	if _, isTerminate := cmd.(TerminateTask); isTerminate {
		timeout = g.opts.TransferTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tr := g.session.Tracker()

	switch c := cmd.(type) {
	case OpenEDF:
		return "", g.openEDF(ctx, tr, c.Name+".EDF")

	case ConfigureEyeLink:
		return "", g.configure(ctx, tr)

	case StartRecording:
		return "", g.startRecording(ctx, tr, c.TrialID)

	case StopRecording:
		if err := sleepCtx(ctx, g.opts.SettleDelay); err != nil {
			return "", err
		}
		if err := tr.StopRecording(ctx); err != nil {
			return "", err
		}
		return "", tr.SendMessage(ctx, fmt.Sprintf("TRIAL_RESULT %d", tracker.TrialOK))

	case SendMessage:
		return "", tr.SendMessage(ctx, c.Message)

	case SendCommand:
		if err := tr.SetOfflineMode(ctx); err != nil {
			return "", err
		}
		return "", tr.SendCommand(ctx, c.Command)

	case LogVariables:
		return "", tr.SendMessage(ctx, "!V TRIAL_VAR condition")

	case TerminateTask:
		return "", g.terminate(ctx, tr)

	case CloseConnection:
		// The data file record survives so a later terminateTask can still
		// close and transfer it.
		err := g.session.Release()
		g.publishSessionEvent()
		return "", err

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Verb())
	}
}

func (g *Gateway) openEDF(ctx context.Context, tr tracker.Tracker, name string) error {
	if err := g.session.CheckDataFileFree(); err != nil {
		return err
	}

	if err := tr.OpenDataFile(ctx, name); err != nil {
		return err
	}
	if err := g.session.SetDataFile(name); err != nil {
		return err
	}
	g.publishSessionEvent()

	return tr.SendCommand(ctx, fmt.Sprintf("add_file_preamble_text \"RECORDED BY %s\"", g.opts.Preamble))
}

func (g *Gateway) configure(ctx context.Context, tr tracker.Tracker) error {
	if err := tr.SetOfflineMode(ctx); err != nil {
		return err
	}

	vstr, err := tr.VersionString(ctx)
	if err != nil {
		return err
	}
	version, err := tracker.ParseMajorVersion(vstr)
	if err != nil {
		return err
	}
	log.Printf("Running experiment on %s, version %d", vstr, version)

	for _, c := range g.opts.Profile.Commands(version) {
		if err := tr.SendCommand(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) startRecording(ctx context.Context, tr tracker.Tracker, trialID string) error {
	if err := tr.SetOfflineMode(ctx); err != nil {
		return err
	}
	if err := tr.SendMessage(ctx, "TRIALID "+trialID); err != nil {
		return err
	}
	if err := tr.SendCommand(ctx, fmt.Sprintf("record_status_message 'TRIALID %s'", trialID)); err != nil {
		return err
	}
	if err := tr.StartRecording(ctx, tracker.AllStreams()); err != nil {
		return err
	}
	return sleepCtx(ctx, g.opts.SettleDelay)
}

func (g *Gateway) terminate(ctx context.Context, tr tracker.Tracker) error {
	if err := tr.SetOfflineMode(ctx); err != nil {
		return err
	}

	if name := g.session.DataFile(); name != "" {
		if err := tr.CloseDataFile(ctx); err != nil {
			return err
		}
		// The host file is closed now; a failed transfer does not leave it
		// open for the next task.
		g.session.ClearDataFile()

		log.Printf("Transferring EDF data file %s...", name)
		if err := tr.ReceiveDataFile(ctx, name, filepath.Join(g.opts.ResultsDir, name)); err != nil {
			g.publishSessionEvent()
			return err
		}
		log.Printf("Completed transferring EDF data file %s", name)
	} else {
		log.Printf("No EDF file to download")
	}

	err := g.session.Close()
	g.publishSessionEvent()
	return err
}

func (g *Gateway) doTrackerSetup(ctx context.Context) (string, error) {
	if g.calibrator == nil {
		return "", fmt.Errorf("%w: calibration is not configured", ErrCalibrationFailed)
	}

	// The child process opens its own link to the host.
	if err := g.session.Release(); err != nil {
		log.Printf("Failed to release tracker link before calibration: %v", err)
	}
	g.publishSessionEvent()

	outcome, err := g.calibrator.Calibrate(ctx)
	if err != nil {
		log.Printf("Calibration error: %v", err)
	}
	if outcome != calibration.OutcomeComplete {
		return "", ErrCalibrationFailed
	}
	return "Calibration completed", nil
}

// classify normalizes tracker errors and leaves gateway errors alone.
func (g *Gateway) classify(err error) error {
	switch {
	case errors.Is(err, session.ErrDataFileOpen),
		errors.Is(err, session.ErrConnect),
		errors.Is(err, ErrCalibrationFailed),
		errors.Is(err, ErrUnknownCommand):
		return err
	}
	return tracker.NormalizeVendorErrorWithVendor(err, nil, g.opts.VendorID)
}

// finish audits and publishes the command outcome.
func (g *Gateway) finish(ctx context.Context, verb, arg, outcome string, start time.Time) {
	latency := time.Since(start)

	if g.audit != nil {
		g.audit.LogCommand(ctx, verb, arg, outcome, latency)
	}

	status := "success"
	switch outcome {
	case audit.OutcomeSuccess:
	case audit.OutcomeSimulated:
		status = "simulated"
	default:
		status = "error"
	}

	g.publish(events.Event{
		Type: events.TypeCommand,
		Data: map[string]interface{}{
			"verb":      verb,
			"argument":  arg,
			"status":    status,
			"outcome":   outcome,
			"latency":   latency.Seconds(),
			"requestId": audit.RequestIDFromContext(ctx),
			"ts":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (g *Gateway) publishSessionEvent() {
	snap := g.session.Snapshot()
	g.publish(events.Event{
		Type: events.TypeSession,
		Data: map[string]interface{}{
			"connected": snap.Connected,
			"dataFile":  snap.DataFile,
			"ts":        time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (g *Gateway) publish(event events.Event) {
	if g.events == nil {
		return
	}
	if err := g.events.Publish(event); err != nil {
		log.Printf("Failed to publish %s event: %v", event.Type, err)
	}
}

// outcomeFor maps an error to its audit outcome.
func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrMissingArgument):
		return "MISSING_ARGUMENT"
	case errors.Is(err, ErrUnknownCommand):
		return "UNKNOWN_COMMAND"
	case errors.Is(err, session.ErrDataFileOpen):
		return "DATA_FILE_OPEN"
	case errors.Is(err, session.ErrConnect):
		return "CONNECT_FAILED"
	case errors.Is(err, ErrCalibrationFailed):
		return "CALIBRATION_FAILED"
	case errors.Is(err, tracker.ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, tracker.ErrBusy):
		return "BUSY"
	case errors.Is(err, tracker.ErrUnavailable):
		return "UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

func successMessage(verb, arg string) string {
	if arg == "" {
		return fmt.Sprintf("Command \"%s\" executed", verb)
	}
	return fmt.Sprintf("Command \"%s\" executed with argument \"%s\"", verb, arg)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
