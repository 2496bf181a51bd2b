package command

import (
	"errors"
)

// Verbs accepted by the gateway.
const (
	VerbOpenEDF          = "openEDF"
	VerbConfigureEyeLink = "configureEyeLink"
	VerbDoTrackerSetup   = "doTrackerSetup"
	VerbStartRecording   = "startRecording"
	VerbStopRecording    = "stopRecording"
	VerbSendMessage      = "sendMessage"
	VerbSendCommand      = "sendCommand"
	VerbLogVariables     = "logVariables"
	VerbTerminateTask    = "terminateTask"
	VerbCloseConnection  = "closeEyeLinkConnection"
)

var (
	// ErrUnknownCommand is returned for verbs the gateway does not know.
	ErrUnknownCommand = errors.New("UNKNOWN_COMMAND")

	// ErrMissingArgument marks a known verb sent without its argument.
	// It is reported to callers as an unknown command.
	ErrMissingArgument = errors.New("MISSING_ARGUMENT")

	// ErrCalibrationFailed is returned when calibration does not complete.
	ErrCalibrationFailed = errors.New("Calibration failed")
)

// UnknownCommandError is returned by Decode.
type UnknownCommandError struct {
	Verb  string
	Cause error // nil, or ErrMissingArgument
}

func (e *UnknownCommandError) Error() string {
	return "Unknown command: " + e.Verb
}

func (e *UnknownCommandError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrUnknownCommand}
	}
	return []error{ErrUnknownCommand, e.Cause}
}

// Command is one decoded gateway command.
type Command interface {
	Verb() string
	command()
}

type (
	// OpenEDF opens <Name>.EDF on the host.
	OpenEDF struct{ Name string }

	// ConfigureEyeLink pushes the recording configuration block.
	ConfigureEyeLink struct{}

	// DoTrackerSetup runs calibration in a child process.
	DoTrackerSetup struct{}

	// StartRecording marks a trial and starts recording.
	StartRecording struct{ TrialID string }

	// StopRecording stops recording and marks the trial end.
	StopRecording struct{}

	// SendMessage writes Message to the data file.
	SendMessage struct{ Message string }

	// SendCommand sends Command to the host.
	SendCommand struct{ Command string }

	// LogVariables writes the trial variable marker.
	LogVariables struct{}

	// TerminateTask transfers the data file and closes the link.
	TerminateTask struct{}

	// CloseConnection closes the link without transfer.
	CloseConnection struct{}
)

func (OpenEDF) Verb() string          { return VerbOpenEDF }
func (ConfigureEyeLink) Verb() string { return VerbConfigureEyeLink }
func (DoTrackerSetup) Verb() string   { return VerbDoTrackerSetup }
func (StartRecording) Verb() string   { return VerbStartRecording }
func (StopRecording) Verb() string    { return VerbStopRecording }
func (SendMessage) Verb() string      { return VerbSendMessage }
func (SendCommand) Verb() string      { return VerbSendCommand }
func (LogVariables) Verb() string     { return VerbLogVariables }
func (TerminateTask) Verb() string    { return VerbTerminateTask }
func (CloseConnection) Verb() string  { return VerbCloseConnection }

func (OpenEDF) command()          {}
func (ConfigureEyeLink) command() {}
func (DoTrackerSetup) command()   {}
func (StartRecording) command()   {}
func (StopRecording) command()    {}
func (SendMessage) command()      {}
func (SendCommand) command()      {}
func (LogVariables) command()     {}
func (TerminateTask) command()    {}
func (CloseConnection) command()  {}

type verbSpec struct {
	needsArgument bool
	build         func(arg string) Command
}

var verbs = map[string]verbSpec{
	VerbOpenEDF:          {true, func(a string) Command { return OpenEDF{Name: a} }},
	VerbConfigureEyeLink: {false, func(string) Command { return ConfigureEyeLink{} }},
	VerbDoTrackerSetup:   {false, func(string) Command { return DoTrackerSetup{} }},
	VerbStartRecording:   {true, func(a string) Command { return StartRecording{TrialID: a} }},
	VerbStopRecording:    {false, func(string) Command { return StopRecording{} }},
	VerbSendMessage:      {true, func(a string) Command { return SendMessage{Message: a} }},
	VerbSendCommand:      {true, func(a string) Command { return SendCommand{Command: a} }},
	VerbLogVariables:     {false, func(string) Command { return LogVariables{} }},
	VerbTerminateTask:    {false, func(string) Command { return TerminateTask{} }},
	VerbCloseConnection:  {false, func(string) Command { return CloseConnection{} }},
}

// Decode builds the command for verb. Verbs that take an argument require a
// non-empty one. Arguments given to other verbs are ignored.
func Decode(verb, argument string, hasArgument bool) (Command, error) {
	spec, ok := verbs[verb]
	if !ok {
		return nil, &UnknownCommandError{Verb: verb}
	}

	if spec.needsArgument && (!hasArgument || argument == "") {
		return nil, &UnknownCommandError{Verb: verb, Cause: ErrMissingArgument}
	}

	return spec.build(argument), nil
}
