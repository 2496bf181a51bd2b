package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		verb   string
		arg    string
		hasArg bool
		want   Command
	}{
		{VerbOpenEDF, "trial1", true, OpenEDF{Name: "trial1"}},
		{VerbConfigureEyeLink, "", true, ConfigureEyeLink{}},
		{VerbConfigureEyeLink, "", false, ConfigureEyeLink{}},
		{VerbDoTrackerSetup, "", true, DoTrackerSetup{}},
		{VerbStartRecording, "7", true, StartRecording{TrialID: "7"}},
		{VerbStopRecording, "ignored", true, StopRecording{}},
		{VerbSendMessage, "hello world", true, SendMessage{Message: "hello world"}},
		{VerbSendCommand, "sample_rate = 500", true, SendCommand{Command: "sample_rate = 500"}},
		{VerbLogVariables, "", true, LogVariables{}},
		{VerbTerminateTask, "", true, TerminateTask{}},
		{VerbCloseConnection, "", true, CloseConnection{}},
	}

	for _, tt := range tests {
		got, err := Decode(tt.verb, tt.arg, tt.hasArg)
		require.NoError(t, err, tt.verb)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.verb, got.Verb())
	}
}

func TestDecodeUnknownVerb(t *testing.T) {
	_, err := Decode("xyz", "1", true)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrUnknownCommand))
	assert.False(t, errors.Is(err, ErrMissingArgument))
	assert.Equal(t, "Unknown command: xyz", err.Error())

	var unknown *UnknownCommandError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "xyz", unknown.Verb)
}

func TestDecodeMissingArgument(t *testing.T) {
	for _, verb := range []string{VerbOpenEDF, VerbStartRecording, VerbSendMessage, VerbSendCommand} {
		for _, hasArg := range []bool{false, true} {
			_, err := Decode(verb, "", hasArg)
			require.Error(t, err, verb)
			assert.True(t, errors.Is(err, ErrUnknownCommand), verb)
			assert.True(t, errors.Is(err, ErrMissingArgument), verb)
			assert.Equal(t, "Unknown command: "+verb, err.Error())
		}
	}
}

func TestDecodeIsCaseSensitive(t *testing.T) {
	_, err := Decode("OpenEDF", "trial1", true)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
