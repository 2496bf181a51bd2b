package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eyelink-control/elg/internal/auth"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestLogCommand(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, Options{MaxSizeMB: 1})
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), auth.ClaimsKey, &auth.Claims{Subject: "task-runner"})
	ctx = WithRequestID(ctx, "req-1")

	logger.LogCommand(ctx, "openEDF", "trial1", OutcomeSuccess, 12*time.Millisecond)
	logger.LogCommand(context.Background(), "xyz", "", "UNKNOWN_COMMAND", 0)
	logger.LogCommand(context.Background(), "terminateTask", "", "INTERNAL", time.Second)
	require.NoError(t, logger.Close())

	assert.Equal(t, filepath.Join(dir, "audit.jsonl"), logger.GetFilePath())

	entries := readEntries(t, logger.GetFilePath())
	require.Len(t, entries, 3)

	assert.Equal(t, "task-runner", entries[0].User)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "openEDF", entries[0].Verb)
	assert.Equal(t, "trial1", entries[0].Argument)
	assert.Equal(t, "OK", entries[0].Code)
	assert.Equal(t, int64(12), entries[0].LatencyMs)

	assert.Equal(t, "anonymous", entries[1].User)
	assert.Equal(t, "CLIENT_ERROR", entries[1].Code)
	assert.Equal(t, "ERROR", entries[2].Code)
}

func TestCodeFromOutcome(t *testing.T) {
	tests := map[string]string{
		OutcomeSuccess:       "OK",
		OutcomeSimulated:     "OK",
		"UNKNOWN_COMMAND":    "CLIENT_ERROR",
		"MISSING_ARGUMENT":   "CLIENT_ERROR",
		"DATA_FILE_OPEN":     "CLIENT_ERROR",
		"UNAVAILABLE":        "ERROR",
		"CALIBRATION_FAILED": "ERROR",
		"INTERNAL":           "ERROR",
	}
	for outcome, want := range tests {
		assert.Equal(t, want, codeFromOutcome(outcome), outcome)
	}
}

func TestWriteAfterCloseIsDropped(t *testing.T) {
	logger, err := NewLogger(t.TempDir(), Options{})
	require.NoError(t, err)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	assert.NotPanics(t, func() {
		logger.LogCommand(context.Background(), "openEDF", "x", OutcomeSuccess, 0)
	})
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, Options{})
	require.NoError(t, err)
	defer logger.Close()

	logger.LogCommand(context.Background(), "openEDF", "a", OutcomeSuccess, 0)
	require.NoError(t, logger.Rotate())
	logger.LogCommand(context.Background(), "openEDF", "b", OutcomeSuccess, 0)

	entries := readEntries(t, logger.GetFilePath())
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Argument)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
