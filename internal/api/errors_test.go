package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/eyelink-control/elg/internal/command"
	"github.com/eyelink-control/elg/internal/session"
	"github.com/eyelink-control/elg/internal/tracker"
)

func TestToAPIError(t *testing.T) {
	_, decodeErr := command.Decode("xyz", "", false)

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"nil", nil, http.StatusOK, ""},
		{"unknown verb", decodeErr, http.StatusBadRequest, "Unknown command: xyz"},
		{"data file open", fmt.Errorf("%w: trial1.EDF must be closed", session.ErrDataFileOpen), http.StatusBadRequest, "Data file already open"},
		{"connect", fmt.Errorf("%w: refused", session.ErrConnect), http.StatusInternalServerError, "Unable to establish EyeLink connection"},
		{"calibration", command.ErrCalibrationFailed, http.StatusInternalServerError, "Calibration failed"},
		{"vendor", tracker.NormalizeVendorError(errors.New("host busy: openDataFile"), nil), http.StatusInternalServerError, "host busy: openDataFile"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := ToAPIError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
		})
	}
}
