package api

import (
	"errors"
	"net/http"

	"github.com/eyelink-control/elg/internal/command"
	"github.com/eyelink-control/elg/internal/session"
	"github.com/eyelink-control/elg/internal/tracker"
)

// ToAPIError maps a dispatch error to an HTTP status and message.
// Caller mistakes are 400; everything the tracker or calibration reports
// is 500 with the underlying text.
func ToAPIError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	var unknown *command.UnknownCommandError
	switch {
	case errors.As(err, &unknown):
		return http.StatusBadRequest, unknown.Error()

	case errors.Is(err, command.ErrUnknownCommand), errors.Is(err, command.ErrMissingArgument):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, session.ErrDataFileOpen):
		return http.StatusBadRequest, "Data file already open"

	case errors.Is(err, session.ErrConnect):
		return http.StatusInternalServerError, session.ErrConnect.Error()

	case errors.Is(err, command.ErrCalibrationFailed):
		return http.StatusInternalServerError, command.ErrCalibrationFailed.Error()
	}

	return http.StatusInternalServerError, tracker.VendorMessage(err)
}
