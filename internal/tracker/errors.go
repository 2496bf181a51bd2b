package tracker

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized tracker errors.
var (
	ErrInvalidState = errors.New("INVALID_STATE")
	ErrBusy         = errors.New("BUSY")
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrInternal     = errors.New("INTERNAL")
)

// VendorMap defines the error token mapping for a driver family.
type VendorMap struct {
	InvalidState []string // Tokens that map to INVALID_STATE
	Busy         []string // Tokens that map to BUSY
	Unavailable  []string // Tokens that map to UNAVAILABLE
}

// VendorErrorMappings contains the error mapping tables per driver family.
//
// Unknown tokens map to INTERNAL. Drivers without their own entry use
// "generic".
var VendorErrorMappings = map[string]VendorMap{
	"eyelink": {
		InvalidState: []string{
			"NO DATA FILE",
			"FILE ALREADY OPEN",
			"NOT RECORDING",
			"ALREADY RECORDING",
			"INVALID FILENAME",
			"INVALID_STATE",
		},
		Busy: []string{
			"TRANSFER IN PROGRESS",
			"SETUP IN PROGRESS",
			"HOST BUSY",
			"BUSY",
		},
		Unavailable: []string{
			"NOT CONNECTED",
			"LINK TIMEOUT",
			"NO REPLY",
			"CONNECTION REFUSED",
			"LINK CLOSED",
			"DEADLINE EXCEEDED",
			"UNAVAILABLE",
		},
	},
	"generic": {
		InvalidState: []string{
			"INVALID_STATE",
			"INVALID STATE",
			"PRECONDITION",
		},
		Busy: []string{
			"BUSY",
			"RETRY",
			"IN PROGRESS",
		},
		Unavailable: []string{
			"UNAVAILABLE",
			"NOT CONNECTED",
			"TIMEOUT",
			"REFUSED",
		},
	},
}

// VendorError wraps a driver error with its normalized code.
type VendorError struct {
	Code     error       // Normalized code
	Original error       // Driver error
	Details  interface{} // Driver payload (opaque)
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

func (e *VendorError) Unwrap() error {
	return e.Code
}

// NormalizeVendorError maps a driver error using the generic table.
func NormalizeVendorError(vendorErr error, vendorPayload interface{}) error {
	return NormalizeVendorErrorWithVendor(vendorErr, vendorPayload, "generic")
}

// NormalizeVendorErrorWithVendor maps a driver error using a specific table.
// Errors that are already normalized pass through unchanged.
func NormalizeVendorErrorWithVendor(vendorErr error, vendorPayload interface{}, vendorID string) error {
	if vendorErr == nil {
		return nil
	}

	var already *VendorError
	if errors.As(vendorErr, &already) {
		return vendorErr
	}

	code := mapVendorErrorToCode(vendorErr.Error(), vendorID)

	return &VendorError{
		Code:     code,
		Original: vendorErr,
		Details:  vendorPayload,
	}
}

// mapVendorErrorToCode maps a driver message to a normalized code.
func mapVendorErrorToCode(msg string, vendorID string) error {
	vendorMap, exists := VendorErrorMappings[vendorID]
	if !exists {
		vendorMap = VendorErrorMappings["generic"]
	}

	upperMsg := strings.ToUpper(msg)

	for _, token := range vendorMap.InvalidState {
		if strings.Contains(upperMsg, strings.ToUpper(token)) {
			return ErrInvalidState
		}
	}

	for _, token := range vendorMap.Busy {
		if strings.Contains(upperMsg, strings.ToUpper(token)) {
			return ErrBusy
		}
	}

	for _, token := range vendorMap.Unavailable {
		if strings.Contains(upperMsg, strings.ToUpper(token)) {
			return ErrUnavailable
		}
	}

	return ErrInternal
}

// VendorMessage returns the driver's own error text when err carries one.
func VendorMessage(err error) string {
	if err == nil {
		return ""
	}
	var vendorErr *VendorError
	if errors.As(err, &vendorErr) && vendorErr.Original != nil {
		return vendorErr.Original.Error()
	}
	return err.Error()
}
