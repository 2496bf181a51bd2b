package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the body of every /send_command answer.
type Response struct {
	Status    string   `json:"status"`
	Message   string   `json:"message,omitempty"`
	Latency   *float64 `json:"latency,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

// WriteSuccess writes a 200 success response. latency is in seconds.
func WriteSuccess(w http.ResponseWriter, message string, latency float64, requestID string) {
	writeJSON(w, http.StatusOK, &Response{
		Status:    StatusSuccess,
		Message:   message,
		Latency:   &latency,
		RequestID: requestID,
	})
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, statusCode int, message, requestID string) {
	writeJSON(w, statusCode, &Response{
		Status:    StatusError,
		Message:   message,
		RequestID: requestID,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}
