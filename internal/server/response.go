package server

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Response is the JSON envelope every endpoint except /metrics returns.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
	Status  string `json:"status"`
}

// OutputData is the data of a successful recognition.
type OutputData struct {
	Output string `json:"output"`
}

// DetailsData is the data of a validation failure.
type DetailsData struct {
	Details []FieldError `json:"details"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeEnvelope writes a Response; nil data is sent as an empty object.
func writeEnvelope(w http.ResponseWriter, code int, message, status string, data any) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, code, Response{Message: message, Data: data, Status: status})
}

func writeBadRequest(w http.ResponseWriter) {
	writeEnvelope(w, http.StatusBadRequest, "Bad Request", StatusUnknown, nil)
}

func writeNotFound(w http.ResponseWriter) {
	writeEnvelope(w, http.StatusNotFound, "Not found", StatusUnknown, nil)
}

func writeMethodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeEnvelope(w, http.StatusMethodNotAllowed, "Method not allowed", StatusUnknown, nil)
}

func writeValidationErrors(w http.ResponseWriter, details []FieldError) {
	writeEnvelope(w, http.StatusUnprocessableEntity, "Validation Errors", StatusError, DetailsData{Details: details})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeEnvelope(w, code, message, StatusError, nil)
}
