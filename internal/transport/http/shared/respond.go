// Package shared holds the JSON envelope helpers every handler uses, so
// error bodies look identical across modules.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"sigrh/internal/classification"
	dErrors "sigrh/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
//
// FailureCode is present only for hierarchy validation failures, where the
// caller needs to know which link of the tuple broke, not just that the
// request failed.
type ErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message,omitempty"`
	FailureCode string `json:"failure_code,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates domain and classification errors into the shared
// envelope. Unknown errors become opaque 500s; their detail belongs in
// logs, not responses.
func WriteError(w http.ResponseWriter, err error) {
	if code := classification.CodeOf(err); code != "" {
		status := http.StatusUnprocessableEntity
		switch code {
		case classification.FailureUnknownCorps, classification.FailureUnknownGrade,
			classification.FailureUnknownPayScale, classification.FailureUnknownStep:
			status = http.StatusNotFound
		}
		WriteJSON(w, status, ErrorResponse{
			Error:       string(dErrors.CodeValidation),
			Message:     err.Error(),
			FailureCode: string(code),
		})
		return
	}

	code := dErrors.GetCode(err)
	resp := ErrorResponse{Error: string(code)}
	// Coded errors carry caller-safe messages; internal detail stays in logs.
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		resp.Message = de.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// Decode parses a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
