// Package shared holds the JSON envelope helpers used by every handler.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "greengate/pkg/domain-errors"
)

// ErrorResponse is the uniform error envelope. RemainingAttempts is set
// only on budgeted rejections (bad OTP, bad password).
type ErrorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the envelope. Internal detail
// is never leaked: unclassified errors surface as a bare internal code.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithAttempts(w, err, nil)
}

func WriteErrorWithAttempts(w http.ResponseWriter, err error, remaining *int) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code), RemainingAttempts: remaining}
	if code != dErrors.CodeInternal {
		resp.Message = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// DecodeJSON parses a request body, rejecting unknown shapes early.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
