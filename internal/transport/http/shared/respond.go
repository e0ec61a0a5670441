// Package shared holds the JSON response helpers used by every handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dErrors "leaddesk/pkg/domain-errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError translates a domain error into the JSON error envelope. Errors
// without a code are reported as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	msg := "internal error"
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		msg = dErr.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), errorEnvelope{Error: errorBody{
		Code:    string(code),
		Message: msg,
	}})
}

// PathID parses the {id} chi URL parameter.
func PathID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid id")
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter, returning def when the
// parameter is absent.
func QueryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid numeric parameter")
	}
	return n, nil
}
