// Package httputil writes JSON responses and error envelopes.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "restapidemo/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a status and envelope. Errors without a
// code, and internal errors, are reported without a description so storage
// details never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: string(dErrors.CodeInternal)}
	status := http.StatusInternalServerError

	if de, ok := dErrors.As(err); ok {
		status = dErrors.ToHTTPStatus(de.Code)
		if status != http.StatusInternalServerError {
			resp.Error = string(de.Code)
			resp.ErrorDescription = de.Message
			resp.Fields = de.Fields
		}
	}
	WriteJSON(w, status, resp)
}
