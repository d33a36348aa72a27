package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes caps submission payloads.
const maxBodyBytes = 64 << 10

// Response status values used in every JSON body.
const (
	StatusDone    = "done"
	StatusRunning = "running"
	StatusError   = "error"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"`
}

// DecodeJSON decodes the request body into dst. It writes a 400 and returns false on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		reason := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			reason = "request body is required"
		}
		WriteError(w, http.StatusBadRequest, ErrorBody{Reason: reason})
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteError writes body with Status forced to "error".
func WriteError(w http.ResponseWriter, code int, body ErrorBody) {
	body.Status = StatusError
	WriteJSON(w, code, body)
}
