package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// maxPayloadBytes bounds the request body stored as a run payload.
const maxPayloadBytes = 64 << 10

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

type failureResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	JobRunID string `json:"job_run_id,omitempty"`
}

// WriteFailure writes the {"success":false,"error":...} body used by every run endpoint.
func WriteFailure(w http.ResponseWriter, code int, runID string, err error) {
	WriteJSON(w, code, failureResponse{Error: err.Error(), JobRunID: runID})
}

// readPayload returns the request body when it is a JSON document, or nil.
// Empty, oversized or non-JSON bodies are ignored rather than rejected.
func readPayload(r *http.Request) json.RawMessage {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil || len(raw) > maxPayloadBytes {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return raw
}
