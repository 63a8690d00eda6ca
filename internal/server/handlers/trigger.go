package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dwsmith1983/jobtrigger/internal/config"
	"github.com/dwsmith1983/jobtrigger/internal/handler"
	"github.com/dwsmith1983/jobtrigger/pkg/types"
)

// Trigger starts a job run. The request body is an optional JSON invocation
// payload; an empty body uses the configured job.
func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	req, err := DecodeRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		h.writeResponse(w, handler.Render(handler.OutcomeFromError(err)))
		return
	}

	h.writeResponse(w, h.trigger.Handle(r.Context(), req))
}

// DecodeRequest reads an invocation payload from an HTTP request. Malformed
// JSON is reported as *config.Error.
func DecodeRequest(r *http.Request) (types.InvocationRequest, error) {
	var req types.InvocationRequest
	if r.Body == nil {
		return req, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return req, fmt.Errorf("reading request body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return types.InvocationRequest{}, &config.Error{Reason: fmt.Sprintf("invalid request payload: %v", err)}
	}
	return req, nil
}
