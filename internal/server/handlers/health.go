package handlers

import (
	"encoding/json"
	"net/http"
)

// Health reports liveness. It does not contact the job platform.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	}); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
}
