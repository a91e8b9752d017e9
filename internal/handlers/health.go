package handlers

import (
	"net/http"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	Version string
}

// Handle implements GET /healthz. It reports on this process only; the
// remote services are not probed.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{
		"status": "ok",
	}
	if h.Version != "" {
		payload["version"] = h.Version
	}
	respondJSON(r.Context(), w, http.StatusOK, payload)
}
