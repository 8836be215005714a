package api

import "net/http"

// handleHealth implements GET /health: liveness plus database
// reachability. The only unauthenticated endpoint.
func (d Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := d.Storage.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, Envelope{
			Success: false,
			Message: "database unreachable: " + err.Error(),
		})
		return
	}
	writeSuccess(w, map[string]any{"status": "ok"})
}
