package api

import "net/http"

// handleArchiveStatus implements GET /api/archive/status: counts plus the
// window configuration currently in force.
func (d Deps) handleArchiveStatus(w http.ResponseWriter, r *http.Request) {
	counts, err := d.Storage.ArchivalCounts()
	if err != nil {
		writeError(w, err)
		return
	}
	counts.Windows = d.ArchivalWindow
	writeSuccess(w, counts)
}
