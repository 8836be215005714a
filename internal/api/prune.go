package api

import (
	"net/http"
	"strconv"

	"github.com/prismis/prismis/internal/apperr"
)

// pruneDays parses the optional ?days= age filter shared by prune's count
// and delete endpoints.
func pruneDays(r *http.Request) (*int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return nil, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		return nil, apperr.New(apperr.KindValidation, "days must be a non-negative integer")
	}
	return &days, nil
}

func (d Deps) handlePruneCount(w http.ResponseWriter, r *http.Request) {
	days, err := pruneDays(r)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := d.Storage.CountUnprioritized(days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"count": count})
}

func (d Deps) handlePruneDelete(w http.ResponseWriter, r *http.Request) {
	days, err := pruneDays(r)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := d.Storage.DeleteUnprioritized(days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"deleted": count})
}
