package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/models"
)

const maxEntriesLimit = 10000

// handleListEntries implements GET /api/entries with the priority,
// unread_only, include_archived, limit (<=10000), and since/since_hours
// filters.
func (d Deps) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeArchived := q.Get("include_archived") == "true"

	limit := maxEntriesLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEntriesLimit {
			writeError(w, apperr.New(apperr.KindValidation, "limit must be between 1 and 10000"))
			return
		}
		limit = n
	}

	if raw := q.Get("priority"); raw != "" {
		p := models.Priority(raw)
		if !p.Valid() {
			writeError(w, apperr.New(apperr.KindValidation, "invalid priority value"))
			return
		}
		items, err := d.Storage.ContentByPriority(p, limit, includeArchived)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, filterUnread(items, q.Get("unread_only") == "true"))
		return
	}

	since, err := parseSinceFilters(q)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := d.Storage.ContentSince(since, includeArchived)
	if err != nil {
		writeError(w, err)
		return
	}
	items = filterUnread(items, q.Get("unread_only") == "true")
	if len(items) > limit {
		items = items[:limit]
	}
	writeSuccess(w, items)
}

func filterUnread(items []models.ContentItem, unreadOnly bool) []models.ContentItem {
	if !unreadOnly {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if !it.Read {
			out = append(out, it)
		}
	}
	return out
}

// parseSinceFilters accepts either an RFC3339 "since" timestamp or a
// "since_hours" integer offset from now; neither given means "all time".
func parseSinceFilters(q map[string][]string) (*time.Time, error) {
	if raw := firstOf(q, "since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "since must be an RFC3339 timestamp", err)
		}
		return &t, nil
	}
	if raw := firstOf(q, "since_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 0 {
			return nil, apperr.New(apperr.KindValidation, "since_hours must be a non-negative integer")
		}
		t := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		return &t, nil
	}
	return nil, nil
}

func firstOf(q map[string][]string, key string) string {
	if vs, ok := q[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// handleGetEntry implements GET /api/entries/{id}: the item with its
// summary and analysis; the full body (content and analysis.full_text) is
// included only when ?include=content is given.
func (d Deps) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := d.Storage.ContentByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("include") != "content" {
		item.Content = ""
		item.Analysis.FullText = ""
	}
	writeSuccess(w, item)
}

func (d Deps) handleGetEntryRaw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := d.Storage.ContentByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(item.Content))
}

type updateEntryRequest struct {
	Read      *bool `json:"read"`
	Favorited *bool `json:"favorited"`
}

// handleUpdateEntry implements PATCH /api/entries/{id}: update read and/or
// favorited.
func (d Deps) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if req.Read == nil && req.Favorited == nil {
		writeError(w, apperr.New(apperr.KindValidation, "request must set read and/or favorited"))
		return
	}
	if err := d.Storage.UpdateContentStatus(id, req.Read, req.Favorited); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "entry updated")
}
