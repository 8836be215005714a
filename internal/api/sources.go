package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/models"
)

type addSourceRequest struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// handleAddSource implements POST /api/sources: normalize, validate,
// insert. A duplicate URL is success=true with the existing id, never an
// HTTP error.
func (d Deps) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	kind := models.SourceKind(req.Kind)
	if !kind.Valid() {
		writeError(w, apperr.New(apperr.KindValidation, "unsupported source kind"))
		return
	}
	if req.URL == "" {
		writeError(w, apperr.New(apperr.KindValidation, "url is required"))
		return
	}

	normalized, err := normalizeSourceURL(kind, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := validateSourceURL(r.Context(), kind, normalized); err != nil {
		writeError(w, err)
		return
	}

	id, err := d.Storage.AddSource(normalized, kind, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCreated(w, map[string]any{"id": id, "url": normalized, "kind": kind})
}

func (d Deps) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := d.Storage.ListSources()
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, sources)
}

type updateSourceRequest struct {
	Name *string `json:"name"`
	URL  *string `json:"url"`
}

func (d Deps) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := d.Storage.SourceByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}

	if req.URL != nil {
		normalized, err := normalizeSourceURL(existing.Kind, *req.URL)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := validateSourceURL(r.Context(), existing.Kind, normalized); err != nil {
			writeError(w, err)
			return
		}
		req.URL = &normalized
	}

	if err := d.Storage.UpdateSource(id, req.Name, req.URL); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "source updated")
}

func (d Deps) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	existed, err := d.Storage.RemoveSource(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !existed {
		writeError(w, apperr.ErrNotFound)
		return
	}
	writeMessage(w, "source removed")
}

func (d Deps) handlePauseSource(w http.ResponseWriter, r *http.Request) {
	d.setSourceActive(w, r, false)
}

func (d Deps) handleResumeSource(w http.ResponseWriter, r *http.Request) {
	d.setSourceActive(w, r, true)
}

func (d Deps) setSourceActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := d.Storage.SourceByID(id); err != nil {
		writeError(w, err)
		return
	}
	if err := d.Storage.SetSourceActive(id, active); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "source updated")
}

// pathID parses the {id} chi route parameter as an int64.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindValidation, "invalid id", err)
	}
	return id, nil
}
