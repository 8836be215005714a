package api

import (
	"net/http"
	"strconv"

	"github.com/prismis/prismis/internal/apperr"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 200
)

// handleSearch implements GET /api/search?q=&limit=&min_score=: embed
// the query text with the same model content embeddings
// use, then rank via Storage.SearchContent's blended relevance score.
func (d Deps) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeError(w, apperr.New(apperr.KindValidation, "q is required"))
		return
	}

	limit := defaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchLimit {
			writeError(w, apperr.New(apperr.KindValidation, "limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	minScore := 0.0
	if raw := q.Get("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 1 {
			writeError(w, apperr.New(apperr.KindValidation, "min_score must be between 0 and 1"))
			return
		}
		minScore = v
	}

	vec, err := d.LLM.Embed(r.Context(), "", query)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindTransient, "query embedding failed", err))
		return
	}

	results, err := d.Storage.SearchContent(vec, limit, minScore)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, results)
}
