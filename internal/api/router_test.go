package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/models"
)

// fakeStorage is an in-memory Storage double covering just the behavior
// the handler tests below exercise.
type fakeStorage struct {
	pingErr error
	sources map[int64]models.Source
	content []models.ContentItem
}

func (f *fakeStorage) Ping() error { return f.pingErr }

func (f *fakeStorage) AddSource(url string, kind models.SourceKind, name string) (int64, error) {
	return 0, nil
}
func (f *fakeStorage) UpdateSource(id int64, name, url *string) error { return nil }
func (f *fakeStorage) RemoveSource(id int64) (bool, error)            { return true, nil }
func (f *fakeStorage) ListSources() ([]models.Source, error)          { return nil, nil }
func (f *fakeStorage) SourceByID(id int64) (models.Source, error) {
	s, ok := f.sources[id]
	if !ok {
		return models.Source{}, apperr.ErrNotFound
	}
	return s, nil
}
func (f *fakeStorage) SetSourceActive(id int64, active bool) error { return nil }

func (f *fakeStorage) ContentByID(id int64) (models.ContentItem, error) {
	for _, it := range f.content {
		if it.ID == id {
			return it, nil
		}
	}
	return models.ContentItem{}, apperr.ErrNotFound
}

func (f *fakeStorage) ContentByPriority(p models.Priority, limit int, includeArchived bool) ([]models.ContentItem, error) {
	var out []models.ContentItem
	for _, it := range f.content {
		if it.Priority == nil || *it.Priority != p {
			continue
		}
		if it.ArchivedAt != nil && !includeArchived {
			continue
		}
		out = append(out, it)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStorage) ContentSince(since *time.Time, includeArchived bool) ([]models.ContentItem, error) {
	var out []models.ContentItem
	for _, it := range f.content {
		if it.Priority == nil {
			continue
		}
		if it.ArchivedAt != nil && !includeArchived {
			continue
		}
		if since != nil && it.PublishedAt.Before(*since) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeStorage) UpdateContentStatus(id int64, read, favorited *bool) error { return nil }

func (f *fakeStorage) SearchContent(queryVec []float32, limit int, minScore float64) ([]models.SearchResult, error) {
	return nil, nil
}

func (f *fakeStorage) DeleteUnprioritized(days *int) (int64, error) { return 0, nil }
func (f *fakeStorage) CountUnprioritized(days *int) (int64, error)  { return 0, nil }
func (f *fakeStorage) ArchiveOldContent(w models.ArchivalWindows) (int64, error) {
	return 0, nil
}
func (f *fakeStorage) ArchivalCounts() (models.ArchivalCounts, error) {
	return models.ArchivalCounts{}, nil
}

func newTestDeps(storage *fakeStorage) Deps {
	return Deps{Storage: storage, APIKey: "secret-key"}
}

func high() *models.Priority {
	p := models.PriorityHigh
	return &p
}

func TestHealthIsUnauthenticated(t *testing.T) {
	router := NewRouter(newTestDeps(&fakeStorage{}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to be reachable without an API key, got %d", rec.Code)
	}
}

func TestProtectedRouteRejectsMissingAPIKey(t *testing.T) {
	router := NewRouter(newTestDeps(&fakeStorage{}))
	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without X-API-Key, got %d", rec.Code)
	}
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Success {
		t.Fatalf("expected success=false envelope, got %+v", env)
	}
}

func TestProtectedRouteAcceptsCorrectAPIKey(t *testing.T) {
	router := NewRouter(newTestDeps(&fakeStorage{}))
	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with the correct API key, got %d: %s", rec.Code, rec.Body.String())
	}
}

// TestEntriesFilterByPriorityAndUnread: the filtered count matches a
// direct in-memory count of unread, non-archived items at that priority.
func TestEntriesFilterByPriorityAndUnread(t *testing.T) {
	medium := models.PriorityMedium
	archived := time.Now().UTC()
	storage := &fakeStorage{
		content: []models.ContentItem{
			{ID: 1, Priority: high(), Read: false},
			{ID: 2, Priority: high(), Read: true},
			{ID: 3, Priority: high(), Read: false, ArchivedAt: &archived},
			{ID: 4, Priority: &medium, Read: false},
		},
	}
	router := NewRouter(newTestDeps(storage))

	req := httptest.NewRequest(http.MethodGet, "/api/entries?priority=high&unread_only=true", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Success bool                 `json:"success"`
		Data    []models.ContentItem `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Item 1 is the only unread, non-archived, high-priority item; item 2
	// is read, item 3 is archived, item 4 is medium priority.
	if len(env.Data) != 1 || env.Data[0].ID != 1 {
		t.Fatalf("expected exactly item 1, got %+v", env.Data)
	}
}

func TestEntriesRejectsInvalidPriority(t *testing.T) {
	router := NewRouter(newTestDeps(&fakeStorage{}))
	req := httptest.NewRequest(http.MethodGet, "/api/entries?priority=urgent", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an invalid priority, got %d", rec.Code)
	}
}

func TestEntriesRejectsLimitAboveMax(t *testing.T) {
	router := NewRouter(newTestDeps(&fakeStorage{}))
	req := httptest.NewRequest(http.MethodGet, "/api/entries?limit=20000", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for limit > 10000, got %d", rec.Code)
	}
}

func TestGetEntryNotFoundRendersEnvelope(t *testing.T) {
	router := NewRouter(newTestDeps(&fakeStorage{}))
	req := httptest.NewRequest(http.MethodGet, "/api/entries/999", nil)
	req.Header.Set("X-API-Key", "secret-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing entry, got %d", rec.Code)
	}
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Success {
		t.Fatalf("expected success=false, got %+v", env)
	}
}

func TestHealthReportsDatabaseUnreachable(t *testing.T) {
	router := NewRouter(newTestDeps(&fakeStorage{pingErr: apperr.Wrap(apperr.KindStorage, "ping", http.ErrServerClosed)}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the database ping fails, got %d", rec.Code)
	}
}
