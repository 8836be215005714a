package database

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/models"
)

// ExistingExternalIDs returns every external_id stored for source, as a
// set, so the orchestrator can filter a fetch batch before doing any LLM
// work.
func (h *Handle) ExistingExternalIDs(sourceID int64) (map[string]struct{}, error) {
	rows, err := h.readerConn().Query(`SELECT external_id FROM content WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "existing external ids", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "scan external id", err)
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

// CreateOrUpdateContent inserts a new content row, or - if a row for
// (source_id, external_id) already exists - updates only its mutable
// fields (content, summary, merged analysis, priority), preserving the
// original id. isNew reports which branch was taken.
func (h *Handle) CreateOrUpdateContent(item models.ContentItem) (id int64, isNew bool, err error) {
	err = h.withTx(func(tx *sql.Tx) error {
		analysisJSON, mErr := json.Marshal(item.Analysis)
		if mErr != nil {
			return mErr
		}

		var existingID int64
		row := tx.QueryRow(
			`SELECT id FROM content WHERE source_id IS ? AND external_id = ?`,
			item.SourceID, item.ExternalID,
		)
		switch scanErr := row.Scan(&existingID); scanErr {
		case nil:
			isNew = false
			id = existingID
			_, uErr := tx.Exec(
				`UPDATE content SET content = ?, summary = ?, analysis = ?, priority = ? WHERE id = ?`,
				item.Content, item.Summary, string(analysisJSON), priorityValue(item.Priority), existingID,
			)
			return uErr
		case sql.ErrNoRows:
			isNew = true
			res, iErr := tx.Exec(
				`INSERT INTO content (source_id, external_id, title, url, content, summary, analysis, priority, published_at, fetched_at, read, favorited, flagged_interesting)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0)`,
				item.SourceID, item.ExternalID, item.Title, item.URL, item.Content, item.Summary,
				string(analysisJSON), priorityValue(item.Priority),
				item.PublishedAt.UTC().Format(time.RFC3339), item.FetchedAt.UTC().Format(time.RFC3339),
			)
			if iErr != nil {
				return iErr
			}
			id, iErr = res.LastInsertId()
			return iErr
		default:
			return scanErr
		}
	})
	return id, isNew, err
}

// AddContent is the strict variant of CreateOrUpdateContent: a duplicate
// (source_id, external_id) returns id=0, inserted=false with no mutation.
func (h *Handle) AddContent(item models.ContentItem) (id int64, inserted bool, err error) {
	err = h.withTx(func(tx *sql.Tx) error {
		var existingID int64
		row := tx.QueryRow(`SELECT id FROM content WHERE source_id IS ? AND external_id = ?`, item.SourceID, item.ExternalID)
		switch scanErr := row.Scan(&existingID); scanErr {
		case nil:
			inserted = false
			return nil
		case sql.ErrNoRows:
			analysisJSON, mErr := json.Marshal(item.Analysis)
			if mErr != nil {
				return mErr
			}
			res, iErr := tx.Exec(
				`INSERT INTO content (source_id, external_id, title, url, content, summary, analysis, priority, published_at, fetched_at, read, favorited, flagged_interesting)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0)`,
				item.SourceID, item.ExternalID, item.Title, item.URL, item.Content, item.Summary,
				string(analysisJSON), priorityValue(item.Priority),
				item.PublishedAt.UTC().Format(time.RFC3339), item.FetchedAt.UTC().Format(time.RFC3339),
			)
			if iErr != nil {
				return iErr
			}
			id, iErr = res.LastInsertId()
			inserted = true
			return iErr
		default:
			return scanErr
		}
	})
	return id, inserted, err
}

func priorityValue(p *models.Priority) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

const contentSelectColumns = `c.id, c.source_id, COALESCE(s.name, ''), COALESCE(s.kind, ''), c.external_id, c.title, c.url, c.content, c.summary, c.analysis, c.priority, c.published_at, c.fetched_at, c.read, c.favorited, c.flagged_interesting, c.notes, c.archived_at`

// ContentByPriority returns unread, non-archived (unless includeArchived)
// items of priority p joined to source name/kind, newest published first.
func (h *Handle) ContentByPriority(p models.Priority, limit int, includeArchived bool) ([]models.ContentItem, error) {
	query := `SELECT ` + contentSelectColumns + ` FROM content c LEFT JOIN sources s ON s.id = c.source_id
		WHERE c.priority = ? AND c.read = 0`
	if !includeArchived {
		query += ` AND c.archived_at IS NULL`
	}
	query += ` ORDER BY c.published_at DESC LIMIT ?`

	rows, err := h.readerConn().Query(query, string(p), limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "content by priority", err)
	}
	defer rows.Close()
	return scanContentRows(rows)
}

// ContentSince returns prioritized items published since the cutoff,
// ordered by priority (high, medium, low, via a CASE in this query) then
// published descending. A nil since means "all
// time". Items with NULL priority are always excluded.
func (h *Handle) ContentSince(since *time.Time, includeArchived bool) ([]models.ContentItem, error) {
	query := `SELECT ` + contentSelectColumns + ` FROM content c LEFT JOIN sources s ON s.id = c.source_id
		WHERE c.priority IS NOT NULL`
	args := []any{}
	if since != nil {
		query += ` AND c.published_at >= ?`
		args = append(args, since.UTC().Format(time.RFC3339))
	}
	if !includeArchived {
		query += ` AND c.archived_at IS NULL`
	}
	query += ` ORDER BY CASE c.priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 WHEN 'low' THEN 2 ELSE 3 END ASC, c.published_at DESC`

	rows, err := h.readerConn().Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "content since", err)
	}
	defer rows.Close()
	return scanContentRows(rows)
}

// FlaggedSince returns items flagged interesting since the cutoff, newest
// first - the raw material the orchestrator folds into learned-preference
// context once the feedback threshold is met.
func (h *Handle) FlaggedSince(since time.Time) ([]models.ContentItem, error) {
	query := `SELECT ` + contentSelectColumns + ` FROM content c LEFT JOIN sources s ON s.id = c.source_id
		WHERE c.flagged_interesting = 1 AND c.fetched_at >= ? ORDER BY c.fetched_at DESC`
	rows, err := h.readerConn().Query(query, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "flagged since", err)
	}
	defer rows.Close()
	return scanContentRows(rows)
}

// UnembeddedContent returns up to limit content ids and their
// summary-or-content text that have no row in embeddings yet, for the
// backfill job.
func (h *Handle) UnembeddedContent(limit int) ([]models.ContentItem, error) {
	query := `SELECT ` + contentSelectColumns + ` FROM content c LEFT JOIN sources s ON s.id = c.source_id
		WHERE c.id NOT IN (SELECT content_id FROM embeddings) ORDER BY c.id LIMIT ?`
	rows, err := h.readerConn().Query(query, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "unembedded content", err)
	}
	defer rows.Close()
	return scanContentRows(rows)
}

// LatestContentForURL returns the most recently fetched content item
// stored for (sourceID, url), or nil if none exists - how the file
// fetcher (internal/fetch/file.go) learns the previous content hash to
// diff against without importing the database package itself.
func (h *Handle) LatestContentForURL(sourceID int64, url string) (*models.ContentItem, error) {
	query := `SELECT ` + contentSelectColumns + ` FROM content c LEFT JOIN sources s ON s.id = c.source_id
		WHERE c.source_id = ? AND c.url = ? ORDER BY c.fetched_at DESC LIMIT 1`
	row := h.readerConn().QueryRow(query, sourceID, url)
	item, err := scanContentItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "latest content for url", err)
	}
	return &item, nil
}

// ContentByID returns a single content item, or apperr.ErrNotFound if no
// row exists with that id.
func (h *Handle) ContentByID(id int64) (models.ContentItem, error) {
	query := `SELECT ` + contentSelectColumns + ` FROM content c LEFT JOIN sources s ON s.id = c.source_id WHERE c.id = ?`
	row := h.readerConn().QueryRow(query, id)
	item, err := scanContentItem(row)
	if err == sql.ErrNoRows {
		return item, apperr.ErrNotFound
	}
	if err != nil {
		return item, apperr.Wrap(apperr.KindStorage, "content by id", err)
	}
	return item, nil
}

func scanContentRows(rows *sql.Rows) ([]models.ContentItem, error) {
	var out []models.ContentItem
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "scan content", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanContentItem(r scanner) (models.ContentItem, error) {
	var item models.ContentItem
	var sourceID sql.NullInt64
	var sourceName, sourceKind string
	var priority, notes sql.NullString
	var publishedAt, fetchedAt string
	var archivedAt sql.NullString
	var analysisJSON string

	err := r.Scan(&item.ID, &sourceID, &sourceName, &sourceKind, &item.ExternalID, &item.Title, &item.URL,
		&item.Content, &item.Summary, &analysisJSON, &priority, &publishedAt, &fetchedAt,
		&item.Read, &item.Favorited, &item.Flagged, &notes, &archivedAt)
	if err != nil {
		return item, err
	}

	if sourceID.Valid {
		v := sourceID.Int64
		item.SourceID = &v
	}
	item.SourceName = sourceName
	item.SourceKind = models.SourceKind(sourceKind)
	if priority.Valid {
		p := models.Priority(priority.String)
		item.Priority = &p
	}
	if notes.Valid {
		item.Notes = &notes.String
	}
	if archivedAt.Valid {
		t, _ := time.Parse(time.RFC3339, archivedAt.String)
		item.ArchivedAt = &t
	}
	item.PublishedAt, _ = time.Parse(time.RFC3339, publishedAt)
	item.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
	if analysisJSON != "" {
		_ = json.Unmarshal([]byte(analysisJSON), &item.Analysis)
	}
	return item, nil
}

// UpdateContentStatus atomically applies the provided optional fields.
// Favoriting clears archived_at (auto-unarchive); toggling read alone
// leaves archive status untouched. At least one field must be non-nil.
func (h *Handle) UpdateContentStatus(id int64, read, favorited *bool) error {
	if read == nil && favorited == nil {
		return apperr.New(apperr.KindValidation, "update_content_status requires at least one field")
	}
	return h.withTx(func(tx *sql.Tx) error {
		if read != nil {
			if _, err := tx.Exec(`UPDATE content SET read = ? WHERE id = ?`, *read, id); err != nil {
				return err
			}
		}
		if favorited != nil {
			if _, err := tx.Exec(`UPDATE content SET favorited = ?, archived_at = CASE WHEN ? THEN NULL ELSE archived_at END WHERE id = ?`, *favorited, *favorited, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ArchiveOldContent marks archived_at = now on every item whose priority
// window has elapsed, skipping favorites and anything with notes, and
// returns the count of rows affected.
func (h *Handle) ArchiveOldContent(w models.ArchivalWindows) (int64, error) {
	var affected int64
	err := h.withTx(func(tx *sql.Tx) error {
		clause, args := archivalClause(w)
		query := `UPDATE content SET archived_at = ?
			WHERE archived_at IS NULL AND favorited = 0 AND notes IS NULL AND (` + clause + `)`
		now := time.Now().UTC().Format(time.RFC3339)
		fullArgs := append([]any{now}, args...)
		res, err := tx.Exec(query, fullArgs...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// archivalClause builds the priority-window WHERE clause described in the
// storage design: SQLite's julianday() gives the age-in-days comparison
// without pulling rows into Go for evaluation.
func archivalClause(w models.ArchivalWindows) (string, []any) {
	var parts []string
	var args []any

	addWindow := func(priority string, readVal int, days *int) {
		if days == nil {
			return
		}
		parts = append(parts, `(priority = ? AND read = ? AND (julianday('now') - julianday(published_at)) >= ?)`)
		args = append(args, priority, readVal, *days)
	}

	addWindow("high", 1, w.HighRead)
	addWindow("medium", 0, w.MediumUnread)
	addWindow("medium", 1, w.MediumRead)
	addWindow("low", 0, w.LowUnread)
	addWindow("low", 1, w.LowRead)

	if len(parts) == 0 {
		return "0", nil
	}
	clause := parts[0]
	for _, p := range parts[1:] {
		clause += " OR " + p
	}
	return clause, args
}

// DeleteUnprioritized removes content where priority IS NULL, not
// favorited, not flagged, and (if days is non-nil) older than that many
// days, purging orphaned vectors in the same transaction.
func (h *Handle) DeleteUnprioritized(days *int) (int64, error) {
	var affected int64
	err := h.withTx(func(tx *sql.Tx) error {
		query := `DELETE FROM content WHERE priority IS NULL AND favorited = 0 AND flagged_interesting = 0`
		var args []any
		if days != nil {
			query += ` AND published_at < datetime('now', ?)`
			args = append(args, "-"+strconv.Itoa(*days)+" days")
		}
		res, err := tx.Exec(query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return err
		}
		return purgeOrphanedVectors(tx)
	})
	return affected, err
}

// CountUnprioritized reports how many rows DeleteUnprioritized(days) would
// remove, without removing them - backs GET /api/prune/count.
func (h *Handle) CountUnprioritized(days *int) (int64, error) {
	query := `SELECT COUNT(*) FROM content WHERE priority IS NULL AND favorited = 0 AND flagged_interesting = 0`
	var args []any
	if days != nil {
		query += ` AND published_at < datetime('now', ?)`
		args = append(args, "-"+strconv.Itoa(*days)+" days")
	}
	var count int64
	err := h.readerConn().QueryRow(query, args...).Scan(&count)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, "count unprioritized", err)
	}
	return count, nil
}

// ArchivalCounts reports how much content is archived vs total, for
// GET /api/archive/status. The window config itself is filled in by the
// caller, which is the only place that knows the configured values.
func (h *Handle) ArchivalCounts() (models.ArchivalCounts, error) {
	var counts models.ArchivalCounts
	row := h.readerConn().QueryRow(`SELECT COUNT(*), COUNT(archived_at) FROM content`)
	if err := row.Scan(&counts.TotalContent, &counts.ArchivedContent); err != nil {
		return counts, apperr.Wrap(apperr.KindStorage, "archival counts", err)
	}
	return counts, nil
}

// purgeOrphanedVectors deletes vec_content and embeddings rows whose
// content_id no longer exists in content - the vector index is a virtual
// table without foreign-key cascade, so every deletion path that removes
// content rows must call this explicitly.
func purgeOrphanedVectors(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM embeddings WHERE content_id NOT IN (SELECT id FROM content)`); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM vec_content WHERE content_id NOT IN (SELECT id FROM content)`)
	return err
}
