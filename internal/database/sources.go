package database

import (
	"database/sql"
	"time"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/metrics"
	"github.com/prismis/prismis/internal/models"
)

// AddSource is idempotent on URL: if a source with this URL already
// exists, its id is returned unchanged rather than erroring or duplicating.
func (h *Handle) AddSource(url string, kind models.SourceKind, name string) (int64, error) {
	var id int64
	err := h.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT id FROM sources WHERE url = ?`, url)
		switch err := row.Scan(&id); err {
		case nil:
			return nil
		case sql.ErrNoRows:
			res, err := tx.Exec(
				`INSERT INTO sources (url, kind, name, active, error_count, created_at) VALUES (?, ?, ?, 1, 0, ?)`,
				url, string(kind), name, time.Now().UTC().Format(time.RFC3339),
			)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		default:
			return err
		}
	})
	return id, err
}

// UpdateSource applies the provided optional fields. Reachability
// validation of a new URL is the caller's responsibility (the API layer
// runs the kind-specific validator before calling this).
func (h *Handle) UpdateSource(id int64, name, url *string) error {
	return h.withTx(func(tx *sql.Tx) error {
		if name != nil {
			if _, err := tx.Exec(`UPDATE sources SET name = ? WHERE id = ?`, *name, id); err != nil {
				return err
			}
		}
		if url != nil {
			if _, err := tx.Exec(`UPDATE sources SET url = ? WHERE id = ?`, *url, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveSource deletes a source and its content in one transaction:
// favorited content is preserved with source_id set to NULL, everything
// else for the source is deleted, and any now-orphaned vector rows are
// purged. Returns false if the source did not exist.
func (h *Handle) RemoveSource(id int64) (bool, error) {
	var existed bool
	err := h.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM sources WHERE id = ?)`, id)
		if err := row.Scan(&existed); err != nil {
			return err
		}
		if !existed {
			return nil
		}

		if _, err := tx.Exec(`UPDATE content SET source_id = NULL WHERE source_id = ? AND favorited = 1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM content WHERE source_id = ?`, id); err != nil {
			return err
		}
		if err := purgeOrphanedVectors(tx); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
			return err
		}
		return nil
	})
	return existed, err
}

// SourceByID returns a single source, or apperr.ErrNotFound if no row
// exists with that id.
func (h *Handle) SourceByID(id int64) (models.Source, error) {
	row := h.readerConn().QueryRow(`SELECT id, url, kind, name, active, error_count, last_error, last_fetched_at, created_at FROM sources WHERE id = ?`, id)
	s, err := scanSource(row)
	if err == sql.ErrNoRows {
		return s, apperr.ErrNotFound
	}
	if err != nil {
		return s, apperr.Wrap(apperr.KindStorage, "source by id", err)
	}
	return s, nil
}

// SetSourceActive toggles a source's active flag directly, used by the
// pause/resume endpoints. Resume also clears the error bookkeeping so a
// manually-reactivated source gets a clean slate.
func (h *Handle) SetSourceActive(id int64, active bool) error {
	return h.withTx(func(tx *sql.Tx) error {
		if active {
			_, err := tx.Exec(`UPDATE sources SET active = 1, error_count = 0, last_error = NULL WHERE id = ?`, id)
			return err
		}
		_, err := tx.Exec(`UPDATE sources SET active = 0 WHERE id = ?`, id)
		return err
	})
}

// ListSources returns every source, active and inactive.
func (h *Handle) ListSources() ([]models.Source, error) {
	rows, err := h.readerConn().Query(`SELECT id, url, kind, name, active, error_count, last_error, last_fetched_at, created_at FROM sources ORDER BY id`)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "list sources", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "scan source", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(r scanner) (models.Source, error) {
	var s models.Source
	var kind string
	var lastFetched, lastError sql.NullString
	var createdAt string
	if err := r.Scan(&s.ID, &s.URL, &kind, &s.Name, &s.Active, &s.ErrorCount, &lastError, &lastFetched, &createdAt); err != nil {
		return s, err
	}
	s.Kind = models.SourceKind(kind)
	if lastError.Valid {
		s.LastError = &lastError.String
	}
	if lastFetched.Valid {
		t, _ := time.Parse(time.RFC3339, lastFetched.String)
		s.LastFetchedAt = &t
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return s, nil
}

// maxConsecutiveErrors is the threshold at which a source is automatically
// deactivated.
const maxConsecutiveErrors = 5

// RecordFetchError increments a source's error count, records the message,
// and deactivates it once the count reaches maxConsecutiveErrors.
func (h *Handle) RecordFetchError(id int64, message string) error {
	return h.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`UPDATE sources SET error_count = error_count + 1, last_error = ? WHERE id = ?`, message, id); err != nil {
			return err
		}
		res, err := tx.Exec(`UPDATE sources SET active = 0 WHERE id = ? AND active = 1 AND error_count >= ?`, id, maxConsecutiveErrors)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			metrics.SourceDeactivations.Inc()
		}
		return nil
	})
}

// RecordFetchSuccess resets error bookkeeping and reactivates the source.
func (h *Handle) RecordFetchSuccess(id int64) error {
	return h.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`UPDATE sources SET error_count = 0, last_error = NULL, last_fetched_at = ?, active = 1 WHERE id = ?`,
			time.Now().UTC().Format(time.RFC3339), id,
		)
		return err
	})
}
