package database

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prismis/prismis/internal/apperr"
	"github.com/prismis/prismis/internal/models"
)

// vecCandidates is how many nearest neighbors are pulled from the vector
// index before reranking by the blended relevance formula.
const vecCandidates = 100

// AddEmbedding stores both the durable blob row and the vec0 index row for
// a content id. Deleting content later must delete both - see
// purgeOrphanedVectors in content.go.
func (h *Handle) AddEmbedding(contentID int64, vector []float32, model string) error {
	if len(vector) != models.EmbeddingDimension {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("embedding must have %d dimensions, got %d", models.EmbeddingDimension, len(vector)))
	}
	raw := serializeVector(vector)

	return h.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO embeddings (content_id, vector, model, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(content_id) DO UPDATE SET vector = excluded.vector, model = excluded.model, created_at = excluded.created_at`,
			contentID, raw, model, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM vec_content WHERE content_id = ?`, contentID); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO vec_content (content_id, embedding) VALUES (?, ?)`, contentID, raw)
		return err
	})
}

// SearchContent finds the vecCandidates nearest neighbors of queryVec by
// the vec0 index (cosine distance, so 1-distance is a [0,1] similarity),
// reranks each by
//
//	relevance = 0.90*(1-distance) + 0.10*priority_weight
//
// and returns the items scoring at least minScore, sorted descending,
// truncated to limit. Similarity dominates; priority only breaks ties.
func (h *Handle) SearchContent(queryVec []float32, limit int, minScore float64) ([]models.SearchResult, error) {
	if len(queryVec) != models.EmbeddingDimension {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("query vector must have %d dimensions, got %d", models.EmbeddingDimension, len(queryVec)))
	}
	raw := serializeVector(queryVec)

	rows, err := h.readerConn().Query(
		`SELECT content_id, distance FROM vec_content WHERE embedding MATCH ? AND k = ? ORDER BY distance`,
		raw, vecCandidates,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "vector search", err)
	}
	defer rows.Close()

	type candidate struct {
		contentID int64
		distance  float64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.contentID, &c.distance); err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, "scan vector candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "vector search rows", err)
	}

	var out []models.SearchResult
	for _, c := range candidates {
		item, err := h.contentByID(c.contentID)
		if err != nil {
			continue // content row missing/orphaned vector; skip rather than fail the whole search
		}
		weight := 0.0
		if item.Priority != nil {
			weight = item.Priority.Weight()
		}
		relevance := 0.90*(1-c.distance) + 0.10*weight
		if relevance >= minScore {
			out = append(out, models.SearchResult{Item: item, Relevance: relevance})
		}
	}

	sortSearchResults(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortSearchResults(results []models.SearchResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
}

func (h *Handle) contentByID(id int64) (models.ContentItem, error) {
	query := `SELECT ` + contentSelectColumns + ` FROM content c LEFT JOIN sources s ON s.id = c.source_id WHERE c.id = ?`
	row := h.readerConn().QueryRow(query, id)
	return scanContentItem(row)
}

// serializeVector encodes a float32 slice as little-endian bytes, the wire
// format vec0 expects for a FLOAT[N] column.
func serializeVector(v []float32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(v) * 4)
	for _, f := range v {
		binary.Write(buf, binary.LittleEndian, math.Float32bits(f))
	}
	return buf.Bytes()
}
