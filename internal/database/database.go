// Package database is Prismis's storage layer: a single SQLite file holding
// sources, content, and embeddings, with a vec0 virtual table for nearest-
// neighbor search.
package database

import (
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/prismis/prismis/internal/apperr"
)

// DB is the repository of truth: one writer connection serializes every
// mutation, an independent read-only pool serves concurrent HTTP readers
// under WAL. Scoped handles (Acquire) are how callers - every REST
// dependency path, every background job - get and release a reference.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
}

// Open creates (if needed) and opens the database at path, applies the
// required pragmas, and runs the schema migration.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(1)", path)

	writer, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "open writer connection", err)
	}
	writer.SetMaxOpenConns(1) // single writer per process
	writer.SetConnMaxLifetime(time.Hour)

	reader, err := sql.Open("sqlite3", dsn)
	if err != nil {
		writer.Close()
		return nil, apperr.Wrap(apperr.KindStorage, "open reader pool", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())
	reader.SetMaxIdleConns(2)
	reader.SetConnMaxLifetime(time.Hour)
	reader.SetConnMaxIdleTime(5 * time.Minute)

	db := &DB{writer: writer, reader: reader, path: path}
	if err := db.configure(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.writer.Exec(p); err != nil {
			return apperr.Wrap(apperr.KindStorage, "apply pragma: "+p, err)
		}
		if _, err := db.reader.Exec(p); err != nil {
			return apperr.Wrap(apperr.KindStorage, "apply pragma: "+p, err)
		}
	}
	if _, err := db.writer.Exec(schema); err != nil {
		return apperr.Wrap(apperr.KindStorage, "apply schema", err)
	}
	return nil
}

// Close releases both connection pools. Safe to call once per DB.
func (db *DB) Close() error {
	var errs []string
	if err := db.writer.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := db.reader.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("database: close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Handle is a scoped reference to the database, returned by Acquire. Every
// REST request and every background job acquires one and defers Release;
// Release is a no-op beyond bookkeeping since the underlying pools are
// long-lived, but it is the extension point for per-request tracing.
type Handle struct {
	db *DB
}

// Acquire returns a scoped Handle over db. Release it when done.
func (db *DB) Acquire() *Handle {
	return &Handle{db: db}
}

// Release is a no-op today; kept so call sites read defer h.Release().
func (h *Handle) Release() {}

// Ping verifies the database is reachable, for GET /health's liveness
// check. It round-trips the reader pool rather than the single writer
// connection so it never contends with an in-flight write.
func (h *Handle) Ping() error {
	if err := h.readerConn().Ping(); err != nil {
		return apperr.Wrap(apperr.KindStorage, "database ping", err)
	}
	return nil
}

func (h *Handle) writerConn() *sql.DB { return h.db.writer }
func (h *Handle) readerConn() *sql.DB { return h.db.reader }

// withTx runs fn inside a transaction on the writer connection, rolling
// back and wrapping any error as apperr.KindStorage.
func (h *Handle) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := h.writerConn().Begin()
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, "begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		var ae *apperr.Error
		if asApperr(err, &ae) {
			return ae
		}
		return apperr.Wrap(apperr.KindStorage, "transaction failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindStorage, "commit transaction", err)
	}
	return nil
}

func asApperr(err error, target **apperr.Error) bool {
	ae, ok := err.(*apperr.Error)
	if ok {
		*target = ae
	}
	return ok
}
