// Package observability implements the append-only, date-rotated,
// file-locked JSONL event ledger read by the dashboard and CLI. It is
// distinct from internal/logging: that package is free-form operational
// logging for humans; this package is a structured record of what the
// pipeline did, one JSON object per line, safe for concurrent writers
// across processes because every write takes an OS-level exclusive lock.
package observability

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/prismis/prismis/internal/logging"
)

const (
	lockRetries      = 3
	lockBackoff      = 10 * time.Millisecond
	dateLayout       = "2006-01-02"
	fileSuffix       = "_events.jsonl"
	defaultRetention = 30 * 24 * time.Hour
)

// Event is one ledger line: an ISO-UTC timestamp, an event name, and an
// arbitrary metadata bag. Metadata is marshaled flat alongside ts/event.
type Event struct {
	Name string
	Meta map[string]any
}

// Logger appends Events to <dir>/YYYY-MM-DD_events.jsonl, rotating on UTC
// date boundaries and exclusive-locking each write against concurrent
// writers (including other processes sharing the same data directory).
//
// Locking uses golang.org/x/sys/unix.Flock rather than a pack library:
// none of the example repos vendor an advisory-locking package, and
// flock(2) has no portable stdlib wrapper, so x/sys is the narrowest
// dependency that reaches the syscall.
type Logger struct {
	dir string
	mu  sync.Mutex // serializes within this process; Flock serializes across processes
}

// New returns a Logger writing under dir, creating it if necessary.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("observability: create dir: %w", err)
	}
	return &Logger{dir: dir}, nil
}

// Emit appends a single event, retrying lock acquisition up to 3 times
// with 10ms/20ms backoff. On persistent failure it degrades to stderr
// rather than propagating an error to the caller - losing an observability
// line must never abort the pipeline.
func (l *Logger) Emit(name string, meta map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := encode(name, meta)
	if err != nil {
		logging.Error().Err(err).Str("event", name).Msg("observability: encode failed")
		return
	}

	path := l.pathForDate(time.Now().UTC())
	if err := appendLocked(path, line); err != nil {
		logging.Warn().Err(err).Str("event", name).Msg("observability: degraded to stderr")
		fmt.Fprintln(os.Stderr, string(line))
	}
}

func encode(name string, meta map[string]any) ([]byte, error) {
	rec := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		rec[k] = v
	}
	rec["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	rec["event"] = name
	return json.Marshal(rec)
}

func (l *Logger) pathForDate(t time.Time) string {
	return filepath.Join(l.dir, t.Format(dateLayout)+fileSuffix)
}

// appendLocked opens path for append, takes an exclusive flock, writes
// line+"\n", flushes and releases - retrying lock acquisition on EWOULDBLOCK.
func appendLocked(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var lockErr error
	backoff := lockBackoff
	for attempt := 0; attempt < lockRetries; attempt++ {
		lockErr = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if lockErr == nil {
			break
		}
		if attempt < lockRetries-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if lockErr != nil {
		return fmt.Errorf("flock: %w", lockErr)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return f.Sync()
}

// Cleanup removes ledger files whose date is older than retention (default
// 30 days when retention <= 0). Intended to run once per day from the
// scheduler alongside the archival job.
func (l *Logger) Cleanup(retention time.Duration) error {
	if retention <= 0 {
		retention = defaultRetention
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("observability: read dir: %w", err)
	}

	cutoff := time.Now().UTC().Add(-retention)
	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		dateStr := strings.TrimSuffix(e.Name(), fileSuffix)
		d, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}
		if d.Before(cutoff) {
			if err := os.Remove(filepath.Join(l.dir, e.Name())); err != nil {
				logging.Warn().Err(err).Str("file", e.Name()).Msg("observability: cleanup remove failed")
				continue
			}
			removed = append(removed, e.Name())
		}
	}
	sort.Strings(removed)
	if len(removed) > 0 {
		logging.Info().Strs("removed", removed).Msg("observability: cleanup")
	}
	return nil
}

// Convenience emitters for the event vocabulary the fetchers, the LLM
// coordinator and the orchestrator tick share.

func (l *Logger) FetcherComplete(sourceID int64, kind string, fetched int, duration time.Duration) {
	l.Emit("fetcher.complete", map[string]any{
		"source_id":   sourceID,
		"kind":        kind,
		"fetched":     fetched,
		"duration_ms": duration.Milliseconds(),
		"status":      "ok",
	})
}

func (l *Logger) FetcherError(sourceID int64, kind string, err error) {
	l.Emit("fetcher.error", map[string]any{
		"source_id": sourceID,
		"kind":      kind,
		"status":    "error",
		"error":     err.Error(),
	})
}

func (l *Logger) LLMRetryExhausted(op, action string) {
	l.Emit("llm.retry", map[string]any{
		"op":     op,
		"action": action,
	})
}

func (l *Logger) BreakerStateChange(from, to string) {
	l.Emit("breaker.state_change", map[string]any{
		"from": from,
		"to":   to,
	})
}

func (l *Logger) TickComplete(stats map[string]any) {
	l.Emit("daemon.cycle.complete", stats)
}
