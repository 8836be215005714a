package orchestrator

import (
	"context"

	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/observability"
)

// ArchivalStorage is the storage slice the archival job needs.
type ArchivalStorage interface {
	ArchiveOldContent(w models.ArchivalWindows) (int64, error)
}

// ArchivalJob applies the configured per-priority aging windows. It runs
// as its own suture service (internal/supervisor) rather than a step
// inside RunOnce.
type ArchivalJob struct {
	Storage ArchivalStorage
	Windows models.ArchivalWindows
	Obs     *observability.Logger
}

// Run archives every eligible item and returns the count affected.
func (j *ArchivalJob) Run(ctx context.Context) (int, error) {
	affected, err := j.Storage.ArchiveOldContent(j.Windows)
	if err != nil {
		return 0, err
	}
	if j.Obs != nil {
		j.Obs.Emit("archival.complete", map[string]any{"archived": affected})
	}
	return int(affected), nil
}
