// Package notify invokes the user-configured external desktop notification
// command for new high-priority content.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/observability"
)

// commandTimeout bounds how long the external notifier process may run
// before it is killed, so a hung notification command never stalls a
// tick indefinitely.
const commandTimeout = 10 * time.Second

// Notifier shells out to a configured command once per new high-priority
// item (or once per new item of any priority when HighPriorityOnly is
// false). The command itself - a desktop notifier, a webhook script,
// whatever the user points it at - is an external collaborator; Prismis
// only owns invoking it with the item's title and URL as arguments.
type Notifier struct {
	Command          string
	HighPriorityOnly bool
	obs              *observability.Logger
}

// New builds a Notifier. An empty command makes Notify a no-op, so an
// unconfigured notifications section never errors a tick.
func New(command string, highPriorityOnly bool, obs *observability.Logger) *Notifier {
	return &Notifier{Command: command, HighPriorityOnly: highPriorityOnly, obs: obs}
}

// Notify invokes the configured command for each qualifying item in
// items. Failures are logged via observability and otherwise swallowed:
// a broken notifier must never fail a tick.
func (n *Notifier) Notify(ctx context.Context, items []models.ContentItem) {
	if n.Command == "" || len(items) == 0 {
		return
	}
	for _, item := range items {
		if n.HighPriorityOnly && (item.Priority == nil || *item.Priority != models.PriorityHigh) {
			continue
		}
		n.invoke(ctx, item)
	}
}

func (n *Notifier) invoke(ctx context.Context, item models.ContentItem) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	fields := strings.Fields(n.Command)
	if len(fields) == 0 {
		return
	}
	args := append(append([]string{}, fields[1:]...), item.Title, item.URL)
	cmd := exec.CommandContext(ctx, fields[0], args...)

	if err := cmd.Run(); err != nil && n.obs != nil {
		n.obs.Emit("notify.error", map[string]any{
			"content_id": item.ID,
			"title":      item.Title,
			"error":      fmt.Sprintf("%v", err),
		})
	}
}
