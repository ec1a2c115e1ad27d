package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"daytask/internal/modules/task/domain"
	"daytask/internal/platform/clock"
	"daytask/internal/platform/markdown"
)

const (
	AgendaStart = "<!-- daytask:agenda:start -->"
	AgendaEnd   = "<!-- daytask:agenda:end -->"
)

// VaultAgendaWriter renders one markdown note per day under
// <dir>/agenda/YYYY/MM/YYYY-MM-DD.md. Text outside the managed block
// survives re-export.
type VaultAgendaWriter struct {
	dir   string
	clock clock.Clock
}

func NewVaultAgendaWriter(dir string, clock clock.Clock) *VaultAgendaWriter {
	return &VaultAgendaWriter{dir: dir, clock: clock}
}

func (w *VaultAgendaWriter) Path(day time.Time) string {
	return filepath.Join(w.dir, "agenda", day.Format("2006"), day.Format("01"), day.Format(time.DateOnly)+".md")
}

func (w *VaultAgendaWriter) Write(_ context.Context, day time.Time, tasks []domain.Task) (string, error) {
	path := w.Path(day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create agenda directory: %w", err)
	}

	body := ""
	if existing, err := os.ReadFile(path); err == nil {
		if _, existingBody, splitErr := markdown.SplitFrontmatter(string(existing)); splitErr == nil {
			body = existingBody
		}
	}
	if strings.TrimSpace(body) == "" {
		body = "# " + day.Format("Monday, January 2, 2006") + "\n\n## Notes\n"
	}

	items := make([]markdown.ChecklistItem, 0, len(tasks))
	completed := 0
	for _, task := range tasks {
		if task.Completed {
			completed++
		}
		items = append(items, markdown.ChecklistItem{
			Done: task.Completed,
			Text: fmt.Sprintf("%s **%s** %s", task.DueAt.In(day.Location()).Format("15:04"), task.Title, task.Description),
		})
	}
	body = markdown.ReplaceManagedBlock(body, AgendaStart, AgendaEnd, markdown.Checklist(items))

	meta := map[string]any{
		"schema_version":  domain.SchemaVersion,
		"date":            day.Format(time.DateOnly),
		"weekday":         day.Weekday().String(),
		"task_count":      len(tasks),
		"completed_count": completed,
		"generated_at":    w.clock.Now().Format(time.RFC3339),
	}
	rendered, err := markdown.RenderFrontmatter(meta, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write agenda markdown: %w", err)
	}
	return path, nil
}
