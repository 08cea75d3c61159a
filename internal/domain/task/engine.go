package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinsched/clinsched/internal/domain/catalog"
	"github.com/clinsched/clinsched/internal/fault"
)

// SurgeryDates resolves a surgery's scheduled date. The surgery package
// provides the implementation.
type SurgeryDates interface {
	SurgeryDate(ctx context.Context, surgeryID uuid.UUID) (time.Time, error)
}

// TxRunner executes fn inside a transaction boundary, joining one
// already present on the context.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Engine instantiates preparation chains from the template catalog and
// enforces the dependency-gated state machine on updates.
type Engine struct {
	repo      Repository
	surgeries SurgeryDates
	tx        TxRunner
	now       func() time.Time
	log       zerolog.Logger
}

func NewEngine(repo Repository, surgeries SurgeryDates, tx TxRunner, log zerolog.Logger) *Engine {
	return &Engine{
		repo:      repo,
		surgeries: surgeries,
		tx:        tx,
		now:       time.Now,
		log:       log,
	}
}

// CreateTaskChain materializes the full template catalog for the surgery
// as one atomic batch, due dates counted back from the surgery date.
// Tasks come out ordered earliest due date first.
func (e *Engine) CreateTaskChain(ctx context.Context, surgeryID uuid.UUID) ([]*Task, error) {
	surgeryDate, err := e.surgeries.SurgeryDate(ctx, surgeryID)
	if err != nil {
		return nil, fmt.Errorf("load surgery: %w", err)
	}

	var tasks []*Task
	for _, tpl := range catalog.TaskTemplates() {
		tasks = append(tasks, &Task{
			ID:           uuid.New(),
			SurgeryID:    surgeryID,
			Type:         string(tpl.Type),
			Name:         tpl.Name,
			DueDate:      surgeryDate.AddDate(0, 0, -tpl.DaysBeforeSurgery),
			Status:       StatusPending,
			Priority:     string(tpl.Priority),
			Dependencies: dependencyTypes(tpl),
		})
	}

	err = e.tx(ctx, func(ctx context.Context) error {
		return e.repo.CreateBatch(ctx, tasks)
	})
	if err != nil {
		return nil, fmt.Errorf("create task chain: %w", err)
	}

	e.log.Info().
		Str("surgery_id", surgeryID.String()).
		Int("tasks", len(tasks)).
		Msg("task chain created")
	return tasks, nil
}

func dependencyTypes(tpl catalog.TaskTemplate) []string {
	deps := make([]string, 0, len(tpl.Dependencies))
	for _, d := range tpl.Dependencies {
		deps = append(deps, string(d))
	}
	return deps
}

// UpdateTaskStatus applies a state transition. Completion is rejected
// with a DependencyNotMetError unless every dependency type has a
// COMPLETED sibling; on success, sibling tasks whose dependencies just
// became satisfied are activated PENDING to IN_PROGRESS. The transition
// and activations commit as one transaction.
func (e *Engine) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, newStatus string, completedBy *string) (*Task, error) {
	var updated *Task
	err := e.tx(ctx, func(ctx context.Context) error {
		t, err := e.repo.GetByID(ctx, taskID)
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}
		if !t.TransitionAllowed(newStatus) {
			return fault.Validationf("cannot transition task from %s to %s", t.Status, newStatus)
		}

		siblings, err := e.repo.ListBySurgery(ctx, t.SurgeryID)
		if err != nil {
			return fmt.Errorf("load sibling tasks: %w", err)
		}

		if newStatus == StatusCompleted {
			if missing := unmetDependencies(t, siblings); len(missing) > 0 {
				return fault.DependencyNotMet(missing)
			}
			now := e.now()
			t.CompletedAt = &now
			t.CompletedBy = completedBy
		}

		t.Status = newStatus
		if err := e.repo.Update(ctx, t); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		if newStatus == StatusCompleted {
			if err := e.activateDependents(ctx, t, siblings); err != nil {
				return err
			}
		}

		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("task_id", taskID.String()).
		Str("status", newStatus).
		Msg("task status updated")
	return updated, nil
}

// unmetDependencies returns the dependency types with no COMPLETED
// sibling of that type.
func unmetDependencies(t *Task, siblings []*Task) []string {
	completed := make(map[string]bool)
	for _, s := range siblings {
		if s.Status == StatusCompleted {
			completed[s.Type] = true
		}
	}
	var missing []string
	for _, dep := range t.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}
	return missing
}

// activateDependents moves PENDING siblings whose dependencies are now
// all complete to IN_PROGRESS. This is an activation signal only.
func (e *Engine) activateDependents(ctx context.Context, completed *Task, siblings []*Task) error {
	for _, s := range siblings {
		if s.ID == completed.ID || s.Status != StatusPending {
			continue
		}
		if !dependsOn(s, completed.Type) {
			continue
		}
		// The just-completed task is not yet in the siblings snapshot.
		withUpdate := append([]*Task{completed}, siblings...)
		if len(unmetDependencies(s, withUpdate)) > 0 {
			continue
		}
		s.Status = StatusInProgress
		if err := e.repo.Update(ctx, s); err != nil {
			return fmt.Errorf("activate task %s: %w", s.ID, err)
		}
	}
	return nil
}

func dependsOn(t *Task, taskType string) bool {
	for _, dep := range t.Dependencies {
		if dep == taskType {
			return true
		}
	}
	return false
}

// Timeline lists the surgery's tasks ordered by due date, with OVERDUE
// derived for open tasks past their due date.
func (e *Engine) Timeline(ctx context.Context, surgeryID uuid.UUID) ([]*Task, error) {
	tasks, err := e.repo.ListBySurgery(ctx, surgeryID)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	now := e.now()
	for _, t := range tasks {
		t.Status = t.EffectiveStatus(now)
	}
	return tasks, nil
}

// CancelOpen cancels every open task of the surgery. Used when a surgery
// is cancelled or completed.
func (e *Engine) CancelOpen(ctx context.Context, surgeryID uuid.UUID) error {
	return e.tx(ctx, func(ctx context.Context) error {
		tasks, err := e.repo.ListBySurgery(ctx, surgeryID)
		if err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		for _, t := range tasks {
			if !t.Open() {
				continue
			}
			t.Status = StatusCancelled
			if err := e.repo.Update(ctx, t); err != nil {
				return fmt.Errorf("cancel task %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// AllResolved reports whether every task is COMPLETED or BLOCKED. The
// readiness gate treats BLOCKED as resolved-out, not pending.
func (e *Engine) AllResolved(ctx context.Context, surgeryID uuid.UUID) (bool, error) {
	tasks, err := e.repo.ListBySurgery(ctx, surgeryID)
	if err != nil {
		return false, fmt.Errorf("load tasks: %w", err)
	}
	for _, t := range tasks {
		if t.Status != StatusCompleted && t.Status != StatusBlocked {
			return false, nil
		}
	}
	return true, nil
}
