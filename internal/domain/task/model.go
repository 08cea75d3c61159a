package task

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusBlocked    = "BLOCKED"
	StatusOverdue    = "OVERDUE"
	StatusCancelled  = "CANCELLED"
)

// Task maps to the tasks table: one step in a surgery's preparation
// chain, instantiated from the template catalog. Dependencies lists the
// task types that must be COMPLETED before this task may complete.
type Task struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	SurgeryID    uuid.UUID  `db:"surgery_id" json:"surgery_id"`
	Type         string     `db:"type" json:"type"`
	Name         string     `db:"name" json:"name"`
	DueDate      time.Time  `db:"due_date" json:"due_date"`
	Status       string     `db:"status" json:"status"`
	Priority     string     `db:"priority" json:"priority"`
	Dependencies []string   `db:"dependencies" json:"dependencies"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy  *string    `db:"completed_by" json:"completed_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus derives OVERDUE on read for open tasks whose due date
// has passed. The stored status is never mutated for this; recomputing
// per read stays correct under clock drift.
func (t *Task) EffectiveStatus(now time.Time) string {
	if (t.Status == StatusPending || t.Status == StatusInProgress) && t.DueDate.Before(now) {
		return StatusOverdue
	}
	return t.Status
}

// Open reports whether the task still needs work.
func (t *Task) Open() bool {
	return t.Status == StatusPending || t.Status == StatusInProgress
}

// validTransitions is the forward-only state machine. OVERDUE never
// appears here because it is derived, not stored.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusBlocked:    true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusBlocked:   true,
		StatusCancelled: true,
	},
	StatusBlocked: {
		StatusCancelled: true,
	},
}

// TransitionAllowed reports whether moving from the task's stored status
// to next is legal.
func (t *Task) TransitionAllowed(next string) bool {
	return validTransitions[t.Status][next]
}
