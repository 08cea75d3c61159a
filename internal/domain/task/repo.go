package task

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateBatch inserts all tasks or none. Callers run it inside a
	// transaction; a mid-batch failure must roll the whole chain back.
	CreateBatch(ctx context.Context, tasks []*Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListBySurgery(ctx context.Context, surgeryID uuid.UUID) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
}
