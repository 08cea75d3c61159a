package surgery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Surgery) error
	GetByID(ctx context.Context, id uuid.UUID) (*Surgery, error)
	Update(ctx context.Context, s *Surgery) error
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Surgery, int, error)
	// ListActiveDueWithin returns non-terminal surgeries with a surgery
	// date in [from, to], ordered by surgery date.
	ListActiveDueWithin(ctx context.Context, from, to time.Time) ([]*Surgery, error)
}

type RequirementRepository interface {
	CreateBatch(ctx context.Context, reqs []*PatientRequirement) error
	ListBySurgery(ctx context.Context, surgeryID uuid.UUID) ([]*PatientRequirement, error)
	Get(ctx context.Context, surgeryID uuid.UUID, reqType string) (*PatientRequirement, error)
	Update(ctx context.Context, r *PatientRequirement) error
	// ListOverduePending returns PENDING requirements whose due date is
	// before asOf.
	ListOverduePending(ctx context.Context, asOf time.Time) ([]*PatientRequirement, error)
}

// MarkerRepository records one-shot notification markers. TrySet is the
// dedup primitive behind the sweep's send-once guarantee.
type MarkerRepository interface {
	// TrySet returns true when the marker was newly set, false when it
	// already existed.
	TrySet(ctx context.Context, key string) (bool, error)
}
