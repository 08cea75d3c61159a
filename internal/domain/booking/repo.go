package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinsched/clinsched/internal/domain/availability"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Booking, int, error)
	// FindOverlapping returns non-cancelled bookings whose half-open
	// window intersects [start, end) for the resource at the location,
	// whether the resource is primary or secondary on the booking.
	FindOverlapping(ctx context.Context, resourceID uuid.UUID, location string, start, end time.Time) ([]*Booking, error)
}

type conflictChecker struct {
	repo Repository
}

// NewConflictChecker adapts the repository for the availability resolver.
func NewConflictChecker(repo Repository) availability.ConflictChecker {
	return &conflictChecker{repo: repo}
}

func (c *conflictChecker) HasOverlap(ctx context.Context, resourceID uuid.UUID, location string, start, end time.Time) (bool, error) {
	overlapping, err := c.repo.FindOverlapping(ctx, resourceID, location, start, end)
	if err != nil {
		return false, err
	}
	return len(overlapping) > 0, nil
}
