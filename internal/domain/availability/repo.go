package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Template, int, error)
	// FindActive returns the active template for the resource, location,
	// and weekday, or nil when none exists.
	FindActive(ctx context.Context, resourceID uuid.UUID, location string, weekday int) (*Template, error)
}

type ResourceRepository interface {
	Create(ctx context.Context, r *Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*Resource, error)
	Update(ctx context.Context, r *Resource) error
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*Resource, int, error)
}

// ConflictChecker reports whether a resource already has a non-cancelled
// booking intersecting the half-open window at the location. The booking
// package provides the implementation.
type ConflictChecker interface {
	HasOverlap(ctx context.Context, resourceID uuid.UUID, location string, start, end time.Time) (bool, error)
}
