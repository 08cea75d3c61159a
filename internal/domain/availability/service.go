package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service owns template and resource CRUD with input validation. The
// resolver reads templates through the repository, never through here.
type Service struct {
	templates TemplateRepository
	resources ResourceRepository
}

func NewService(templates TemplateRepository, resources ResourceRepository) *Service {
	return &Service{templates: templates, resources: resources}
}

// -- Template --

func validateTemplate(t *Template) error {
	if t.ResourceID == uuid.Nil {
		return fmt.Errorf("resource_id is required")
	}
	if t.Location == "" {
		return fmt.Errorf("location is required")
	}
	if t.Weekday < 0 || t.Weekday > 6 {
		return fmt.Errorf("weekday must be 0..6, got %d", t.Weekday)
	}
	start, ok := minuteOfDay(t.StartTime)
	if !ok {
		return fmt.Errorf("start_time must be HH:mm, got %q", t.StartTime)
	}
	end, ok := minuteOfDay(t.EndTime)
	if !ok {
		return fmt.Errorf("end_time must be HH:mm, got %q", t.EndTime)
	}
	if start >= end {
		return fmt.Errorf("start_time %s must be before end_time %s", t.StartTime, t.EndTime)
	}
	return nil
}

func (s *Service) CreateTemplate(ctx context.Context, t *Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	return s.templates.Create(ctx, t)
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.templates.GetByID(ctx, id)
}

func (s *Service) UpdateTemplate(ctx context.Context, t *Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	return s.templates.Update(ctx, t)
}

func (s *Service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.templates.Delete(ctx, id)
}

func (s *Service) ListTemplatesByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Template, int, error) {
	return s.templates.ListByResource(ctx, resourceID, limit, offset)
}

// -- Resource --

var validRoles = map[string]bool{
	RoleSurgeon:          true,
	RoleAnesthesiologist: true,
}

func (s *Service) CreateResource(ctx context.Context, r *Resource) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !validRoles[r.Role] {
		return fmt.Errorf("invalid role: %s", r.Role)
	}
	if r.Location == "" {
		return fmt.Errorf("location is required")
	}
	if r.CalendarID == "" {
		return fmt.Errorf("calendar_id is required")
	}
	return s.resources.Create(ctx, r)
}

func (s *Service) GetResource(ctx context.Context, id uuid.UUID) (*Resource, error) {
	return s.resources.GetByID(ctx, id)
}

func (s *Service) UpdateResource(ctx context.Context, r *Resource) error {
	if r.Role != "" && !validRoles[r.Role] {
		return fmt.Errorf("invalid role: %s", r.Role)
	}
	return s.resources.Update(ctx, r)
}

func (s *Service) ListResourcesByRole(ctx context.Context, role string, limit, offset int) ([]*Resource, int, error) {
	if !validRoles[role] {
		return nil, 0, fmt.Errorf("invalid role: %s", role)
	}
	return s.resources.ListByRole(ctx, role, limit, offset)
}
