package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type mockTemplateRepo struct {
	templates map[uuid.UUID]*Template
	err       error
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[uuid.UUID]*Template)}
}

func (m *mockTemplateRepo) Create(ctx context.Context, t *Template) error {
	if m.err != nil {
		return m.err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.templates[t.ID] = t
	return nil
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.templates[id]
	if !ok {
		return nil, fmt.Errorf("template not found")
	}
	return t, nil
}

func (m *mockTemplateRepo) Update(ctx context.Context, t *Template) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.templates[t.ID]; !ok {
		return fmt.Errorf("template not found")
	}
	m.templates[t.ID] = t
	return nil
}

func (m *mockTemplateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	delete(m.templates, id)
	return nil
}

func (m *mockTemplateRepo) ListByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Template, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []*Template
	for _, t := range m.templates {
		if t.ResourceID == resourceID {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (m *mockTemplateRepo) FindActive(ctx context.Context, resourceID uuid.UUID, location string, weekday int) (*Template, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, t := range m.templates {
		if t.ResourceID == resourceID && t.Location == location && t.Weekday == weekday && t.Active {
			return t, nil
		}
	}
	return nil, nil
}

type mockResourceRepo struct {
	resources map[uuid.UUID]*Resource
	err       error
}

func newMockResourceRepo() *mockResourceRepo {
	return &mockResourceRepo{resources: make(map[uuid.UUID]*Resource)}
}

func (m *mockResourceRepo) Create(ctx context.Context, r *Resource) error {
	if m.err != nil {
		return m.err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.resources[r.ID] = r
	return nil
}

func (m *mockResourceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.resources[id]
	if !ok {
		return nil, fmt.Errorf("resource not found")
	}
	return r, nil
}

func (m *mockResourceRepo) Update(ctx context.Context, r *Resource) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.resources[r.ID]; !ok {
		return fmt.Errorf("resource not found")
	}
	m.resources[r.ID] = r
	return nil
}

func (m *mockResourceRepo) ListByRole(ctx context.Context, role string, limit, offset int) ([]*Resource, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []*Resource
	for _, r := range m.resources {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

// mockConflicts records booked half-open windows per resource and answers
// HasOverlap against them.
type mockConflicts struct {
	windows map[uuid.UUID][]window
	err     error
}

type window struct {
	location   string
	start, end time.Time
}

func newMockConflicts() *mockConflicts {
	return &mockConflicts{windows: make(map[uuid.UUID][]window)}
}

func (m *mockConflicts) book(resourceID uuid.UUID, location string, start, end time.Time) {
	m.windows[resourceID] = append(m.windows[resourceID], window{location: location, start: start, end: end})
}

func (m *mockConflicts) HasOverlap(ctx context.Context, resourceID uuid.UUID, location string, start, end time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, w := range m.windows[resourceID] {
		if w.location == location && Overlaps(start, end, w.start, w.end) {
			return true, nil
		}
	}
	return false, nil
}
