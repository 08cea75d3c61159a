package surgery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinsched/clinsched/internal/domain/task"
)

type mockSurgeryRepo struct {
	surgeries map[uuid.UUID]*Surgery
}

func newMockSurgeryRepo() *mockSurgeryRepo {
	return &mockSurgeryRepo{surgeries: make(map[uuid.UUID]*Surgery)}
}

func (m *mockSurgeryRepo) Create(ctx context.Context, s *Surgery) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.surgeries[s.ID] = &cp
	return nil
}

func (m *mockSurgeryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Surgery, error) {
	s, ok := m.surgeries[id]
	if !ok {
		return nil, fmt.Errorf("surgery not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockSurgeryRepo) Update(ctx context.Context, s *Surgery) error {
	if _, ok := m.surgeries[s.ID]; !ok {
		return fmt.Errorf("surgery not found")
	}
	cp := *s
	m.surgeries[s.ID] = &cp
	return nil
}

func (m *mockSurgeryRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Surgery, int, error) {
	var out []*Surgery
	for _, s := range m.surgeries {
		if s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockSurgeryRepo) ListActiveDueWithin(ctx context.Context, from, to time.Time) ([]*Surgery, error) {
	var out []*Surgery
	for _, s := range m.surgeries {
		if !s.Active() {
			continue
		}
		if s.SurgeryDate.Before(from) || s.SurgeryDate.After(to) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

type mockRequirementRepo struct {
	reqs map[uuid.UUID]*PatientRequirement
}

func newMockRequirementRepo() *mockRequirementRepo {
	return &mockRequirementRepo{reqs: make(map[uuid.UUID]*PatientRequirement)}
}

func (m *mockRequirementRepo) CreateBatch(ctx context.Context, reqs []*PatientRequirement) error {
	for _, r := range reqs {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		cp := *r
		m.reqs[r.ID] = &cp
	}
	return nil
}

func (m *mockRequirementRepo) ListBySurgery(ctx context.Context, surgeryID uuid.UUID) ([]*PatientRequirement, error) {
	var out []*PatientRequirement
	for _, r := range m.reqs {
		if r.SurgeryID == surgeryID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRequirementRepo) Get(ctx context.Context, surgeryID uuid.UUID, reqType string) (*PatientRequirement, error) {
	for _, r := range m.reqs {
		if r.SurgeryID == surgeryID && r.Type == reqType {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("requirement not found")
}

func (m *mockRequirementRepo) Update(ctx context.Context, r *PatientRequirement) error {
	if _, ok := m.reqs[r.ID]; !ok {
		return fmt.Errorf("requirement not found")
	}
	cp := *r
	m.reqs[r.ID] = &cp
	return nil
}

func (m *mockRequirementRepo) ListOverduePending(ctx context.Context, asOf time.Time) ([]*PatientRequirement, error) {
	var out []*PatientRequirement
	for _, r := range m.reqs {
		if r.Status == ReqPending && r.DueDate.Before(asOf) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// set force-writes a requirement's status.
func (m *mockRequirementRepo) set(surgeryID uuid.UUID, reqType, status string) {
	for _, r := range m.reqs {
		if r.SurgeryID == surgeryID && r.Type == reqType {
			r.Status = status
			return
		}
	}
}

type mockTaskRepo struct {
	tasks map[uuid.UUID]*task.Task
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: make(map[uuid.UUID]*task.Task)}
}

func (m *mockTaskRepo) CreateBatch(ctx context.Context, tasks []*task.Task) error {
	for _, t := range tasks {
		cp := *t
		m.tasks[t.ID] = &cp
	}
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskRepo) ListBySurgery(ctx context.Context, surgeryID uuid.UUID) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range m.tasks {
		if t.SurgeryID == surgeryID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, t *task.Task) error {
	if _, ok := m.tasks[t.ID]; !ok {
		return fmt.Errorf("task not found")
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

// completeAll force-completes every task of the surgery.
func (m *mockTaskRepo) completeAll(surgeryID uuid.UUID) {
	for _, t := range m.tasks {
		if t.SurgeryID == surgeryID {
			t.Status = task.StatusCompleted
		}
	}
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
