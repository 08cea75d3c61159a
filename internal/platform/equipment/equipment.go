// Package equipment fronts the operating room equipment system. Surgery
// readiness asks it whether the gear reserved for a surgery is in place
// and checked. Reservations are scoped per surgery, so two surgeries on
// the same date never share one.
package equipment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNoReservation = errors.New("no equipment reservation")

// Checker reports equipment readiness for a surgery.
type Checker interface {
	// IsReady reports whether all equipment for the surgery is reserved
	// and verified.
	IsReady(ctx context.Context, surgeryID uuid.UUID) (bool, error)
}

// Reserver manages reservations alongside readiness checks.
type Reserver interface {
	Checker
	Reserve(ctx context.Context, surgeryID uuid.UUID, date time.Time, location string) error
	MarkVerified(ctx context.Context, surgeryID uuid.UUID) error
	Release(ctx context.Context, surgeryID uuid.UUID) error
}

type reservation struct {
	date     time.Time
	location string
	verified bool
}

// Memory is an in-process Reserver for single-site deployments and tests.
type Memory struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*reservation

	FailIsReady error
	FailReserve error
}

func NewMemory() *Memory {
	return &Memory{reservations: make(map[uuid.UUID]*reservation)}
}

func (m *Memory) Reserve(ctx context.Context, surgeryID uuid.UUID, date time.Time, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailReserve != nil {
		return m.FailReserve
	}
	if _, ok := m.reservations[surgeryID]; ok {
		return nil
	}
	m.reservations[surgeryID] = &reservation{date: date, location: location}
	return nil
}

func (m *Memory) MarkVerified(ctx context.Context, surgeryID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reservations[surgeryID]
	if !ok {
		return ErrNoReservation
	}
	r.verified = true
	return nil
}

func (m *Memory) Release(ctx context.Context, surgeryID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reservations, surgeryID)
	return nil
}

func (m *Memory) IsReady(ctx context.Context, surgeryID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailIsReady != nil {
		return false, m.FailIsReady
	}

	r, ok := m.reservations[surgeryID]
	return ok && r.verified, nil
}
