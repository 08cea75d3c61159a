package equipment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var surgeryDate = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func TestMemory_NotReadyWithoutReservation(t *testing.T) {
	m := NewMemory()

	ready, err := m.IsReady(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("IsReady() error: %v", err)
	}
	if ready {
		t.Error("expected not ready without a reservation")
	}
}

func TestMemory_ReservedButUnverified(t *testing.T) {
	m := NewMemory()
	id := uuid.New()

	if err := m.Reserve(context.Background(), id, surgeryDate, "vienna"); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}

	ready, err := m.IsReady(context.Background(), id)
	if err != nil {
		t.Fatalf("IsReady() error: %v", err)
	}
	if ready {
		t.Error("expected unverified reservation to not be ready")
	}
}

func TestMemory_VerifiedIsReady(t *testing.T) {
	m := NewMemory()
	id := uuid.New()

	if err := m.Reserve(context.Background(), id, surgeryDate, "vienna"); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}
	if err := m.MarkVerified(context.Background(), id); err != nil {
		t.Fatalf("MarkVerified() error: %v", err)
	}

	ready, err := m.IsReady(context.Background(), id)
	if err != nil {
		t.Fatalf("IsReady() error: %v", err)
	}
	if !ready {
		t.Error("expected verified reservation to be ready")
	}
}

func TestMemory_VerifyWithoutReservation(t *testing.T) {
	m := NewMemory()

	err := m.MarkVerified(context.Background(), uuid.New())
	if !errors.Is(err, ErrNoReservation) {
		t.Errorf("expected ErrNoReservation, got %v", err)
	}
}

func TestMemory_ReleaseClearsReadiness(t *testing.T) {
	m := NewMemory()
	id := uuid.New()

	_ = m.Reserve(context.Background(), id, surgeryDate, "vienna")
	_ = m.MarkVerified(context.Background(), id)
	if err := m.Release(context.Background(), id); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	ready, err := m.IsReady(context.Background(), id)
	if err != nil {
		t.Fatalf("IsReady() error: %v", err)
	}
	if ready {
		t.Error("expected not ready after release")
	}
}

func TestMemory_ScopedPerSurgery(t *testing.T) {
	m := NewMemory()
	first := uuid.New()
	second := uuid.New()

	// Two surgeries on the same date and location hold distinct
	// reservations.
	_ = m.Reserve(context.Background(), first, surgeryDate, "vienna")
	_ = m.Reserve(context.Background(), second, surgeryDate, "vienna")
	_ = m.MarkVerified(context.Background(), first)

	if err := m.Release(context.Background(), second); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	ready, err := m.IsReady(context.Background(), first)
	if err != nil {
		t.Fatalf("IsReady() error: %v", err)
	}
	if !ready {
		t.Error("releasing one surgery must not touch the other's reservation")
	}

	ready, err = m.IsReady(context.Background(), second)
	if err != nil {
		t.Fatalf("IsReady() error: %v", err)
	}
	if ready {
		t.Error("released surgery must not be ready")
	}
}

func TestMemory_ReReserveKeepsVerification(t *testing.T) {
	m := NewMemory()
	id := uuid.New()

	_ = m.Reserve(context.Background(), id, surgeryDate, "vienna")
	_ = m.MarkVerified(context.Background(), id)
	if err := m.Reserve(context.Background(), id, surgeryDate, "vienna"); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}

	ready, err := m.IsReady(context.Background(), id)
	if err != nil {
		t.Fatalf("IsReady() error: %v", err)
	}
	if !ready {
		t.Error("expected re-reserving to keep the verified state")
	}
}

func TestMemory_ReserveFailureInjection(t *testing.T) {
	m := NewMemory()
	wantErr := errors.New("equipment system down")
	m.FailReserve = wantErr

	if err := m.Reserve(context.Background(), uuid.New(), surgeryDate, "vienna"); !errors.Is(err, wantErr) {
		t.Errorf("expected injected failure, got %v", err)
	}
}

func TestMemory_FailureInjection(t *testing.T) {
	m := NewMemory()
	wantErr := errors.New("equipment system down")
	m.FailIsReady = wantErr

	_, err := m.IsReady(context.Background(), uuid.New())
	if !errors.Is(err, wantErr) {
		t.Errorf("expected injected failure, got %v", err)
	}
}
