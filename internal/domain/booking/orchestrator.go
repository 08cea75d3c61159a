package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinsched/clinsched/internal/domain/availability"
	"github.com/clinsched/clinsched/internal/domain/catalog"
	"github.com/clinsched/clinsched/internal/fault"
	"github.com/clinsched/clinsched/internal/platform/calendar"
	"github.com/clinsched/clinsched/internal/platform/lock"
)

// anesthesiologist pools are small; one page is always enough.
const poolPageSize = 100

// CreateRequest carries the input for a new booking.
type CreateRequest struct {
	ResourceID      uuid.UUID `json:"resource_id"`
	Location        string    `json:"location"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	EventTypeCode   string    `json:"event_type_code"`
	Notes           *string   `json:"notes,omitempty"`
}

// Orchestrator owns the booking lifecycle: validation, availability,
// anesthesiologist matching, the lock-guarded critical section, and the
// calendar mirror with compensation.
type Orchestrator struct {
	repo      Repository
	resolver  *availability.Resolver
	matcher   *availability.Matcher
	resources availability.ResourceRepository
	oracle    calendar.Oracle
	locker    lock.Locker
	log       zerolog.Logger
}

func NewOrchestrator(repo Repository, resolver *availability.Resolver, matcher *availability.Matcher,
	resources availability.ResourceRepository, oracle calendar.Oracle, locker lock.Locker, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		resolver:  resolver,
		matcher:   matcher,
		resources: resources,
		oracle:    oracle,
		locker:    locker,
		log:       log,
	}
}

// CreateBooking books the resource for the requested window, mirrors the
// booking into the external calendar, and matches an anesthesiologist
// when the event type demands one. The availability re-check and the
// insert run under a per-resource-day lock; the database exclusion
// constraint remains the authoritative guard underneath.
func (o *Orchestrator) CreateBooking(ctx context.Context, req CreateRequest) (*Booking, error) {
	et, err := catalog.LookupEventType(req.EventTypeCode)
	if err != nil {
		return nil, fault.Validationf("unknown event type %q", req.EventTypeCode)
	}
	if !et.DurationAllowed(req.DurationMinutes) {
		return nil, fault.Validationf("duration %d not allowed for %s (allowed: %v)",
			req.DurationMinutes, et.Code, et.AllowedDurations)
	}
	if req.Start.IsZero() {
		return nil, fault.Validationf("start is required")
	}
	if req.Location == "" {
		return nil, fault.Validationf("location is required")
	}
	end := req.Start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	ok, reason, err := o.resolver.CheckAvailability(ctx, req.ResourceID, req.Location, req.Start, end)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !ok {
		return nil, fault.Conflictf("slot unavailable: %s", reason)
	}

	var secondary *availability.Resource
	if et.NeedsAnesthesiologist() {
		pool, _, err := o.resources.ListByRole(ctx, availability.RoleAnesthesiologist, poolPageSize, 0)
		if err != nil {
			return nil, fmt.Errorf("load anesthesiologist pool: %w", err)
		}
		secondary, err = o.matcher.FindAvailable(ctx, pool, req.Location, req.Start, req.DurationMinutes)
		if err != nil {
			return nil, fmt.Errorf("match anesthesiologist: %w", err)
		}
		if secondary == nil {
			return nil, fault.Conflictf("no anesthesiologist available")
		}
	}

	res, err := o.resources.GetByID(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}

	var created *Booking
	day := req.Start.UTC().Format("2006-01-02")
	commit := func(ctx context.Context) error {
		// Availability can regress between the unlocked checks and here.
		ok, reason, err := o.resolver.CheckAvailability(ctx, req.ResourceID, req.Location, req.Start, end)
		if err != nil {
			return fmt.Errorf("recheck availability: %w", err)
		}
		if !ok {
			return fault.Conflictf("slot unavailable: %s", reason)
		}
		if secondary != nil {
			ok, reason, err = o.resolver.CheckAvailability(ctx, secondary.ID, req.Location, req.Start, end)
			if err != nil {
				return fmt.Errorf("recheck anesthesiologist availability: %w", err)
			}
			if !ok {
				return fault.Conflictf("anesthesiologist unavailable: %s", reason)
			}
		}

		ev, err := o.oracle.CreateEvent(ctx, calendar.Event{
			CalendarID:  res.CalendarID,
			Summary:     et.Name,
			Description: noteText(req.Notes),
			Start:       req.Start,
			End:         end,
		})
		if err != nil {
			return fault.External("calendar", err)
		}

		b := &Booking{
			ResourceID:       req.ResourceID,
			Location:         req.Location,
			StartTime:        req.Start,
			EndTime:          end,
			EventTypeCode:    et.Code,
			Status:           StatusScheduled,
			ExternalEventRef: &ev.ID,
			Notes:            req.Notes,
		}
		if secondary != nil {
			id := secondary.ID
			b.SecondaryResourceID = &id
		}
		if err := o.repo.Create(ctx, b); err != nil {
			o.compensateEvent(ctx, res.CalendarID, ev.ID)
			return err
		}
		created = b
		return nil
	}

	lockKey := fmt.Sprintf("resource:%s:%s", req.ResourceID, day)
	err = o.locker.WithLock(ctx, lockKey, func(ctx context.Context) error {
		if secondary == nil {
			return commit(ctx)
		}
		// The matched anesthesiologist was chosen outside the lock, so a
		// concurrent booking for another surgeon may have claimed them in
		// the meantime. Holding their day lock too makes the re-check and
		// the insert atomic for both participants.
		secondaryKey := fmt.Sprintf("resource:%s:%s", secondary.ID, day)
		return o.locker.WithLock(ctx, secondaryKey, commit)
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, fault.Conflictf("slot unavailable: concurrent booking in progress")
		}
		return nil, err
	}

	if err := o.verifyNoDuplicate(ctx, created); err != nil {
		return nil, err
	}

	o.log.Info().
		Str("booking_id", created.ID.String()).
		Str("resource_id", req.ResourceID.String()).
		Str("event_type", et.Code).
		Time("start", req.Start).
		Msg("booking created")
	return created, nil
}

// compensateEvent deletes a mirrored calendar event after a failed
// persistence write. It runs detached from the request's cancellation so
// a timed-out request still cleans up, and failures are logged because
// there is nothing further to do.
func (o *Orchestrator) compensateEvent(ctx context.Context, calendarID, eventID string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.oracle.DeleteEvent(cleanupCtx, calendarID, eventID); err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
		o.log.Error().Err(err).
			Str("calendar_id", calendarID).
			Str("event_id", eventID).
			Msg("compensating calendar delete failed, event orphaned")
	}
}

// verifyNoDuplicate checks that no other booking overlaps the one just
// written, for the primary resource and for the anesthesiologist when
// one is attached. Finding one means the lock guard was violated.
func (o *Orchestrator) verifyNoDuplicate(ctx context.Context, b *Booking) error {
	ids := []uuid.UUID{b.ResourceID}
	if b.SecondaryResourceID != nil {
		ids = append(ids, *b.SecondaryResourceID)
	}
	for _, rid := range ids {
		overlapping, err := o.repo.FindOverlapping(ctx, rid, b.Location, b.StartTime, b.EndTime)
		if err != nil {
			return fmt.Errorf("verify booking: %w", err)
		}
		for _, other := range overlapping {
			if other.ID != b.ID {
				return fault.Consistencyf("bookings %s and %s overlap despite exclusion guard", b.ID, other.ID)
			}
		}
	}
	return nil
}

// CancelBooking removes the mirrored calendar event and then flips the
// booking to cancelled. A calendar failure aborts the cancellation so
// the booking never diverges from its mirror; the caller retries.
func (o *Orchestrator) CancelBooking(ctx context.Context, id uuid.UUID) error {
	b, err := o.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if b.Status == StatusCancelled {
		return nil
	}

	if b.ExternalEventRef != nil {
		res, err := o.resources.GetByID(ctx, b.ResourceID)
		if err != nil {
			return fmt.Errorf("load resource: %w", err)
		}
		err = o.oracle.DeleteEvent(ctx, res.CalendarID, *b.ExternalEventRef)
		if err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
			return fault.External("calendar", err)
		}
	}

	if err := o.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	o.log.Info().Str("booking_id", id.String()).Msg("booking cancelled")
	return nil
}

func (o *Orchestrator) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return o.repo.GetByID(ctx, id)
}

func (o *Orchestrator) ListBookingsByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	return o.repo.ListByResource(ctx, resourceID, limit, offset)
}

func noteText(notes *string) string {
	if notes == nil {
		return ""
	}
	return *notes
}
