// Package calendar integrates with the external calendar system that
// mirrors bookings. The calendar is consulted as the final availability
// authority and kept in sync when bookings are created or cancelled.
package calendar

import (
	"context"
	"errors"
	"time"
)

var ErrEventNotFound = errors.New("calendar event not found")

// Event is a mirrored booking entry on an external calendar.
type Event struct {
	ID          string
	CalendarID  string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Interval is a half-open busy window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Oracle answers free/busy questions and mirrors booking events. A nil
// error from FreeBusy means the answer is authoritative; transport
// failures surface as errors so callers can refuse to double-book on
// stale data.
type Oracle interface {
	// FreeBusy returns the busy intervals on the calendar that
	// intersect [start, end). An empty result means the window is free.
	FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]Interval, error)

	// CreateEvent mirrors a booking onto the calendar and returns the
	// event with its assigned ID.
	CreateEvent(ctx context.Context, ev Event) (Event, error)

	// UpdateEvent rewrites an existing mirrored event.
	UpdateEvent(ctx context.Context, ev Event) error

	// DeleteEvent removes a mirrored event. Deleting an event that no
	// longer exists returns ErrEventNotFound.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
