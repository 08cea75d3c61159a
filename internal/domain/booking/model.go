package booking

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Booking maps to the bookings table. SecondaryResourceID holds the
// matched anesthesiologist for surgical bookings. ExternalEventRef is
// the mirrored calendar event id; nil means no mirror exists.
type Booking struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	ResourceID          uuid.UUID  `db:"resource_id" json:"resource_id"`
	SecondaryResourceID *uuid.UUID `db:"secondary_resource_id" json:"secondary_resource_id,omitempty"`
	Location            string     `db:"location" json:"location"`
	StartTime           time.Time  `db:"start_time" json:"start_time"`
	EndTime             time.Time  `db:"end_time" json:"end_time"`
	EventTypeCode       string     `db:"event_type_code" json:"event_type_code"`
	Status              string     `db:"status" json:"status"`
	ExternalEventRef    *string    `db:"external_event_ref" json:"external_event_ref,omitempty"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}
