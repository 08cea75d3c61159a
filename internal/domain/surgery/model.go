package surgery

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled     = "SCHEDULED"
	StatusInPreparation = "IN_PREPARATION"
	StatusReady         = "READY"
	StatusBlocked       = "BLOCKED"
	StatusCompleted     = "COMPLETED"
	StatusCancelled     = "CANCELLED"
)

const (
	ConsultationNotScheduled = "NOT_SCHEDULED"
	ConsultationScheduled    = "SCHEDULED"
	ConsultationCompleted    = "COMPLETED"
	ConsultationExpired      = "EXPIRED"
)

// Surgery maps to the surgeries table. ProcedureCode references the
// event-type catalog; the equipment reservation is keyed by ID.
type Surgery struct {
	ID                      uuid.UUID  `db:"id" json:"id"`
	PatientID               uuid.UUID  `db:"patient_id" json:"patient_id"`
	SurgeonID               uuid.UUID  `db:"surgeon_id" json:"surgeon_id"`
	BookingID               *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	ProcedureCode           string     `db:"procedure_code" json:"procedure_code"`
	Location                string     `db:"location" json:"location"`
	SurgeryDate             time.Time  `db:"surgery_date" json:"surgery_date"`
	Status                  string     `db:"status" json:"status"`
	ConsultationStatus      string     `db:"consultation_status" json:"consultation_status"`
	ConsultationCompletedAt *time.Time `db:"consultation_completed_at" json:"consultation_completed_at,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the surgery still moves through the pipeline.
func (s *Surgery) Active() bool {
	return s.Status != StatusCompleted && s.Status != StatusCancelled
}

var validStatusTransitions = map[string]map[string]bool{
	StatusScheduled: {
		StatusInPreparation: true,
		StatusBlocked:       true,
		StatusCancelled:     true,
	},
	StatusInPreparation: {
		StatusReady:     true,
		StatusBlocked:   true,
		StatusCancelled: true,
	},
	StatusReady: {
		StatusCompleted: true,
		StatusBlocked:   true,
		StatusCancelled: true,
	},
	StatusBlocked: {
		StatusInPreparation: true,
		StatusCancelled:     true,
	},
}

// TransitionAllowed reports whether moving to next is legal from the
// surgery's current status.
func (s *Surgery) TransitionAllowed(next string) bool {
	return validStatusTransitions[s.Status][next]
}

// Patient requirement types and statuses.
const (
	ReqBloodwork    = "bloodwork"
	ReqECG          = "ecg"
	ReqMedications  = "medications"
	ReqInstructions = "instructions"
)

const (
	ReqPending   = "PENDING"
	ReqSubmitted = "SUBMITTED"
	ReqVerified  = "VERIFIED"
	ReqExpired   = "EXPIRED"
)

// PatientRequirement maps to the patient_requirements table: one
// pre-surgery obligation moving PENDING to SUBMITTED to VERIFIED, or to
// EXPIRED when the due date passes unmet.
type PatientRequirement struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	SurgeryID   uuid.UUID  `db:"surgery_id" json:"surgery_id"`
	Type        string     `db:"type" json:"type"`
	Status      string     `db:"status" json:"status"`
	DueDate     time.Time  `db:"due_date" json:"due_date"`
	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	VerifiedAt  *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// requirementDueOffsets is days before surgery each requirement is due.
var requirementDueOffsets = map[string]int{
	ReqBloodwork:    5,
	ReqECG:          5,
	ReqMedications:  3,
	ReqInstructions: 1,
}

// RequirementTypes lists all requirement types in creation order.
func RequirementTypes() []string {
	return []string{ReqBloodwork, ReqECG, ReqMedications, ReqInstructions}
}
