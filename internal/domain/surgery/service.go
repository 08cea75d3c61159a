package surgery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinsched/clinsched/internal/domain/catalog"
	"github.com/clinsched/clinsched/internal/domain/task"
	"github.com/clinsched/clinsched/internal/fault"
	"github.com/clinsched/clinsched/internal/platform/equipment"
)

// Service owns the surgery lifecycle up to the readiness gate: creation
// with its preparation chain and patient requirements, consultation
// tracking, and requirement submission and verification.
type Service struct {
	surgeries    Repository
	requirements RequirementRepository
	tasks        *task.Engine
	equipment    equipment.Reserver
	tx           task.TxRunner
	now          func() time.Time
	log          zerolog.Logger
}

func NewService(surgeries Repository, requirements RequirementRepository, tasks *task.Engine,
	eq equipment.Reserver, tx task.TxRunner, log zerolog.Logger) *Service {
	return &Service{
		surgeries:    surgeries,
		requirements: requirements,
		tasks:        tasks,
		equipment:    eq,
		tx:           tx,
		now:          time.Now,
		log:          log,
	}
}

// dateSource adapts the surgery repository for the task engine, which
// only needs the date when computing due offsets.
type dateSource struct {
	surgeries Repository
}

// NewDateSource returns a task.SurgeryDates backed by the repository.
func NewDateSource(surgeries Repository) task.SurgeryDates {
	return dateSource{surgeries: surgeries}
}

func (d dateSource) SurgeryDate(ctx context.Context, surgeryID uuid.UUID) (time.Time, error) {
	surg, err := d.surgeries.GetByID(ctx, surgeryID)
	if err != nil {
		return time.Time{}, err
	}
	return surg.SurgeryDate, nil
}

// CreateSurgery persists the surgery and materializes its full
// preparation state in one transaction: the task chain, the patient
// requirements, and the equipment reservation.
func (s *Service) CreateSurgery(ctx context.Context, surg *Surgery) error {
	if surg.PatientID == uuid.Nil {
		return fault.Validationf("patient_id is required")
	}
	if surg.SurgeonID == uuid.Nil {
		return fault.Validationf("surgeon_id is required")
	}
	if surg.SurgeryDate.IsZero() {
		return fault.Validationf("surgery_date is required")
	}
	if !surg.SurgeryDate.After(s.now()) {
		return fault.Validationf("surgery_date must be in the future")
	}
	et, err := catalog.LookupEventType(surg.ProcedureCode)
	if err != nil {
		return fault.Validationf("unknown procedure code %q", surg.ProcedureCode)
	}
	if et.Category != catalog.CategorySurgical {
		return fault.Validationf("procedure %s is not surgical", et.Code)
	}

	surg.ID = uuid.New()
	surg.Status = StatusScheduled
	if surg.ConsultationStatus == "" {
		surg.ConsultationStatus = ConsultationNotScheduled
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.surgeries.Create(ctx, surg); err != nil {
			return fmt.Errorf("create surgery: %w", err)
		}
		if _, err := s.tasks.CreateTaskChain(ctx, surg.ID); err != nil {
			return err
		}

		var reqs []*PatientRequirement
		for _, rt := range RequirementTypes() {
			reqs = append(reqs, &PatientRequirement{
				ID:        uuid.New(),
				SurgeryID: surg.ID,
				Type:      rt,
				Status:    ReqPending,
				DueDate:   surg.SurgeryDate.AddDate(0, 0, -requirementDueOffsets[rt]),
			})
		}
		if err := s.requirements.CreateBatch(ctx, reqs); err != nil {
			return fmt.Errorf("create requirements: %w", err)
		}

		if err := s.equipment.Reserve(ctx, surg.ID, surg.SurgeryDate, surg.Location); err != nil {
			return fault.External("equipment", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("surgery_id", surg.ID.String()).
		Str("procedure", surg.ProcedureCode).
		Time("date", surg.SurgeryDate).
		Msg("surgery created")
	return nil
}

func (s *Service) GetSurgery(ctx context.Context, id uuid.UUID) (*Surgery, error) {
	return s.surgeries.GetByID(ctx, id)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Surgery, int, error) {
	return s.surgeries.ListByStatus(ctx, status, limit, offset)
}

// CompleteConsultation records consultation completion; the timestamp
// feeds the readiness gate's 3-day rule.
func (s *Service) CompleteConsultation(ctx context.Context, surgeryID uuid.UUID) (*Surgery, error) {
	surg, err := s.surgeries.GetByID(ctx, surgeryID)
	if err != nil {
		return nil, fmt.Errorf("load surgery: %w", err)
	}
	if surg.ConsultationStatus == ConsultationCompleted {
		return surg, nil
	}
	if surg.ConsultationStatus == ConsultationExpired {
		return nil, fault.Validationf("consultation already expired")
	}
	now := s.now()
	surg.ConsultationStatus = ConsultationCompleted
	surg.ConsultationCompletedAt = &now
	if err := s.surgeries.Update(ctx, surg); err != nil {
		return nil, fmt.Errorf("update surgery: %w", err)
	}
	return surg, nil
}

// SubmitRequirement moves a requirement PENDING to SUBMITTED.
func (s *Service) SubmitRequirement(ctx context.Context, surgeryID uuid.UUID, reqType string) (*PatientRequirement, error) {
	req, err := s.requirements.Get(ctx, surgeryID, reqType)
	if err != nil {
		return nil, fmt.Errorf("load requirement: %w", err)
	}
	if req.Status != ReqPending {
		return nil, fault.Validationf("requirement %s is %s, cannot submit", reqType, req.Status)
	}
	now := s.now()
	req.Status = ReqSubmitted
	req.SubmittedAt = &now
	if err := s.requirements.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("update requirement: %w", err)
	}
	return req, nil
}

// VerifyRequirement moves a requirement SUBMITTED to VERIFIED.
func (s *Service) VerifyRequirement(ctx context.Context, surgeryID uuid.UUID, reqType string) (*PatientRequirement, error) {
	req, err := s.requirements.Get(ctx, surgeryID, reqType)
	if err != nil {
		return nil, fmt.Errorf("load requirement: %w", err)
	}
	if req.Status != ReqSubmitted {
		return nil, fault.Validationf("requirement %s is %s, cannot verify", reqType, req.Status)
	}
	now := s.now()
	req.Status = ReqVerified
	req.VerifiedAt = &now
	if err := s.requirements.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("update requirement: %w", err)
	}
	return req, nil
}

func (s *Service) ListRequirements(ctx context.Context, surgeryID uuid.UUID) ([]*PatientRequirement, error) {
	return s.requirements.ListBySurgery(ctx, surgeryID)
}
