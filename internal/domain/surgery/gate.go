package surgery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinsched/clinsched/internal/domain/task"
	"github.com/clinsched/clinsched/internal/fault"
	"github.com/clinsched/clinsched/internal/notify"
	"github.com/clinsched/clinsched/internal/platform/equipment"
)

// consultationLeadDays is the minimum gap between consultation
// completion and the surgery date.
const consultationLeadDays = 3

// GateConfig selects which patient requirements gate readiness.
// Bloodwork and ECG always gate; medications and instructions are
// informational unless switched on.
type GateConfig struct {
	RequireMedications  bool
	RequireInstructions bool
}

// Gate answers whether a surgery may proceed and applies status
// transitions with their side effects.
type Gate struct {
	surgeries    Repository
	requirements RequirementRepository
	tasks        *task.Engine
	equipment    equipment.Reserver
	dispatcher   *notify.Dispatcher
	cfg          GateConfig
	tx           task.TxRunner
	now          func() time.Time
	log          zerolog.Logger
}

func NewGate(surgeries Repository, requirements RequirementRepository, tasks *task.Engine,
	eq equipment.Reserver, dispatcher *notify.Dispatcher, cfg GateConfig, tx task.TxRunner, log zerolog.Logger) *Gate {
	return &Gate{
		surgeries:    surgeries,
		requirements: requirements,
		tasks:        tasks,
		equipment:    eq,
		dispatcher:   dispatcher,
		cfg:          cfg,
		tx:           tx,
		now:          time.Now,
		log:          log,
	}
}

// Validate computes readiness as the conjunction of four independent
// signals. The boolean is the domain answer; reasons list every failing
// signal. Errors are reserved for system faults.
func (g *Gate) Validate(ctx context.Context, surgeryID uuid.UUID) (bool, []string, error) {
	surg, err := g.surgeries.GetByID(ctx, surgeryID)
	if err != nil {
		return false, nil, fmt.Errorf("load surgery: %w", err)
	}

	var reasons []string

	if !consultationMet(surg) {
		reasons = append(reasons, "consultation not completed at least 3 days before surgery")
	}

	tasksResolved, err := g.tasks.AllResolved(ctx, surgeryID)
	if err != nil {
		return false, nil, err
	}
	if !tasksResolved {
		reasons = append(reasons, "preparation tasks open")
	}

	equipReady, err := g.equipment.IsReady(ctx, surg.ID)
	if err != nil {
		return false, nil, fault.External("equipment", err)
	}
	if !equipReady {
		reasons = append(reasons, "equipment not ready")
	}

	reqs, err := g.requirements.ListBySurgery(ctx, surgeryID)
	if err != nil {
		return false, nil, fmt.Errorf("load requirements: %w", err)
	}
	for _, missing := range g.unverifiedGating(reqs) {
		reasons = append(reasons, missing+" not verified")
	}

	return len(reasons) == 0, reasons, nil
}

// consultationMet checks completion at least consultationLeadDays before
// the surgery date. Completing too close to surgery does not count.
func consultationMet(surg *Surgery) bool {
	if surg.ConsultationStatus != ConsultationCompleted || surg.ConsultationCompletedAt == nil {
		return false
	}
	deadline := surg.SurgeryDate.AddDate(0, 0, -consultationLeadDays)
	return !surg.ConsultationCompletedAt.After(deadline)
}

// unverifiedGating returns the gating requirement types not VERIFIED.
func (g *Gate) unverifiedGating(reqs []*PatientRequirement) []string {
	gating := map[string]bool{
		ReqBloodwork:    true,
		ReqECG:          true,
		ReqMedications:  g.cfg.RequireMedications,
		ReqInstructions: g.cfg.RequireInstructions,
	}
	verified := make(map[string]bool)
	for _, r := range reqs {
		if r.Status == ReqVerified {
			verified[r.Type] = true
		}
	}
	var missing []string
	for _, rt := range RequirementTypes() {
		if gating[rt] && !verified[rt] {
			missing = append(missing, rt)
		}
	}
	return missing
}

// HandleStatusUpdate applies a surgery status transition together with
// its side effects as one unit. Equipment failures roll the whole
// transition back; notification failures are logged and never block the
// decision.
func (g *Gate) HandleStatusUpdate(ctx context.Context, surgeryID uuid.UUID, newStatus string) (*Surgery, error) {
	var updated *Surgery
	err := g.tx(ctx, func(ctx context.Context) error {
		surg, err := g.surgeries.GetByID(ctx, surgeryID)
		if err != nil {
			return fmt.Errorf("load surgery: %w", err)
		}
		if !surg.TransitionAllowed(newStatus) {
			return fault.Validationf("cannot transition surgery from %s to %s", surg.Status, newStatus)
		}

		switch newStatus {
		case StatusInPreparation:
			if err := g.equipment.Reserve(ctx, surg.ID, surg.SurgeryDate, surg.Location); err != nil {
				return fault.External("equipment", err)
			}
			g.notify(ctx, "surgery-preparation", surg, surg.SurgeonID.String())

		case StatusReady:
			// Readiness can regress between an earlier check and this
			// commit, so validate again here.
			ready, reasons, err := g.Validate(ctx, surgeryID)
			if err != nil {
				return err
			}
			if !ready {
				return fault.Validationf("surgery not ready: %v", reasons)
			}
			if err := g.equipment.MarkVerified(ctx, surg.ID); err != nil {
				return fault.External("equipment", err)
			}
			g.notify(ctx, "surgery-ready", surg, surg.PatientID.String())

		case StatusCompleted:
			if err := g.equipment.Release(ctx, surg.ID); err != nil {
				return fault.External("equipment", err)
			}
			if err := g.tasks.CancelOpen(ctx, surgeryID); err != nil {
				return err
			}

		case StatusCancelled:
			if err := g.equipment.Release(ctx, surg.ID); err != nil {
				return fault.External("equipment", err)
			}
			if err := g.tasks.CancelOpen(ctx, surgeryID); err != nil {
				return err
			}
			g.notify(ctx, "surgery-cancelled", surg, surg.PatientID.String())
			g.notify(ctx, "surgery-cancelled", surg, surg.SurgeonID.String())
		}

		surg.Status = newStatus
		if err := g.surgeries.Update(ctx, surg); err != nil {
			return fmt.Errorf("update surgery: %w", err)
		}
		updated = surg
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.log.Info().
		Str("surgery_id", surgeryID.String()).
		Str("status", newStatus).
		Msg("surgery status updated")
	return updated, nil
}

func (g *Gate) notify(ctx context.Context, templateID string, surg *Surgery, recipient string) {
	data := map[string]string{
		"patient_name": surg.PatientID.String(),
		"surgery_date": surg.SurgeryDate.Format("2006-01-02"),
	}
	if _, err := g.dispatcher.SendFromTemplate(ctx, templateID, data, recipient); err != nil {
		g.log.Warn().Err(err).
			Str("template", templateID).
			Str("surgery_id", surg.ID.String()).
			Msg("notification failed")
	}
}
