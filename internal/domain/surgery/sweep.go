package surgery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinsched/clinsched/internal/notify"
)

// autoBlockDays is the hard deadline: a surgery this close to its date
// without a completed consultation must not silently proceed.
const autoBlockDays = 3

// escalationOffsets maps days-before-surgery to the reminder template
// used when patient requirements are still unverified.
var escalationOffsets = map[int]string{
	7: "requirement-reminder",
	3: "requirement-urgent",
	1: "requirement-final",
}

// Sweeper is the idempotent periodic pass: auto-block past-deadline
// surgeries, expire overdue requirements, and send escalating reminders.
// An external scheduler may invoke it redundantly; markers keep every
// side effect send-once.
type Sweeper struct {
	surgeries    Repository
	requirements RequirementRepository
	dispatcher   *notify.Dispatcher
	markers      MarkerRepository
	tz           *time.Location
	now          func() time.Time
	log          zerolog.Logger
}

// NewSweeper wires a sweeper. tz is the practice timezone; day offsets
// are counted against its calendar, not UTC's.
func NewSweeper(surgeries Repository, requirements RequirementRepository,
	dispatcher *notify.Dispatcher, markers MarkerRepository, tz *time.Location, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		surgeries:    surgeries,
		requirements: requirements,
		dispatcher:   dispatcher,
		markers:      markers,
		tz:           tz,
		now:          time.Now,
		log:          log,
	}
}

// Sweep runs one pass. Each phase continues past per-surgery failures so
// one bad row cannot starve the rest.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()

	if err := s.expireRequirements(ctx, now); err != nil {
		return err
	}

	// The escalation horizon is the widest window any phase looks at.
	horizon := now.AddDate(0, 0, 8)
	upcoming, err := s.surgeries.ListActiveDueWithin(ctx, now, horizon)
	if err != nil {
		return fmt.Errorf("list upcoming surgeries: %w", err)
	}

	for _, surg := range upcoming {
		if err := s.autoBlock(ctx, surg, now); err != nil {
			s.log.Error().Err(err).Str("surgery_id", surg.ID.String()).Msg("auto-block failed")
			continue
		}
		if err := s.escalate(ctx, surg, now); err != nil {
			s.log.Error().Err(err).Str("surgery_id", surg.ID.String()).Msg("escalation failed")
		}
	}
	return nil
}

// daysUntil counts whole calendar days from now to the surgery date,
// both taken as dates in tz. Around midnight the UTC date and the
// practice-local date disagree, so the local calendar decides.
func daysUntil(now, surgeryDate time.Time, tz *time.Location) int {
	a := now.In(tz)
	b := surgeryDate.In(tz)
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

// autoBlock enforces the consultation deadline. The status update and
// the notification marker are separate writes, so the marker is
// attempted on already-BLOCKED surgeries too; a marker write that
// failed on the blocking pass gets retried on the next one instead of
// losing the staff notification.
func (s *Sweeper) autoBlock(ctx context.Context, surg *Surgery, now time.Time) error {
	if surg.ConsultationStatus == ConsultationCompleted {
		return nil
	}
	if daysUntil(now, surg.SurgeryDate, s.tz) > autoBlockDays {
		return nil
	}

	if surg.Status != StatusBlocked {
		surg.Status = StatusBlocked
		// The consultation window is gone; record that too.
		if surg.ConsultationStatus != ConsultationExpired {
			surg.ConsultationStatus = ConsultationExpired
		}
		if err := s.surgeries.Update(ctx, surg); err != nil {
			return fmt.Errorf("block surgery: %w", err)
		}

		s.log.Warn().
			Str("surgery_id", surg.ID.String()).
			Time("surgery_date", surg.SurgeryDate).
			Msg("surgery auto-blocked, consultation deadline missed")
	}

	fresh, err := s.markers.TrySet(ctx, "blocked:"+surg.ID.String())
	if err != nil {
		return fmt.Errorf("set block marker: %w", err)
	}
	if !fresh {
		return nil
	}

	data := map[string]string{
		"patient_name": surg.PatientID.String(),
		"surgery_date": surg.SurgeryDate.Format("2006-01-02"),
		"reason":       "consultation not completed before the 3-day deadline",
	}
	s.send(ctx, "surgery-blocked", data, surg.SurgeonID.String())
	s.send(ctx, "surgery-blocked", data, "coordinator")
	return nil
}

// expireRequirements flips PENDING requirements past their due date to
// EXPIRED. Re-running over already-expired rows is a no-op.
func (s *Sweeper) expireRequirements(ctx context.Context, now time.Time) error {
	overdue, err := s.requirements.ListOverduePending(ctx, now)
	if err != nil {
		return fmt.Errorf("list overdue requirements: %w", err)
	}
	for _, req := range overdue {
		req.Status = ReqExpired
		if err := s.requirements.Update(ctx, req); err != nil {
			s.log.Error().Err(err).Str("requirement_id", req.ID.String()).Msg("expire failed")
			continue
		}
		s.log.Info().
			Str("requirement_id", req.ID.String()).
			Str("type", req.Type).
			Msg("requirement expired")
	}
	return nil
}

// escalate sends the day-offset reminder when unverified requirements
// remain. One send per surgery and offset, guarded by a marker.
func (s *Sweeper) escalate(ctx context.Context, surg *Surgery, now time.Time) error {
	days := daysUntil(now, surg.SurgeryDate, s.tz)
	templateID, ok := escalationOffsets[days]
	if !ok {
		return nil
	}

	reqs, err := s.requirements.ListBySurgery(ctx, surg.ID)
	if err != nil {
		return fmt.Errorf("load requirements: %w", err)
	}
	var missing []string
	for _, r := range reqs {
		if r.Status != ReqVerified {
			missing = append(missing, r.Type)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	fresh, err := s.markers.TrySet(ctx, fmt.Sprintf("remind:%dd:%s", days, surg.ID))
	if err != nil {
		return fmt.Errorf("set reminder marker: %w", err)
	}
	if !fresh {
		return nil
	}

	data := map[string]string{
		"patient_name": surg.PatientID.String(),
		"surgery_date": surg.SurgeryDate.Format("2006-01-02"),
		"requirement":  strings.Join(missing, ", "),
		"days_left":    fmt.Sprintf("%d", days),
	}
	switch days {
	case 7:
		s.send(ctx, templateID, data, surg.PatientID.String())
	case 3:
		s.send(ctx, templateID, data, surg.SurgeonID.String())
		s.send(ctx, templateID, data, "coordinator")
	case 1:
		s.send(ctx, templateID, data, "coordinator")
	}
	return nil
}

func (s *Sweeper) send(ctx context.Context, templateID string, data map[string]string, recipient string) {
	if _, err := s.dispatcher.SendFromTemplate(ctx, templateID, data, recipient); err != nil {
		s.log.Warn().Err(err).Str("template", templateID).Str("recipient", recipient).Msg("sweep notification failed")
	}
}

// RunPeriodic sweeps on the interval until the context ends. One sweep
// runs immediately on start.
func (s *Sweeper) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			s.log.Error().Err(err).Msg("sweep pass failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
