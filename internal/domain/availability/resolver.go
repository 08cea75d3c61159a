package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinsched/clinsched/internal/platform/calendar"
)

// Unavailability reasons returned by CheckAvailability.
const (
	ReasonOutsideWorkingHours = "outside working hours"
	ReasonConflict            = "conflict"
	ReasonCalendarConflict    = "calendar conflict"
)

// Resolver answers whether a resource is free for a window and
// enumerates free slots over a date range. It reconciles three sources
// in order, short-circuiting on the first failure: the weekly template,
// internal booking conflicts, and the external calendar's free/busy.
type Resolver struct {
	templates TemplateRepository
	resources ResourceRepository
	conflicts ConflictChecker
	oracle    calendar.Oracle
	practice  *time.Location
}

func NewResolver(templates TemplateRepository, resources ResourceRepository, conflicts ConflictChecker, oracle calendar.Oracle, practiceTZ *time.Location) *Resolver {
	return &Resolver{
		templates: templates,
		resources: resources,
		conflicts: conflicts,
		oracle:    oracle,
		practice:  practiceTZ,
	}
}

// CheckAvailability reports whether the resource is free for [start, end)
// at the location. The boolean is the domain answer; a non-empty reason
// accompanies false. Errors are reserved for system faults (repository or
// calendar failures), never for "not available".
func (r *Resolver) CheckAvailability(ctx context.Context, resourceID uuid.UUID, location string, start, end time.Time) (bool, string, error) {
	if !end.After(start) {
		return false, "", fmt.Errorf("invalid interval: end %s not after start %s", end, start)
	}

	// Template hours are evaluated in the practice time zone, not the
	// server's.
	localStart := start.In(r.practice)
	localEnd := end.In(r.practice)

	tpl, err := r.templates.FindActive(ctx, resourceID, location, int(localStart.Weekday()))
	if err != nil {
		return false, "", fmt.Errorf("resolve template: %w", err)
	}
	if tpl == nil || !tpl.Contains(localStart, localEnd) {
		return false, ReasonOutsideWorkingHours, nil
	}

	overlap, err := r.conflicts.HasOverlap(ctx, resourceID, location, start, end)
	if err != nil {
		return false, "", fmt.Errorf("check booking conflicts: %w", err)
	}
	if overlap {
		return false, ReasonConflict, nil
	}

	res, err := r.resources.GetByID(ctx, resourceID)
	if err != nil {
		return false, "", fmt.Errorf("load resource: %w", err)
	}
	busy, err := r.oracle.FreeBusy(ctx, res.CalendarID, start, end)
	if err != nil {
		return false, "", fmt.Errorf("calendar free/busy: %w", err)
	}
	if len(busy) > 0 {
		return false, ReasonCalendarConflict, nil
	}

	return true, "", nil
}

// AvailableSlots enumerates all free slots of the given duration between
// fromDate and toDate inclusive (dates interpreted in the practice time
// zone), ordered by ascending start time. Each day's template window is
// walked in duration-sized steps from the window start.
func (r *Resolver) AvailableSlots(ctx context.Context, resourceID uuid.UUID, location string, fromDate, toDate time.Time, durationMin int) ([]TimeSlot, error) {
	if durationMin <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationMin)
	}

	duration := time.Duration(durationMin) * time.Minute
	var slots []TimeSlot

	day := time.Date(fromDate.Year(), fromDate.Month(), fromDate.Day(), 0, 0, 0, 0, r.practice)
	last := time.Date(toDate.Year(), toDate.Month(), toDate.Day(), 0, 0, 0, 0, r.practice)

	for !day.After(last) {
		tpl, err := r.templates.FindActive(ctx, resourceID, location, int(day.Weekday()))
		if err != nil {
			return nil, fmt.Errorf("resolve template for %s: %w", day.Format("2006-01-02"), err)
		}
		if tpl == nil {
			day = day.AddDate(0, 0, 1)
			continue
		}

		winStart, okS := minuteOfDay(tpl.StartTime)
		winEnd, okE := minuteOfDay(tpl.EndTime)
		if !okS || !okE {
			return nil, fmt.Errorf("malformed template window %s-%s", tpl.StartTime, tpl.EndTime)
		}

		for m := winStart; m+durationMin <= winEnd; m += durationMin {
			// Construct the start from wall-clock components. Adding
			// minutes to midnight drifts an hour on DST-change days.
			slotStart := time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, r.practice)
			slotEnd := slotStart.Add(duration)

			ok, _, err := r.CheckAvailability(ctx, resourceID, location, slotStart, slotEnd)
			if err != nil {
				return nil, err
			}
			if ok {
				slots = append(slots, TimeSlot{Start: slotStart, End: slotEnd})
			}
		}

		day = day.AddDate(0, 0, 1)
	}

	return slots, nil
}
