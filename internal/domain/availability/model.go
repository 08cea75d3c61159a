package availability

import (
	"time"

	"github.com/google/uuid"
)

// Template maps to the availability_template table: one recurring weekly
// open-hour window per resource, location, and weekday. Times are local
// wall-clock "HH:mm" in the practice time zone.
type Template struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ResourceID uuid.UUID `db:"resource_id" json:"resource_id"`
	Location   string    `db:"location" json:"location"`
	Weekday    int       `db:"weekday" json:"weekday"` // 0 = Sunday .. 6 = Saturday
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Resource maps to the resource table: a surgeon or anesthesiologist
// with an externally configured calendar identifier.
type Resource struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Role       string    `db:"role" json:"role"` // surgeon | anesthesiologist
	Location   string    `db:"location" json:"location"`
	CalendarID string    `db:"calendar_id" json:"calendar_id"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

const (
	RoleSurgeon          = "surgeon"
	RoleAnesthesiologist = "anesthesiologist"
)

// TimeSlot is one bookable window returned by slot enumeration.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// minuteOfDay parses an "HH:mm" string into minutes since midnight.
func minuteOfDay(hhmm string) (int, bool) {
	if len(hhmm) != 5 || hhmm[2] != ':' {
		return 0, false
	}
	h := int(hhmm[0]-'0')*10 + int(hhmm[1]-'0')
	m := int(hhmm[3]-'0')*10 + int(hhmm[4]-'0')
	if hhmm[0] < '0' || hhmm[0] > '9' || hhmm[1] < '0' || hhmm[1] > '9' ||
		hhmm[3] < '0' || hhmm[3] > '9' || hhmm[4] < '0' || hhmm[4] > '9' {
		return 0, false
	}
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// Contains reports whether the local wall-clock interval [start, end)
// lies fully inside the template window. start and end must already be
// in the practice time zone.
func (t *Template) Contains(start, end time.Time) bool {
	winStart, ok := minuteOfDay(t.StartTime)
	if !ok {
		return false
	}
	winEnd, ok := minuteOfDay(t.EndTime)
	if !ok {
		return false
	}

	slotStart := start.Hour()*60 + start.Minute()
	slotEnd := end.Hour()*60 + end.Minute()
	// An interval ending at midnight reads as minute 0 of the next day.
	if slotEnd == 0 && end.After(start) {
		slotEnd = 24 * 60
	}
	if !end.After(start) || start.YearDay() != end.Add(-time.Minute).YearDay() {
		return false
	}

	return slotStart >= winStart && slotEnd <= winEnd
}

// Overlaps is the half-open interval overlap predicate used everywhere
// in conflict checking.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
