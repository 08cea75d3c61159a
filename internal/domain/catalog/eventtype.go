// Package catalog holds the immutable reference data of the practice:
// the bookable event types and the surgery preparation task templates.
package catalog

import "fmt"

// Category classifies an event type. Surgical procedures always require
// an anesthesiologist; the per-entry flag only matters for the other
// categories.
type Category string

const (
	CategoryConsultation    Category = "CONSULTATION"
	CategoryMinimalInvasive Category = "MINIMAL_INVASIVE"
	CategorySurgical        Category = "SURGICAL"
)

// EventType is a bookable procedure from the closed catalog.
type EventType struct {
	Code                     string   `json:"code"`
	Name                     string   `json:"name"`
	Category                 Category `json:"category"`
	AllowedDurations         []int    `json:"allowed_durations"` // minutes
	RequiresAnesthesiologist bool     `json:"requires_anesthesiologist"`
}

// DurationAllowed reports whether the duration in minutes is one of the
// event type's allowed durations.
func (e EventType) DurationAllowed(minutes int) bool {
	for _, d := range e.AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

// NeedsAnesthesiologist reports whether a booking of this event type
// must co-schedule an anesthesiologist. The SURGICAL category is
// authoritative regardless of the catalog flag.
func (e EventType) NeedsAnesthesiologist() bool {
	return e.Category == CategorySurgical || e.RequiresAnesthesiologist
}

var eventTypes = []EventType{
	{Code: "CONSULT30", Name: "Consultation (30 min)", Category: CategoryConsultation, AllowedDurations: []int{30}},
	{Code: "CONSULT60", Name: "Extended Consultation", Category: CategoryConsultation, AllowedDurations: []int{60}},
	{Code: "BOTOX", Name: "Botox Treatment", Category: CategoryMinimalInvasive, AllowedDurations: []int{15, 30}},
	{Code: "FILLER", Name: "Dermal Filler", Category: CategoryMinimalInvasive, AllowedDurations: []int{30, 45}},
	{Code: "FACELIFT", Name: "Facelift", Category: CategorySurgical, AllowedDurations: []int{180, 240}, RequiresAnesthesiologist: true},
	{Code: "RHINOPLASTY", Name: "Rhinoplasty", Category: CategorySurgical, AllowedDurations: []int{120, 180}, RequiresAnesthesiologist: true},
	{Code: "LIPOSUCTION", Name: "Liposuction", Category: CategorySurgical, AllowedDurations: []int{90, 120, 180}, RequiresAnesthesiologist: true},
	{Code: "BREAST_AUG", Name: "Breast Augmentation", Category: CategorySurgical, AllowedDurations: []int{120, 150}, RequiresAnesthesiologist: true},
}

var eventTypesByCode = func() map[string]EventType {
	m := make(map[string]EventType, len(eventTypes))
	for _, et := range eventTypes {
		m[et.Code] = et
	}
	return m
}()

// LookupEventType returns the event type for code.
func LookupEventType(code string) (EventType, error) {
	et, ok := eventTypesByCode[code]
	if !ok {
		return EventType{}, fmt.Errorf("unknown event type %q", code)
	}
	return et, nil
}

// EventTypes returns the full catalog in declaration order.
func EventTypes() []EventType {
	out := make([]EventType, len(eventTypes))
	copy(out, eventTypes)
	return out
}
