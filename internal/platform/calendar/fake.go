package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Oracle for development and tests. Busy intervals
// can be scripted per calendar, and individual operations can be made to
// fail to exercise compensation paths.
type Fake struct {
	mu     sync.Mutex
	busy   map[string][]Interval
	events map[string]Event
	nextID int

	FailFreeBusy    error
	FailCreateEvent error
	FailUpdateEvent error
	FailDeleteEvent error
}

func NewFake() *Fake {
	return &Fake{
		busy:   make(map[string][]Interval),
		events: make(map[string]Event),
	}
}

// AddBusy marks [start, end) busy on the calendar.
func (f *Fake) AddBusy(calendarID string, start, end time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy[calendarID] = append(f.busy[calendarID], Interval{Start: start, End: end})
}

func (f *Fake) FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailFreeBusy != nil {
		return nil, f.FailFreeBusy
	}

	var busy []Interval
	for _, iv := range f.busy[calendarID] {
		if start.Before(iv.End) && iv.Start.Before(end) {
			busy = append(busy, iv)
		}
	}
	for _, ev := range f.events {
		if ev.CalendarID == calendarID && start.Before(ev.End) && ev.Start.Before(end) {
			busy = append(busy, Interval{Start: ev.Start, End: ev.End})
		}
	}
	return busy, nil
}

func (f *Fake) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreateEvent != nil {
		return Event{}, f.FailCreateEvent
	}

	f.nextID++
	ev.ID = fmt.Sprintf("fake-event-%d", f.nextID)
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *Fake) UpdateEvent(ctx context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailUpdateEvent != nil {
		return f.FailUpdateEvent
	}

	if _, ok := f.events[ev.ID]; !ok {
		return ErrEventNotFound
	}
	f.events[ev.ID] = ev
	return nil
}

func (f *Fake) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailDeleteEvent != nil {
		return f.FailDeleteEvent
	}

	if _, ok := f.events[eventID]; !ok {
		return ErrEventNotFound
	}
	delete(f.events, eventID)
	return nil
}

// Events returns a snapshot of mirrored events, for assertions.
func (f *Fake) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Event, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev)
	}
	return out
}
