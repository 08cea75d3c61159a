package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleOracle implements Oracle against the Google Calendar API.
type GoogleOracle struct {
	svc     *gcal.Service
	timeout time.Duration
}

// NewGoogleOracle builds an Oracle from service account credentials JSON.
func NewGoogleOracle(ctx context.Context, credentialsJSON string, timeout time.Duration) (*GoogleOracle, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON([]byte(credentialsJSON)),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &GoogleOracle{
		svc:     svc,
		timeout: timeout,
	}, nil
}

func (g *GoogleOracle) FreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}

	resp, err := g.svc.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query for %s: %w", calendarID, err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("freebusy response missing calendar %s", calendarID)
	}
	if len(cal.Errors) > 0 {
		return nil, fmt.Errorf("freebusy error for %s: %s", calendarID, cal.Errors[0].Reason)
	}

	var busy []Interval
	for _, period := range cal.Busy {
		s, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("parse busy start %q: %w", period.Start, err)
		}
		e, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("parse busy end %q: %w", period.End, err)
		}
		busy = append(busy, Interval{Start: s, End: e})
	}
	return busy, nil
}

func (g *GoogleOracle) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	created, err := g.svc.Events.Insert(ev.CalendarID, &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("insert event on %s: %w", ev.CalendarID, err)
	}

	ev.ID = created.Id
	return ev, nil
}

func (g *GoogleOracle) UpdateEvent(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	_, err := g.svc.Events.Update(ev.CalendarID, ev.ID, &gcal.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("update event %s on %s: %w", ev.ID, ev.CalendarID, err)
	}
	return nil
}

func (g *GoogleOracle) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		if isNotFound(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event %s on %s: %w", eventID, calendarID, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
