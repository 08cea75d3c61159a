package availability

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/clinsched/clinsched/internal/platform/calendar"
)

type matcherFixture struct {
	resolverFixture
	matcher *Matcher
	pool    []*Resource
}

// Three anesthesiologists in Vienna sharing the Monday 09:00-12:00
// window, in deterministic pool order.
func newMatcherFixture(t *testing.T) *matcherFixture {
	t.Helper()
	tz := viennaTZ(t)

	templates := newMockTemplateRepo()
	resources := newMockResourceRepo()
	conflicts := newMockConflicts()
	oracle := calendar.NewFake()

	var pool []*Resource
	for _, name := range []string{"Dr. Adler", "Dr. Berg", "Dr. Conrad"} {
		r := &Resource{
			ID:         uuid.New(),
			Name:       name,
			Role:       RoleAnesthesiologist,
			Location:   "vienna",
			CalendarID: "cal-" + name,
			Active:     true,
		}
		resources.resources[r.ID] = r
		pool = append(pool, r)

		templates.templates[uuid.New()] = &Template{
			ID:         uuid.New(),
			ResourceID: r.ID,
			Location:   "vienna",
			Weekday:    1,
			StartTime:  "09:00",
			EndTime:    "12:00",
			Active:     true,
		}
	}

	resolver := NewResolver(templates, resources, conflicts, oracle, tz)
	return &matcherFixture{
		resolverFixture: resolverFixture{
			templates: templates,
			resources: resources,
			conflicts: conflicts,
			oracle:    oracle,
			resolver:  resolver,
			tz:        tz,
		},
		matcher: NewMatcher(resolver),
		pool:    pool,
	}
}

func TestFindAvailable_FirstMatchWins(t *testing.T) {
	f := newMatcherFixture(t)

	got, err := f.matcher.FindAvailable(context.Background(), f.pool, "vienna", f.monday(10, 0), 60)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.ID != f.pool[0].ID {
		t.Errorf("expected first candidate %s, got %s", f.pool[0].Name, got.Name)
	}
}

func TestFindAvailable_SkipsBusyCandidate(t *testing.T) {
	f := newMatcherFixture(t)
	f.conflicts.book(f.pool[0].ID, "vienna", f.monday(9, 0), f.monday(12, 0))

	got, err := f.matcher.FindAvailable(context.Background(), f.pool, "vienna", f.monday(10, 0), 60)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if got == nil || got.ID != f.pool[1].ID {
		t.Errorf("expected second candidate, got %v", got)
	}
}

func TestFindAvailable_SkipsInactiveAndWrongLocation(t *testing.T) {
	f := newMatcherFixture(t)
	f.pool[0].Active = false
	f.pool[1].Location = "linz"

	got, err := f.matcher.FindAvailable(context.Background(), f.pool, "vienna", f.monday(10, 0), 60)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if got == nil || got.ID != f.pool[2].ID {
		t.Errorf("expected third candidate, got %v", got)
	}
}

func TestFindAvailable_NoneAvailable(t *testing.T) {
	f := newMatcherFixture(t)
	for _, r := range f.pool {
		f.conflicts.book(r.ID, "vienna", f.monday(9, 0), f.monday(12, 0))
	}

	got, err := f.matcher.FindAvailable(context.Background(), f.pool, "vienna", f.monday(10, 0), 60)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil when all candidates are busy, got %s", got.Name)
	}
}

func TestFindAvailable_EmptyPool(t *testing.T) {
	f := newMatcherFixture(t)

	got, err := f.matcher.FindAvailable(context.Background(), nil, "vienna", f.monday(10, 0), 60)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty pool, got %v", got)
	}
}

func TestFindAvailable_CalendarBusySkips(t *testing.T) {
	f := newMatcherFixture(t)
	f.oracle.AddBusy(f.pool[0].CalendarID, f.monday(9, 0), f.monday(12, 0))

	got, err := f.matcher.FindAvailable(context.Background(), f.pool, "vienna", f.monday(10, 0), 60)
	if err != nil {
		t.Fatalf("FindAvailable: %v", err)
	}
	if got == nil || got.ID != f.pool[1].ID {
		t.Errorf("expected second candidate when first is calendar-busy, got %v", got)
	}
}
