package availability

import (
	"context"
	"time"
)

// Matcher finds an anesthesiologist for a surgical booking. Selection is
// first-match in input order; there is deliberately no load balancing or
// preference weighting.
type Matcher struct {
	resolver *Resolver
}

func NewMatcher(resolver *Resolver) *Matcher {
	return &Matcher{resolver: resolver}
}

// FindAvailable filters the candidate pool to active resources based at
// the location and returns the first one the resolver reports free for
// [start, start+duration). A nil result means the booking cannot
// proceed, not a transient state to retry.
func (m *Matcher) FindAvailable(ctx context.Context, pool []*Resource, location string, start time.Time, durationMin int) (*Resource, error) {
	end := start.Add(time.Duration(durationMin) * time.Minute)

	for _, cand := range pool {
		if !cand.Active || cand.Location != location {
			continue
		}

		ok, _, err := m.resolver.CheckAvailability(ctx, cand.ID, location, start, end)
		if err != nil {
			return nil, err
		}
		if ok {
			return cand, nil
		}
	}

	return nil, nil
}
