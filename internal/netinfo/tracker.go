package netinfo

import (
	"sync"

	"github.com/HerbHall/netbridge/pkg/models"
)

// Tracker holds the last reported connection type and decides whether a new
// observation produces a report.
//
// Once a connected type is established it is reused for later observations
// unless the caller forces a refresh or the last type is unknown. This means a
// handover between radio generations on the same medium is only picked up on
// a forced refresh.
type Tracker struct {
	mu   sync.Mutex
	last models.NetworkClass
	nr   *NRFlag
}

// NewTracker creates a Tracker whose last type is unknown. nr may be nil,
// in which case NR availability is never assumed.
func NewTracker(nr *NRFlag) *Tracker {
	if nr == nil {
		nr = &NRFlag{}
	}
	return &Tracker{
		last: models.ConnectionUnknown,
		nr:   nr,
	}
}

// Update computes the type for obs and returns it with true when it differs
// from the last reported type. Unchanged types return ("", false) and leave
// the state untouched.
func (t *Tracker) Update(obs *models.Observation, forceRefresh bool) (models.NetworkClass, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	candidate := t.candidate(obs, forceRefresh)
	if candidate == t.last {
		return "", false
	}
	t.last = candidate
	return candidate, true
}

// Candidate returns the type Update would compute for obs without changing
// the tracked state.
func (t *Tracker) Candidate(obs *models.Observation, forceRefresh bool) models.NetworkClass {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.candidate(obs, forceRefresh)
}

// Last returns the most recently reported type.
func (t *Tracker) Last() models.NetworkClass {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// NR returns the flag consulted by the tracker.
func (t *Tracker) NR() *NRFlag {
	return t.nr
}

// candidate must be called with t.mu held.
func (t *Tracker) candidate(obs *models.Observation, forceRefresh bool) models.NetworkClass {
	if obs == nil || !obs.Connected {
		return models.ConnectionNone
	}
	if t.last == models.ConnectionUnknown || forceRefresh {
		return Classify(obs, t.nr.Available())
	}
	return t.last
}
