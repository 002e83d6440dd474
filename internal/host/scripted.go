package host

import (
	"context"
	"sync"

	"github.com/HerbHall/netbridge/pkg/models"
)

// Compile-time interface guards.
var (
	_ Source     = (*Scripted)(nil)
	_ WifiProber = (*ScriptedProber)(nil)
)

// Scripted is an in-memory Source whose state and events are driven by the
// caller. It backs tests and the replay command.
type Scripted struct {
	mu       sync.Mutex
	current  *models.Observation
	queryErr error
	handlers map[uint64]Handler
	nextID   uint64
}

// NewScripted creates a Scripted source reporting initial.
func NewScripted(initial *models.Observation) *Scripted {
	return &Scripted{
		current:  cloneObservation(initial),
		handlers: make(map[uint64]Handler),
	}
}

// Query returns a copy of the current observation.
func (s *Scripted) Query(_ context.Context) (*models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return cloneObservation(s.current), nil
}

// Subscribe registers h for events emitted with Emit and EmitServiceState.
func (s *Scripted) Subscribe(h Handler) (func() error, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = h
	s.mu.Unlock()

	return func() error {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
		return nil
	}, nil
}

// Set replaces the current observation without emitting an event.
func (s *Scripted) Set(obs *models.Observation) {
	s.mu.Lock()
	s.current = cloneObservation(obs)
	s.mu.Unlock()
}

// SetQueryError makes subsequent Query calls fail with err. Pass nil to
// clear it.
func (s *Scripted) SetQueryError(err error) {
	s.mu.Lock()
	s.queryErr = err
	s.mu.Unlock()
}

// Emit sets the current observation and delivers a connectivity event to
// every subscriber.
func (s *Scripted) Emit(obs *models.Observation, noConnectivity bool) {
	s.Set(obs)
	s.deliver(Event{
		Kind:           EventConnectivity,
		Observation:    cloneObservation(obs),
		NoConnectivity: noConnectivity,
	})
}

// EmitServiceState delivers a telephony service-state event.
func (s *Scripted) EmitServiceState(state string) {
	s.deliver(Event{Kind: EventServiceState, ServiceState: state})
}

// Subscribers returns the number of registered handlers.
func (s *Scripted) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

func (s *Scripted) deliver(ev Event) {
	s.mu.Lock()
	hs := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		hs = append(hs, h)
	}
	s.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

func cloneObservation(obs *models.Observation) *models.Observation {
	if obs == nil {
		return nil
	}
	c := *obs
	if obs.Wifi != nil {
		w := *obs.Wifi
		c.Wifi = &w
	}
	if obs.ScanResults != nil {
		c.ScanResults = append([]models.AccessPoint(nil), obs.ScanResults...)
	}
	return &c
}

// ScriptedProber is a WifiProber with fixed answers.
type ScriptedProber struct {
	mu        sync.Mutex
	enabled   bool
	permitted bool
	link      *models.WifiDetails
	scan      []models.AccessPoint
	linkErr   error
	scanErr   error
}

// NewScriptedProber creates an enabled, permitted prober with no link and an
// empty scan.
func NewScriptedProber() *ScriptedProber {
	return &ScriptedProber{enabled: true, permitted: true}
}

// SetState sets the radio and permission state.
func (p *ScriptedProber) SetState(enabled, permitted bool) {
	p.mu.Lock()
	p.enabled, p.permitted = enabled, permitted
	p.mu.Unlock()
}

// SetLink sets the LinkInfo answer.
func (p *ScriptedProber) SetLink(link *models.WifiDetails, err error) {
	p.mu.Lock()
	p.link, p.linkErr = link, err
	p.mu.Unlock()
}

// SetScan sets the Scan answer.
func (p *ScriptedProber) SetScan(aps []models.AccessPoint, err error) {
	p.mu.Lock()
	p.scan, p.scanErr = aps, err
	p.mu.Unlock()
}

func (p *ScriptedProber) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *ScriptedProber) PermissionGranted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.permitted
}

func (p *ScriptedProber) LinkInfo(_ context.Context) (*models.WifiDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.linkErr != nil {
		return nil, p.linkErr
	}
	if p.link == nil {
		return nil, nil
	}
	w := *p.link
	return &w, nil
}

func (p *ScriptedProber) Scan(_ context.Context) ([]models.AccessPoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scanErr != nil {
		return nil, p.scanErr
	}
	return append([]models.AccessPoint(nil), p.scan...), nil
}
