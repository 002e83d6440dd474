package netinfo

import (
	"slices"
	"sync"

	"github.com/HerbHall/netbridge/pkg/models"
)

// BuildSnapshot classifies obs and copies its Wi-Fi details and scan list,
// annotating each with signal level and channel/band.
func BuildSnapshot(obs *models.Observation, nrAvailable bool) models.NetworkSnapshot {
	snap := models.NetworkSnapshot{Type: Classify(obs, nrAvailable)}
	if obs == nil {
		return snap
	}

	if obs.Wifi != nil {
		w := *obs.Wifi
		w.SignalLevel = SignalLevel(w.RSSI, DefaultSignalLevels)
		ch := ChannelFor(float64(w.Frequency))
		w.Channel, w.Band = ch.Channel, ch.Band
		snap.Wifi = &w
	}

	if len(obs.ScanResults) > 0 {
		snap.ScanResults = make([]models.AccessPoint, len(obs.ScanResults))
		for i, ap := range obs.ScanResults {
			ap.SignalLevel = SignalLevel(ap.Level, DefaultSignalLevels)
			ch := ChannelFor(float64(ap.Frequency))
			ap.Channel, ap.Band = ch.Channel, ch.Band
			snap.ScanResults[i] = ap
		}
	}
	return snap
}

// SnapshotsEqual reports whether a and b carry the same type, Wi-Fi details
// and scan list (compared in order).
func SnapshotsEqual(a, b models.NetworkSnapshot) bool {
	if a.Type != b.Type {
		return false
	}
	switch {
	case a.Wifi == nil && b.Wifi != nil, a.Wifi != nil && b.Wifi == nil:
		return false
	case a.Wifi != nil && *a.Wifi != *b.Wifi:
		return false
	}
	return slices.Equal(a.ScanResults, b.ScanResults)
}

// SnapshotTracker holds the last reported snapshot of the extended variant.
// Scan lists take part in the comparison, so a changing neighbourhood of
// access points produces a report on every observation.
type SnapshotTracker struct {
	mu   sync.Mutex
	last *models.NetworkSnapshot
	nr   *NRFlag
}

// NewSnapshotTracker creates a tracker with no previous snapshot. nr may be
// nil.
func NewSnapshotTracker(nr *NRFlag) *SnapshotTracker {
	if nr == nil {
		nr = &NRFlag{}
	}
	return &SnapshotTracker{nr: nr}
}

// Update builds the snapshot for obs and returns it with true when it
// differs from the last reported snapshot.
func (t *SnapshotTracker) Update(obs *models.Observation) (models.NetworkSnapshot, bool) {
	snap := BuildSnapshot(obs, t.nr.Available())

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last != nil && SnapshotsEqual(*t.last, snap) {
		return models.NetworkSnapshot{}, false
	}
	t.last = &snap
	return snap, true
}

// Last returns the last reported snapshot, if any.
func (t *SnapshotTracker) Last() (models.NetworkSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return models.NetworkSnapshot{}, false
	}
	return *t.last, true
}
