// Package host defines the capabilities netbridge needs from the machine it
// runs on: a connectivity Source that can be queried and that delivers change
// events, and a WifiProber for link details and access-point scans.
package host

import (
	"context"
	"errors"

	"github.com/HerbHall/netbridge/pkg/models"
)

// ErrNoSubscription is returned by Subscribe on sources that cannot deliver
// change events. Callers fall back to polling.
var ErrNoSubscription = errors.New("host: source does not deliver change events")

// EventKind identifies what changed on the host.
type EventKind string

const (
	EventConnectivity EventKind = "connectivity"
	EventServiceState EventKind = "service_state"
)

// Event is delivered to subscribers when host network state changes.
type Event struct {
	Kind EventKind

	// Observation is the connectivity reading at the time of the event. Nil
	// when the host has no active network.
	Observation *models.Observation

	// ServiceState is the raw telephony service-state text for
	// EventServiceState events.
	ServiceState string

	// NoConnectivity is set when the host explicitly signalled that no
	// network is reachable.
	NoConnectivity bool
}

// Handler receives host events. Handlers may be called from any goroutine.
type Handler func(ev Event)

// Source produces connectivity observations.
type Source interface {
	// Query returns the current observation, or nil when there is no active
	// network.
	Query(ctx context.Context) (*models.Observation, error)

	// Subscribe registers h for change events. The returned function removes
	// the subscription.
	Subscribe(h Handler) (unsubscribe func() error, err error)
}

// WifiProber reads Wi-Fi link details and scan results.
type WifiProber interface {
	// Enabled reports whether a Wi-Fi radio is present and powered.
	Enabled() bool

	// PermissionGranted reports whether the process may read network
	// details such as SSID and scan results.
	PermissionGranted() bool

	LinkInfo(ctx context.Context) (*models.WifiDetails, error)
	Scan(ctx context.Context) ([]models.AccessPoint, error)
}
