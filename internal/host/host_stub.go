//go:build !linux

package host

import (
	"context"

	"github.com/HerbHall/netbridge/pkg/models"
	"go.uber.org/zap"
)

type staticSource struct {
	logger *zap.Logger
}

// NewSystemSource returns a Source that always reports a connected network
// of unknown medium. Change events are not available on this platform.
func NewSystemSource(logger *zap.Logger) Source {
	return &staticSource{logger: logger}
}

func (s *staticSource) Query(_ context.Context) (*models.Observation, error) {
	return &models.Observation{Connected: true}, nil
}

func (s *staticSource) Subscribe(_ Handler) (func() error, error) {
	return nil, ErrNoSubscription
}

type noopWifiProber struct{}

// NewWifiProber returns a disabled WifiProber on non-Linux platforms.
func NewWifiProber(_ *zap.Logger) WifiProber {
	return noopWifiProber{}
}

func (noopWifiProber) Enabled() bool           { return false }
func (noopWifiProber) PermissionGranted() bool { return false }

func (noopWifiProber) LinkInfo(_ context.Context) (*models.WifiDetails, error) {
	return nil, nil
}

func (noopWifiProber) Scan(_ context.Context) ([]models.AccessPoint, error) {
	return nil, nil
}
