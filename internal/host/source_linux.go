//go:build linux

package host

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/mdlayher/wifi"
	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
)

// Interface name prefixes used by cellular modems.
var mobilePrefixes = []string{"wwan", "wwp", "rmnet", "ccmni", "ppp"}

type linuxSource struct {
	logger *zap.Logger
}

// NewSystemSource returns a Linux Source backed by rtnetlink. The active
// network is the link carrying the default route.
func NewSystemSource(logger *zap.Logger) Source {
	return &linuxSource{logger: logger}
}

func (s *linuxSource) Query(_ context.Context) (*models.Observation, error) {
	link, err := defaultRouteLink()
	if err != nil {
		return nil, fmt.Errorf("resolve default route: %w", err)
	}
	if link == nil {
		return nil, nil
	}

	attrs := link.Attrs()
	return &models.Observation{
		Connected: attrs.Flags&net.FlagUp != 0 && attrs.OperState != netlink.OperDown,
		Medium:    s.medium(link),
		ExtraInfo: attrs.Name,
	}, nil
}

// Subscribe delivers a connectivity event for every rtnetlink link update.
// Unsubscribing closes the netlink socket and drains updates until the
// library closes the channel, so its receive goroutine never blocks on a
// send nobody reads.
func (s *linuxSource) Subscribe(h Handler) (func() error, error) {
	updates := make(chan netlink.LinkUpdate, 16)
	done := make(chan struct{})
	err := netlink.LinkSubscribeWithOptions(updates, done, netlink.LinkSubscribeOptions{
		ErrorCallback: func(err error) {
			select {
			case <-done:
			default:
				s.logger.Warn("link subscription error", zap.Error(err))
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to link updates: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range updates {
			select {
			case <-done:
				continue
			default:
			}
			s.logger.Debug("link update",
				zap.String("link", u.Attrs().Name),
				zap.Stringer("oper_state", u.Attrs().OperState),
			)
			obs, err := s.Query(context.Background())
			if err != nil {
				s.logger.Debug("query after link update failed", zap.Error(err))
				continue
			}
			h(Event{
				Kind:           EventConnectivity,
				Observation:    obs,
				NoConnectivity: obs == nil || !obs.Connected,
			})
		}
	}()

	var once sync.Once
	return func() error {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
		return nil
	}, nil
}

// medium maps a link to the medium names the classifier understands.
func (s *linuxSource) medium(link netlink.Link) string {
	name := link.Attrs().Name
	if wirelessInterfaces(s.logger)[name] {
		return "wifi"
	}
	for _, p := range mobilePrefixes {
		if strings.HasPrefix(name, p) {
			return "mobile"
		}
	}
	if link.Attrs().EncapType == "ether" {
		return "ethernet"
	}
	return link.Type()
}

// defaultRouteLink returns the link of the lowest-metric default route, IPv4
// first. It returns nil when there is no default route.
func defaultRouteLink() (netlink.Link, error) {
	for _, family := range []int{netlink.FAMILY_V4, netlink.FAMILY_V6} {
		routes, err := netlink.RouteList(nil, family)
		if err != nil {
			return nil, err
		}

		var best *netlink.Route
		for i := range routes {
			r := &routes[i]
			if !isDefaultRoute(r) || r.LinkIndex == 0 {
				continue
			}
			if best == nil || r.Priority < best.Priority {
				best = r
			}
		}
		if best != nil {
			return netlink.LinkByIndex(best.LinkIndex)
		}
	}
	return nil, nil
}

func isDefaultRoute(r *netlink.Route) bool {
	if r.Dst == nil {
		return true
	}
	ones, _ := r.Dst.Mask.Size()
	return ones == 0 && r.Dst.IP.IsUnspecified()
}

// wirelessInterfaces returns the names of nl80211 interfaces. Errors yield
// an empty set.
func wirelessInterfaces(logger *zap.Logger) map[string]bool {
	names := make(map[string]bool)
	c, err := wifi.New()
	if err != nil {
		logger.Debug("wifi client unavailable", zap.Error(err))
		return names
	}
	defer c.Close()

	ifaces, err := c.Interfaces()
	if err != nil {
		logger.Debug("failed to enumerate wifi interfaces", zap.Error(err))
		return names
	}
	for _, ifi := range ifaces {
		names[ifi.Name] = true
	}
	return names
}
