//go:build linux

package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/mdlayher/wifi"
	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

type linuxWifiProber struct {
	logger *zap.Logger
}

// NewWifiProber returns a Linux WifiProber backed by nl80211.
func NewWifiProber(logger *zap.Logger) WifiProber {
	return &linuxWifiProber{logger: logger}
}

// Enabled returns true if a station-mode Wi-Fi interface exists.
func (p *linuxWifiProber) Enabled() bool {
	c, ifi, err := p.station()
	if err != nil {
		p.logger.Debug("wifi station unavailable", zap.Error(err))
		return false
	}
	defer c.Close()
	return ifi != nil
}

// PermissionGranted returns false when nl80211 rejects a BSS query with a
// permission error.
func (p *linuxWifiProber) PermissionGranted() bool {
	c, ifi, err := p.station()
	if err != nil {
		return !isPermissionError(err)
	}
	defer c.Close()
	if ifi == nil {
		return true
	}
	_, err = c.AccessPoints(ifi)
	return !isPermissionError(err)
}

// LinkInfo returns details of the associated BSS, or nil when the station
// is not associated.
func (p *linuxWifiProber) LinkInfo(_ context.Context) (*models.WifiDetails, error) {
	c, ifi, err := p.station()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if ifi == nil {
		return nil, nil
	}

	bss, err := c.BSS(ifi)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bss: %w", err)
	}

	details := &models.WifiDetails{
		SSID:      bss.SSID,
		Frequency: bss.Frequency,
		RSSI:      int(bss.Signal / 100), // mBm to dBm
	}
	if bss.BSSID != nil {
		details.BSSID = bss.BSSID.String()
	}
	if ifi.HardwareAddr != nil {
		details.MACAddress = ifi.HardwareAddr.String()
	}

	stations, err := c.StationInfo(ifi)
	if err != nil {
		p.logger.Debug("station info unavailable", zap.String("interface", ifi.Name), zap.Error(err))
	}
	for _, sta := range stations {
		if sta.Signal != 0 {
			details.RSSI = sta.Signal
		}
		details.LinkSpeed = sta.TransmitBitrate / 1_000_000
		break
	}

	details.IPAddress = interfaceIPv4(ifi.Name)
	return details, nil
}

// Scan triggers an active scan and returns the BSS list. An active scan the
// kernel refuses falls back to cached results.
func (p *linuxWifiProber) Scan(ctx context.Context) ([]models.AccessPoint, error) {
	c, ifi, err := p.station()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if ifi == nil {
		return nil, nil
	}

	if scanErr := c.Scan(ctx, ifi); scanErr != nil {
		if isPermissionError(scanErr) {
			p.logger.Debug("wifi active scan requires elevated privileges, using cached results")
		} else if !errors.Is(scanErr, wifi.ErrScanAborted) {
			p.logger.Debug("wifi active scan failed, using cached results", zap.Error(scanErr))
		}
	}

	bssList, err := c.AccessPoints(ifi)
	if err != nil {
		return nil, fmt.Errorf("get access points: %w", err)
	}

	aps := make([]models.AccessPoint, 0, len(bssList))
	for _, bss := range bssList {
		if bss.BSSID == nil {
			continue
		}
		aps = append(aps, models.AccessPoint{
			SSID:         bss.SSID,
			BSSID:        bss.BSSID.String(),
			Capabilities: rsnCapabilities(bss.RSN),
			Level:        int(bss.Signal / 100),
			Frequency:    bss.Frequency,
		})
	}
	return aps, nil
}

// station opens an nl80211 client and finds the first station-mode
// interface. The caller closes the client when err is nil.
func (p *linuxWifiProber) station() (*wifi.Client, *wifi.Interface, error) {
	c, err := wifi.New()
	if err != nil {
		return nil, nil, fmt.Errorf("open wifi client: %w", err)
	}
	ifaces, err := c.Interfaces()
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("enumerate wifi interfaces: %w", err)
	}
	for _, ifi := range ifaces {
		if ifi.Type == wifi.InterfaceTypeStation {
			return c, ifi, nil
		}
	}
	return c, nil, nil
}

// rsnCapabilities renders RSN information as a bracketed capability string,
// e.g. "[WPA2-PSK-CCMP][ESS]".
func rsnCapabilities(rsn wifi.RSNInfo) string {
	if !rsn.IsInitialized() {
		return "[ESS]"
	}

	var akm string
	for _, a := range rsn.AKMs {
		switch a {
		case wifi.RSNAkmSAE, wifi.RSNAkmFTSAE:
			akm = "WPA3-SAE"
		case wifi.RSNAkmPSK, wifi.RSNAkmFTPSK:
			if akm == "" {
				akm = "WPA2-PSK"
			}
		case wifi.RSNAkm8021X, wifi.RSNAkmFT8021X:
			if akm == "" {
				akm = "WPA2-EAP"
			}
		}
	}
	if akm == "" {
		akm = "RSN"
	}

	var cipher string
	for _, c := range rsn.PairwiseCiphers {
		switch c {
		case wifi.RSNCipherCCMP128, wifi.RSNCipherCCMP256:
			cipher = "CCMP"
		case wifi.RSNCipherGCMP128, wifi.RSNCipherGCMP256:
			cipher = "GCMP"
		case wifi.RSNCipherTKIP:
			if cipher == "" {
				cipher = "TKIP"
			}
		}
	}

	var b strings.Builder
	b.WriteString("[" + akm)
	if cipher != "" {
		b.WriteString("-" + cipher)
	}
	b.WriteString("][ESS]")
	return b.String()
}

// interfaceIPv4 returns the first IPv4 address of the named link, or "".
func interfaceIPv4(name string) string {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return ""
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0].IP.String()
}

// isPermissionError checks whether err carries EPERM or EACCES.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) || errors.Is(err, os.ErrPermission)
}
