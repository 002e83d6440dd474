//go:build linux

package host

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mdlayher/wifi"
	"golang.org/x/sys/unix"
)

func TestRSNCapabilities(t *testing.T) {
	tests := []struct {
		name string
		rsn  wifi.RSNInfo
		want string
	}{
		{"open", wifi.RSNInfo{}, "[ESS]"},
		{
			"wpa2 psk ccmp",
			wifi.RSNInfo{
				Version:         1,
				AKMs:            []wifi.RSNAKM{wifi.RSNAkmPSK},
				PairwiseCiphers: []wifi.RSNCipher{wifi.RSNCipherCCMP128},
			},
			"[WPA2-PSK-CCMP][ESS]",
		},
		{
			"transition mode prefers sae",
			wifi.RSNInfo{
				Version:         1,
				AKMs:            []wifi.RSNAKM{wifi.RSNAkmPSK, wifi.RSNAkmSAE},
				PairwiseCiphers: []wifi.RSNCipher{wifi.RSNCipherCCMP128},
			},
			"[WPA3-SAE-CCMP][ESS]",
		},
		{
			"enterprise tkip",
			wifi.RSNInfo{
				Version:         1,
				AKMs:            []wifi.RSNAKM{wifi.RSNAkm8021X},
				PairwiseCiphers: []wifi.RSNCipher{wifi.RSNCipherTKIP},
			},
			"[WPA2-EAP-TKIP][ESS]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rsnCapabilities(tt.rsn); got != tt.want {
				t.Errorf("rsnCapabilities() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPermissionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"eperm", unix.EPERM, true},
		{"wrapped eacces", fmt.Errorf("get bss: %w", unix.EACCES), true},
		{"other", errors.New("no such device"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPermissionError(tt.err); got != tt.want {
				t.Errorf("isPermissionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
