package netinfo

import (
	"strings"
	"sync/atomic"
)

// Substrings of the textual service state that signal an attached or
// available NR (5G) carrier on platforms without a dedicated API.
var nrMarkers = []string{
	"nrState=CONNECTED",
	"isNrAvailable = true",
}

// NRFlag records whether the radio last reported NR availability. The zero
// value is ready to use and reports false.
type NRFlag struct {
	available atomic.Bool
}

// Observe updates the flag from a service-state description and returns the
// new value.
func (f *NRFlag) Observe(serviceState string) bool {
	v := NRAvailable(serviceState)
	f.available.Store(v)
	return v
}

// Available reports the current value of the flag.
func (f *NRFlag) Available() bool {
	return f.available.Load()
}

// NRAvailable reports whether serviceState contains a known NR marker.
func NRAvailable(serviceState string) bool {
	for _, m := range nrMarkers {
		if strings.Contains(serviceState, m) {
			return true
		}
	}
	return false
}
