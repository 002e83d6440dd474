package netinfo

// RSSI bounds of the platform signal level formula, in dBm.
const (
	minRSSI = -100
	maxRSSI = -55
)

// DefaultSignalLevels is the number of signal bars reported to web content.
const DefaultSignalLevels = 5

// SignalLevel converts an RSSI in dBm to a level in [0, levels-1].
func SignalLevel(rssi, levels int) int {
	if levels <= 1 {
		return 0
	}
	switch {
	case rssi <= minRSSI:
		return 0
	case rssi >= maxRSSI:
		return levels - 1
	}
	return (rssi - minRSSI) * (levels - 1) / (maxRSSI - minRSSI)
}
