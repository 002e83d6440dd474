package models

// NetworkClass is the connection type reported to web content.
type NetworkClass string

const (
	ConnectionNone     NetworkClass = "none"
	ConnectionUnknown  NetworkClass = "unknown"
	ConnectionWifi     NetworkClass = "wifi"
	ConnectionEthernet NetworkClass = "ethernet"
	Connection2G       NetworkClass = "2g"
	Connection3G       NetworkClass = "3g"
	Connection4G       NetworkClass = "4g"
	Connection5G       NetworkClass = "5g"
)

// Observation is a raw connectivity reading produced by the host on each
// query or event. A nil *Observation means the host had no active network.
type Observation struct {
	Connected bool   `json:"connected" yaml:"connected"`
	Medium    string `json:"medium" yaml:"medium"` // "wifi", "mobile", "cellular", "ethernet", ...

	// RadioSubtypeID is the platform radio technology code. Zero means the
	// host did not report one.
	RadioSubtypeID   int    `json:"radio_subtype_id,omitempty" yaml:"radio_subtype_id"`
	RadioSubtypeName string `json:"radio_subtype_name,omitempty" yaml:"radio_subtype_name"`
	ExtraInfo        string `json:"extra_info,omitempty" yaml:"extra_info"`

	// Populated only when the Wi-Fi radio is enabled and the host is allowed
	// to read network details.
	Wifi        *WifiDetails  `json:"wifi,omitempty" yaml:"wifi"`
	ScanResults []AccessPoint `json:"scan_results,omitempty" yaml:"scan_results"`
}

// WifiDetails describes the current Wi-Fi link.
type WifiDetails struct {
	SSID        string `json:"ssid" yaml:"ssid"`
	BSSID       string `json:"bssid" yaml:"bssid"`
	IPAddress   string `json:"ip_address" yaml:"ip_address"`
	MACAddress  string `json:"mac_address" yaml:"mac_address"`
	RSSI        int    `json:"rssi" yaml:"rssi"`                 // dBm
	SignalLevel int    `json:"signal_level" yaml:"signal_level"` // 0-4
	Frequency   int    `json:"frequency" yaml:"frequency"`       // MHz
	LinkSpeed   int    `json:"link_speed" yaml:"link_speed"`     // Mbps
	Channel     int    `json:"channel" yaml:"channel"`
	Band        string `json:"band" yaml:"band"`
}

// AccessPoint is a single entry of a Wi-Fi scan.
type AccessPoint struct {
	SSID         string `json:"ssid" yaml:"ssid"`
	BSSID        string `json:"bssid" yaml:"bssid"`
	Capabilities string `json:"capabilities" yaml:"capabilities"`
	Level        int    `json:"level" yaml:"level"` // dBm
	SignalLevel  int    `json:"signal_level" yaml:"signal_level"`
	Frequency    int    `json:"frequency" yaml:"frequency"` // MHz
	Channel      int    `json:"channel" yaml:"channel"`
	Band         string `json:"band" yaml:"band"`
}

// Wi-Fi band labels used by the channel table.
const (
	Band2_4GHz  = "2.4GHz"
	Band3_65GHz = "3.65GHz"
	Band5GHz    = "5.0GHz"
)

// ChannelEntry is one row of the static channel/frequency table.
type ChannelEntry struct {
	Channel      int     `json:"channel"`
	FrequencyMHz float64 `json:"frequency_mhz"`
	Band         string  `json:"band"`
}

// ConnectionReport is the payload of a basic connection-type change.
type ConnectionReport struct {
	Type NetworkClass `json:"type"`
}

// NetworkSnapshot is the payload of an extended network info change.
type NetworkSnapshot struct {
	Type        NetworkClass  `json:"type"`
	Wifi        *WifiDetails  `json:"wifi,omitempty"`
	ScanResults []AccessPoint `json:"scan_results,omitempty"`
}
