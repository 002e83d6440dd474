package netinfo

// Event topics published on the bus.
const (
	TopicConnectionChanged = "netinfo.connection.changed"
	TopicInfoChanged       = "netmanager.info.changed"
)

// Event names under which reports are delivered to web content.
const (
	EventNameConnection  = "networkconnection"
	EventNameNetworkInfo = "networkmanager"
)

// Variant labels for metrics.
const (
	VariantBasic    = "netinfo"
	VariantExtended = "netmanager"
)
