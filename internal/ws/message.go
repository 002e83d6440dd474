package ws

import (
	"time"

	"github.com/HerbHall/netbridge/internal/netinfo"
)

// MessageType discriminates WebSocket messages. Values are the event names
// web content listens for.
type MessageType string

const (
	MessageConnection  MessageType = netinfo.EventNameConnection
	MessageNetworkInfo MessageType = netinfo.EventNameNetworkInfo
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	// KeepCallback tells web content that further messages of this type
	// will follow on the same callback.
	KeepCallback bool `json:"keep_callback"`
	Data         any  `json:"data"`
}
