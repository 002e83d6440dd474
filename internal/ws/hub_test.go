package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/netbridge/pkg/models"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestClient(id string, buffer int) *Client {
	return &Client{
		conn:   nil, // Not needed for hub tests
		id:     id,
		send:   make(chan Message, buffer),
		logger: testLogger(),
	}
}

func connectionMessage(class models.NetworkClass) Message {
	return Message{
		Type:         MessageConnection,
		Timestamp:    time.Now(),
		KeepCallback: true,
		Data:         class,
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("c1", 8)

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("client.send channel is not closed")
	}

	// A second unregister must not panic on the closed channel.
	hub.Unregister(client)
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(testLogger())
	clients := []*Client{newTestClient("c1", 8), newTestClient("c2", 8)}
	for _, c := range clients {
		hub.Register(c)
	}

	hub.Broadcast(connectionMessage(models.ConnectionWifi))

	for _, c := range clients {
		select {
		case msg := <-c.send:
			if msg.Data != models.ConnectionWifi {
				t.Errorf("client %s got %v, want wifi", c.id, msg.Data)
			}
		default:
			t.Errorf("client %s received nothing", c.id)
		}
	}
}

func TestRegisterReplaysLastMessages(t *testing.T) {
	hub := NewHub(testLogger())

	hub.Broadcast(connectionMessage(models.ConnectionNone))
	hub.Broadcast(connectionMessage(models.Connection4G))
	hub.Broadcast(Message{Type: MessageNetworkInfo, Data: "snapshot"})

	late := newTestClient("late", 8)
	hub.Register(late)

	var got []Message
	for len(late.send) > 0 {
		got = append(got, <-late.send)
	}
	if len(got) != 2 {
		t.Fatalf("replayed %d messages, want 2", len(got))
	}
	if got[0].Type != MessageConnection || got[0].Data != models.Connection4G {
		t.Errorf("first replay = %+v, want latest connection message", got[0])
	}
	if got[1].Type != MessageNetworkInfo {
		t.Errorf("second replay type = %q, want %q", got[1].Type, MessageNetworkInfo)
	}
}

func TestRegisterWithEmptyCache(t *testing.T) {
	hub := NewHub(testLogger())
	c := newTestClient("c1", 8)
	hub.Register(c)
	if len(c.send) != 0 {
		t.Errorf("queued %d messages for empty cache", len(c.send))
	}
	if _, ok := hub.Last(MessageConnection); ok {
		t.Error("Last() should be empty")
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	slow := newTestClient("slow", 1)
	hub.Register(slow)

	hub.Broadcast(connectionMessage(models.ConnectionWifi))
	hub.Broadcast(connectionMessage(models.ConnectionNone)) // dropped for slow

	if len(slow.send) != 1 {
		t.Fatalf("len(send) = %d, want 1", len(slow.send))
	}
	// The cache still holds the newest message.
	msg, ok := hub.Last(MessageConnection)
	if !ok || msg.Data != models.ConnectionNone {
		t.Errorf("Last() = %+v, want none", msg)
	}
}

func TestConcurrentRegisterUnregisterBroadcast(t *testing.T) {
	hub := NewHub(testLogger())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := newTestClient("c", 16)
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast(connectionMessage(models.ConnectionWifi))
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}
