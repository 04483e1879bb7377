package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilias-t/griblet/pkg/logger"
)

func TestServer_BroadcastDelivers(t *testing.T) {
	s := NewServer(logger.NewNop())
	go s.Run()

	client := &Client{send: make(chan *Message, 32), server: s}
	s.register <- client

	s.Broadcast(MessageTypeRecordDeleted, map[string]any{"id": "rec-1"})

	select {
	case msg := <-client.send:
		assert.Equal(t, MessageTypeRecordDeleted, msg.Type)
		assert.Equal(t, "rec-1", msg.Data["id"])
	case <-time.After(time.Second):
		t.Fatal("broadcast message never arrived")
	}
}

func TestServer_DropsSlowClientWithoutBlocking(t *testing.T) {
	s := NewServer(logger.NewNop())
	go s.Run()

	// A client that never drains its send channel.
	slow := &Client{send: make(chan *Message, 32), server: s}
	s.register <- slow

	// Far more events than the client's send buffer and the broadcast
	// buffer combined can hold. Broadcast must not block behind the
	// slow client.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Broadcast(MessageTypeParseStarted, map[string]any{"seq": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked behind a slow client")
	}

	// The slow client was dropped and its channel closed.
	require.Eventually(t, func() bool {
		slow.mu.Lock()
		defer slow.mu.Unlock()
		return slow.closed
	}, time.Second, 10*time.Millisecond)

	// A client registered afterwards still receives events. Drain past any
	// backlogged events still in flight from the burst above.
	fresh := &Client{send: make(chan *Message, 32), server: s}
	s.register <- fresh
	s.Broadcast(MessageTypeParseCompleted, map[string]any{"id": "rec-2"})

	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-fresh.send:
			if msg.Type == MessageTypeParseCompleted {
				return
			}
		case <-deadline:
			t.Fatal("broadcast stopped working after dropping a slow client")
		}
	}
}
