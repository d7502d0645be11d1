package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/relay/pkg/envelope"
)

// startVendorFeed runs a WebSocket server that writes the given raw
// events to every connection, then keeps it open.
func startVendorFeed(t *testing.T, events []string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, ev := range events {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(ev)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func receiveMessage(t *testing.T, a *ChatAdapter) *envelope.Message {
	t.Helper()
	select {
	case msg := <-a.Messages():
		require.NotNil(t, msg)
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for normalized message")
		return nil
	}
}

func TestChatAdapterNormalizesVendorEvents(t *testing.T) {
	url := startVendorFeed(t, []string{
		`{"id":"v-1","conversationId":"conv-9","from":"user-1","to":"biz","text":"oi","timestampMs":1767225600000}`,
	})

	a := NewChatAdapter(url, "chat-app")
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { a.Close() })

	msg := receiveMessage(t, a)
	assert.Equal(t, "v-1", msg.ID)
	assert.Equal(t, "chat-app", msg.Channel)
	assert.Equal(t, envelope.DirectionIn, msg.Direction)
	assert.Equal(t, "conv-9", msg.ConversationID)
	assert.Equal(t, "user-1", msg.From)
	assert.Equal(t, "oi", msg.Text)
	assert.Equal(t, int64(1767225600000), msg.Timestamp.UnixMilli())
	assert.NoError(t, msg.Validate())
}

func TestChatAdapterAssignsFallbackID(t *testing.T) {
	// Vendors that omit ids still yield deduplicable messages.
	url := startVendorFeed(t, []string{
		`{"from":"user-1","to":"biz","text":"sem id"}`,
	})

	a := NewChatAdapter(url, "chat-app")
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { a.Close() })

	msg := receiveMessage(t, a)
	assert.NotEmpty(t, msg.ID)
	// Missing conversation falls back to the sender.
	assert.Equal(t, "user-1", msg.ConversationID)
}

func TestChatAdapterSkipsMalformedEvents(t *testing.T) {
	url := startVendorFeed(t, []string{
		`{broken`,
		`{"id":"v-2","from":"user-1","to":"biz","text":"depois do lixo"}`,
	})

	a := NewChatAdapter(url, "chat-app")
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { a.Close() })

	// The malformed event was skipped; the next one arrives.
	msg := receiveMessage(t, a)
	assert.Equal(t, "v-2", msg.ID)
}

func TestChatAdapterConnectFailure(t *testing.T) {
	a := NewChatAdapter("ws://127.0.0.1:1/feed", "chat-app")
	err := a.Connect(context.Background())
	require.Error(t, err)

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Equal(t, "chat-app", connErr.Channel)
}

func TestChatAdapterClosesChannelOnDisconnect(t *testing.T) {
	url := startVendorFeed(t, []string{
		`{"id":"v-1","from":"u","to":"b","text":"tchau"}`,
	})

	a := NewChatAdapter(url, "chat-app")
	require.NoError(t, a.Connect(context.Background()))

	receiveMessage(t, a)
	require.NoError(t, a.Close())

	select {
	case _, ok := <-a.Messages():
		assert.False(t, ok, "channel should be closed after disconnect")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after disconnect")
	}
}
