package adapter

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dyluth/relay/pkg/envelope"
)

// vendorEvent is the chat vendor's inbound wire format. Fields the
// vendor omits are filled during normalization.
type vendorEvent struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	From           string `json:"from"`
	To             string `json:"to"`
	Text           string `json:"text"`
	MediaURL       string `json:"mediaUrl"`
	TimestampMs    int64  `json:"timestampMs"`
}

// ChatAdapter connects to a chat vendor's WebSocket feed and normalizes
// its events into Canonical Messages on the Messages channel.
type ChatAdapter struct {
	url         string
	channelName string

	conn     *websocket.Conn
	messages chan *envelope.Message
	once     sync.Once
}

// NewChatAdapter creates an adapter for the given vendor WebSocket URL.
// channelName is the canonical channel identifier stamped on every
// normalized message (e.g., "chat-app").
func NewChatAdapter(url, channelName string) *ChatAdapter {
	return &ChatAdapter{
		url:         url,
		channelName: channelName,
		messages:    make(chan *envelope.Message, 64),
	}
}

// Connect dials the vendor feed and starts the read loop. Returns a
// *ConnectionError if the transport is unavailable.
func (a *ChatAdapter) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return &ConnectionError{Channel: a.channelName, Err: err}
	}
	a.conn = conn

	go a.readLoop(ctx)
	return nil
}

// Messages returns the stream of normalized inbound messages. The
// channel is closed when the feed ends or Close is called.
func (a *ChatAdapter) Messages() <-chan *envelope.Message {
	return a.messages
}

// Close tears down the transport. Safe to call multiple times.
func (a *ChatAdapter) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

// readLoop reads vendor events until the connection or context ends.
// Malformed events are logged and skipped, never fatal.
func (a *ChatAdapter) readLoop(ctx context.Context) {
	defer a.once.Do(func() { close(a.messages) })

	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			log.Printf("[Adapter:%s] Feed closed: %v", a.channelName, err)
			return
		}

		var ev vendorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[Adapter:%s] Skipping malformed vendor event: %v", a.channelName, err)
			continue
		}

		msg := a.normalize(ev)
		select {
		case a.messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// normalize converts a vendor event into a Canonical Message with
// direction=in. An id is always assigned: when the vendor omits one, a
// locally generated unique id keeps downstream deduplication possible.
func (a *ChatAdapter) normalize(ev vendorEvent) *envelope.Message {
	id := ev.ID
	if id == "" {
		id = uuid.New().String()
	}

	ts := time.Now().UTC()
	if ev.TimestampMs > 0 {
		ts = time.UnixMilli(ev.TimestampMs).UTC()
	}

	conversation := ev.ConversationID
	if conversation == "" {
		conversation = ev.From
	}

	return &envelope.Message{
		ID:             id,
		Channel:        a.channelName,
		Direction:      envelope.DirectionIn,
		ConversationID: conversation,
		From:           ev.From,
		To:             ev.To,
		Timestamp:      ts,
		Text:           ev.Text,
		MediaURL:       ev.MediaURL,
	}
}
