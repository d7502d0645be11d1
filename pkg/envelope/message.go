package envelope

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction indicates whether a message is flowing into the pipeline from
// a channel or out of the pipeline back to a channel.
type Direction string

const (
	// DirectionIn marks a message received from an external channel.
	DirectionIn Direction = "in"

	// DirectionOut marks a message produced by the pipeline for delivery
	// back to an external channel.
	DirectionOut Direction = "out"
)

// Validate returns an error if the direction is not a known value.
func (d Direction) Validate() error {
	switch d {
	case DirectionIn, DirectionOut:
		return nil
	default:
		return fmt.Errorf("invalid direction %q (must be %q or %q)", string(d), DirectionIn, DirectionOut)
	}
}

// Message is the Canonical Message: one conversational event, normalized
// from whatever wire format the originating channel uses.
//
// From and To are identity references only (opaque ids) - the envelope
// never carries a full identity record. Text and MediaURL are not
// mutually exclusive; a message may carry both, but must carry at least
// one.
type Message struct {
	ID             string    `json:"id"`                 // Adapter-assigned unique identifier, used for deduplication downstream
	Channel        string    `json:"channel"`            // Originating surface (e.g., "chat-app", "web")
	Direction      Direction `json:"direction"`          // "in" or "out"
	ConversationID string    `json:"conversationId"`     // Correlates all messages in one logical conversation
	From           string    `json:"from"`               // Sender identity reference (id only)
	To             string    `json:"to"`                 // Recipient identity reference (id only)
	Timestamp      time.Time `json:"timestamp"`          // Creation time at the adapter
	Text           string    `json:"text,omitempty"`     // Textual payload
	MediaURL       string    `json:"mediaUrl,omitempty"` // Media payload reference
}

// Validate checks that the message carries everything the pipeline needs.
// Returns a descriptive error for the first problem found.
func (m *Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("message id cannot be empty")
	}
	if m.Channel == "" {
		return fmt.Errorf("message channel cannot be empty")
	}
	if err := m.Direction.Validate(); err != nil {
		return err
	}
	if m.ConversationID == "" {
		return fmt.Errorf("message conversationId cannot be empty")
	}
	if m.Text == "" && m.MediaURL == "" {
		return fmt.Errorf("message must carry text or mediaUrl")
	}
	return nil
}

// Encode serializes the message to its JSON wire format for the bus.
func (m *Message) Encode() ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return payload, nil
}

// Decode deserializes a bus payload into a Message and validates it.
// Returns an error for malformed JSON or an envelope that fails
// validation; callers treat both as a validation failure, not a
// transport failure.
func Decode(payload []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &m, nil
}

// DeriveReply creates the outbound reply to an inbound message. The reply
// is a new message: it gets a derived id (inbound id + ":reply") so a
// downstream consumer can deduplicate re-published replies, the direction
// flipped to out, and from/to swapped. The original message is not
// touched.
func DeriveReply(in *Message, text string) *Message {
	return &Message{
		ID:             in.ID + ":reply",
		Channel:        in.Channel,
		Direction:      DirectionOut,
		ConversationID: in.ConversationID,
		From:           in.To,
		To:             in.From,
		Timestamp:      time.Now().UTC(),
		Text:           text,
	}
}
