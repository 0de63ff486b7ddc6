package domain

import (
	"strings"
	"time"
)

// ParticipantKey identifies one independent state slot: a sender inside a
// conversation. A group chat yields one key per member, a one-to-one thread
// yields a single key.
type ParticipantKey struct {
	ConversationID string
	ParticipantID  string
}

// NewParticipantKey builds a key, falling back to the conversation id when the
// transport does not report a separate sender.
func NewParticipantKey(conversationID, participantID string) ParticipantKey {
	conversationID = strings.TrimSpace(conversationID)
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		participantID = conversationID
	}
	return ParticipantKey{ConversationID: conversationID, ParticipantID: participantID}
}

func (k ParticipantKey) String() string {
	return k.ConversationID + ":" + k.ParticipantID
}

// ConversationState is the per-participant interaction state. The zero value
// is the idle state.
type ConversationState struct {
	AwaitingIdentifier bool
}

// Idle reports whether no free-form input is pending.
func (s ConversationState) Idle() bool {
	return !s.AwaitingIdentifier
}

// StateName is the external name of the state used in replies and logs.
func (s ConversationState) StateName() string {
	if s.AwaitingIdentifier {
		return "AWAITING_IDENTIFIER"
	}
	return "IDLE"
}

// InboundMessage is one message delivered by a chat transport.
type InboundMessage struct {
	ConversationID string
	ParticipantID  string
	Text           string
}

// Key returns the participant key the message belongs to.
func (m InboundMessage) Key() ParticipantKey {
	return NewParticipantKey(m.ConversationID, m.ParticipantID)
}

// Turn is a single completed lookup turn as written to the turn log.
type Turn struct {
	ID             string
	Timestamp      time.Time
	ParticipantKey string
	Input          string
	Result         map[string]any
	Error          string
}
