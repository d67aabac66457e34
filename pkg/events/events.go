package events

import (
	"encoding/json"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/pkg/errors"
)

type EventType string

const (
	// EventTypeTurnRecorded is published after a turn was appended to the history store.
	EventTypeTurnRecorded   EventType = "turn-recorded"
	EventTypeInferenceStart EventType = "inference-start"
	EventTypeInferenceFinal EventType = "inference-final"
	EventTypeSessionEnd     EventType = "session-end"
)

// TopicChat is the topic chat events are published on.
const TopicChat = "chat"

type TurnEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content,omitempty"`
	Model     string    `json:"model,omitempty"`
	// Count is the number of messages sent to the model for inference events.
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTurnRecordedEvent(t *turns.Turn) *TurnEvent {
	return &TurnEvent{
		Type:      EventTypeTurnRecorded,
		SessionID: t.SessionID,
		Role:      t.Role.String(),
		Content:   t.Content,
		Model:     t.ModelName(),
		Timestamp: t.Timestamp,
	}
}

func NewInferenceStartEvent(sessionID, model string, count int, now time.Time) *TurnEvent {
	return &TurnEvent{
		Type:      EventTypeInferenceStart,
		SessionID: sessionID,
		Model:     model,
		Count:     count,
		Timestamp: now,
	}
}

func NewInferenceFinalEvent(sessionID, model, reply string, now time.Time) *TurnEvent {
	return &TurnEvent{
		Type:      EventTypeInferenceFinal,
		SessionID: sessionID,
		Role:      turns.RoleBot.String(),
		Content:   reply,
		Model:     model,
		Timestamp: now,
	}
}

func NewSessionEndEvent(sessionID string, now time.Time) *TurnEvent {
	return &TurnEvent{
		Type:      EventTypeSessionEnd,
		SessionID: sessionID,
		Timestamp: now,
	}
}

func NewEventFromJson(b []byte) (*TurnEvent, error) {
	var e TurnEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal turn event")
	}
	if e.Type == "" {
		return nil, errors.New("turn event has no type")
	}
	return &e, nil
}
