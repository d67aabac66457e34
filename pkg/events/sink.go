package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventSink is a destination for turn events.
type EventSink interface {
	PublishEvent(event *TurnEvent) error
}

// NullSink discards all events.
type NullSink struct{}

func NewNullSink() *NullSink {
	return &NullSink{}
}

func (n *NullSink) PublishEvent(event *TurnEvent) error {
	return nil
}

var _ EventSink = (*NullSink)(nil)

// WatermillSink publishes events as JSON messages to a watermill Publisher.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
	}
}

func (w *WatermillSink) PublishEvent(event *TurnEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "could not marshal turn event")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session_id", event.SessionID)

	if err := w.publisher.Publish(w.topic, msg); err != nil {
		log.Error().Err(err).Str("topic", w.topic).Msg("failed to publish event to watermill")
		return errors.Wrapf(err, "could not publish to topic %s", w.topic)
	}

	log.Trace().Str("topic", w.topic).Str("event_type", string(event.Type)).Msg("published event")
	return nil
}

var _ EventSink = (*WatermillSink)(nil)
