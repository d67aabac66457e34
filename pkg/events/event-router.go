package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

// EventRouter is an in-process pub/sub bus for turn events.
type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

// WithVerbose routes watermill's own logs to the global zerolog logger.
func WithVerbose(verbose bool) EventRouterOption {
	return func(r *EventRouter) {
		if verbose {
			r.logger = NewZerologLoggerAdapter(log.Logger)
		}
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
	}

	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router

	return ret, nil
}

// Sink returns an EventSink publishing to topic on this router.
func (e *EventRouter) Sink(topic string) *WatermillSink {
	return NewWatermillSink(e.Publisher, topic)
}

func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, f)
}

// LogEvents is a handler that logs every turn event at debug level.
// Malformed payloads are logged and acked.
func (e *EventRouter) LogEvents(msg *message.Message) error {
	defer msg.Ack()

	ev, err := NewEventFromJson(msg.Payload)
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed event")
		return nil
	}

	log.Debug().
		Str("event_type", string(ev.Type)).
		Str("session_id", ev.SessionID).
		Str("role", ev.Role).
		Str("model", ev.Model).
		Int("count", ev.Count).
		Int("content_length", len(ev.Content)).
		Msg("chat event")
	return nil
}

func (e *EventRouter) Close() error {
	log.Debug().Msg("closing publisher")
	if err := e.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close pubsub")
	}

	log.Debug().Msg("closing router")
	if err := e.router.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close router")
	}

	return nil
}

func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) IsRunning() bool {
	return e.router.IsRunning()
}

func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}
