package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-go-golems/chatmemory/pkg/conversation"
	"github.com/go-go-golems/chatmemory/pkg/events"
	"github.com/go-go-golems/chatmemory/pkg/history"
	"github.com/go-go-golems/chatmemory/pkg/inference"
	"github.com/go-go-golems/chatmemory/pkg/session"
	"github.com/go-go-golems/chatmemory/pkg/turns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type State string

const (
	StateAwaitingInput State = "AWAITING_INPUT"
	StatePersistUser   State = "PERSIST_USER"
	StateBuildContext  State = "BUILD_CONTEXT"
	StateInfer         State = "INFER"
	StatePersistBot    State = "PERSIST_BOT"
	StateDisplay       State = "DISPLAY"
	StateTerminated    State = "TERMINATED"
)

const (
	UserPrompt      = "You: "
	BotPrefix       = "Bot: "
	GoodbyeMessage  = "👋 Goodbye!"
	NewSessionLine  = "-- Welcome! Starting a new session."
	ResumedLine     = "-- Welcome back! Resuming previous session."
	ExitInstruction = "Type 'exit' to quit."
)

// TurnStore is the part of the history store the loop needs.
type TurnStore interface {
	history.TurnWriter
	history.TurnReader
}

// Controller runs the read, persist, infer, persist, display loop for a
// single session.
type Controller struct {
	store     TurnStore
	engine    inference.Engine
	terminal  Terminal
	sessionID string
	model     string
	window    int
	now       func() time.Time
	sink      events.EventSink
	format    func(string) string
	state     State
}

type ControllerOption func(*Controller)

// WithHistoryWindow caps the number of turns sent to the model.
func WithHistoryWindow(n int) ControllerOption {
	return func(c *Controller) {
		c.window = n
	}
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.now = now
	}
}

func WithEventSink(sink events.EventSink) ControllerOption {
	return func(c *Controller) {
		c.sink = sink
	}
}

// WithReplyFormatter transforms a reply before it is displayed. The stored
// turn keeps the raw reply.
func WithReplyFormatter(f func(string) string) ControllerOption {
	return func(c *Controller) {
		c.format = f
	}
}

// WithModel overrides the model name recorded on bot turns, which defaults
// to the engine's.
func WithModel(model string) ControllerOption {
	return func(c *Controller) {
		c.model = model
	}
}

func NewController(
	store TurnStore,
	engine inference.Engine,
	terminal Terminal,
	sessionID string,
	options ...ControllerOption,
) (*Controller, error) {
	if store == nil {
		return nil, errors.New("no history store")
	}
	if engine == nil {
		return nil, errors.New("no inference engine")
	}
	if terminal == nil {
		return nil, errors.New("no terminal")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("no session id")
	}

	ret := &Controller{
		store:     store,
		engine:    engine,
		terminal:  terminal,
		sessionID: sessionID,
		model:     engine.Model(),
		window:    history.DefaultHistoryWindow,
		now:       time.Now,
		sink:      events.NewNullSink(),
		state:     StateAwaitingInput,
	}
	for _, o := range options {
		o(ret)
	}
	if ret.window <= 0 {
		return nil, errors.Errorf("history window must be positive, got %d", ret.window)
	}

	return ret, nil
}

func (c *Controller) SessionID() string {
	return c.sessionID
}

func (c *Controller) State() State {
	return c.state
}

// Greeting prints the session banner for r.
func (c *Controller) Greeting(r session.Resolution) {
	if r.Resumed {
		c.terminal.Println(ResumedLine)
	} else {
		c.terminal.Println(NewSessionLine)
	}
	c.terminal.Println(fmt.Sprintf("-- Session ID: %s", r.SessionID))
	c.terminal.Println(ExitInstruction)
}

// IsExitCommand reports whether input ends the session. Surrounding whitespace
// and case are ignored, so " Quit\t" exits too.
func IsExitCommand(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	return s == "exit" || s == "quit"
}

// Run loops until the user exits, input ends, or a step fails.
func (c *Controller) Run(ctx context.Context) error {
	for {
		state, err := c.Step(ctx)
		if err != nil {
			return err
		}
		if state == StateTerminated {
			return nil
		}
	}
}

// Step reads one line of input and, unless it ends the session, runs it
// through a full exchange with the model. It returns the state the loop is
// in afterwards, either StateAwaitingInput or StateTerminated.
func (c *Controller) Step(ctx context.Context) (State, error) {
	if c.state == StateTerminated {
		return c.state, nil
	}
	c.setState(StateAwaitingInput)

	input, err := c.terminal.Prompt(UserPrompt)
	if err != nil {
		if err == io.EOF {
			// keep the goodbye on its own line
			c.terminal.Println()
			c.terminate()
			return c.state, nil
		}
		return c.state, errors.Wrap(err, "could not read user input")
	}

	if IsExitCommand(input) {
		c.terminate()
		return c.state, nil
	}

	c.setState(StatePersistUser)
	userTurn := turns.NewUserTurn(c.sessionID, input, c.now())
	if err := c.store.Append(ctx, userTurn); err != nil {
		return c.state, errors.Wrap(err, "could not store user turn")
	}
	c.publish(events.NewTurnRecordedEvent(userTurn))

	c.setState(StateBuildContext)
	recent, err := c.store.FetchRecent(ctx, c.sessionID, c.window)
	if err != nil {
		return c.state, errors.Wrap(err, "could not load conversation history")
	}
	messages := conversation.Assemble(recent)
	log.Debug().
		Str("session_id", c.sessionID).
		Int("count", len(recent)).
		Int("messages", len(messages)).
		Msg("assembled context")

	c.setState(StateInfer)
	c.publish(events.NewInferenceStartEvent(c.sessionID, c.model, len(messages), c.now().UTC()))
	reply, err := c.engine.RunInference(ctx, messages)
	if err != nil {
		return c.state, errors.Wrap(err, "inference failed")
	}
	c.publish(events.NewInferenceFinalEvent(c.sessionID, c.model, reply, c.now().UTC()))

	c.setState(StatePersistBot)
	botTurn := turns.NewBotTurn(c.sessionID, reply, c.model, c.now())
	if err := c.store.Append(ctx, botTurn); err != nil {
		return c.state, errors.Wrap(err, "could not store bot turn")
	}
	c.publish(events.NewTurnRecordedEvent(botTurn))

	c.setState(StateDisplay)
	display := reply
	if c.format != nil {
		display = c.format(reply)
	}
	c.terminal.Println(BotPrefix + display)

	c.setState(StateAwaitingInput)
	return c.state, nil
}

func (c *Controller) terminate() {
	c.terminal.Println(GoodbyeMessage)
	c.setState(StateTerminated)
	c.publish(events.NewSessionEndEvent(c.sessionID, c.now().UTC()))
}

func (c *Controller) setState(s State) {
	log.Trace().Str("session_id", c.sessionID).Str("from", string(c.state)).Str("to", string(s)).Msg("state transition")
	c.state = s
}

func (c *Controller) publish(ev *events.TurnEvent) {
	if err := c.sink.PublishEvent(ev); err != nil {
		log.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("could not publish event")
	}
}
