package turns

import (
	"time"
)

// Role identifies who produced a Turn. Only user and bot are written by the
// chat loop, but stores may hold other values written by other tools.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

func (r Role) String() string {
	return string(r)
}

// IsKnown reports whether the role is one the context assembler understands.
func (r Role) IsKnown() bool {
	return r == RoleUser || r == RoleBot
}

// Turn is one immutable, role-tagged message of a session.
//
// The bson/json/yaml field names are the store wire contract. Model is nil for
// user turns and carries the generating model name for bot turns.
type Turn struct {
	SessionID string    `bson:"session_id" json:"session_id" yaml:"session_id"`
	Role      Role      `bson:"role" json:"role" yaml:"role"`
	Content   string    `bson:"content" json:"content" yaml:"content"`
	Model     *string   `bson:"model" json:"model" yaml:"model"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp" yaml:"timestamp"`
}

// NewUserTurn creates a user turn stamped with now (converted to UTC).
func NewUserTurn(sessionID string, content string, now time.Time) *Turn {
	return &Turn{
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   content,
		Timestamp: now.UTC(),
	}
}

// NewBotTurn creates a bot turn recording the model that generated it.
func NewBotTurn(sessionID string, content string, model string, now time.Time) *Turn {
	return &Turn{
		SessionID: sessionID,
		Role:      RoleBot,
		Content:   content,
		Model:     &model,
		Timestamp: now.UTC(),
	}
}

// ModelName returns the generating model, or "" for user turns.
func (t *Turn) ModelName() string {
	if t == nil || t.Model == nil {
		return ""
	}
	return *t.Model
}

// Clone returns a deep copy of the Turn, including the Model pointer.
func (t *Turn) Clone() *Turn {
	if t == nil {
		return nil
	}
	out := *t
	if t.Model != nil {
		m := *t.Model
		out.Model = &m
	}
	return &out
}
