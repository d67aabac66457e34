package conversation

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a role-tagged chat message as consumed by an inference engine.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func NewChatMessage(role Role, content string) *Message {
	return &Message{
		Role:    role,
		Content: content,
	}
}

func (m *Message) String() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}

// Conversation is an ordered list of messages, oldest first.
type Conversation []*Message

// Roles returns the role of every message, in order.
func (c Conversation) Roles() []Role {
	ret := make([]Role, 0, len(c))
	for _, m := range c {
		ret = append(ret, m.Role)
	}
	return ret
}
