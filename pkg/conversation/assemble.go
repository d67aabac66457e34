package conversation

import (
	"github.com/go-go-golems/chatmemory/pkg/turns"
)

// Assemble converts stored turns into the message sequence sent to the model.
//
// User turns become user messages and bot turns become assistant messages.
// Content is copied verbatim and input order is preserved. Turns with any other
// role, and nil entries, are dropped without error. Assemble does not truncate:
// the window is bounded by the limit used when fetching the turns.
func Assemble(ts []*turns.Turn) Conversation {
	ret := make(Conversation, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			continue
		}
		switch t.Role {
		case turns.RoleUser:
			ret = append(ret, NewChatMessage(RoleUser, t.Content))
		case turns.RoleBot:
			ret = append(ret, NewChatMessage(RoleAssistant, t.Content))
		}
	}
	return ret
}
