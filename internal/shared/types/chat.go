package types

import (
	"time"

	"github.com/droidsweep/backend/internal/shared/id"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one the engine understands
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents one chat message.
//
// ID is assigned at creation and never changes. Content is mutable only
// while Streaming is true, and only by the stream that created the message.
// Streaming transitions true to false exactly once.
type Message struct {
	ID        id.MessageID `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Streaming bool         `json:"streaming"`
	CreatedAt time.Time    `json:"created_at"`
}

// Snapshot is the persisted at-rest form of a session
type Snapshot struct {
	SessionID id.SessionID `json:"session_id"`
	Messages  []Message    `json:"messages"`
	SavedAt   time.Time    `json:"saved_at"`
}

// MaxSuggestions bounds the size of a SuggestionSet
const MaxSuggestions = 3

// SuggestionSet is a bounded ordered list of follow-up prompts.
// Derived state, never persisted.
type SuggestionSet []string

// Truncate returns the set capped at MaxSuggestions entries
func (s SuggestionSet) Truncate() SuggestionSet {
	if len(s) > MaxSuggestions {
		return s[:MaxSuggestions]
	}
	return s
}

// ChatUpdate is pushed to the renderer on every message-list change
type ChatUpdate struct {
	Type        string        `json:"type"`
	Messages    []Message     `json:"messages"`
	Suggestions SuggestionSet `json:"suggestions"`
	Timestamp   int64         `json:"timestamp"`
}

// WSMessage is the envelope for WebSocket communication
type WSMessage struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// ThemePreference holds the desktop shell's theme choice
type ThemePreference struct {
	Mode   string `json:"mode"` // "light", "dark", "system"
	Accent string `json:"accent,omitempty"`
}
