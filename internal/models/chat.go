package models

import (
	"encoding/json"
	"strings"
	"time"
)

// AgentType selects which persona-scoped agent handles a conversation.
type AgentType string

const (
	AgentClient       AgentType = "client"
	AgentVenueGeneral AgentType = "venue_general"
	AgentVenueEvent   AgentType = "venue_event"
)

// Known reports whether the agent type is one of the supported agents.
func (a AgentType) Known() bool {
	switch a {
	case AgentClient, AgentVenueGeneral, AgentVenueEvent:
		return true
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// MessagePart is one element of a message's ordered content. Text parts
// carry Text; tool parts carry the tool name, call id, input and (for
// results) output.
type MessagePart struct {
	Type   PartType        `json:"type"`
	Text   string          `json:"text,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	CallID string          `json:"call_id,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// Chat is a persisted conversation bound to one user, persona and scope.
// The owning identity and scope never change after creation.
type Chat struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Persona   Persona   `json:"persona"`
	AgentType AgentType `json:"agent_type"`
	EventID   string    `json:"event_id,omitempty"`
	VenueID   string    `json:"venue_id,omitempty"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is one turn half within a chat. IDs are unique per chat;
// the assistant message for a turn is written via upsert on its id.
type ChatMessage struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat_id"`
	Role      Role          `json:"role"`
	Parts     []MessagePart `json:"parts"`
	CreatedAt time.Time     `json:"created_at"`
}

// Text joins the message's text parts, skipping tool parts.
func (m *ChatMessage) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type != PartText || p.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}
