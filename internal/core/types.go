package core

import "encoding/json"

// Message roles accepted on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Part is a single ordered fragment of a chat message. Only text parts
// exist today; the type tag is kept so richer parts can be added without
// changing the wire shape.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatMessage is the canonical inbound message shape after normalization.
// A user message always carries at least one part; text may be empty.
type ChatMessage struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text flattens the message parts into a single string.
func (m ChatMessage) Text() string {
	if len(m.Parts) == 1 {
		return m.Parts[0].Text
	}
	var s string
	for _, p := range m.Parts {
		s += p.Text
	}
	return s
}

// ChatRequest is the body of POST /chat. Messages stay raw until the
// normalizer has checked the payload shape, so a non-array payload is
// rejected by us with a clear error instead of a bare decode failure.
type ChatRequest struct {
	Messages json.RawMessage `json:"messages"`
}

// RawMessage is a single inbound message before normalization. Clients may
// send a flat content string, a parts array, or both; parts win when present.
type RawMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content,omitempty"`
	Parts   []Part  `json:"parts,omitempty"`
}
