package core

import (
	"bytes"
	"encoding/json"
)

// NormalizeMessages converts the heterogeneous inbound message payload into
// the canonical ChatMessage shape. It accepts either a flat content string or
// an already-structured parts array per message; a missing parts array is
// synthesized as a single text part from content (default empty string).
//
// The whole request fails with a validation error, before any model call,
// when the top-level payload is absent or not a JSON array.
func NormalizeMessages(raw json.RawMessage) ([]ChatMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, NewValidationError("messages must be an array", nil)
	}

	var inbound []RawMessage
	if err := json.Unmarshal(trimmed, &inbound); err != nil {
		return nil, NewValidationError("malformed messages array: "+err.Error(), err)
	}

	out := make([]ChatMessage, len(inbound))
	for i, msg := range inbound {
		role := msg.Role
		if role == "" {
			role = RoleUser
		}

		parts := msg.Parts
		if len(parts) == 0 {
			content := ""
			if msg.Content != nil {
				content = *msg.Content
			}
			parts = []Part{{Type: "text", Text: content}}
		}

		out[i] = ChatMessage{Role: role, Parts: parts}
	}

	return out, nil
}
