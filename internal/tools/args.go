// Package tools declares the callable tools exposed to the model runtime and
// invokes them mid-generation.
package tools

import "encoding/json"

// Arguments is the tagged union for tool-call argument payloads: either an
// unparseable raw string or a parsed object. Providers deliver arguments as a
// JSON-encoded string or, less often, an already-decoded object; this type
// resolves both through one explicit parse step instead of duck-typed access.
type Arguments struct {
	raw    string
	parsed map[string]any
	ok     bool
}

// ParseArguments resolves a raw argument payload. A string is parsed as JSON;
// when parsing fails the raw string is retained and no error is raised. An
// already-parsed object passes through unchanged.
func ParseArguments(v any) Arguments {
	switch t := v.(type) {
	case nil:
		return Arguments{parsed: map[string]any{}, ok: true}
	case map[string]any:
		return Arguments{parsed: t, ok: true}
	case string:
		return parseRaw(t)
	case []byte:
		return parseRaw(string(t))
	case json.RawMessage:
		return parseRaw(string(t))
	default:
		// Unknown carrier type: round-trip through JSON as a last resort.
		data, err := json.Marshal(t)
		if err != nil {
			return Arguments{raw: "", ok: false}
		}
		return parseRaw(string(data))
	}
}

func parseRaw(raw string) Arguments {
	if raw == "" {
		return Arguments{parsed: map[string]any{}, ok: true}
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Arguments{raw: raw, ok: false}
	}
	return Arguments{parsed: parsed, ok: true}
}

// IsParsed reports whether the payload resolved to an object.
func (a Arguments) IsParsed() bool { return a.ok }

// Map returns the parsed object, or nil when the payload stayed raw.
func (a Arguments) Map() map[string]any { return a.parsed }

// Raw returns the original unparseable payload, or "" when parsing succeeded.
func (a Arguments) Raw() string { return a.raw }
