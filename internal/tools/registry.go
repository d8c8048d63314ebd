package tools

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoRepair signals that the model emitted a tool invocation the registry
// cannot resolve (unknown name or unparseable arguments). The invoker logs
// the anomaly and declines to rewrite the call; the surrounding runtime
// applies its own fallback, typically surfacing an error to the model.
var ErrNoRepair = errors.New("no repair for malformed tool call")

// Tool declares one callable tool: its contract toward the model (name,
// description, JSON schema) and its executor.
type Tool struct {
	Name        string
	Description string
	// InputSchema is the JSON Schema advertised to the model runtime.
	InputSchema map[string]any
	// Execute runs the tool against validated-enough input. Implementations
	// validate and coerce the object themselves and must not panic.
	Execute func(ctx context.Context, input map[string]any) (string, error)
}

// Registry maps canonical tool names to their declarations.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding the given tools, preserving order
// for deterministic advertisement to the model.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke resolves a tool call to its result payload.
//
// Tool selection policy belongs to the model runtime; this method only parses
// or passes through the arguments, executes, and returns the result verbatim.
// Execution failures become a human-readable failure payload so generation
// can continue. Unknown names and unparseable arguments return ErrNoRepair.
func (r *Registry) Invoke(ctx context.Context, name string, args Arguments) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		slog.Warn("model invoked unknown tool", "tool", name)
		return "", ErrNoRepair
	}

	if !args.IsParsed() {
		slog.Warn("tool call arguments are not valid JSON", "tool", name, "raw", args.Raw())
		return "", ErrNoRepair
	}

	result, err := tool.Execute(ctx, args.Map())
	if err != nil {
		slog.Error("tool execution failed", "tool", name, "error", err)
		return "tool " + name + " failed: " + err.Error(), nil
	}
	return result, nil
}
