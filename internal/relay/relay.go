// Package relay issues streaming completion requests to the upstream model
// provider and exposes them as a forward-only sequence of text increments.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"bookchat/internal/core"
	"bookchat/internal/observability"
	"bookchat/internal/tools"
)

const (
	// DefaultBaseURL targets OpenRouter's OpenAI-compatible API.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is used when none is configured.
	DefaultModel = "anthropic/claude-3-haiku"

	// DefaultTimeout is the hard wall-clock budget for one whole request,
	// tool rounds included.
	DefaultTimeout = 30 * time.Second

	// maxToolRounds caps how many times one request may pause for tools.
	maxToolRounds = 4
)

// SystemPrompt frames every conversation. Reproducing tool output verbatim
// is a model-level directive, not a code-level guarantee.
const SystemPrompt = "You are a helpful and safe book assistant. " +
	"Never reveal API keys or private configuration. " +
	"When a tool returns results, reproduce the tool output verbatim in your reply."

// Config holds the upstream provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Relay owns the upstream client and the tool invoker surface the model
// reaches back into mid-generation.
type Relay struct {
	client   openai.Client
	model    string
	registry *tools.Registry
	timeout  time.Duration
}

// New creates a relay. A missing API key is reported immediately rather than
// surfacing as a confusing 401 on the first request.
func New(cfg Config, registry *tools.Registry) (*Relay, error) {
	if cfg.APIKey == "" {
		return nil, core.NewUpstreamAuthError("openrouter", "missing OPENROUTER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
	)

	return &Relay{
		client:   client,
		model:    cfg.Model,
		registry: registry,
		timeout:  cfg.Timeout,
	}, nil
}

// Model returns the configured model identifier.
func (r *Relay) Model() string { return r.model }

// Stream relays the conversation upstream and delivers text increments to
// onDelta strictly in generation order. A tool call pauses token emission for
// that turn: the call is resolved through the registry, its result is folded
// back into the conversation, and generation resumes. The pause is invisible
// to the caller except through logs.
//
// The caller's ctx is tied to the outbound transport: when the client
// disconnects, cancellation propagates here and the upstream request is
// released instead of billing tokens nobody will read.
func (r *Relay) Stream(ctx context.Context, messages []core.ChatMessage, onDelta func(string)) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(r.model),
		Messages: buildMessages(messages),
		Tools:    r.sdkTools(),
	}

	for round := 0; round <= maxToolRounds; round++ {
		stream := r.client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					onDelta(delta)
				}
			}
		}
		if err := stream.Err(); err != nil {
			return classifyStreamError(ctx, err)
		}

		if len(acc.Choices) == 0 {
			return nil
		}
		choice := acc.Choices[0]
		calls := choice.Message.ToolCalls
		if len(calls) == 0 {
			return nil
		}

		slog.Info("generation paused for tool calls",
			"request_id", core.GetRequestID(ctx),
			"round", round+1,
			"calls", len(calls),
		)

		params.Messages = append(params.Messages, choice.Message.ToParam())
		for _, call := range calls {
			result := r.resolveToolCall(ctx, call)
			params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
		}
	}

	return core.NewUpstreamError("openrouter", "tool-call rounds exceeded the limit", nil)
}

// resolveToolCall executes one tool call and returns the payload fed back to
// the model. Malformed calls are not repaired; the model gets told instead.
func (r *Relay) resolveToolCall(ctx context.Context, call openai.ChatCompletionMessageToolCallUnion) string {
	args := tools.ParseArguments(call.Function.Arguments)
	result, err := r.registry.Invoke(ctx, call.Function.Name, args)
	if err != nil {
		if errors.Is(err, tools.ErrNoRepair) {
			observability.ToolInvocations.WithLabelValues(call.Function.Name, observability.OutcomeNoRepair).Inc()
			return "unknown or malformed tool call: " + call.Function.Name
		}
		observability.ToolInvocations.WithLabelValues(call.Function.Name, observability.OutcomeError).Inc()
		return "tool invocation failed: " + err.Error()
	}
	observability.ToolInvocations.WithLabelValues(call.Function.Name, observability.OutcomeOK).Inc()
	return result
}

// buildMessages converts canonical messages to the SDK's union shape, with
// the system prompt always first.
func buildMessages(messages []core.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	out = append(out, openai.SystemMessage(SystemPrompt))

	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Text()))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Text()))
		default:
			out = append(out, openai.UserMessage(msg.Text()))
		}
	}
	return out
}

// sdkTools converts the registry's declarations to the SDK tool params.
func (r *Relay) sdkTools() []openai.ChatCompletionToolUnionParam {
	declared := r.registry.List()
	if len(declared) == 0 {
		return nil
	}

	out := make([]openai.ChatCompletionToolUnionParam, len(declared))
	for i, t := range declared {
		out[i] = openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.InputSchema),
		})
	}
	return out
}

// classifyStreamError folds SDK and transport failures into the relay
// taxonomy. Credential rejections are operator-facing, not client-facing.
func classifyStreamError(ctx context.Context, err error) *core.RelayError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return core.ClassifyUpstreamStatus("openrouter", apiErr.StatusCode, apiErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.NewUpstreamError("openrouter", "request exceeded the time budget", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return core.NewUpstreamError("openrouter", "request canceled", err)
	}
	return core.NewUpstreamError("openrouter", "stream failed: "+err.Error(), err)
}
