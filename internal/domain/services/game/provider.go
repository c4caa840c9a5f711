package game

import "context"

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolChoice constrains whether the model may, must, or must not call tools.
type ToolChoice string

const (
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
	ToolChoiceNone     ToolChoice = "none"
)

// Message is one entry of the LLM conversation. Assistant messages may carry
// tool calls; tool messages carry the result for ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is an LLM-emitted structured function invocation.
type ToolCall struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// ToolDefinition describes an LLM-callable tool. Parameters is a JSON-schema
// object kept as data; validation against it happens at the tool boundary.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatOptions are the per-call knobs of the LLM port.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Tools       []ToolDefinition
	ToolChoice  ToolChoice
}

// Usage reports provider token accounting when available.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ChatResponse is the result of a non-streaming chat call.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *Usage
}

// StreamDelta is one element of a streaming chat response. Providers that
// support tool calling in streaming mode attach the accumulated tool calls
// to the final (Done) delta; providers that do not simply leave them empty
// and the engine degrades to Chat when tools are needed next.
type StreamDelta struct {
	ContentDelta string
	ToolCalls    []ToolCall
	Done         bool
	Err          error
}

// LLMProvider is the engine's port to a language model. Implementations must
// be safe for concurrent use and respect context cancellation on both
// operations.
type LLMProvider interface {
	// Name identifies the provider ("anthropic", "scripted", ...).
	Name() string

	// Chat performs a request/response chat call with optional tools.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*ChatResponse, error)

	// StreamChat starts a streaming chat call. The returned channel is
	// closed after the Done delta (or a delta carrying Err). Cancelling ctx
	// aborts the stream.
	StreamChat(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamDelta, error)
}
