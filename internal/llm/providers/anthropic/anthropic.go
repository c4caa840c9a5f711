// Package anthropic adapts the Anthropic Messages API to the engine's LLM
// port, including tool use in both chat and streaming modes.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tavern/internal/domain"

	services "tavern/internal/domain/services/game"
)

const defaultMaxTokens = 4096

// Provider implements services.LLMProvider on the Anthropic SDK.
type Provider struct {
	client       anthropic.Client
	defaultModel string
}

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client:       anthropic.NewClient(options...),
		defaultModel: cfg.DefaultModel,
	}, nil
}

func (p *Provider) Name() string { return "anthropic" }

// Chat performs one request/response call.
func (p *Provider) Chat(ctx context.Context, messages []services.Message, opts *services.ChatOptions) (*services.ChatResponse, error) {
	params, err := p.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}

	resp := &services.ChatResponse{
		Usage: &services.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	var content strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, services.ToolCall{
				ID:            block.ID,
				Name:          block.Name,
				ArgumentsJSON: string(block.Input),
			})
		}
	}
	resp.Content = content.String()
	return resp, nil
}

// StreamChat starts a streaming call. Text deltas are forwarded as they
// arrive; tool calls are assembled from input_json_delta fragments and
// attached to the final Done delta.
func (p *Provider) StreamChat(ctx context.Context, messages []services.Message, opts *services.ChatOptions) (<-chan services.StreamDelta, error) {
	params, err := p.buildParams(messages, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan services.StreamDelta, 16)
	go func() {
		defer close(out)

		stream := p.client.Messages.NewStreaming(ctx, params)

		var (
			toolCalls        []services.ToolCall
			currentTool      *services.ToolCall
			currentToolInput strings.Builder
		)
		for stream.Next() {
			event := stream.Current()

			switch event.Type {
			case "content_block_start":
				start := event.AsContentBlockStart()
				if start.ContentBlock.Type == "tool_use" {
					toolUse := start.ContentBlock.AsToolUse()
					currentTool = &services.ToolCall{ID: toolUse.ID, Name: toolUse.Name}
					currentToolInput.Reset()
				}

			case "content_block_delta":
				delta := event.AsContentBlockDelta().Delta
				switch delta.Type {
				case "text_delta":
					if delta.Text != "" {
						select {
						case out <- services.StreamDelta{ContentDelta: delta.Text}:
						case <-ctx.Done():
							out <- services.StreamDelta{Err: ctx.Err()}
							return
						}
					}
				case "input_json_delta":
					currentToolInput.WriteString(delta.PartialJSON)
				}

			case "content_block_stop":
				if currentTool != nil {
					currentTool.ArgumentsJSON = currentToolInput.String()
					toolCalls = append(toolCalls, *currentTool)
					currentTool = nil
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- services.StreamDelta{Err: p.wrapError(err)}
			return
		}
		out <- services.StreamDelta{Done: true, ToolCalls: toolCalls}
	}()
	return out, nil
}

// buildParams converts port messages and options to SDK parameters. The
// system message becomes the top-level System field; tool messages become
// user messages carrying tool_result blocks.
func (p *Provider) buildParams(messages []services.Message, opts *services.ChatOptions) (anthropic.MessageNewParams, error) {
	if opts == nil {
		opts = &services.ChatOptions{}
	}

	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	for i, msg := range messages {
		switch msg.Role {
		case services.RoleSystem:
			params.System = []anthropic.TextBlockParam{{Type: "text", Text: msg.Content}}

		case services.RoleUser:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case services.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal([]byte(call.ArgumentsJSON), &input); err != nil {
					return params, fmt.Errorf("anthropic: tool call %s arguments: %w", call.ID, err)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))

		case services.RoleTool:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)))

		default:
			return params, fmt.Errorf("anthropic: message %d: unsupported role %q", i, msg.Role)
		}
	}

	if opts.ToolChoice != services.ToolChoiceNone && len(opts.Tools) > 0 {
		tools, err := convertTools(opts.Tools)
		if err != nil {
			return params, err
		}
		params.Tools = tools
		if opts.ToolChoice == services.ToolChoiceRequired {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAny: &anthropic.ToolChoiceAnyParam{}}
		}
	}
	return params, nil
}

func convertTools(defs []services.ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		raw, err := json.Marshal(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %s schema: %w", def.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(raw, &schema); err != nil {
			return nil, fmt.Errorf("anthropic: tool %s schema: %w", def.Name, err)
		}

		tool := anthropic.ToolUnionParamOfTool(schema, def.Name)
		if tool.OfTool == nil {
			return nil, fmt.Errorf("anthropic: tool %s: missing tool definition", def.Name)
		}
		tool.OfTool.Description = anthropic.String(def.Description)
		result = append(result, tool)
	}
	return result, nil
}

// wrapError maps SDK failures onto the engine's sentinel errors so the turn
// executor can distinguish timeouts from transport faults.
func (p *Provider) wrapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("anthropic: %w", domain.ErrLLMTimeout)
	default:
		return fmt.Errorf("anthropic: %v: %w", err, domain.ErrLLMTransport)
	}
}
