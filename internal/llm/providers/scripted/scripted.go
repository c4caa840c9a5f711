// Package scripted is a deterministic LLM provider that replays a fixed
// script of responses. Used in tests and for offline demo rooms.
package scripted

import (
	"context"
	"sync"
	"time"

	services "tavern/internal/domain/services/game"
)

// Response is one scripted LLM reply. Chunks are delivered as streaming
// deltas; Chat joins them into one content string. A non-nil Err fails the
// call instead.
type Response struct {
	Chunks    []string
	ToolCalls []services.ToolCall
	Err       error

	// Delay is applied before each delta in streaming mode, so tests can
	// cancel mid-stream.
	Delay time.Duration
}

// Provider replays responses in order. When the script is exhausted it
// returns empty responses, which end a turn naturally.
type Provider struct {
	mu     sync.Mutex
	script []Response
	pos    int
}

func New(script ...Response) *Provider {
	return &Provider{script: script}
}

// Append adds responses to the end of the script.
func (p *Provider) Append(responses ...Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, responses...)
}

// Calls reports how many responses have been consumed.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *Provider) Name() string { return "scripted" }

func (p *Provider) next() Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pos >= len(p.script) {
		return Response{}
	}
	r := p.script[p.pos]
	p.pos++
	return r
}

func (p *Provider) Chat(ctx context.Context, _ []services.Message, _ *services.ChatOptions) (*services.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.next()
	if r.Err != nil {
		return nil, r.Err
	}

	var content string
	for _, c := range r.Chunks {
		content += c
	}
	return &services.ChatResponse{Content: content, ToolCalls: r.ToolCalls}, nil
}

func (p *Provider) StreamChat(ctx context.Context, _ []services.Message, _ *services.ChatOptions) (<-chan services.StreamDelta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := p.next()

	out := make(chan services.StreamDelta)
	go func() {
		defer close(out)

		if r.Err != nil {
			out <- services.StreamDelta{Err: r.Err}
			return
		}
		for _, chunk := range r.Chunks {
			if r.Delay > 0 {
				select {
				case <-time.After(r.Delay):
				case <-ctx.Done():
					out <- services.StreamDelta{Err: ctx.Err()}
					return
				}
			}
			select {
			case out <- services.StreamDelta{ContentDelta: chunk}:
			case <-ctx.Done():
				out <- services.StreamDelta{Err: ctx.Err()}
				return
			}
		}
		out <- services.StreamDelta{Done: true, ToolCalls: r.ToolCalls}
	}()
	return out, nil
}
