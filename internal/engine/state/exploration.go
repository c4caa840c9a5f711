// Package state implements the game-state variants that execute turns. The
// exploration variant drives the LLM as a bounded tool-calling loop.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/engine/contextbuild"
	"tavern/internal/engine/tools"

	services "tavern/internal/domain/services/game"
)

// HistorySource serves the recent conversation turns for context building.
type HistorySource interface {
	Recent(n int) []game.ConversationTurn
}

// NotesFunc supplies per-character player notes; may be nil.
type NotesFunc func() map[string]string

// Options are the per-turn LLM knobs.
type Options struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	MaxToolRounds int
	HistoryTurns  int
	LLMTimeout    time.Duration
}

// Exploration is the default variant: free-form play where the LLM narrates
// and may call check and control tools. One instance serves one session.
type Exploration struct {
	provider services.LLMProvider
	builder  *contextbuild.Builder
	registry *tools.Registry
	history  HistorySource
	notes    NotesFunc
	opts     Options
	logger   *slog.Logger
}

func NewExploration(
	provider services.LLMProvider,
	builder *contextbuild.Builder,
	registry *tools.Registry,
	history HistorySource,
	notes NotesFunc,
	opts Options,
	logger *slog.Logger,
) *Exploration {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 5
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = 60 * time.Second
	}
	return &Exploration{
		provider: provider,
		builder:  builder,
		registry: registry,
		history:  history,
		notes:    notes,
		opts:     opts,
		logger:   logger,
	}
}

func (s *Exploration) Name() string { return services.VariantExploration }

// ProcessActions runs one turn: round 1 streams the narrative, later rounds
// use request/response calls, tool calls execute sequentially in arrival
// order. The session emits the terminal turn-end.
//
// LLM timeouts and transport failures end the turn with a synthetic chunk
// and a nil error; a context-build failure returns ErrContextBuild so the
// session skips the history append; a cancelled context returns ctx.Err().
func (s *Exploration) ProcessActions(ctx context.Context, sess services.TurnSession, actions []game.PlayerAction) error {
	var notes map[string]string
	if s.notes != nil {
		notes = s.notes()
	}
	messages, err := s.builder.Build(&contextbuild.Input{
		State:   sess.State().Clone(),
		Actions: actions,
		History: s.history.Recent(s.opts.HistoryTurns),
		Notes:   notes,
	})
	if err != nil {
		s.logger.Error("context build failed", "room_id", sess.RoomID(), "error", err)
		sess.Emit(game.NewNarrativeChunk(fmt.Sprintf("(context build failed: %v)", err)))
		return err
	}

	chatOpts := &services.ChatOptions{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		Tools:       s.registry.Definitions(),
		ToolChoice:  services.ToolChoiceAuto,
	}

	capReached := false
	for round := 1; round <= s.opts.MaxToolRounds; round++ {
		var (
			content   string
			toolCalls []services.ToolCall
			err       error
		)
		if round == 1 {
			content, toolCalls, err = s.streamRound(ctx, sess, messages, chatOpts)
		} else {
			content, toolCalls, err = s.chatRound(ctx, sess, messages, chatOpts)
		}
		if err != nil {
			return s.handleLLMError(ctx, sess, round, err)
		}
		if len(toolCalls) == 0 {
			return nil
		}

		messages = append(messages, services.Message{
			Role:      services.RoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
		})
		for _, call := range toolCalls {
			result := s.registry.Execute(ctx, call)
			if result.IsError {
				s.logger.Warn("tool call failed",
					"room_id", sess.RoomID(), "tool", call.Name, "result", result.ResultJSON)
			}
			messages = append(messages, services.Message{
				Role:       services.RoleTool,
				Content:    result.ResultJSON,
				ToolCallID: result.CallID,
			})
		}
		capReached = round == s.opts.MaxToolRounds
	}

	if capReached {
		s.logger.Info("tool round cap reached", "room_id", sess.RoomID(), "rounds", s.opts.MaxToolRounds)
		sess.Emit(game.NewNarrativeChunk("(turn ended due to step limit)"))
	}
	return nil
}

func (s *Exploration) streamRound(ctx context.Context, sess services.TurnSession, messages []services.Message, opts *services.ChatOptions) (string, []services.ToolCall, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.LLMTimeout)
	defer cancel()

	stream, err := s.provider.StreamChat(callCtx, messages, opts)
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var toolCalls []services.ToolCall
	for delta := range stream {
		if delta.Err != nil {
			return text.String(), nil, delta.Err
		}
		if delta.ContentDelta != "" {
			text.WriteString(delta.ContentDelta)
			sess.Emit(game.NewNarrativeChunk(delta.ContentDelta))
		}
		if delta.Done {
			toolCalls = delta.ToolCalls
		}
	}
	return text.String(), toolCalls, nil
}

func (s *Exploration) chatRound(ctx context.Context, sess services.TurnSession, messages []services.Message, opts *services.ChatOptions) (string, []services.ToolCall, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.LLMTimeout)
	defer cancel()

	resp, err := s.provider.Chat(callCtx, messages, opts)
	if err != nil {
		return "", nil, err
	}
	if resp.Content != "" {
		sess.Emit(game.NewNarrativeChunk(resp.Content))
	}
	return resp.Content, resp.ToolCalls, nil
}

// handleLLMError classifies an LLM failure. Caller cancellation propagates;
// everything else ends the turn in place.
func (s *Exploration) handleLLMError(ctx context.Context, sess services.TurnSession, round int, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrLLMTimeout) {
		s.logger.Error("llm call timed out", "room_id", sess.RoomID(), "round", round, "error", err)
		sess.Emit(game.NewNarrativeChunk("(LLM timeout)"))
		return nil
	}

	s.logger.Error("llm call failed", "room_id", sess.RoomID(), "round", round, "error", err)
	sess.Emit(game.NewNarrativeChunk("(the storyteller falters; please try again)"))
	return nil
}
