package state

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tavern/internal/checks"
	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/engine/contextbuild"
	"tavern/internal/engine/tools"
	"tavern/internal/llm/providers/scripted"
	"tavern/internal/prompts"

	services "tavern/internal/domain/services/game"
)

type fixedRNG struct {
	values []int
	pos    int
}

func (f *fixedRNG) Intn(n int) int {
	v := f.values[f.pos%len(f.values)]
	f.pos++
	return v % n
}

type sessionStub struct {
	state       *game.GameState
	events      []game.SessionEvent
	installed   services.TurnGate
	transitions []string
}

func newSessionStub() *sessionStub {
	state := game.NewGameState("room-1")
	state.CharacterStates["fighter"] = &game.CharacterState{
		CharacterID:   "fighter",
		CharacterName: "Brynja",
		AbilityModifiers: map[game.Ability]int{
			game.AbilitySTR: 3,
		},
	}
	return &sessionStub{state: state}
}

func (s *sessionStub) RoomID() string                  { return s.state.RoomID }
func (s *sessionStub) State() *game.GameState          { return s.state }
func (s *sessionStub) Emit(ev game.SessionEvent)       { s.events = append(s.events, ev) }
func (s *sessionStub) InstallGate(g services.TurnGate) { s.installed = g }
func (s *sessionStub) StageTransition(to string)       { s.transitions = append(s.transitions, to) }

type staticHistory []game.ConversationTurn

func (h staticHistory) Recent(n int) []game.ConversationTurn {
	if n > 0 && len(h) > n {
		return h[len(h)-n:]
	}
	return h
}

func newExploration(t *testing.T, sess *sessionStub, provider services.LLMProvider, rolls ...int) *Exploration {
	t.Helper()
	if len(rolls) == 0 {
		rolls = []int{10}
	}
	registry, err := tools.BuildExplorationRegistry(sess, checks.NewResolver(&fixedRNG{values: rolls}))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return NewExploration(
		provider,
		contextbuild.NewBuilder(prompts.NewSet(""), 5),
		registry,
		staticHistory(nil),
		nil,
		Options{Model: "test-model", MaxToolRounds: 5, HistoryTurns: 5, LLMTimeout: time.Second},
		slog.New(slog.DiscardHandler),
	)
}

func eventTypes(events []game.SessionEvent) []game.EventType {
	out := make([]game.EventType, len(events))
	for i := range events {
		out[i] = events[i].Type
	}
	return out
}

func TestProcessActions_CheckFlow(t *testing.T) {
	sess := newSessionStub()
	provider := scripted.New(
		scripted.Response{
			Chunks: []string{"The rusted lock", "rattles. "},
			ToolCalls: []services.ToolCall{{
				ID:            "call-1",
				Name:          tools.ToolRequestAbilityCheck,
				ArgumentsJSON: `{"characterId": "fighter", "ability": "STR", "dc": 12, "reason": "Kicking door"}`,
			}},
		},
		scripted.Response{Chunks: []string{"The door gives way."}},
	)
	// d20 = 14, +3 STR = 17 vs DC 12
	exploration := newExploration(t, sess, provider, 13)

	actions := []game.PlayerAction{{UserID: "u1", Username: "alice", CharacterID: "fighter", CharacterName: "Brynja", ActionText: "I kick the door"}}
	if err := exploration.ProcessActions(context.Background(), sess, actions); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}

	want := []game.EventType{
		game.EventNarrativeChunk,
		game.EventNarrativeChunk,
		game.EventDiceRoll,
		game.EventNarrativeChunk,
	}
	got := eventTypes(sess.events)
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	roll := sess.events[2].DiceRoll
	if roll.Roll.Total != 17 || !roll.Success {
		t.Errorf("dice roll = %+v, want total 17 success", roll)
	}
	if sess.events[0].Content != "The rusted lock" || sess.events[1].Content != "rattles. " {
		t.Errorf("narrative chunks wrong: %+v", sess.events[:2])
	}
}

func TestProcessActions_NoToolCallsSingleRound(t *testing.T) {
	sess := newSessionStub()
	provider := scripted.New(scripted.Response{Chunks: []string{"You rest by the fire."}})
	exploration := newExploration(t, sess, provider)

	if err := exploration.ProcessActions(context.Background(), sess, nil); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}
	if provider.Calls() != 1 {
		t.Errorf("LLM called %d times, want 1", provider.Calls())
	}
	if len(sess.events) != 1 || sess.events[0].Content != "You rest by the fire." {
		t.Errorf("events = %+v", sess.events)
	}
}

func TestProcessActions_RoundCap(t *testing.T) {
	sess := newSessionStub()

	call := services.ToolCall{
		ID:            "call-n",
		Name:          tools.ToolRequestAbilityCheck,
		ArgumentsJSON: `{"characterId": "fighter", "ability": "STR", "dc": 10}`,
	}
	script := make([]scripted.Response, 6)
	for i := range script {
		script[i] = scripted.Response{ToolCalls: []services.ToolCall{call}}
	}
	provider := scripted.New(script...)
	exploration := newExploration(t, sess, provider)

	if err := exploration.ProcessActions(context.Background(), sess, nil); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}

	if provider.Calls() != 5 {
		t.Errorf("LLM called %d times, want 5 (round cap)", provider.Calls())
	}
	var dice int
	for _, ev := range sess.events {
		if ev.Type == game.EventDiceRoll {
			dice++
		}
	}
	if dice != 5 {
		t.Errorf("executed %d checks, want 5", dice)
	}

	last := sess.events[len(sess.events)-1]
	if last.Type != game.EventNarrativeChunk || last.Content != "(turn ended due to step limit)" {
		t.Errorf("last event = %+v, want step-limit chunk", last)
	}
}

func TestProcessActions_Timeout(t *testing.T) {
	sess := newSessionStub()
	provider := scripted.New(scripted.Response{Err: domain.ErrLLMTimeout})
	exploration := newExploration(t, sess, provider)

	if err := exploration.ProcessActions(context.Background(), sess, nil); err != nil {
		t.Fatalf("timeout must end the turn without error, got %v", err)
	}
	if len(sess.events) != 1 || sess.events[0].Content != "(LLM timeout)" {
		t.Errorf("events = %+v, want one (LLM timeout) chunk", sess.events)
	}
}

func TestProcessActions_TransportError(t *testing.T) {
	sess := newSessionStub()
	provider := scripted.New(scripted.Response{Err: domain.ErrLLMTransport})
	exploration := newExploration(t, sess, provider)

	if err := exploration.ProcessActions(context.Background(), sess, nil); err != nil {
		t.Fatalf("transport failure must end the turn without error, got %v", err)
	}
	if len(sess.events) != 1 || sess.events[0].Type != game.EventNarrativeChunk {
		t.Errorf("events = %+v, want one synthetic chunk", sess.events)
	}
}

func TestProcessActions_CancelledMidStream(t *testing.T) {
	sess := newSessionStub()
	provider := scripted.New(scripted.Response{
		Chunks: []string{"one ", "two ", "three ", "four ", "five "},
		Delay:  20 * time.Millisecond,
	})
	exploration := newExploration(t, sess, provider)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(70 * time.Millisecond)
		cancel()
	}()

	err := exploration.ProcessActions(ctx, sess, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	if len(sess.events) == 0 || len(sess.events) >= 5 {
		t.Errorf("got %d chunks before cancellation, want partial stream", len(sess.events))
	}
	for _, ev := range sess.events {
		if ev.Type != game.EventNarrativeChunk {
			t.Errorf("unexpected event after cancel: %+v", ev)
		}
	}
}

func TestProcessActions_RestrictionFlow(t *testing.T) {
	sess := newSessionStub()
	provider := scripted.New(
		scripted.Response{
			Chunks: []string{"Alice slumps, stunned."},
			ToolCalls: []services.ToolCall{{
				ID:            "call-1",
				Name:          tools.ToolRestrictAction,
				ArgumentsJSON: `{"allowedCharacterIds": ["rogue"], "reason": "Alice is stunned"}`,
			}},
		},
		scripted.Response{Chunks: []string{"Only Bob can act."}},
	)
	exploration := newExploration(t, sess, provider)

	if err := exploration.ProcessActions(context.Background(), sess, nil); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}

	var restriction *game.ActionRestriction
	for _, ev := range sess.events {
		if ev.Type == game.EventActionRestriction {
			restriction = ev.Restriction
		}
	}
	if restriction == nil {
		t.Fatal("no action-restriction event emitted")
	}
	if len(restriction.AllowedCharacterIDs) != 1 || restriction.AllowedCharacterIDs[0] != "rogue" {
		t.Errorf("restriction = %+v", restriction)
	}
	if sess.installed == nil {
		t.Fatal("no gate staged on the session")
	}
}

func TestProcessActions_MalformedToolArgumentsContinues(t *testing.T) {
	sess := newSessionStub()
	provider := scripted.New(
		scripted.Response{
			ToolCalls: []services.ToolCall{{
				ID:            "call-1",
				Name:          tools.ToolRequestAbilityCheck,
				ArgumentsJSON: `{"characterId": 42}`,
			}},
		},
		scripted.Response{Chunks: []string{"The DM recovers."}},
	)
	exploration := newExploration(t, sess, provider)

	if err := exploration.ProcessActions(context.Background(), sess, nil); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}
	if provider.Calls() != 2 {
		t.Errorf("LLM called %d times, want 2 (loop continues after bad args)", provider.Calls())
	}
	last := sess.events[len(sess.events)-1]
	if !strings.Contains(last.Content, "recovers") {
		t.Errorf("last event = %+v, want recovery narration", last)
	}
}
