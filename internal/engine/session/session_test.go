package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tavern/internal/domain/models/game"
	"tavern/internal/engine/extractor"
	"tavern/internal/engine/state"
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

func newSession(t *testing.T, provider services.LLMProvider, ext *extractor.Extractor) *Session {
	t.Helper()
	s, err := New(Config{
		RoomID:    "room-1",
		Provider:  provider,
		Prompts:   prompts.NewSet(""),
		RNG:       &fixedRNG{values: []int{13}},
		Extractor: ext,
		Options: state.Options{
			Model:         "test-model",
			MaxToolRounds: 5,
			HistoryTurns:  5,
			LLMTimeout:    time.Second,
		},
		RecentEventsCap: 3,
		WorldFactsCap:   3,
		Logger:          slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.SeedState(func(gs *game.GameState) {
		gs.CharacterStates["fighter"] = &game.CharacterState{
			CharacterID:      "fighter",
			CharacterName:    "Brynja",
			AbilityModifiers: map[game.Ability]int{game.AbilitySTR: 3},
		}
	})
	return s
}

func collectUntilTurnEnd(t *testing.T, events <-chan game.SessionEvent) []game.SessionEvent {
	t.Helper()
	var out []game.SessionEvent
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("feed closed before turn-end")
			}
			out = append(out, ev)
			if ev.Type == game.EventTurnEnd {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out after %d events", len(out))
		}
	}
}

func TestProcessActions_FullTurn(t *testing.T) {
	provider := scripted.New(
		scripted.Response{Chunks: []string{"The rusted lock", "rattles. "}},
	)
	s := newSession(t, provider, nil)
	defer s.Close()

	sub := s.Subscribe("alice")
	defer s.Unsubscribe("alice")

	actions := []game.PlayerAction{{UserID: "u1", Username: "alice", CharacterID: "fighter", CharacterName: "Brynja", ActionText: "I kick the door"}}
	if err := s.ProcessActions(context.Background(), actions); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}

	events := collectUntilTurnEnd(t, sub.Events())
	var turnEnds int
	for _, ev := range events {
		if ev.Type == game.EventTurnEnd {
			turnEnds++
		}
	}
	if turnEnds != 1 {
		t.Errorf("turn-end count = %d, want exactly 1", turnEnds)
	}

	history := s.History(0)
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].AssistantResponse != "The rusted lockrattles. " {
		t.Errorf("assistant response = %q", history[0].AssistantResponse)
	}
	if history[0].Metadata.TurnType != game.TurnTypeExploration {
		t.Errorf("turn type = %q", history[0].Metadata.TurnType)
	}
}

func TestProcessActions_RestrictionReplacesGateAfterTurn(t *testing.T) {
	provider := scripted.New(
		scripted.Response{
			Chunks: []string{"Alice slumps."},
			ToolCalls: []services.ToolCall{{
				ID:            "call-1",
				Name:          "restrict_action",
				ArgumentsJSON: `{"allowedCharacterIds": ["rogue"], "reason": "Alice is stunned"}`,
			}},
		},
		scripted.Response{Chunks: []string{"Bob alone remains standing."}},
	)
	s := newSession(t, provider, nil)
	defer s.Close()

	before := s.Gate()
	alice := game.PlayerAction{UserID: "u1", CharacterID: "fighter"}
	if !before.CanAct(&alice) {
		t.Fatal("initial gate must admit everyone")
	}

	if err := s.ProcessActions(context.Background(), []game.PlayerAction{alice}); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}

	after := s.Gate()
	bob := game.PlayerAction{UserID: "u2", CharacterID: "rogue"}
	if after.CanAct(&alice) {
		t.Error("restricted gate must reject alice's character")
	}
	if !after.CanAct(&bob) {
		t.Error("restricted gate must admit bob's character")
	}
	if !after.CanAdvance([]game.PlayerAction{bob}, 2) {
		t.Error("bob alone must advance the restricted gate")
	}
}

func TestProcessActions_CancellationAppendsPartialTurn(t *testing.T) {
	extractorProvider := scripted.New(scripted.Response{Chunks: []string{"[]"}})
	ext := extractor.New(extractorProvider, prompts.NewSet(""), "test-model", 0, 0, slog.New(slog.DiscardHandler))

	provider := scripted.New(scripted.Response{
		Chunks: []string{"one ", "two ", "three ", "four ", "five "},
		Delay:  20 * time.Millisecond,
	})
	s := newSession(t, provider, ext)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(70 * time.Millisecond)
		cancel()
	}()

	err := s.ProcessActions(ctx, []game.PlayerAction{{UserID: "u1", ActionText: "go"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	history := s.History(0)
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1 (partial turn appended)", len(history))
	}
	if history[0].Metadata.TurnType != game.TurnTypeCancelled {
		t.Errorf("turn type = %q, want cancelled", history[0].Metadata.TurnType)
	}
	if history[0].AssistantResponse == "" {
		t.Error("partial narrative must be recorded")
	}

	s.Close() // waits for background work
	if extractorProvider.Calls() != 0 {
		t.Error("extractor must not run for a cancelled turn")
	}

	// The mutex is released: a follow-up turn runs.
	provider.Append(scripted.Response{Chunks: []string{"The dust settles."}})
	if err := s.ProcessActions(context.Background(), nil); err != nil {
		t.Fatalf("follow-up turn failed: %v", err)
	}
}

func TestProcessActions_ExtractorUpdatesWorldWithCaps(t *testing.T) {
	extractorProvider := scripted.New(scripted.Response{Chunks: []string{`- kind: LT
  text: "fact one"
- kind: LT
  text: "fact two"
- kind: LT
  text: "fact three"
- kind: LT
  text: "fact four"
- kind: ST
  text: "event one"
- kind: FLAG
  key: "alarm"
  value: "raised"
`}})
	ext := extractor.New(extractorProvider, prompts.NewSet(""), "test-model", 0, 0, slog.New(slog.DiscardHandler))

	provider := scripted.New(scripted.Response{Chunks: []string{"The bell tolls."}})
	s := newSession(t, provider, ext)

	if err := s.ProcessActions(context.Background(), nil); err != nil {
		t.Fatalf("ProcessActions failed: %v", err)
	}
	s.Close() // waits for the extractor

	world := s.Snapshot().World
	if len(world.WorldFacts) != 3 {
		t.Errorf("world facts = %v, want cap of 3 with oldest dropped", world.WorldFacts)
	}
	if len(world.WorldFacts) == 3 && world.WorldFacts[0] != "fact two" {
		t.Errorf("oldest fact not dropped: %v", world.WorldFacts)
	}
	if len(world.RecentEvents) != 1 || world.RecentEvents[0] != "event one" {
		t.Errorf("recent events = %v", world.RecentEvents)
	}
	if world.Flags["alarm"] != "raised" {
		t.Errorf("flags = %v", world.Flags)
	}
}

func TestProcessActions_SerializesTurns(t *testing.T) {
	provider := scripted.New(
		scripted.Response{Chunks: []string{"first ", "turn"}, Delay: 15 * time.Millisecond},
		scripted.Response{Chunks: []string{"second turn"}},
	)
	s := newSession(t, provider, nil)
	defer s.Close()

	sub := s.Subscribe("watcher")
	defer s.Unsubscribe("watcher")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.ProcessActions(context.Background(), []game.PlayerAction{{UserID: "u1", ActionText: "a"}})
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		_ = s.ProcessActions(context.Background(), []game.PlayerAction{{UserID: "u2", ActionText: "b"}})
	}()
	wg.Wait()

	first := collectUntilTurnEnd(t, sub.Events())
	second := collectUntilTurnEnd(t, sub.Events())
	if first[len(first)-1].Type != game.EventTurnEnd || second[len(second)-1].Type != game.EventTurnEnd {
		t.Error("each turn's stream must end with turn-end")
	}
	if len(s.History(0)) != 2 {
		t.Errorf("history length = %d, want 2", len(s.History(0)))
	}
}
