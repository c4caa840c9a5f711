package tools

import (
	"context"
	"strings"
	"testing"

	"tavern/internal/checks"
	"tavern/internal/domain/models/game"

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

// fakeSession records everything the tools do to the session.
type fakeSession struct {
	state       *game.GameState
	events      []game.SessionEvent
	installed   services.TurnGate
	transitions []string
}

func newFakeSession() *fakeSession {
	state := game.NewGameState("room-1")
	state.CharacterStates["fighter"] = &game.CharacterState{
		CharacterID:   "fighter",
		CharacterName: "Brynja",
		AbilityModifiers: map[game.Ability]int{
			game.AbilitySTR: 3,
		},
		ProficiencyBonus: 2,
	}
	return &fakeSession{state: state}
}

func (s *fakeSession) RoomID() string                  { return s.state.RoomID }
func (s *fakeSession) State() *game.GameState          { return s.state }
func (s *fakeSession) Emit(ev game.SessionEvent)       { s.events = append(s.events, ev) }
func (s *fakeSession) InstallGate(g services.TurnGate) { s.installed = g }
func (s *fakeSession) StageTransition(to string)       { s.transitions = append(s.transitions, to) }

func buildRegistry(t *testing.T, sess *fakeSession, rolls ...int) *Registry {
	t.Helper()
	if len(rolls) == 0 {
		rolls = []int{10}
	}
	registry, err := BuildExplorationRegistry(sess, checks.NewResolver(&fixedRNG{values: rolls}))
	if err != nil {
		t.Fatalf("BuildExplorationRegistry failed: %v", err)
	}
	return registry
}

func TestDefinitions_FixedCatalog(t *testing.T) {
	registry := buildRegistry(t, newFakeSession())

	defs := registry.Definitions()
	want := []string{
		ToolRequestAbilityCheck,
		ToolRequestSavingThrow,
		ToolRequestGroupCheck,
		ToolStartCombat,
		ToolRestrictAction,
	}
	if len(defs) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("definition %d = %q, want %q", i, defs[i].Name, name)
		}
	}
}

func TestExecute_AbilityCheck(t *testing.T) {
	sess := newFakeSession()
	registry := buildRegistry(t, sess, 13) // d20 = 14, +3 STR = 17

	result := registry.Execute(context.Background(), services.ToolCall{
		ID:            "call-1",
		Name:          ToolRequestAbilityCheck,
		ArgumentsJSON: `{"characterId": "fighter", "ability": "STR", "dc": 12, "reason": "Kicking the door"}`,
	})

	if result.IsError {
		t.Fatalf("execute failed: %s", result.ResultJSON)
	}
	if !strings.Contains(result.ResultJSON, `"total":17`) || !strings.Contains(result.ResultJSON, `"success":true`) {
		t.Errorf("result = %s, want total 17 success true", result.ResultJSON)
	}

	if len(sess.events) != 1 || sess.events[0].Type != game.EventDiceRoll {
		t.Fatalf("events = %+v, want one dice-roll", sess.events)
	}
	if sess.events[0].DiceRoll.Roll.Total != 17 {
		t.Errorf("emitted total = %d, want 17", sess.events[0].DiceRoll.Roll.Total)
	}
}

func TestExecute_InvalidArguments(t *testing.T) {
	sess := newFakeSession()
	registry := buildRegistry(t, sess)

	tests := []struct {
		name string
		args string
	}{
		{"missing dc", `{"characterId": "fighter", "ability": "STR"}`},
		{"bad ability", `{"characterId": "fighter", "ability": "LCK", "dc": 10}`},
		{"not json", `{"characterId": `},
		{"extra field", `{"characterId": "fighter", "ability": "STR", "dc": 10, "advantage": true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := registry.Execute(context.Background(), services.ToolCall{
				ID:            "call-1",
				Name:          ToolRequestAbilityCheck,
				ArgumentsJSON: tt.args,
			})
			if !result.IsError {
				t.Fatalf("expected error result, got %s", result.ResultJSON)
			}
			if !strings.Contains(result.ResultJSON, "error") {
				t.Errorf("error result = %s, want error payload", result.ResultJSON)
			}
		})
	}

	if len(sess.events) != 0 {
		t.Errorf("invalid calls must not emit events, got %+v", sess.events)
	}
}

func TestExecute_UnknownCharacterBecomesToolError(t *testing.T) {
	registry := buildRegistry(t, newFakeSession())

	result := registry.Execute(context.Background(), services.ToolCall{
		ID:            "call-1",
		Name:          ToolRequestAbilityCheck,
		ArgumentsJSON: `{"characterId": "ghost", "ability": "STR", "dc": 10}`,
	})
	if !result.IsError {
		t.Fatal("expected error result for unknown character")
	}
	if !strings.Contains(result.ResultJSON, "ghost") {
		t.Errorf("result = %s, want character id in error", result.ResultJSON)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	registry := buildRegistry(t, newFakeSession())

	result := registry.Execute(context.Background(), services.ToolCall{
		ID:   "call-1",
		Name: "cast_fireball",
	})
	if !result.IsError || !strings.Contains(result.ResultJSON, "unknown tool") {
		t.Errorf("result = %+v, want unknown-tool error", result)
	}
}

func TestExecute_RestrictAction(t *testing.T) {
	sess := newFakeSession()
	registry := buildRegistry(t, sess)

	result := registry.Execute(context.Background(), services.ToolCall{
		ID:            "call-1",
		Name:          ToolRestrictAction,
		ArgumentsJSON: `{"allowedCharacterIds": ["rogue"], "reason": "Alice is stunned"}`,
	})
	if result.IsError {
		t.Fatalf("execute failed: %s", result.ResultJSON)
	}

	if len(sess.events) != 1 || sess.events[0].Type != game.EventActionRestriction {
		t.Fatalf("events = %+v, want one action-restriction", sess.events)
	}
	if sess.installed == nil {
		t.Fatal("no gate installed")
	}
	rogue := game.PlayerAction{UserID: "bob", CharacterID: "rogue"}
	fighter := game.PlayerAction{UserID: "alice", CharacterID: "fighter"}
	if !sess.installed.CanAct(&rogue) || sess.installed.CanAct(&fighter) {
		t.Error("installed gate must admit only rogue")
	}
}

func TestExecute_StartCombat(t *testing.T) {
	sess := newFakeSession()
	registry := buildRegistry(t, sess)

	result := registry.Execute(context.Background(), services.ToolCall{
		ID:            "call-1",
		Name:          ToolStartCombat,
		ArgumentsJSON: `{"encounterBrief": "Three goblins burst through the door"}`,
	})
	if result.IsError {
		t.Fatalf("execute failed: %s", result.ResultJSON)
	}

	if len(sess.events) != 1 || sess.events[0].Type != game.EventStateTransition {
		t.Fatalf("events = %+v, want one state-transition", sess.events)
	}
	if sess.events[0].Transition.To != services.VariantCombat {
		t.Errorf("transition to %q, want combat", sess.events[0].Transition.To)
	}
	if len(sess.transitions) != 1 || sess.transitions[0] != services.VariantCombat {
		t.Errorf("staged transitions = %v, want [combat]", sess.transitions)
	}
	if len(sess.state.ActiveEncounters) != 1 {
		t.Errorf("encounter brief not recorded in state")
	}
}

func TestExecute_GroupCheck(t *testing.T) {
	sess := newFakeSession()
	sess.state.CharacterStates["rogue"] = &game.CharacterState{
		CharacterID:      "rogue",
		CharacterName:    "Silas",
		AbilityModifiers: map[game.Ability]int{game.AbilitySTR: 0},
	}
	// fighter 15+3=18 pass, rogue 18+0=18 pass vs DC 15
	registry := buildRegistry(t, sess, 14, 17)

	result := registry.Execute(context.Background(), services.ToolCall{
		ID:            "call-1",
		Name:          ToolRequestGroupCheck,
		ArgumentsJSON: `{"characterIds": ["fighter", "rogue"], "ability": "STR", "dc": 15}`,
	})
	if result.IsError {
		t.Fatalf("execute failed: %s", result.ResultJSON)
	}
	if !strings.Contains(result.ResultJSON, `"success":true`) {
		t.Errorf("result = %s, want group success", result.ResultJSON)
	}
	if len(sess.events) != 1 || sess.events[0].DiceRoll.CheckType != game.CheckTypeGroup {
		t.Fatalf("events = %+v, want one group dice-roll", sess.events)
	}
}
