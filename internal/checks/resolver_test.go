package checks

import (
	"errors"
	"testing"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
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

func stateWithFighter() *game.GameState {
	state := game.NewGameState("room-1")
	state.CharacterStates["fighter"] = &game.CharacterState{
		InstanceID:    "inst-1",
		CharacterID:   "fighter",
		CharacterName: "Brynja",
		AbilityModifiers: map[game.Ability]int{
			game.AbilitySTR: 3,
			game.AbilityDEX: 1,
		},
		ProficiencyBonus: 2,
	}
	return state
}

func TestAbilityCheck_Success(t *testing.T) {
	// d20 rolls 14, STR +3 => 17 vs DC 12
	rng := &fixedRNG{values: []int{13}}
	resolver := NewResolver(rng)

	ev, err := resolver.AbilityCheck(stateWithFighter(), Request{
		CharacterID: "fighter",
		Ability:     game.AbilitySTR,
		DC:          12,
		Reason:      "Kicking door",
	})
	if err != nil {
		t.Fatalf("AbilityCheck failed: %v", err)
	}

	if ev.CheckType != game.CheckTypeAbility {
		t.Errorf("check type = %q, want %q", ev.CheckType, game.CheckTypeAbility)
	}
	if ev.Roll.Total != 17 {
		t.Errorf("total = %d, want 17", ev.Roll.Total)
	}
	if !ev.Success {
		t.Error("expected success at total 17 vs DC 12")
	}
	if ev.CharacterName != "Brynja" {
		t.Errorf("character name = %q, want Brynja", ev.CharacterName)
	}
}

func TestAbilityCheck_FailureAtBoundary(t *testing.T) {
	// d20 rolls 8, STR +3 => 11 vs DC 12: failure. DC equal to total succeeds.
	rng := &fixedRNG{values: []int{7}}
	resolver := NewResolver(rng)

	ev, err := resolver.AbilityCheck(stateWithFighter(), Request{
		CharacterID: "fighter",
		Ability:     game.AbilitySTR,
		DC:          12,
	})
	if err != nil {
		t.Fatalf("AbilityCheck failed: %v", err)
	}
	if ev.Success {
		t.Errorf("expected failure at total %d vs DC 12", ev.Roll.Total)
	}

	rng = &fixedRNG{values: []int{8}} // roll 9 + 3 = 12 == DC
	resolver = NewResolver(rng)
	ev, err = resolver.AbilityCheck(stateWithFighter(), Request{
		CharacterID: "fighter",
		Ability:     game.AbilitySTR,
		DC:          12,
	})
	if err != nil {
		t.Fatalf("AbilityCheck failed: %v", err)
	}
	if !ev.Success {
		t.Error("total == DC must succeed")
	}
}

func TestAbilityCheck_Proficiency(t *testing.T) {
	// d20 rolls 5, DEX +1, proficiency +2 => 8
	rng := &fixedRNG{values: []int{4}}
	resolver := NewResolver(rng)

	ev, err := resolver.AbilityCheck(stateWithFighter(), Request{
		CharacterID: "fighter",
		Ability:     game.AbilityDEX,
		DC:          8,
		Proficient:  true,
	})
	if err != nil {
		t.Fatalf("AbilityCheck failed: %v", err)
	}
	if ev.Roll.Total != 8 {
		t.Errorf("total = %d, want 8", ev.Roll.Total)
	}
	if !ev.Success {
		t.Error("expected success")
	}
}

func TestSavingThrow_Label(t *testing.T) {
	rng := &fixedRNG{values: []int{10}}
	resolver := NewResolver(rng)

	ev, err := resolver.SavingThrow(stateWithFighter(), Request{
		CharacterID: "fighter",
		Ability:     game.AbilityDEX,
		DC:          10,
	})
	if err != nil {
		t.Fatalf("SavingThrow failed: %v", err)
	}
	if ev.CheckType != game.CheckTypeSavingThrow {
		t.Errorf("check type = %q, want %q", ev.CheckType, game.CheckTypeSavingThrow)
	}
}

func TestAbilityCheck_UnknownCharacter(t *testing.T) {
	resolver := NewResolver(&fixedRNG{values: []int{0}})

	_, err := resolver.AbilityCheck(stateWithFighter(), Request{
		CharacterID: "nobody",
		Ability:     game.AbilitySTR,
		DC:          10,
	})
	if err == nil {
		t.Fatal("expected error for unknown character")
	}
	if !errors.Is(err, domain.ErrUnknownCharacter) {
		t.Errorf("error = %v, want ErrUnknownCharacter", err)
	}
}

func TestGroupCheck_Majority(t *testing.T) {
	state := stateWithFighter()
	state.CharacterStates["rogue"] = &game.CharacterState{
		CharacterID:   "rogue",
		CharacterName: "Silas",
		AbilityModifiers: map[game.Ability]int{
			game.AbilityDEX: 4,
		},
	}
	state.CharacterStates["wizard"] = &game.CharacterState{
		CharacterID:   "wizard",
		CharacterName: "Elaine",
		AbilityModifiers: map[game.Ability]int{
			game.AbilityDEX: -1,
		},
	}

	// Rolls: fighter d20=15 (+1 DEX = 16, pass), rogue d20=12 (+4 = 16,
	// pass), wizard d20=2 (-1 = 1, fail) vs DC 15: 2/3 pass.
	rng := &fixedRNG{values: []int{14, 11, 1}}
	resolver := NewResolver(rng)

	ev, err := resolver.GroupCheck(state, []string{"fighter", "rogue", "wizard"}, game.AbilityDEX, 15, "Sneaking past")
	if err != nil {
		t.Fatalf("GroupCheck failed: %v", err)
	}

	if ev.CheckType != game.CheckTypeGroup {
		t.Errorf("check type = %q, want %q", ev.CheckType, game.CheckTypeGroup)
	}
	if !ev.Success {
		t.Error("expected group success with 2/3 passing")
	}
	if len(ev.Roll.Rolls) != 3 {
		t.Errorf("roll count = %d, want 3", len(ev.Roll.Rolls))
	}
}

func TestGroupCheck_TieFails(t *testing.T) {
	state := stateWithFighter()
	state.CharacterStates["rogue"] = &game.CharacterState{
		CharacterID: "rogue",
		AbilityModifiers: map[game.Ability]int{
			game.AbilitySTR: 0,
		},
	}

	// fighter 16+3=19 pass, rogue 2+0=2 fail vs DC 15: 1/2 is not a majority.
	rng := &fixedRNG{values: []int{15, 1}}
	resolver := NewResolver(rng)

	ev, err := resolver.GroupCheck(state, []string{"fighter", "rogue"}, game.AbilitySTR, 15, "")
	if err != nil {
		t.Fatalf("GroupCheck failed: %v", err)
	}
	if ev.Success {
		t.Error("1/2 successes must not be a majority")
	}
}

func TestGroupCheck_UnknownCharacter(t *testing.T) {
	resolver := NewResolver(&fixedRNG{values: []int{0}})

	_, err := resolver.GroupCheck(stateWithFighter(), []string{"fighter", "ghost"}, game.AbilitySTR, 10, "")
	if !errors.Is(err, domain.ErrUnknownCharacter) {
		t.Errorf("error = %v, want ErrUnknownCharacter", err)
	}
}
