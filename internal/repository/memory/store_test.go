package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
)

func TestAppendAndListTurns(t *testing.T) {
	store := NewGameStore()
	ctx := context.Background()

	for i, text := range []string{"first", "second", "third"} {
		turn := &game.ConversationTurn{
			ID:                string(rune('a' + i)),
			AssistantResponse: text,
			TimestampMs:       int64(i),
		}
		if err := store.AppendTurn(ctx, "room-1", turn); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	turns, err := store.ListTurns(ctx, "room-1", 2)
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 2 || turns[0].AssistantResponse != "second" || turns[1].AssistantResponse != "third" {
		t.Errorf("turns = %+v, want last two oldest-first", turns)
	}

	if other, _ := store.ListTurns(ctx, "room-2", 0); len(other) != 0 {
		t.Errorf("unrelated room has %d turns", len(other))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewGameStore()
	ctx := context.Background()

	state := game.NewGameState("room-1")
	state.CharacterStates["fighter"] = &game.CharacterState{
		CharacterID:      "fighter",
		CharacterName:    "Brynja",
		CurrentHP:        20,
		AbilityModifiers: map[game.Ability]int{game.AbilitySTR: 3},
	}
	state.World.AddWorldFact("The key is under the altar.", 0)
	state.World.SetFlag("doors_open", "true")

	snap := &game.GameSnapshot{
		RoomID:       "room-1",
		SlotName:     "slot-a",
		Description:  "before the crypt",
		State:        state,
		HistoryTurns: 4,
		SavedAtMs:    100,
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if snap.Version != 1 {
		t.Errorf("first save version = %d, want 1", snap.Version)
	}

	loaded, err := store.LoadSnapshot(ctx, "room-1", "slot-a")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.State.CharacterStates, state.CharacterStates) {
		t.Error("character states not preserved through save/load")
	}
	if !reflect.DeepEqual(loaded.State.World, state.World) {
		t.Error("world context not preserved through save/load")
	}
	if loaded.HistoryTurns != 4 {
		t.Errorf("history turns = %d, want 4", loaded.HistoryTurns)
	}

	// Mutating the loaded state must not affect the stored copy.
	loaded.State.World.SetFlag("doors_open", "false")
	again, _ := store.LoadSnapshot(ctx, "room-1", "slot-a")
	if again.State.World.Flags["doors_open"] != "true" {
		t.Error("stored snapshot aliased to loaded copy")
	}
}

func TestSnapshotVersionIncrements(t *testing.T) {
	store := NewGameStore()
	ctx := context.Background()

	snap := &game.GameSnapshot{RoomID: "room-1", SlotName: "slot-a", State: game.NewGameState("room-1")}
	_ = store.SaveSnapshot(ctx, snap)
	_ = store.SaveSnapshot(ctx, snap)
	if snap.Version != 2 {
		t.Errorf("version after two saves = %d, want 2", snap.Version)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	store := NewGameStore()

	if _, err := store.LoadSnapshot(context.Background(), "room-1", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("load error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteSnapshot(context.Background(), "room-1", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("delete error = %v, want ErrNotFound", err)
	}
}

func TestListAndDeleteSnapshots(t *testing.T) {
	store := NewGameStore()
	ctx := context.Background()

	for i, slot := range []string{"old", "new"} {
		_ = store.SaveSnapshot(ctx, &game.GameSnapshot{
			RoomID:    "room-1",
			SlotName:  slot,
			State:     game.NewGameState("room-1"),
			SavedAtMs: int64(i),
		})
	}

	infos, err := store.ListSnapshots(ctx, "room-1")
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(infos) != 2 || infos[0].SlotName != "new" {
		t.Errorf("infos = %+v, want newest first", infos)
	}

	if err := store.DeleteSnapshot(ctx, "room-1", "old"); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	infos, _ = store.ListSnapshots(ctx, "room-1")
	if len(infos) != 1 {
		t.Errorf("after delete, %d snapshots remain", len(infos))
	}
}
