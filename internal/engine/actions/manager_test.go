package actions

import (
	"errors"
	"sync"
	"testing"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/engine/gate"
)

func action(userID, characterID, text string) game.PlayerAction {
	return game.PlayerAction{UserID: userID, CharacterID: characterID, CharacterName: characterID, ActionText: text}
}

func TestAdd_LastWriteWinsKeepsPosition(t *testing.T) {
	m := NewManager()
	g := gate.NewAllPlayers()

	if err := m.Add(g, action("alice", "fighter", "I open the door")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add(g, action("bob", "rogue", "I hide")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := m.Add(g, action("alice", "fighter", "I kick the door down")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	buffered := m.Snapshot()
	if len(buffered) != 2 {
		t.Fatalf("buffered %d actions, want 2", len(buffered))
	}
	if buffered[0].CharacterID != "fighter" || buffered[0].ActionText != "I kick the door down" {
		t.Errorf("slot 0 = %+v, want fighter's replacement action first", buffered[0])
	}
	if buffered[1].CharacterID != "rogue" {
		t.Errorf("slot 1 = %+v, want rogue second", buffered[1])
	}
}

func TestAdd_GateRejects(t *testing.T) {
	m := NewManager()
	g := gate.NewRestricted([]string{"rogue"}, "stunned")

	err := m.Add(g, action("alice", "fighter", "I attack"))
	if !errors.Is(err, domain.ErrActionNotAllowed) {
		t.Fatalf("error = %v, want ErrActionNotAllowed", err)
	}
	if m.Len() != 0 {
		t.Errorf("rejected action must not be buffered")
	}

	if err := m.Add(g, action("bob", "rogue", "I pick the lock")); err != nil {
		t.Fatalf("allowed action rejected: %v", err)
	}
}

func TestDrain_Idempotent(t *testing.T) {
	m := NewManager()
	g := gate.NewAllPlayers()

	_ = m.Add(g, action("alice", "fighter", "I search the room"))

	first := m.Drain()
	if len(first) != 1 {
		t.Fatalf("first drain returned %d actions, want 1", len(first))
	}
	if second := m.Drain(); len(second) != 0 {
		t.Errorf("second drain returned %d actions, want 0", len(second))
	}

	// Buffer is reusable after a drain.
	_ = m.Add(g, action("alice", "fighter", "I look around"))
	if m.Len() != 1 {
		t.Errorf("buffer not reusable after drain")
	}
}

func TestHasAllActed(t *testing.T) {
	m := NewManager()
	g := gate.NewAllPlayers()

	_ = m.Add(g, action("alice", "fighter", "I knock"))
	if m.HasAllActed(g, 2) {
		t.Error("1 of 2 members must not satisfy AllPlayers")
	}
	_ = m.Add(g, action("bob", "rogue", "I wait"))
	if !m.HasAllActed(g, 2) {
		t.Error("2 of 2 members must satisfy AllPlayers")
	}
}

func TestDrainIfAdvance_PolicyGatesDrain(t *testing.T) {
	m := NewManager()
	g := gate.NewAllPlayers()

	_ = m.Add(g, action("alice", "fighter", "I knock"))
	if batch, ok := m.DrainIfAdvance(g, 2); ok {
		t.Fatalf("1 of 2 members drained %d actions, want no drain", len(batch))
	}
	if m.Len() != 1 {
		t.Fatalf("refused drain must leave the buffer intact")
	}

	_ = m.Add(g, action("bob", "rogue", "I wait"))
	batch, ok := m.DrainIfAdvance(g, 2)
	if !ok || len(batch) != 2 {
		t.Fatalf("DrainIfAdvance = (%d, %v), want both actions", len(batch), ok)
	}
	if batch[0].UserID != "alice" || batch[1].UserID != "bob" {
		t.Errorf("batch order = %s, %s; want submission order", batch[0].UserID, batch[1].UserID)
	}
}

func TestDrainIfAdvance_SingleWinner(t *testing.T) {
	m := NewManager()
	g := gate.NewAllPlayers()
	_ = m.Add(g, action("alice", "fighter", "go"))
	_ = m.Add(g, action("bob", "rogue", "go"))

	// Both goroutines see a satisfied policy; the emptied buffer must fail
	// the policy for the loser so no empty turn is started.
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if batch, ok := m.DrainIfAdvance(g, 2); ok {
				mu.Lock()
				wins++
				mu.Unlock()
				if len(batch) != 2 {
					t.Errorf("winning batch has %d actions, want 2", len(batch))
				}
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("%d concurrent callers won the drain, want exactly 1", wins)
	}
}

func TestDrain_SingleWinner(t *testing.T) {
	m := NewManager()
	g := gate.NewAllPlayers()
	_ = m.Add(g, action("alice", "fighter", "go"))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := m.Drain()
			mu.Lock()
			total += len(batch)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Errorf("concurrent drains yielded %d actions in total, want 1", total)
	}
}
