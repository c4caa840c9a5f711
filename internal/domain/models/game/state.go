package game

import "time"

// GameState is the room-scoped mutable aggregate. It is mutated only by the
// room's turn executor goroutine (and, between turns, by the world-context
// extractor under the same turn mutex); all other readers take a Clone.
type GameState struct {
	RoomID            string                       `json:"room_id"`
	ModuleName        string                       `json:"module_name,omitempty"`
	Location          string                       `json:"location,omitempty"`
	CharacterStates   map[string]*CharacterState   `json:"character_states"`
	CharacterOverlays map[string][]ActiveCondition `json:"character_overlays,omitempty"`
	World             *WorldContext                `json:"world_context"`
	ActiveEncounters  []string                     `json:"active_encounters,omitempty"`
	LastUpdatedMs     int64                        `json:"last_updated_ms"`
}

// NewGameState creates an empty game state for a room.
func NewGameState(roomID string) *GameState {
	return &GameState{
		RoomID:            roomID,
		CharacterStates:   make(map[string]*CharacterState),
		CharacterOverlays: make(map[string][]ActiveCondition),
		World:             NewWorldContext(),
	}
}

// Character returns the state for a character ID, or nil if absent.
func (g *GameState) Character(characterID string) *CharacterState {
	return g.CharacterStates[characterID]
}

// EnsureCharacter returns the state for a character ID, creating a fresh one
// lazily on first reference.
func (g *GameState) EnsureCharacter(instanceID, characterID, name string) *CharacterState {
	if cs, ok := g.CharacterStates[characterID]; ok {
		return cs
	}
	cs := &CharacterState{
		InstanceID:    instanceID,
		CharacterID:   characterID,
		CharacterName: name,
	}
	g.CharacterStates[characterID] = cs
	return cs
}

// Touch updates the last-modified timestamp.
func (g *GameState) Touch() {
	g.LastUpdatedMs = time.Now().UnixMilli()
}

// Clone returns a deep copy suitable for concurrent readers (context builder,
// extractor, status views).
func (g *GameState) Clone() *GameState {
	out := &GameState{
		RoomID:           g.RoomID,
		ModuleName:       g.ModuleName,
		Location:         g.Location,
		CharacterStates:  make(map[string]*CharacterState, len(g.CharacterStates)),
		ActiveEncounters: append([]string(nil), g.ActiveEncounters...),
		LastUpdatedMs:    g.LastUpdatedMs,
	}
	for id, cs := range g.CharacterStates {
		out.CharacterStates[id] = cs.Clone()
	}
	if g.CharacterOverlays != nil {
		out.CharacterOverlays = make(map[string][]ActiveCondition, len(g.CharacterOverlays))
		for id, conds := range g.CharacterOverlays {
			out.CharacterOverlays[id] = append([]ActiveCondition(nil), conds...)
		}
	}
	if g.World != nil {
		out.World = g.World.Clone()
	} else {
		out.World = NewWorldContext()
	}
	return out
}
