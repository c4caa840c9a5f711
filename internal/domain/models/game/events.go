package game

import (
	"encoding/json"
	"fmt"
)

// EventType tags the SessionEvent variants. The values double as the wire
// event names on the client SSE stream.
type EventType string

const (
	EventNarrativeChunk    EventType = "streaming-chunk"
	EventDiceRoll          EventType = "dice-roll"
	EventActionRestriction EventType = "action-restriction"
	EventStateTransition   EventType = "state-transition"
	EventTurnEnd           EventType = "turn-end"
)

// SessionEvent is the closed tagged union emitted on a turn's outbound
// stream. Exactly one payload field is set, matching Type; narrative chunks
// carry only Content. Every turn's stream terminates with exactly one
// turn-end event.
type SessionEvent struct {
	Type        EventType          `json:"type"`
	Content     string             `json:"content,omitempty"`
	DiceRoll    *DiceRollEvent     `json:"dice_roll,omitempty"`
	Restriction *ActionRestriction `json:"restriction,omitempty"`
	Transition  *StateTransition   `json:"transition,omitempty"`
}

// DiceRollEvent reports a resolved check.
type DiceRollEvent struct {
	CheckType     string   `json:"check_type"`
	CharacterID   string   `json:"character_id"`
	CharacterName string   `json:"character_name,omitempty"`
	Ability       Ability  `json:"ability,omitempty"`
	DC            int      `json:"dc,omitempty"`
	Roll          DiceRoll `json:"roll"`
	Success       bool     `json:"success"`
	Reason        string   `json:"reason,omitempty"`
}

// ActionRestriction announces a restricted turn gate: only the listed
// characters may act next turn.
type ActionRestriction struct {
	AllowedCharacterIDs []string `json:"allowed_character_ids"`
	Reason              string   `json:"reason,omitempty"`
}

// StateTransition announces a game-state variant change.
type StateTransition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Event constructors.

func NewNarrativeChunk(content string) SessionEvent {
	return SessionEvent{Type: EventNarrativeChunk, Content: content}
}

func NewDiceRollEvent(roll *DiceRollEvent) SessionEvent {
	return SessionEvent{Type: EventDiceRoll, DiceRoll: roll}
}

func NewActionRestrictionEvent(allowed []string, reason string) SessionEvent {
	return SessionEvent{Type: EventActionRestriction, Restriction: &ActionRestriction{
		AllowedCharacterIDs: allowed,
		Reason:              reason,
	}}
}

func NewStateTransitionEvent(from, to string) SessionEvent {
	return SessionEvent{Type: EventStateTransition, Transition: &StateTransition{From: from, To: to}}
}

func NewTurnEndEvent() SessionEvent {
	return SessionEvent{Type: EventTurnEnd}
}

// FormatSSE renders the event in SSE wire format:
//
//	event: dice-roll
//	data: {...}
func (e SessionEvent) FormatSSE() (string, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal session event: %w", err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, payload), nil
}
