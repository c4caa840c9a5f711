package game

import "fmt"

// Ability identifies one of the six core ability scores.
type Ability string

const (
	AbilitySTR Ability = "STR"
	AbilityDEX Ability = "DEX"
	AbilityCON Ability = "CON"
	AbilityINT Ability = "INT"
	AbilityWIS Ability = "WIS"
	AbilityCHA Ability = "CHA"
)

// ParseAbility normalizes and validates an ability identifier.
func ParseAbility(s string) (Ability, error) {
	switch Ability(s) {
	case AbilitySTR, AbilityDEX, AbilityCON, AbilityINT, AbilityWIS, AbilityCHA:
		return Ability(s), nil
	}
	return "", fmt.Errorf("unknown ability %q", s)
}

// CharacterState is the mutable per-character state within a room. It is
// created lazily when a room member first references a character.
type CharacterState struct {
	InstanceID       string            `json:"instance_id"`
	CharacterID      string            `json:"character_id"`
	CharacterName    string            `json:"character_name,omitempty"`
	CurrentHP        int               `json:"current_hp"`
	TemporaryHP      int               `json:"temporary_hp"`
	Conditions       []string          `json:"conditions,omitempty"`
	ActiveBuffs      []string          `json:"active_buffs,omitempty"`
	KnownSpells      []string          `json:"known_spells,omitempty"`
	EquipmentState   map[string]string `json:"equipment_state,omitempty"`
	AbilityModifiers map[Ability]int   `json:"ability_modifiers,omitempty"`
	ProficiencyBonus int               `json:"proficiency_bonus"`
}

// Modifier returns the character's modifier for an ability, zero when unset.
func (c *CharacterState) Modifier(a Ability) int {
	if c.AbilityModifiers == nil {
		return 0
	}
	return c.AbilityModifiers[a]
}

// Clone returns a deep copy of the character state.
func (c *CharacterState) Clone() *CharacterState {
	out := *c
	out.Conditions = append([]string(nil), c.Conditions...)
	out.ActiveBuffs = append([]string(nil), c.ActiveBuffs...)
	out.KnownSpells = append([]string(nil), c.KnownSpells...)
	if c.EquipmentState != nil {
		out.EquipmentState = make(map[string]string, len(c.EquipmentState))
		for k, v := range c.EquipmentState {
			out.EquipmentState[k] = v
		}
	}
	if c.AbilityModifiers != nil {
		out.AbilityModifiers = make(map[Ability]int, len(c.AbilityModifiers))
		for k, v := range c.AbilityModifiers {
			out.AbilityModifiers[k] = v
		}
	}
	return &out
}

// ActiveCondition is a temporary condition overlay on a character, typically
// installed by the DM narrative (stunned, blessed, frightened, ...).
type ActiveCondition struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}
