package tools

import services "tavern/internal/domain/services/game"

// Fixed tool names exposed to the LLM during exploration turns.
const (
	ToolRequestAbilityCheck = "request_ability_check"
	ToolRequestSavingThrow  = "request_saving_throw"
	ToolRequestGroupCheck   = "request_group_check"
	ToolStartCombat         = "start_combat"
	ToolRestrictAction      = "restrict_action"
)

var abilityEnum = []any{"STR", "DEX", "CON", "INT", "WIS", "CHA"}

func checkParameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"characterId": map[string]any{
				"type":        "string",
				"description": "ID of the character making the check",
			},
			"ability": map[string]any{
				"type": "string",
				"enum": abilityEnum,
			},
			"dc": map[string]any{
				"type":        "integer",
				"description": "Difficulty class the roll must meet or beat",
				"minimum":     1,
				"maximum":     40,
			},
			"proficient": map[string]any{
				"type":        "boolean",
				"description": "Whether the character adds their proficiency bonus",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Short in-fiction reason for the check",
			},
		},
		"required":             []any{"characterId", "ability", "dc"},
		"additionalProperties": false,
	}
}

func abilityCheckDefinition() services.ToolDefinition {
	return services.ToolDefinition{
		Name:        ToolRequestAbilityCheck,
		Description: "Roll an ability check (d20 + ability modifier) for one character against a DC. Use when the outcome of a character's action is uncertain.",
		Parameters:  checkParameters(),
	}
}

func savingThrowDefinition() services.ToolDefinition {
	return services.ToolDefinition{
		Name:        ToolRequestSavingThrow,
		Description: "Roll a saving throw (d20 + ability modifier) for one character against a DC. Use when a character resists an external effect.",
		Parameters:  checkParameters(),
	}
}

func groupCheckDefinition() services.ToolDefinition {
	return services.ToolDefinition{
		Name:        ToolRequestGroupCheck,
		Description: "Roll the same ability check for several characters at once; the group succeeds when a majority of the individual rolls succeed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"characterIds": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 1,
				},
				"ability": map[string]any{
					"type": "string",
					"enum": abilityEnum,
				},
				"dc": map[string]any{
					"type":    "integer",
					"minimum": 1,
					"maximum": 40,
				},
				"reason": map[string]any{
					"type": "string",
				},
			},
			"required":             []any{"characterIds", "ability", "dc"},
			"additionalProperties": false,
		},
	}
}

func startCombatDefinition() services.ToolDefinition {
	return services.ToolDefinition{
		Name:        ToolStartCombat,
		Description: "Begin a combat encounter. Provide a short brief of the combatants and situation.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"encounterBrief": map[string]any{
					"type":        "string",
					"description": "One-paragraph summary of who is fighting and why",
				},
			},
			"required":             []any{"encounterBrief"},
			"additionalProperties": false,
		},
	}
}

func restrictActionDefinition() services.ToolDefinition {
	return services.ToolDefinition{
		Name:        ToolRestrictAction,
		Description: "Restrict the next turn so only the listed characters may act, e.g. when others are incapacitated or absent.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"allowedCharacterIds": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 1,
				},
				"reason": map[string]any{
					"type":        "string",
					"description": "Why the other characters cannot act",
				},
			},
			"required":             []any{"allowedCharacterIds"},
			"additionalProperties": false,
		},
	}
}
