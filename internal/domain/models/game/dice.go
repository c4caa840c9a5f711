package game

// DiceRoll is the outcome of evaluating a dice formula.
type DiceRoll struct {
	Formula  string `json:"formula"`
	Rolls    []int  `json:"rolls"`
	Modifier int    `json:"modifier"`
	Total    int    `json:"total"`
}

// Check type labels carried on dice_roll events.
const (
	CheckTypeAbility     = "ability"
	CheckTypeSavingThrow = "saving_throw"
	CheckTypeGroup       = "group"
)
