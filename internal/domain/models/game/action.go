package game

// PlayerAction is a single player's free-text action for the upcoming turn.
// Actions are buffered by the action manager until the turn gate admits the
// turn; a newer action from the same user overwrites the buffered one.
type PlayerAction struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	CharacterID   string `json:"character_id,omitempty"`
	CharacterName string `json:"character_name,omitempty"`
	ActionText    string `json:"action_text"`
	TimestampMs   int64  `json:"timestamp_ms"`
}
