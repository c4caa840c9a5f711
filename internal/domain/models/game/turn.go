package game

// TurnMetadata describes how a conversation turn was produced.
type TurnMetadata struct {
	TurnType    string `json:"turn_type"`
	ActionCount int    `json:"action_count"`
}

// Turn type values recorded in TurnMetadata.
const (
	TurnTypeExploration = "exploration"
	TurnTypeCancelled   = "cancelled"
)

// ConversationTurn is one completed turn of the game conversation: the
// drained player inputs and the DM's full narrative response. Immutable once
// appended to history.
type ConversationTurn struct {
	ID                string         `json:"id"`
	RoomID            string         `json:"room_id"`
	UserInputs        []PlayerAction `json:"user_inputs"`
	AssistantResponse string         `json:"assistant_response"`
	TimestampMs       int64          `json:"timestamp_ms"`
	Metadata          TurnMetadata   `json:"metadata"`
}
