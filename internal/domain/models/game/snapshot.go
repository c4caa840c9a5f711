package game

// GameSnapshot is a persisted serialization of a room's GameState, keyed by
// (roomID, slotName). HistoryTurns records how many conversation turns were
// in history at save time; whether turn content itself travels with the
// snapshot is left to the persistence implementation.
type GameSnapshot struct {
	RoomID       string     `json:"room_id"`
	SlotName     string     `json:"slot_name"`
	Description  string     `json:"description,omitempty"`
	State        *GameState `json:"state"`
	HistoryTurns int        `json:"history_turns"`
	SavedAtMs    int64      `json:"saved_at_ms"`
	Version      int        `json:"version"`
}

// SnapshotInfo is the listing view of a snapshot, without the state payload.
type SnapshotInfo struct {
	RoomID      string `json:"room_id"`
	SlotName    string `json:"slot_name"`
	Description string `json:"description,omitempty"`
	SavedAtMs   int64  `json:"saved_at_ms"`
}
