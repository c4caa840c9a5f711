package config

const (
	// MaxRoomNameLength is the maximum length for room names. Limited to
	// 255 to fit in PostgreSQL VARCHAR(255).
	MaxRoomNameLength = 255

	// MaxActionTextLength is the maximum length for a player's free-text
	// action. Long enough for elaborate actions, short enough to keep the
	// LLM input bounded.
	MaxActionTextLength = 2000

	// MaxSlotNameLength is the maximum length for snapshot slot names.
	MaxSlotNameLength = 64

	// MaxMembersPerRoom bounds room membership.
	MaxMembersPerRoom = 8
)
