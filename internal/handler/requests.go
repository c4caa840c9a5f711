package handler

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"tavern/internal/config"
	"tavern/internal/domain"
)

// wrapValidation converts ozzo errors into the domain validation sentinel.
func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

type createRoomRequest struct {
	Name       string `json:"name"`
	ModuleName string `json:"module_name"`
}

func (r *createRoomRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, config.MaxRoomNameLength)),
		validation.Field(&r.ModuleName, validation.Length(0, config.MaxRoomNameLength)),
	))
}

type joinRoomRequest struct {
	CharacterID   string `json:"character_id"`
	CharacterName string `json:"character_name"`
	Notes         string `json:"notes"`
}

func (r *joinRoomRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.CharacterID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.CharacterName, validation.Required, validation.Length(1, config.MaxRoomNameLength)),
		validation.Field(&r.Notes, validation.Length(0, config.MaxActionTextLength)),
	))
}

type submitActionRequest struct {
	CharacterID   string `json:"character_id"`
	CharacterName string `json:"character_name"`
	ActionText    string `json:"action_text"`
}

func (r *submitActionRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.ActionText, validation.Required, validation.Length(1, config.MaxActionTextLength)),
		validation.Field(&r.CharacterID, validation.Length(0, 128)),
	))
}

type saveSnapshotRequest struct {
	SlotName    string `json:"slot_name"`
	Description string `json:"description"`
}

func (r *saveSnapshotRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.SlotName, validation.Required, validation.Length(1, config.MaxSlotNameLength)),
		validation.Field(&r.Description, validation.Length(0, config.MaxActionTextLength)),
	))
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (r *notesRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.Notes, validation.Length(0, config.MaxActionTextLength)),
	))
}
