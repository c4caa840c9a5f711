// Package handler exposes the room, turn, and snapshot API over net/http.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"tavern/internal/httputil"
	"tavern/internal/rooms"
)

// RoomHandler serves room lifecycle and membership endpoints.
type RoomHandler struct {
	registry *rooms.Registry
	logger   *slog.Logger
}

func NewRoomHandler(registry *rooms.Registry, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{registry: registry, logger: logger}
}

type roomView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ModuleName string         `json:"module_name,omitempty"`
	Status     rooms.Status   `json:"status"`
	Members    []rooms.Member `json:"members"`
	Gate       string         `json:"gate"`
	Pending    int            `json:"pending_actions"`
	CreatedAt  time.Time      `json:"created_at"`
}

func viewOf(room *rooms.Room) roomView {
	members := room.Members()
	if members == nil {
		members = []rooms.Member{}
	}
	return roomView{
		ID:         room.ID,
		Name:       room.Name,
		ModuleName: room.ModuleName,
		Status:     room.Status(),
		Members:    members,
		Gate:       room.GateDescription(),
		Pending:    len(room.PendingActions()),
		CreatedAt:  room.CreatedAt,
	}
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	room, err := h.registry.Create(req.Name, req.ModuleName)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, viewOf(room))
}

// ListRooms handles GET /api/rooms.
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	all := h.registry.List()
	views := make([]roomView, 0, len(all))
	for _, room := range all {
		views = append(views, viewOf(room))
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"rooms": views})
}

// GetRoom handles GET /api/rooms/{id}.
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, viewOf(room))
}

// DeleteRoom handles DELETE /api/rooms/{id}.
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.PathValue("id")); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinRoom handles POST /api/rooms/{id}/join.
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	var req joinRoomRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	err = room.Join(rooms.Member{
		UserID:        httputil.GetUserID(r),
		Username:      httputil.GetUsername(r),
		CharacterID:   req.CharacterID,
		CharacterName: req.CharacterName,
		Notes:         req.Notes,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, viewOf(room))
}

// LeaveRoom handles POST /api/rooms/{id}/leave.
func (h *RoomHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if err := room.Leave(httputil.GetUserID(r)); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, viewOf(room))
}

// StartGame handles POST /api/rooms/{id}/start.
func (h *RoomHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(room *rooms.Room) error { return room.Start() })
}

// SuspendGame handles POST /api/rooms/{id}/suspend.
func (h *RoomHandler) SuspendGame(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(room *rooms.Room) error { return room.Suspend() })
}

// ResumeGame handles POST /api/rooms/{id}/resume.
func (h *RoomHandler) ResumeGame(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(room *rooms.Room) error { return room.Resume() })
}

func (h *RoomHandler) transition(w http.ResponseWriter, r *http.Request, apply func(*rooms.Room) error) {
	room, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if err := apply(room); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, viewOf(room))
}

// UpdateNotes handles PUT /api/rooms/{id}/notes.
func (h *RoomHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	room, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	var req notesRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if err := room.SetNotes(httputil.GetUserID(r), req.Notes); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
