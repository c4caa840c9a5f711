package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"tavern/internal/domain"
	"tavern/internal/domain/models/game"
	"tavern/internal/httputil"
	"tavern/internal/rooms"
)

// GameHandler serves action submission, turn control, state, and snapshots.
type GameHandler struct {
	registry *rooms.Registry
	logger   *slog.Logger
}

func NewGameHandler(registry *rooms.Registry, logger *slog.Logger) *GameHandler {
	return &GameHandler{registry: registry, logger: logger}
}

func (h *GameHandler) room(w http.ResponseWriter, r *http.Request) (*rooms.Room, bool) {
	room, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return nil, false
	}
	return room, true
}

// SubmitAction handles POST /api/rooms/{id}/actions. A resubmission before
// the turn starts replaces the user's buffered action.
func (h *GameHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	var req submitActionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	started, err := room.SubmitAction(game.PlayerAction{
		UserID:        httputil.GetUserID(r),
		Username:      httputil.GetUsername(r),
		CharacterID:   req.CharacterID,
		CharacterName: req.CharacterName,
		ActionText:    req.ActionText,
	})
	if err != nil {
		// A restricted gate tells the client who may act instead.
		if errors.Is(err, domain.ErrActionNotAllowed) {
			allowed := make([]string, 0)
			for id := range room.Session().Gate().AllowedCharacterIDs() {
				allowed = append(allowed, id)
			}
			sort.Strings(allowed)
			httputil.RespondErrorWithExtras(w, http.StatusForbidden, err.Error(), map[string]any{
				"allowed_character_ids": allowed,
			})
			return
		}
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, map[string]any{
		"turn_started":    started,
		"pending_actions": len(room.PendingActions()),
	})
}

// AdvanceTurn handles POST /api/rooms/{id}/advance: force a turn with the
// current buffer, even when empty.
func (h *GameHandler) AdvanceTurn(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	started, err := room.Advance()
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, map[string]any{"turn_started": started})
}

// CancelTurn handles POST /api/rooms/{id}/cancel.
func (h *GameHandler) CancelTurn(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	room.CancelTurn()
	w.WriteHeader(http.StatusNoContent)
}

// GetState handles GET /api/rooms/{id}/state.
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, room.Session().Snapshot())
}

// GetHistory handles GET /api/rooms/{id}/history?limit=N.
func (h *GameHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns := room.Session().History(limit)
	if turns == nil {
		turns = []game.ConversationTurn{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// SaveSnapshot handles POST /api/rooms/{id}/snapshots.
func (h *GameHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}

	var req saveSnapshotRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	if err := room.Session().SaveSnapshot(r.Context(), req.SlotName, req.Description); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]any{"slot_name": req.SlotName})
}

// ListSnapshots handles GET /api/rooms/{id}/snapshots.
func (h *GameHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	infos, err := room.Session().ListSnapshots(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	if infos == nil {
		infos = []game.SnapshotInfo{}
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"snapshots": infos})
}

// LoadSnapshot handles POST /api/rooms/{id}/snapshots/{slot}/load. Loading
// replaces the live game state; clients should refetch state afterwards.
func (h *GameHandler) LoadSnapshot(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	if err := room.Session().LoadSnapshot(r.Context(), r.PathValue("slot")); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, room.Session().Snapshot())
}

// DeleteSnapshot handles DELETE /api/rooms/{id}/snapshots/{slot}.
func (h *GameHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	room, ok := h.room(w, r)
	if !ok {
		return
	}
	if err := room.Session().DeleteSnapshot(r.Context(), r.PathValue("slot")); err != nil {
		respondDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
