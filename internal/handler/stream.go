package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tavern/internal/handler/sse"
	"tavern/internal/rooms"
)

// StreamHandler serves the per-room SSE event feed.
type StreamHandler struct {
	registry *rooms.Registry
	config   *sse.Config
	logger   *slog.Logger
}

func NewStreamHandler(registry *rooms.Registry, config *sse.Config, logger *slog.Logger) *StreamHandler {
	if config == nil {
		config = sse.DefaultConfig()
	}
	return &StreamHandler{registry: registry, config: config, logger: logger}
}

// StreamEvents handles GET /api/rooms/{id}/stream. The connection stays open
// across turns; each turn's events terminate with a turn-end event.
func (h *StreamHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	room, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	clientID := uuid.NewString()
	sub := room.Session().Subscribe(clientID)
	defer room.Session().Unsubscribe(clientID)

	logger := h.logger.With("room_id", room.ID, "client_id", clientID)
	logger.Info("SSE stream established")

	ticker := time.NewTicker(h.config.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				logger.Debug("event feed closed, ending stream")
				return
			}
			if err := writer.WriteEvent(ev); err != nil {
				logger.Info("client disconnected during event write", "error", err)
				return
			}

		case <-ticker.C:
			if err := writer.WriteKeepAlive(); err != nil {
				logger.Info("client disconnected during keepalive", "error", err)
				return
			}

		case <-r.Context().Done():
			logger.Debug("client context cancelled, ending stream")
			return
		}
	}
}
