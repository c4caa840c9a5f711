package handler

import (
	"log/slog"
	"net/http"

	"tavern/internal/httputil"
	"tavern/internal/rooms"
)

// NewRouter builds the API route table (Go 1.22+ enhanced patterns).
func NewRouter(registry *rooms.Registry, logger *slog.Logger) *http.ServeMux {
	roomHandler := NewRoomHandler(registry, logger)
	gameHandler := NewGameHandler(registry, logger)
	streamHandler := NewStreamHandler(registry, nil, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Room lifecycle
	mux.HandleFunc("POST /api/rooms", roomHandler.CreateRoom)
	mux.HandleFunc("GET /api/rooms", roomHandler.ListRooms)
	mux.HandleFunc("GET /api/rooms/{id}", roomHandler.GetRoom)
	mux.HandleFunc("DELETE /api/rooms/{id}", roomHandler.DeleteRoom)
	mux.HandleFunc("POST /api/rooms/{id}/join", roomHandler.JoinRoom)
	mux.HandleFunc("POST /api/rooms/{id}/leave", roomHandler.LeaveRoom)
	mux.HandleFunc("POST /api/rooms/{id}/start", roomHandler.StartGame)
	mux.HandleFunc("POST /api/rooms/{id}/suspend", roomHandler.SuspendGame)
	mux.HandleFunc("POST /api/rooms/{id}/resume", roomHandler.ResumeGame)
	mux.HandleFunc("PUT /api/rooms/{id}/notes", roomHandler.UpdateNotes)

	// Turn engine
	mux.HandleFunc("POST /api/rooms/{id}/actions", gameHandler.SubmitAction)
	mux.HandleFunc("POST /api/rooms/{id}/advance", gameHandler.AdvanceTurn)
	mux.HandleFunc("POST /api/rooms/{id}/cancel", gameHandler.CancelTurn)
	mux.HandleFunc("GET /api/rooms/{id}/state", gameHandler.GetState)
	mux.HandleFunc("GET /api/rooms/{id}/history", gameHandler.GetHistory)

	// Streaming
	mux.HandleFunc("GET /api/rooms/{id}/stream", streamHandler.StreamEvents)

	// Snapshots
	mux.HandleFunc("POST /api/rooms/{id}/snapshots", gameHandler.SaveSnapshot)
	mux.HandleFunc("GET /api/rooms/{id}/snapshots", gameHandler.ListSnapshots)
	mux.HandleFunc("POST /api/rooms/{id}/snapshots/{slot}/load", gameHandler.LoadSnapshot)
	mux.HandleFunc("DELETE /api/rooms/{id}/snapshots/{slot}", gameHandler.DeleteSnapshot)

	return mux
}
