package rooms

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tavern/internal/dice"
	"tavern/internal/domain"
	"tavern/internal/engine/extractor"
	"tavern/internal/engine/session"
	"tavern/internal/engine/state"
	"tavern/internal/prompts"

	services "tavern/internal/domain/services/game"
)

// Deps holds the shared collaborators every room's session is built from.
type Deps struct {
	Provider  services.LLMProvider
	Store     services.GameStore
	Prompts   *prompts.Set
	RNG       dice.RNG
	Extractor *extractor.Extractor
	Options   state.Options

	RecentEventsCap int
	WorldFactsCap   int

	Logger *slog.Logger
}

// Registry is the in-process directory of live rooms.
type Registry struct {
	deps   Deps
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry(deps Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		deps:   deps,
		logger: logger,
		rooms:  make(map[string]*Room),
	}
}

// Create opens a new room with its own session.
func (r *Registry) Create(name, moduleName string) (*Room, error) {
	if name == "" {
		return nil, &domain.ValidationError{Message: "room name is required"}
	}

	id := uuid.NewString()

	var room *Room
	sess, err := session.New(session.Config{
		RoomID:    id,
		Provider:  r.deps.Provider,
		Store:     r.deps.Store,
		Prompts:   r.deps.Prompts,
		RNG:       r.deps.RNG,
		Extractor: r.deps.Extractor,
		Notes: func() map[string]string {
			return room.NotesByCharacter()
		},
		Options:         r.deps.Options,
		RecentEventsCap: r.deps.RecentEventsCap,
		WorldFactsCap:   r.deps.WorldFactsCap,
		Logger:          r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	room = newRoom(id, name, moduleName, sess, r.logger)

	r.mu.Lock()
	r.rooms[id] = room
	r.mu.Unlock()

	r.logger.Info("room created", "room_id", id, "name", name)
	return room, nil
}

// Get looks a room up by ID.
func (r *Registry) Get(id string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	return room, nil
}

// List returns all rooms ordered by creation time.
func (r *Registry) List() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete closes a room and removes it from the directory.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	room, ok := r.rooms[id]
	if ok {
		delete(r.rooms, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	room.Close()
	r.logger.Info("room deleted", "room_id", id)
	return nil
}

// Close shuts every room down. Used on server shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}
