package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"tavern/internal/config"
	"tavern/internal/domain/models/game"
	"tavern/internal/repository/postgres"
)

// Seeds the game tables and, unless --schema-only is set, a demo room with
// a starting world context, an autosave snapshot, and a short history.
func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data")
	roomID := flag.String("room", "demo-room", "Room ID to seed demo data under")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: prevent destructive operations in production.
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required for seeding")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Printf("Ensuring database schema (prefix: %s)...", cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		return
	}

	store := postgres.NewGameStore(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})

	log.Printf("Seeding demo room %q...", *roomID)

	state := demoState(*roomID)
	if err := store.UpsertWorldContext(ctx, *roomID, state.World); err != nil {
		log.Fatalf("Failed to seed world context: %v", err)
	}

	for _, turn := range demoTurns(*roomID) {
		if err := store.AppendTurn(ctx, *roomID, turn); err != nil {
			log.Fatalf("Failed to seed turn: %v", err)
		}
	}

	snap := &game.GameSnapshot{
		RoomID:       *roomID,
		SlotName:     "autosave",
		Description:  "seeded demo state",
		State:        state,
		HistoryTurns: 2,
		SavedAtMs:    time.Now().UnixMilli(),
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		log.Fatalf("Failed to seed snapshot: %v", err)
	}

	log.Println("Seeding complete")
}

func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Turns, tables.WorldContexts, tables.Snapshots} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  dropped %s", table)
	}
	return nil
}

func demoState(roomID string) *game.GameState {
	state := game.NewGameState(roomID)
	state.ModuleName = "lost-mines"
	state.Location = "The Sleeping Giant tavern, Phandalin"

	fighter := state.EnsureCharacter("demo-alice", "char-brynja", "Brynja Ironfist")
	fighter.CurrentHP = 24
	fighter.ProficiencyBonus = 2
	fighter.AbilityModifiers = map[game.Ability]int{
		game.AbilitySTR: 3, game.AbilityDEX: 1, game.AbilityCON: 2,
		game.AbilityINT: 0, game.AbilityWIS: 1, game.AbilityCHA: 0,
	}

	rogue := state.EnsureCharacter("demo-bob", "char-senna", "Senna Quickstep")
	rogue.CurrentHP = 18
	rogue.ProficiencyBonus = 2
	rogue.AbilityModifiers = map[game.Ability]int{
		game.AbilitySTR: 0, game.AbilityDEX: 4, game.AbilityCON: 1,
		game.AbilityINT: 2, game.AbilityWIS: 0, game.AbilityCHA: 1,
	}

	state.World.AddWorldFact("Gundren Rockseeker hired the party to escort a wagon to Phandalin.", 0)
	state.World.AddWorldFact("The Redbrands have been shaking down Phandalin's shopkeepers.", 0)
	state.World.AddRecentEvent("The party arrived in Phandalin at dusk.", 0)
	state.World.SetFlag("met_sildar", "true")
	state.Touch()
	return state
}

func demoTurns(roomID string) []*game.ConversationTurn {
	now := time.Now().UnixMilli()
	return []*game.ConversationTurn{
		{
			ID:     uuid.NewString(),
			RoomID: roomID,
			UserInputs: []game.PlayerAction{
				{UserID: "demo-alice", Username: "alice", CharacterID: "char-brynja", CharacterName: "Brynja Ironfist", ActionText: "I push open the tavern door and look for Sildar.", TimestampMs: now - 120_000},
				{UserID: "demo-bob", Username: "bob", CharacterID: "char-senna", CharacterName: "Senna Quickstep", ActionText: "I slip in behind her and watch the room.", TimestampMs: now - 119_000},
			},
			AssistantResponse: "The tavern falls quiet as the door swings open. Sildar raises a hand from a corner table, a bandage wrapped over one eye.",
			TimestampMs:       now - 118_000,
			Metadata:          game.TurnMetadata{TurnType: game.TurnTypeExploration, ActionCount: 2},
		},
		{
			ID:     uuid.NewString(),
			RoomID: roomID,
			UserInputs: []game.PlayerAction{
				{UserID: "demo-alice", Username: "alice", CharacterID: "char-brynja", CharacterName: "Brynja Ironfist", ActionText: "I ask Sildar what happened to Gundren.", TimestampMs: now - 60_000},
				{UserID: "demo-bob", Username: "bob", CharacterID: "char-senna", CharacterName: "Senna Quickstep", ActionText: "I order two ales and listen in.", TimestampMs: now - 59_000},
			},
			AssistantResponse: "Sildar leans close. \"Goblins took him on the Triboar Trail,\" he says. \"Cragmaw goblins. They were waiting for us.\"",
			TimestampMs:       now - 58_000,
			Metadata:          game.TurnMetadata{TurnType: game.TurnTypeExploration, ActionCount: 2},
		},
	}
}
