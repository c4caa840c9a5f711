package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tavern/internal/config"
	"tavern/internal/domain/models/game"
	"tavern/internal/engine/extractor"
	"tavern/internal/engine/state"
	"tavern/internal/llm"
	"tavern/internal/prompts"
	"tavern/internal/repository/memory"
	"tavern/internal/rooms"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Interactive solo session against the live turn engine. State lives in
// memory; use /save and /load to stash it between prompts within a run.
//
// Usage: go run scripts/dm_cli.go

// setupLogger writes debug logs to a timestamped file under logs/.
func setupLogger() (*slog.Logger, string, error) {
	logFile, err := config.SetupLogFile("logs", 10)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log file: %w", err)
	}

	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})
	return slog.New(fileHandler), logFile.Name(), nil
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, logFile, err := setupLogger()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	fmt.Printf("%sLogs: %s%s\n", colorCyan, logFile, colorReset)

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to setup LLM provider: %v", err)
	}
	fmt.Printf("%sProvider: %s, model: %s%s\n", colorCyan, provider.Name(), cfg.LLMModel, colorReset)

	promptSet := prompts.NewSet(cfg.PromptsDir)
	registry := rooms.NewRegistry(rooms.Deps{
		Provider:  provider,
		Store:     memory.NewGameStore(),
		Prompts:   promptSet,
		Extractor: extractor.New(provider, promptSet, cfg.LLMModel, 0, 0, logger),
		Options: state.Options{
			Model:         cfg.LLMModel,
			Temperature:   cfg.LLMTemperature,
			MaxTokens:     cfg.LLMMaxTokens,
			MaxToolRounds: cfg.MaxToolRounds,
			HistoryTurns:  cfg.HistoryRecentTurns,
			LLMTimeout:    time.Duration(cfg.LLMTimeoutSecs) * time.Second,
		},
		Logger: logger,
	})
	defer registry.Close()

	room, err := registry.Create("cli session", "lost-mines")
	if err != nil {
		log.Fatalf("Failed to create room: %v", err)
	}
	member := rooms.Member{
		UserID:        "cli-user",
		Username:      "cli",
		CharacterID:   "char-cli",
		CharacterName: "Wanderer",
	}
	if err := room.Join(member); err != nil {
		log.Fatalf("Failed to join room: %v", err)
	}
	if err := room.Start(); err != nil {
		log.Fatalf("Failed to start game: %v", err)
	}

	sub := room.Session().Subscribe("cli")
	defer room.Session().Unsubscribe("cli")

	fmt.Printf("%sType an action to play a turn. Commands: /state /history /advance /save <slot> /load <slot> /quit%s\n",
		colorYellow, colorReset)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> %s", colorGreen, colorReset)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return

		case line == "/state":
			gs := room.Session().Snapshot()
			fmt.Printf("%slocation: %s%s\n", colorBlue, gs.Location, colorReset)
			for id, cs := range gs.CharacterStates {
				fmt.Printf("%s  %s (%s): %d HP, conditions %v%s\n",
					colorBlue, cs.CharacterName, id, cs.CurrentHP, cs.Conditions, colorReset)
			}
			for _, fact := range gs.World.WorldFacts {
				fmt.Printf("%s  fact: %s%s\n", colorBlue, fact, colorReset)
			}

		case line == "/history":
			for _, turn := range room.Session().History(10) {
				for _, in := range turn.UserInputs {
					fmt.Printf("%s[%s] %s%s\n", colorGreen, in.CharacterName, in.ActionText, colorReset)
				}
				fmt.Printf("%s%s%s\n", colorReset, turn.AssistantResponse, colorReset)
			}

		case line == "/advance":
			if _, err := room.Advance(); err != nil {
				fmt.Printf("%sadvance failed: %v%s\n", colorRed, err, colorReset)
				continue
			}
			drainTurn(sub.Events())

		case strings.HasPrefix(line, "/save "):
			slot := strings.TrimSpace(strings.TrimPrefix(line, "/save "))
			if err := room.Session().SaveSnapshot(context.Background(), slot, "cli save"); err != nil {
				fmt.Printf("%ssave failed: %v%s\n", colorRed, err, colorReset)
				continue
			}
			fmt.Printf("%ssaved %q%s\n", colorYellow, slot, colorReset)

		case strings.HasPrefix(line, "/load "):
			slot := strings.TrimSpace(strings.TrimPrefix(line, "/load "))
			if err := room.Session().LoadSnapshot(context.Background(), slot); err != nil {
				fmt.Printf("%sload failed: %v%s\n", colorRed, err, colorReset)
				continue
			}
			fmt.Printf("%sloaded %q%s\n", colorYellow, slot, colorReset)

		default:
			started, err := room.SubmitAction(game.PlayerAction{
				UserID:        member.UserID,
				Username:      member.Username,
				CharacterID:   member.CharacterID,
				CharacterName: member.CharacterName,
				ActionText:    line,
			})
			if err != nil {
				fmt.Printf("%ssubmit failed: %v%s\n", colorRed, err, colorReset)
				continue
			}
			if !started {
				fmt.Printf("%swaiting on other players%s\n", colorYellow, colorReset)
				continue
			}
			drainTurn(sub.Events())
		}
	}
}

// drainTurn prints events until the turn-end marker.
func drainTurn(events <-chan game.SessionEvent) {
	for ev := range events {
		switch ev.Type {
		case game.EventNarrativeChunk:
			fmt.Print(ev.Content)
		case game.EventDiceRoll:
			roll := ev.DiceRoll
			outcome := colorGreen + "success"
			if !roll.Success {
				outcome = colorRed + "failure"
			}
			fmt.Printf("\n%s[%s %s check: rolled %d vs DC %d, %s%s]%s\n",
				colorCyan, roll.CharacterName, roll.Ability, roll.Roll.Total, roll.DC,
				outcome, colorCyan, colorReset)
		case game.EventActionRestriction:
			fmt.Printf("\n%s[next turn: only %v may act]%s\n",
				colorYellow, ev.Restriction.AllowedCharacterIDs, colorReset)
		case game.EventStateTransition:
			fmt.Printf("\n%s[%s -> %s]%s\n",
				colorYellow, ev.Transition.From, ev.Transition.To, colorReset)
		case game.EventTurnEnd:
			fmt.Println()
			return
		}
	}
}
