package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"tavern/internal/auth"
	"tavern/internal/config"
	"tavern/internal/engine/extractor"
	"tavern/internal/engine/state"
	"tavern/internal/handler"
	"tavern/internal/llm"
	"tavern/internal/middleware"
	"tavern/internal/prompts"
	"tavern/internal/repository/memory"
	"tavern/internal/repository/postgres"
	"tavern/internal/rooms"

	services "tavern/internal/domain/services/game"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"provider", cfg.DefaultProvider,
	)

	// JWT verification is optional: without a JWKS URL the server runs in
	// dev mode and trusts the X-User-ID header.
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		verifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
		jwtVerifier = verifier
	} else {
		logger.Warn("no JWKS URL configured, running with header-based dev auth")
	}

	// Persistence: PostgreSQL when configured, in-memory otherwise.
	ctx := context.Background()
	var store services.GameStore
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		store = postgres.NewGameStore(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		})
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)
	} else {
		store = memory.NewGameStore()
		logger.Warn("no database configured, game state persists in memory only")
	}

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to setup LLM provider: %v", err)
	}

	promptSet := prompts.NewSet(cfg.PromptsDir)
	worldExtractor := extractor.New(provider, promptSet, cfg.LLMModel, 0, 0, logger)

	registry := rooms.NewRegistry(rooms.Deps{
		Provider:  provider,
		Store:     store,
		Prompts:   promptSet,
		Extractor: worldExtractor,
		Options: state.Options{
			Model:         cfg.LLMModel,
			Temperature:   cfg.LLMTemperature,
			MaxTokens:     cfg.LLMMaxTokens,
			MaxToolRounds: cfg.MaxToolRounds,
			HistoryTurns:  cfg.HistoryRecentTurns,
			LLMTimeout:    time.Duration(cfg.LLMTimeoutSecs) * time.Second,
		},
		RecentEventsCap: cfg.RecentEventsCap,
		WorldFactsCap:   cfg.WorldFactsCap,
		Logger:          logger,
	})
	defer registry.Close()

	logger.Info("services initialized")

	mux := handler.NewRouter(registry, logger)

	// Middleware chain: CORS → Auth → Recovery → Routes. Recovery sits inside
	// Auth so panic logs carry the authenticated user.
	var root http.Handler = mux
	root = middleware.Recovery(logger)(root)
	root = middleware.Auth(jwtVerifier)(root)
	root = cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID", "X-User-ID", "X-Username"},
		AllowCredentials: true,
	}).Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting connections, then close rooms so
	// in-flight extractor and autosave work can finish.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
