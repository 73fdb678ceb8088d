package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/owemate/owemate/internal/auth"
	"github.com/owemate/owemate/internal/server"
	"github.com/owemate/owemate/internal/service"
	"github.com/owemate/owemate/internal/storage/sqlite"
	"github.com/owemate/owemate/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/owemate.db")
	addr := ":" + getEnv("PORT", "8080")
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-change-me"
		slog.Warn("JWT_SECRET not set, using insecure development secret")
	}

	tokenTTL := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			slog.Error("invalid TOKEN_TTL", "value", raw, "error", err)
			os.Exit(1)
		}
		tokenTTL = parsed
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", dbPath)

	jwtManager := auth.NewJWTManager(jwtSecret, tokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	handlers := server.NewHandlers(
		service.NewGroupService(store),
		service.NewAuthService(authenticator, jwtManager),
	)

	slog.Info("server starting", "address", addr)
	if err := http.ListenAndServe(addr, server.NewRouter(handlers, jwtManager)); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
