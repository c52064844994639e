package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/storytime-app/storytime/internal/config"
	"github.com/storytime-app/storytime/internal/handlers"
	"github.com/storytime-app/storytime/internal/logger"
	"github.com/storytime-app/storytime/internal/middleware"
	"github.com/storytime-app/storytime/internal/services"
	"github.com/storytime-app/storytime/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting StoryTime API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"generator_provider", cfg.GeneratorProvider,
		"model_name", cfg.ModelName)

	var gen services.Generator
	switch strings.ToLower(cfg.GeneratorProvider) {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			log.Error("Gemini API key is required when using gemini provider")
			os.Exit(1)
		}
		gen = services.NewGeminiService(cfg.GeminiAPIKey, cfg.ModelName, log)
		log.Info("Using Gemini story generator")
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			log.Error("OpenAI API key is required when using openai provider")
			os.Exit(1)
		}
		gen = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.OpenAIBaseURL, log)
		log.Info("Using OpenAI story generator")
	default:
		log.Error("Invalid generator provider specified", "provider", cfg.GeneratorProvider, "supported", []string{config.ProviderGemini, config.ProviderOpenAI})
		os.Exit(1)
	}

	var store storage.Storage = storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SessionTTL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	storiesHandler := handlers.NewStoriesHandler(log, store)
	mux.Handle("/v1/stories", storiesHandler)
	mux.Handle("/v1/stories/", storiesHandler)

	sessionsHandler := handlers.NewSessionsHandler(log, store)
	mux.Handle("/v1/sessions", sessionsHandler)
	mux.Handle("/v1/sessions/", sessionsHandler)

	generateHandler := handlers.NewGenerateHandler(log, gen)
	mux.Handle("/v1/generate", generateHandler)

	userStoriesHandler := handlers.NewUserStoriesHandler(log, store)
	mux.Handle("/v1/userstories", userStoriesHandler)
	mux.Handle("/v1/userstories/", userStoriesHandler)

	transcriptsHandler := handlers.NewTranscriptsHandler(log, store)
	mux.Handle("/v1/transcripts", transcriptsHandler)
	mux.Handle("/v1/transcripts/", transcriptsHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
