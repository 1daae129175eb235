// Command webchat serves the destination assistant as a web chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"destination_assistant/internal/config"
	"destination_assistant/internal/conversation"
	"destination_assistant/internal/core"
	"destination_assistant/internal/extractor"
	"destination_assistant/internal/handoff"
	httptransport "destination_assistant/internal/http"
	"destination_assistant/internal/http/handlers"
	"destination_assistant/internal/llm"
	"destination_assistant/internal/logger"
	"destination_assistant/internal/voice"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	envErr := godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("No .env file loaded, using process environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	store, err := newStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := handoff.New(ctx, cfg.Handoff)
	if err != nil {
		return fmt.Errorf("error creating handoff publisher: %w", err)
	}
	defer publisher.Close()

	deps := handlers.ChatDeps{
		Assistant:   core.New(client, extractor.New(cfg.Extractor), cfg.LLM.HistoryWindow),
		Store:       store,
		Publisher:   publisher,
		TurnTimeout: cfg.HTTP.TurnTimeout,
	}
	if cfg.Voice.Enabled {
		deps.Voice = voice.New(cfg.Voice)
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httptransport.NewRouter(handlers.NewChatHandler(deps)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTP.Addr).
			Str("provider", cfg.LLM.Provider).
			Str("session_store", cfg.Session.Store).
			Bool("voice", cfg.Voice.Enabled).
			Msg("Web chat listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg config.SessionConfig) (conversation.Store, error) {
	if cfg.Store == "redis" {
		store, err := conversation.NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("error creating session store: %w", err)
		}
		return store, nil
	}
	return conversation.NewMemoryStore(), nil
}
