package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nubra-ai/nubra-chat/api"
	"github.com/nubra-ai/nubra-chat/internal/chat"
	"github.com/nubra-ai/nubra-chat/internal/completion"
	"github.com/nubra-ai/nubra-chat/internal/config"
	"github.com/nubra-ai/nubra-chat/internal/log"
	"github.com/nubra-ai/nubra-chat/internal/memory"
	"github.com/nubra-ai/nubra-chat/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes dependencies and starts the HTTP API server.
// It blocks until SIGINT/SIGTERM, then shuts down gracefully.
func runServe() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{
		Level: parseLogLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	logger.Info("starting nubra-chat", "version", AppVersion, "store", cfg.StoreBackend)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, pinger, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing session store: %w", err)
	}
	defer closeStore()

	sessions, err := session.NewManager(store, logger.With("component", "session"))
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	client, err := completion.NewHTTPClient(completion.HTTPConfig{
		Endpoint: cfg.CompletionEndpoint,
		APIKey:   cfg.CompletionAPIKey,
		Timeout:  time.Duration(cfg.CompletionTimeout) * time.Second,
		RetryMax: cfg.CompletionRetryMax,
	}, logger.With("component", "completion"))
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}

	layer, err := completion.NewLayer(client, logger.With("component", "completion"))
	if err != nil {
		return fmt.Errorf("creating completion layer: %w", err)
	}

	orch, err := chat.New(chat.Config{
		Sessions:         sessions,
		Memory:           memory.New(cfg.SummaryTriggerTurn, cfg.RecentWindow),
		Completions:      layer,
		BaseSystemPrompt: cfg.BaseSystemPrompt,
		Logger:           logger.With("component", "chat"),
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	server := api.NewServer(orch, pinger, api.ServerConfig{
		MaxPromptChars:     cfg.MaxPromptChars,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSOrigins:        cfg.CORSOrigins,
		TrustProxy:         cfg.TrustProxy,
	}, logger.With("component", "api"))

	return server.Run(ctx, cfg.ListenAddr)
}

// buildStore constructs the configured session store. The returned cleanup
// is always safe to call.
func buildStore(ctx context.Context, cfg *config.Config, logger log.Logger) (session.Store, api.Pinger, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
		if err != nil {
			return nil, nil, func() {}, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		store, err := session.NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, func() {}, err
		}
		return store, store, pool.Close, nil

	case config.StoreSQLite:
		store, err := session.NewSQLiteStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, func() {}, err
		}
		closeStore := func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sqlite store", "error", err)
			}
		}
		return store, store, closeStore, nil

	default:
		return session.NewMemoryStore(), nil, func() {}, nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
