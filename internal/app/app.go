package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"flow-ai/chatsync/internal/api"
	"flow-ai/chatsync/internal/blobstore"
	"flow-ai/chatsync/internal/config"
	"flow-ai/chatsync/internal/database"
	"flow-ai/chatsync/internal/llm"
	"flow-ai/chatsync/internal/repository"
	"flow-ai/chatsync/internal/service"
)

const (
	ollamaWaitLimit = 2 * time.Minute
	shutdownTimeout = 15 * time.Second
)

// App holds the wired backend.
type App struct {
	DB       *sql.DB
	Blobs    *blobstore.Store
	Redis    *redis.Client
	Server   *http.Server
	Chat     *service.ChatService
	Indexing *service.IndexingService
}

// NewApp opens the stores and wires services, handlers and the HTTP server.
// Nothing is started.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{}
	var err error

	a.DB, err = database.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Successfully connected to SQLite database.", "path", cfg.DatabasePath)

	a.Blobs, err = blobstore.Open(cfg.BlobPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	var jobs repository.JobRegistry
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.Redis.Ping(context.Background()).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		jobs = repository.NewRedisJobRegistry(a.Redis)
		slog.Info("Successfully connected to Redis.", "addr", cfg.RedisAddr)
	} else {
		jobs = repository.NewMemoryJobRegistry()
		slog.Warn("REDIS_ADDR not set, indexing jobs are kept in memory.")
	}

	ollamaProvider := llm.NewOllamaProvider(cfg.OllamaURL)
	a.Chat = service.NewChatService(repository.NewSQLiteRepository(a.DB), jobs, ollamaProvider, service.ChatConfig{
		MainModel:    cfg.MainModel,
		SupportModel: cfg.SupportModel,
		SystemPrompt: cfg.InitialSystemPrompt,
	}, slog.Default())
	a.Indexing = service.NewIndexingService(jobs, a.Blobs, cfg.IndexWorkers, slog.Default())

	router := api.NewRouter(
		api.NewChatHandler(a.Chat, cfg.PageSize),
		api.NewUploadHandler(service.NewUploadService(a.Blobs, slog.Default()), a.Indexing),
		api.NewSurfaceHandler(service.NewSurfaceService()),
	)

	a.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}
	return a, nil
}

// Close releases the stores. It is safe on a partially built App.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("Failed to close redis connection", "error", err)
		}
	}
	if a.Blobs != nil {
		if err := a.Blobs.Close(); err != nil {
			slog.Error("Failed to close blob store", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}
}

// Serve runs the server until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	a.Indexing.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}

	a.Indexing.Stop()
	a.Chat.Wait()
	return serveErr
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	waitCtx, cancel := context.WithTimeout(ctx, ollamaWaitLimit)
	if !waitForOllama(waitCtx, cfg.OllamaURL) {
		slog.Warn("Ollama is not reachable yet, replies will fail until it is", "url", cfg.OllamaURL)
	}
	cancel()

	a, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to start application", "error", err)
		return 1
	}
	defer a.Close()
	slog.Info("Loaded application settings", "main_model", cfg.MainModel, "support_model", cfg.SupportModel)

	if err := a.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	}))
	slog.SetDefault(logger)
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// waitForOllama polls the Ollama root endpoint until it answers or ctx ends.
func waitForOllama(ctx context.Context, ollamaURL string) bool {
	slog.Info("Waiting for Ollama to be ready...")
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ollamaURL, nil)
		if err != nil {
			slog.Error("Invalid Ollama URL", "url", ollamaURL, "error", err)
			return false
		}
		resp, err := client.Do(req)
		if resp != nil {
			if bErr := resp.Body.Close(); bErr != nil {
				slog.Warn("Failed to close response body in ollama health check", "error", bErr)
			}
		}
		if err == nil && resp.StatusCode == http.StatusOK {
			slog.Info("Ollama is ready.")
			return true
		}
		slog.Debug("Ollama not ready yet, retrying in 3 seconds...", "url", ollamaURL, "error", err)

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
