package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Radix-Obsidian/ShepGate/internal/api"
	"github.com/Radix-Obsidian/ShepGate/internal/auth"
	"github.com/Radix-Obsidian/ShepGate/internal/discovery"
	"github.com/Radix-Obsidian/ShepGate/internal/execution"
	"github.com/Radix-Obsidian/ShepGate/internal/policy"
	"github.com/Radix-Obsidian/ShepGate/internal/storage"
	"github.com/Radix-Obsidian/ShepGate/internal/store"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("SHEPGATE_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("SHEPGATE_HTTP_PORT", "8080")
	postgresDSN := os.Getenv("POSTGRES_DSN")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	adminToken := os.Getenv("SHEPGATE_ADMIN_TOKEN")
	cacheTTL := envOrDefaultInt("SHEPGATE_AUTH_CACHE_TTL_S", 30)
	idleTimeout := envOrDefaultInt("SHEPGATE_POOL_IDLE_TIMEOUT_S", 300)
	mockExecution := envOrDefault("SHEPGATE_MOCK_EXECUTION", "") == "true"

	logger.Info("starting shepgate server",
		zap.String("http_port", httpPort),
		zap.Int("auth_cache_ttl_s", cacheTTL),
		zap.Bool("mock_execution", mockExecution),
	)
	if adminToken == "" {
		logger.Warn("SHEPGATE_ADMIN_TOKEN not set, management API is unauthenticated")
	}

	// Postgres (required)
	if postgresDSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}
	db, err := store.Open(context.Background(), postgresDSN)
	if err != nil {
		logger.Fatal("failed to open postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()
	pgStore := store.NewStore(db)
	logger.Info("postgres connected")

	// Decision event sink — ClickHouse or LogWriter fallback
	var writer storage.EventWriter
	if clickhouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = storage.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = storage.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Tool server connection pool
	pool := execution.NewPool(time.Duration(idleTimeout)*time.Second, time.Minute, logger)
	defer pool.Close()

	// Executor
	var executor execution.Executor
	if mockExecution {
		executor = execution.NewMockExecutor(pgStore)
		logger.Info("mock execution enabled, downstream calls are simulated")
	} else {
		executor = execution.NewMCPExecutor(pgStore, pool, logger)
	}

	// Policy engine + approval resolver
	engine := policy.NewEngine(pgStore, writer, logger)
	resolver := policy.NewResolver(pgStore, writer, logger)

	// Agent API key auth
	authenticator := auth.NewAgentAuthenticator(auth.AgentAuthConfig{
		Lookup:   pgStore,
		CacheTTL: time.Duration(cacheTTL) * time.Second,
		Logger:   logger,
	})

	deps := &api.Dependencies{
		Store:      pgStore,
		Engine:     engine,
		Resolver:   resolver,
		Executor:   executor,
		Discoverer: discovery.NewDiscoverer(pool, logger),
		Auth:       authenticator,
		AdminToken: adminToken,
		Logger:     logger,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("shepgate server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
