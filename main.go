package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/courtside-analytics/courtside/pkg/audit"
	"github.com/courtside-analytics/courtside/pkg/auth"
	"github.com/courtside-analytics/courtside/pkg/config"
	"github.com/courtside-analytics/courtside/pkg/database"
	"github.com/courtside-analytics/courtside/pkg/handlers"
	"github.com/courtside-analytics/courtside/pkg/llm"
	"github.com/courtside-analytics/courtside/pkg/logging"
	"github.com/courtside-analytics/courtside/pkg/metrics"
	"github.com/courtside-analytics/courtside/pkg/middleware"
	"github.com/courtside-analytics/courtside/pkg/prompts"
	"github.com/courtside-analytics/courtside/pkg/repositories"
	"github.com/courtside-analytics/courtside/pkg/retry"
	"github.com/courtside-analytics/courtside/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
	)
	metrics.BuildInfo.WithLabelValues(cfg.Version).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := retry.DoWithResult(ctx, retry.StartupConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.ConnectionString(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	catalog, err := prompts.DefaultCatalog()
	if err != nil {
		logger.Fatal("Failed to load schema catalog", zap.Error(err))
	}

	llmClient, err := llm.NewClientFromConfig(cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	// Repositories
	teamRepo := repositories.NewTeamRepository(db)
	chatLogRepo := repositories.NewChatLogRepository(db)
	queryExecutor := repositories.NewQueryExecutor(db, cfg.Database.StatementTimeout, logger)

	// Services
	teamScope := services.NewTeamScopeService(teamRepo, cfg.Chat.OpponentCacheTTL, logger)
	chatLog := services.NewChatLogService(chatLogRepo, cfg.Chat.AuditTimeout, logger)
	chatService := services.NewChatService(&services.ChatServiceDeps{
		Generator:     services.NewSQLGenerator(llmClient, catalog, cfg.LLM.Temperature, logger),
		Executor:      queryExecutor,
		Evaluator:     services.NewResultEvaluator(llmClient, cfg.LLM.Temperature, cfg.Chat.MaxEvaluationRows, logger),
		Auditor:       audit.NewSecurityAuditor(logger),
		MaxIterations: cfg.Chat.MaxIterations,
		Logger:        logger,
	})

	// Auth
	jwksClient, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(jwksClient, logger), logger)

	mux := http.NewServeMux()

	// Register handlers
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(&handlers.ChatHandlerDeps{
		TeamScope:      teamScope,
		Chat:           chatService,
		ChatLog:        chatLog,
		ChatLogRepo:    chatLogRepo,
		RequestTimeout: cfg.Chat.RequestTimeout,
		Logger:         logger,
	}).RegisterRoutes(mux, authMiddleware)
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Chain(mux, middleware.RequestLogger(logger), middleware.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
		// Leave headroom for the chat watchdog to produce its own response.
		WriteTimeout: cfg.Chat.RequestTimeout + 10*time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting courtside", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	chatLog.Wait()
	logger.Info("Server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsLocal() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
