package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hrit887/mern-challenge/internal/command"
	"github.com/hrit887/mern-challenge/internal/config"
	"github.com/hrit887/mern-challenge/internal/handler"
	"github.com/hrit887/mern-challenge/internal/query"
	"github.com/hrit887/mern-challenge/internal/repository"
	"github.com/hrit887/mern-challenge/shared/events"
	"github.com/hrit887/mern-challenge/shared/middleware"
	redisClient "github.com/hrit887/mern-challenge/shared/redis"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// store bundles the read and write sides of one backend.
type store struct {
	reader query.TransactionReader
	writer command.TransactionWriter
	pinger handler.Pinger
	close  func(context.Context) error
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Transaction service failed", "error", err)
		os.Exit(1)
	}
}

// run serves until shutdown and releases everything it opened before returning.
func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := st.close(closeCtx); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	// Seed events are optional; without Redis they are dropped.
	var publisher command.EventPublisher = events.Discard
	if cfg.EventsEnabled() {
		redis, err := redisClient.NewClient(ctx, redisClient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer redis.Close()
		publisher = events.NewPublisher(redis.Client)
		logger.Info("Seed events enabled", "addr", cfg.RedisAddr, "stream", events.TransactionEventsStream)
	}

	source := repository.NewHTTPSeedSource(cfg.SeedSourceURL, cfg.SeedFetchTimeout)

	// CQRS: seed command on the write side, views on the read side
	commandSvc := command.NewSeedCommandService(source, st.writer, publisher, cfg.StoreTimeout)
	querySvc := query.NewTransactionQueryService(st.reader, cfg.StoreTimeout)

	transactionHandler := handler.NewTransactionHandler(commandSvc, querySvc)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())

	router.GET("/health", handler.Health(st.pinger))

	seedGuards := []gin.HandlerFunc{middleware.RateLimitMiddleware(cfg.SeedRatePerMinute)}
	if cfg.SeedJWTSecret != "" {
		seedGuards = append(seedGuards, middleware.AuthMiddleware([]byte(cfg.SeedJWTSecret)))
	}
	handler.RegisterRoutes(router, transactionHandler, seedGuards...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Seeding fetches upstream and rewrites the store within one request.
		WriteTimeout:   cfg.SeedFetchTimeout + cfg.StoreTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Transaction service starting", "port", cfg.Port, "backend", cfg.StoreBackend, "seed_source", source.URL())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve on port %s: %w", cfg.Port, err)
	}
	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg)
	case config.BackendMongo:
		return openMongo(ctx, cfg)
	case config.BackendMemory:
		repo := repository.NewMemoryTransactionRepository()
		return &store{
			reader: repo,
			writer: repo,
			pinger: repo,
			close:  func(context.Context) error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*store, error) {
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	readRepo := repository.NewTransactionReadRepository(db)
	return &store{
		reader: readRepo,
		writer: repository.NewTransactionWriteRepository(db),
		pinger: readRepo,
		close:  func(context.Context) error { return db.Close() },
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	repo := repository.NewMongoTransactionRepository(client.Database(cfg.MongoDatabase), cfg.MongoCollection)
	if err := repo.Ping(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &store{
		reader: repo,
		writer: repo,
		pinger: repo,
		close:  client.Disconnect,
	}, nil
}
