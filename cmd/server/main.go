// Package main is the entry point for the Bilim Points Hub API server.
//
// The service keeps student point balances and auction inventory
// consistent: every purchase and every point grant runs inside a single
// database transaction, and the Redis leaderboard is a disposable
// projection rebuilt from PostgreSQL on demand.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business rules without external dependencies
// - Application: use case orchestration (Commands/Queries/Event handlers)
// - Infrastructure: PostgreSQL repositories, Redis caches, event bus
// - Interface: HTTP REST API
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilim-hub/bilim-points-hub/config"
	"github.com/bilim-hub/bilim-points-hub/internal/application/command"
	"github.com/bilim-hub/bilim-points-hub/internal/application/eventhandler"
	"github.com/bilim-hub/bilim-points-hub/internal/application/query"
	"github.com/bilim-hub/bilim-points-hub/internal/infrastructure/messaging"
	"github.com/bilim-hub/bilim-points-hub/internal/infrastructure/persistence/postgres"
	"github.com/bilim-hub/bilim-points-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/bilim-hub/bilim-points-hub/internal/interface/http"
	"github.com/bilim-hub/bilim-points-hub/internal/interface/http/handlers"
	"github.com/bilim-hub/bilim-points-hub/pkg/logger"
)

const version = "1.0.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Bilim Points Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", version),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL CONNECTION
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional, leaderboard projection only)
	// ─────────────────────────────────────────────────────────────────────────
	var leaderboardCache *redis.LeaderboardCache
	var redisCache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			// PostgreSQL stays the source of truth; the leaderboard query
			// falls back to it when the cache is unavailable.
			log.Warn("failed to connect to Redis, leaderboard cache disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories")
	auctionRepo := postgres.NewAuctionRepository(dbConn)
	grantRepo := postgres.NewGrantRepository(dbConn)
	studentRepo := postgres.NewStudentRepository(dbConn)
	groupRepo := postgres.NewGroupRepository(dbConn)
	assignmentRepo := postgres.NewAssignmentRepository(dbConn)
	newsRepo := postgres.NewNewsRepository(dbConn)

	saleAtomic := postgres.NewSaleAtomic(dbConn)
	grantAtomic := postgres.NewGrantAtomic(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus")
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer")

	purchaseHandler := command.NewPurchaseHandler(saleAtomic, eventBus, log)
	grantHandler := command.NewGrantHandler(grantAtomic, eventBus, log)
	submitHandler := command.NewSubmitWorkHandler(assignmentRepo, log)

	auctionQuery := query.NewCurrentAuctionHandler(auctionRepo)
	statsQuery := query.NewStatsHandler(grantRepo, studentRepo)
	leaderboardQuery := query.NewLeaderboardHandler(leaderboardCache, studentRepo, log)
	courseAvgQuery := query.NewCourseAverageHandler(studentRepo, groupRepo)
	newsQuery := query.NewNewsHandler(newsRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	if leaderboardCache != nil {
		log.Info("registering leaderboard event handlers")
		pointsChanged := eventhandler.NewPointsChangedHandler(leaderboardCache, studentRepo, log)
		if err := pointsChanged.Subscribe(eventBus); err != nil {
			return fmt.Errorf("failed to subscribe event handlers: %w", err)
		}

		// Warm the projection; a cold cache is repaired on first read anyway.
		if err := eventhandler.RebuildLeaderboard(ctx, leaderboardCache, studentRepo); err != nil {
			log.Warn("failed to warm leaderboard cache", logger.Err(err))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(version)
	healthChecker.AddCheck("postgres", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server")

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes

	httpDeps := httpserver.Dependencies{
		Purchases:      purchaseHandler,
		Grants:         grantHandler,
		Submissions:    submitHandler,
		Auctions:       auctionQuery,
		Stats:          statsQuery,
		Leaderboard:    leaderboardQuery,
		CourseAverages: courseAvgQuery,
		News:           newsQuery,
		Logger:         log,
		HealthChecker:  healthChecker,
	}

	server := httpserver.NewServer(httpCfg, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("Bilim Points Hub is running", logger.String("address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	// Event bus and connections close via defers.
	log.Info("shutdown completed")
	return nil
}

// setupLogger builds the root logger from observability settings.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}
