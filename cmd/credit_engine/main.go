package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lucasmedeiros/credit_engine/cmd/docs"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	"github.com/lucasmedeiros/credit_engine/internal/core/services"
	"github.com/lucasmedeiros/credit_engine/internal/handlers"
	"github.com/lucasmedeiros/credit_engine/internal/middleware"
	"github.com/lucasmedeiros/credit_engine/internal/platform/dispatch"
	"github.com/lucasmedeiros/credit_engine/internal/platform/events"
	"github.com/lucasmedeiros/credit_engine/internal/repositories/database/pgsql"
	"github.com/lucasmedeiros/credit_engine/pkg/config"
	"github.com/lucasmedeiros/credit_engine/pkg/database"
	"github.com/ulule/limiter/v3"
	limitermem "github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Credit Engine API
// @version 1.0
// @description Loan simulation API with asynchronous batch processing.

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Dispatch fabric for asynchronous batch units
	pool := dispatch.NewPool(dispatch.Config{
		CoreWorkers:   cfg.SimCoreWorkers,
		MaxWorkers:    cfg.SimMaxWorkers,
		QueueCapacity: cfg.SimQueueCapacity,
		KeepAlive:     cfg.SimKeepAlive,
	}, logger)

	bus := events.NewBus(pool, logger)

	// Services
	batchRepo := pgsql.NewBatchRepository(dbPool)
	simulationRepo := pgsql.NewSimulationRepository(dbPool)
	feeService := services.NewFeeService()
	simulationService := services.NewSimulationService(feeService, simulationRepo)
	batchService := services.NewBatchService(batchRepo, bus)

	// Event wiring: batch creation fans out into per-unit events; each unit
	// runs the processor and advances the batch counters.
	bus.Subscribe(domain.EventTypeBatchSimulationCreated,
		events.NewBatchSimulationEventHandler(bus, logger).Handle)
	bus.Subscribe(domain.EventTypeSimulationProcessing,
		events.NewSimulationProcessingEventHandler(simulationService, batchService, logger).Handle)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	r.GET("/", handlers.GetHome)

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimitRate)
	if err != nil {
		logger.Error("Failed to parse rate limit", slog.String("error", err.Error()))
		os.Exit(1)
	}
	limiterInstance := limiter.New(limitermem.NewStore(), rate)

	v1 := r.Group("/api/v1", middleware.RateLimit(limiterInstance))
	handlers.RegisterSimulationRoutes(v1, simulationService, batchService)

	setupSwaggerRoutes(r, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown: stop accepting requests, then drain in-flight
	// simulations up to the configured bound.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownDrainTimeout)
	defer cancelDrain()
	if err := pool.Drain(drainCtx); err != nil {
		logger.Warn("Dispatch pool drain timed out, in-flight work force-stopped", slog.String("error", err.Error()))
	} else {
		logger.Info("Dispatch pool drained")
	}
}

func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	// Open a standard sql.DB connection via the pgx stdlib driver for migrate.
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
