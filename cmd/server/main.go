// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/api"
	"github.com/andresuchdata/autopo-py/replenishment/internal/cache"
	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/export"
	"github.com/andresuchdata/autopo-py/replenishment/internal/planner"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/postgres"
	"github.com/andresuchdata/autopo-py/replenishment/internal/service"
	"github.com/andresuchdata/autopo-py/replenishment/internal/storage"
	"github.com/andresuchdata/autopo-py/replenishment/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON()
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ruleCache, err := cache.NewRuleSetCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Rule cache unavailable, reading rules from the database")
		ruleCache = cache.NewNoopRuleSetCache()
	}

	// Initialize repositories
	products := postgres.NewProductRepository(db)
	snapshots := postgres.NewSnapshotRepository(db)
	rules := cache.NewCachedRuleRepository(postgres.NewRuleRepository(db), ruleCache)
	plans := postgres.NewPlanRepository(db)

	generator := planner.NewGenerator(products, rules, snapshots, planner.Config{
		Concurrency:  cfg.Planner.Concurrency,
		PreloadRules: cfg.Planner.PreloadRules,
	})

	var exporter *export.Exporter
	if cfg.Storage.Enabled() {
		objects, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		exporter = export.NewExporter(objects, cfg.Storage.Prefix)
	} else {
		logger.Log.Info().Msg("Object storage not configured, plan export disabled")
	}

	// Initialize services
	services := &api.Services{
		PlanService: service.NewPlanService(generator, plans, exporter),
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// In-flight plan generations get the remaining time to finish
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
