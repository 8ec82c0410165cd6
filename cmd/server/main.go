package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/artscene/internal/config"
	"github.com/stwalsh4118/artscene/internal/database"
	"github.com/stwalsh4118/artscene/internal/handlers"
	"github.com/stwalsh4118/artscene/internal/logger"
	"github.com/stwalsh4118/artscene/internal/middleware"
	"github.com/stwalsh4118/artscene/internal/repository"
	"github.com/stwalsh4118/artscene/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables and the optional config file
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Server.Env, cfg.Log.Level, os.Stdout)
	log.Info("Starting artscene API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"store":       cfg.Store.Driver,
	})

	ctx := context.Background()
	repo, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	healthHandler := handlers.NewHealthHandler(repo, cfg.Store.Driver, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	sceneService := services.NewSceneService(repo, services.Options{
		ReadableKinds: cfg.Drawing.ReadableKinds,
		StyleDir:      cfg.Drawing.StyleDir,
	}, log)
	handlers.NewSceneHandler(sceneService).Register(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// openStore opens the scene store named by the configuration. Connection
// failures are fatal.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.SceneRepository, func()) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", err, map[string]interface{}{
				"host": cfg.Database.Host,
				"port": cfg.Database.Port,
				"name": cfg.Database.Name,
			})
		}
		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_min": cfg.Database.PoolMin,
			"pool_max": cfg.Database.PoolMax,
		})
		return repository.NewPostgresSceneRepository(db), db.Close

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			log.Fatal("Failed to open database", err, map[string]interface{}{
				"path": cfg.Store.SQLitePath,
			})
		}
		log.Info("Database opened", map[string]interface{}{"path": cfg.Store.SQLitePath})
		return repository.NewSQLiteSceneRepository(db), func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close database", err, nil)
			}
		}

	default:
		log.Warn("Scenes are kept in memory and lost on exit", nil)
		return repository.NewMemoryRepository(), func() {}
	}
}
