// agora/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/config"
	"agora/handlers"
	"agora/storage"
	"agora/storage/inmemory"
	mongostore "agora/storage/mongo"
	"agora/utils"
)

type Application struct {
	store             storage.Store
	logger            *slog.Logger
	defaultCategoryID string
	tokenTTL          time.Duration
}

// Methods to satisfy the handlers.App interface
func (a *Application) Store() storage.Store      { return a.store }
func (a *Application) Logger() *slog.Logger      { return a.logger }
func (a *Application) DefaultCategoryID() string { return a.defaultCategoryID }
func (a *Application) TokenTTL() time.Duration   { return a.tokenTTL }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- External Configuration ---
	port := utils.GetEnv("AGORA_PORT", "8080")

	tokenTTL, err := time.ParseDuration(utils.GetEnv("AGORA_TOKEN_TTL", config.DefaultTokenTTL))
	if err != nil {
		logger.Warn("Invalid AGORA_TOKEN_TTL duration, using default", "value", utils.GetEnv("AGORA_TOKEN_TTL", ""), "default", config.DefaultTokenTTL)
		tokenTTL, _ = time.ParseDuration(config.DefaultTokenTTL)
	}

	ctx := context.Background()

	// --- Store Init ---
	var store storage.Store
	switch backend := utils.GetEnv("AGORA_STORE", "mongo"); backend {
	case "memory":
		store = inmemory.New()
		logger.Info("In-memory store initialized")
	case "mongo":
		uri := utils.GetEnv("AGORA_MONGO_URI", "mongodb://localhost:27017")
		dbName := utils.GetEnv("AGORA_DB_NAME", "agora")
		mongoStore, err := mongostore.New(ctx, uri, dbName, logger)
		if err != nil {
			logger.Error("Failed to initialize mongodb store", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				logger.Error("Failed to disconnect mongodb store", "error", err)
			}
		}()
		store = mongoStore
	default:
		logger.Error("Unknown AGORA_STORE backend", "value", backend)
		os.Exit(1)
	}

	// --- Seed & Default Category ---
	defaultCategoryID := utils.GetEnv("AGORA_DEFAULT_CATEGORY_ID", "")
	if utils.GetEnv("AGORA_SEED", "true") == "true" {
		seededDefault, err := storage.SeedCategories(ctx, store)
		if err != nil {
			logger.Error("Failed to seed categories", "error", err)
			os.Exit(1)
		}
		if defaultCategoryID == "" {
			defaultCategoryID = seededDefault
		}
	}
	if defaultCategoryID == "" {
		logger.Warn("No default category configured; category deletion will be refused")
	}

	app := &Application{
		store:             store,
		logger:            logger,
		defaultCategoryID: defaultCategoryID,
		tokenTTL:          tokenTTL,
	}

	mux := handlers.SetupRouter(app)

	// --- Graceful Shutdown ---
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("agora server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+port,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
