package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/coinwatch/ratevault/internal/application/service"
	"github.com/coinwatch/ratevault/internal/config"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	"github.com/coinwatch/ratevault/internal/infrastructure/agent"
	"github.com/coinwatch/ratevault/internal/infrastructure/api"
	"github.com/coinwatch/ratevault/internal/infrastructure/bus"
	"github.com/coinwatch/ratevault/internal/infrastructure/handler"
	"github.com/coinwatch/ratevault/internal/infrastructure/logger"
	"github.com/coinwatch/ratevault/internal/infrastructure/middleware"
	"github.com/coinwatch/ratevault/internal/infrastructure/store"
	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log := logger.NewJSONLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)

	log.Info("Starting ratevault", map[string]interface{}{
		"version":  cfg.Version,
		"mode":     cfg.Mode,
		"provider": cfg.Provider,
	})

	// The structured store is preferred but optional: if it cannot be
	// opened, every call goes straight to the flat fallback and the
	// process still comes up. A typed nil pointer must not reach the
	// failover store's interface field, hence the explicit branch.
	var primary repository.Store
	if badgerStore, err := store.OpenBadger(cfg.DataDir); err != nil {
		log.Warn("Structured store unavailable, running on flat fallback only", map[string]interface{}{
			"path":  cfg.DataDir,
			"error": err.Error(),
		})
	} else {
		primary = badgerStore
	}

	fallback, err := store.NewFileStore(cfg.FallbackDir)
	if err != nil {
		log.Fatal("Failed to open flat fallback store", map[string]interface{}{
			"path":  cfg.FallbackDir,
			"error": err.Error(),
		})
	}

	kv := store.NewFailoverStore(primary, fallback, log)

	defer func() {
		if err := kv.Close(); err != nil {
			log.Error("Error closing stores", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	ctx := context.Background()

	session, err := service.NewSession(ctx, kv, cfg.Provider, log)
	if err != nil {
		log.Fatal("Failed to initialize provider session", map[string]interface{}{
			"provider": cfg.Provider,
			"error":    err.Error(),
		})
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	source := api.NewProviderClient(session, httpClient, log)
	rates := service.NewRateService(kv, source, session, log)
	currencies := service.NewCurrencyService(kv, source, session, log)

	// Asset cache agent
	generations, err := agent.NewGenerationStore(cfg.AssetCacheDir)
	if err != nil {
		log.Fatal("Failed to open asset cache", map[string]interface{}{
			"path":  cfg.AssetCacheDir,
			"error": err.Error(),
		})
	}

	messageBus := bus.New()

	cacheAgent, err := agent.New(agent.Config{
		Version:            cfg.Version,
		BuildVersion:       cfg.BuildVersion,
		Manifest:           cfg.AssetManifest,
		Upstream:           cfg.AssetOrigin,
		Policy:             agent.Policy(cfg.CachePolicy),
		Mode:               agent.Mode(cfg.Mode),
		PromoteImmediately: true,
		Revalidate:         agent.Policy(cfg.CachePolicy) == agent.PolicyCacheFirst,
	}, generations, messageBus, httpClient, log)
	if err != nil {
		log.Fatal("Failed to initialize asset cache agent", map[string]interface{}{
			"error": err.Error(),
		})
	}

	go cacheAgent.Run(ctx)

	// Install in the background so a dead asset origin cannot delay
	// API availability
	go func() {
		installCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		if err := cacheAgent.Install(installCtx); err != nil {
			log.Error("Asset generation install failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggingMiddleware(log))

	handler.NewRateHandler(rates, currencies, kv, log).RegisterRoutes(router)
	handler.NewProviderHandler(session, log).RegisterRoutes(router)
	handler.NewAgentHandler(cacheAgent, messageBus, log).RegisterRoutes(router)

	// Everything that is not an API call goes through the agent
	router.PathPrefix("/").Handler(cacheAgent)

	log.Info("Server listening", map[string]interface{}{
		"addr": cfg.Addr,
	})

	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatal("Server stopped", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
