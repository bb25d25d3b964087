package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"reelgen/internal/adapter/repo"
	"reelgen/internal/http/handlers"
	httpapi "reelgen/internal/http/httpapi"
	"reelgen/internal/infra"
	"reelgen/internal/infra/credentials"
	"reelgen/internal/notify"
	videoprovider "reelgen/internal/providers/video"
	"reelgen/internal/worker"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The database is only a fallback source for the provider key.
	var credStore *credentials.Store
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		credStore = credentials.NewStore(infra.NewSQLRunner(pool, logger))
	}
	creds := credentials.NewResolver(cfg.APIKeyEnv, credStore)
	if _, err := creds.APIKey(ctx); err != nil {
		logger.Warn().Str("env", cfg.APIKeyEnv).Msg("video provider api key not configured yet; submissions will be rejected")
	}

	jobs := repo.NewJobRepository(repo.MemoryOptions{
		Retention: cfg.JobRetention,
		Logger:    infra.Component(logger, "jobstore"),
	})

	hub := notify.NewHub(notify.HubOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Lookup:         jobs.GetByID,
		Logger:         infra.Component(logger, "notify"),
	})
	defer hub.Close()

	client := videoprovider.NewClient(videoprovider.Options{
		BaseURL:        cfg.ProviderBaseURL,
		RequestTimeout: cfg.ProviderTimeout,
		Logger:         infra.Component(logger, "provider"),
	})
	generator := videoprovider.NewFallback(client, cfg.ProviderModels, infra.Component(logger, "provider"))

	dispatcher := worker.NewDispatcher(
		worker.NewProcessor(worker.ProcessorOptions{
			Repo:      jobs,
			Generator: generator,
			Notifier:  hub,
			Logger:    infra.Component(logger, "worker"),
		}),
		worker.Options{
			Concurrency:   cfg.WorkerConcurrency,
			QueueSize:     cfg.WorkerQueueSize,
			ShutdownGrace: cfg.WorkerShutdownGrace,
			Logger:        infra.Component(logger, "worker"),
		},
	)

	app := handlers.NewApp(handlers.Deps{
		Jobs:        jobs,
		Queue:       dispatcher,
		Credentials: creds,
		Generator:   generator,
		Events:      hub,
		Logger:      infra.Component(logger, "http"),
		SyncTimeout: cfg.SyncGenerateTimeout,
	})
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return jobs.Run(gctx, cfg.JobSweepInterval)
	})
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		logger.Info().
			Str("addr", server.Addr()).
			Strs("models", generator.Models()).
			Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
