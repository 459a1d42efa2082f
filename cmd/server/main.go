package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/engine"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/service/match"
	"github.com/oggyb/muzz-match/internal/storage"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg, log)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	photos, err := storage.Open(ctx, cfg.Photos.BucketURL, cfg.Photos.PublicBaseURL)
	if err != nil {
		log.Error("failed to open photo bucket", "err", err)
		os.Exit(1)
	}
	defer photos.Close()

	tokens, err := auth.NewTokenService(cfg)
	if err != nil {
		log.Error("failed to init token service", "err", err)
		os.Exit(1)
	}

	opts, err := engine.OptionsFromConfig(cfg)
	if err != nil {
		log.Error("invalid engine config", "err", err)
		os.Exit(1)
	}
	eng := engine.New(engine.Deps{
		Repos:   repository.New(database),
		Cache:   redisCache,
		Photos:  photos,
		Log:     log,
		Options: opts,
	})

	appCtx := app.New(cfg, database, redisCache, log, photos, tokens, eng)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database, db.DefaultSeedUsers); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	registrar := match.NewRegistrar(appCtx)
	grpcServer := server.NewGRPCServer(appCtx, registrar)
	httpServer := server.NewHTTPServer(appCtx, registrar)

	errCh := make(chan error, 2)
	go func() {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		errCh <- server.StartGRPCServer(cfg, grpcServer)
	}()
	go func() {
		log.Info("starting HTTP server", "addr", cfg.HTTP.Host+":"+cfg.HTTP.Port)
		errCh <- server.StartHTTPServer(appCtx, httpServer)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()
}
