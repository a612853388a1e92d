// @title          User Directory API
// @version        1.0
// @description    Create, list, edit and delete directory users.
// @BasePath       /
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/99minutos/user-directory/internal/api"
	"github.com/99minutos/user-directory/internal/api/handler"
	"github.com/99minutos/user-directory/internal/core/ports"
	"github.com/99minutos/user-directory/internal/core/service"
	"github.com/99minutos/user-directory/internal/infrastructure/config"
	"github.com/99minutos/user-directory/internal/infrastructure/db/memory"
	mongodb "github.com/99minutos/user-directory/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/user-directory/internal/infrastructure/db/redis"
	"github.com/99minutos/user-directory/pkg/logger"
)

func main() {
	// .env is optional; real environment variables win.
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		reportBootError(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "directory-api",
	})
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("failed to read .env")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("directory-api stopped")
	}
}

// reportBootError logs a failure that happens before the service logger exists.
func reportBootError(w io.Writer, err error) {
	boot := logger.New(logger.Options{Output: w, Service: "directory-api"})
	boot.Error().Err(err).Msg("configuration")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	checks := map[string]handler.Check{}

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	checks["store"] = repo.Ping

	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		idem = redisdb.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency cache enabled")
	}

	users := service.NewUserService(repo, idem, cfg.StoreTimeout, logger.Component("service"))
	e := api.NewRouter(api.Deps{
		Users:  users,
		Logger: logger.Component("http"),
		Checks: checks,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("directory-api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore selects the record store named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.UserRepository, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		repo, err := memory.NewUserRepository()
		if err != nil {
			return nil, nil, err
		}
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return repo, func() {}, nil
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, nil, err
	}
	repo := mongodb.NewUserRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = mongodb.Disconnect(client, cfg.ShutdownTimeout)
		return nil, nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	return repo, func() {
		if err := mongodb.Disconnect(client, cfg.ShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}, nil
}
