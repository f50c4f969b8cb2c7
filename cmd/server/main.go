package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study-habit-api/internal/auth"
	"study-habit-api/internal/cache"
	"study-habit-api/internal/config"
	"study-habit-api/internal/database"
	"study-habit-api/internal/handlers"
	"study-habit-api/internal/logging"
	"study-habit-api/internal/middleware"
	"study-habit-api/internal/realtime"
	"study-habit-api/internal/routes"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "study-habit-api",
		Usage: "study and habit tracking API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "listen address", Value: config.DefaultAddr, Sources: cli.EnvVars("ADDR")},
			&cli.StringFlag{Name: "db-driver", Usage: "sqlite or postgres", Value: config.DefaultDBDriver, Sources: cli.EnvVars("DB_DRIVER")},
			&cli.StringFlag{Name: "database-url", Usage: "sqlite file or postgres DSN", Value: config.DefaultDatabaseURL, Sources: cli.EnvVars("DATABASE_URL")},
			&cli.StringFlag{Name: "jwt-secret", Usage: "HS256 signing secret", Value: config.DefaultJWTSecret, Sources: cli.EnvVars("JWT_SECRET")},
			&cli.StringFlag{Name: "jwt-issuer", Value: config.DefaultJWTIssuer, Sources: cli.EnvVars("JWT_ISSUER")},
			&cli.StringFlag{Name: "jwt-audience", Value: config.DefaultJWTAudience, Sources: cli.EnvVars("JWT_AUDIENCE")},
			&cli.DurationFlag{Name: "jwt-ttl", Usage: "token lifetime", Value: config.DefaultJWTTTL, Sources: cli.EnvVars("JWT_TTL")},
			&cli.StringFlag{Name: "cors-origin", Value: config.DefaultCORSOrigin, Sources: cli.EnvVars("CORS_ORIGIN")},
			&cli.StringFlag{Name: "log-level", Value: config.DefaultLogLevel, Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.DurationFlag{Name: "cache-sweep-interval", Usage: "background cache sweep, 0 disables", Sources: cli.EnvVars("CACHE_SWEEP_INTERVAL")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Config{
				Addr:               cmd.String("addr"),
				DBDriver:           cmd.String("db-driver"),
				DatabaseURL:        cmd.String("database-url"),
				JWTSecret:          cmd.String("jwt-secret"),
				JWTIssuer:          cmd.String("jwt-issuer"),
				JWTAudience:        cmd.String("jwt-audience"),
				JWTTTL:             cmd.Duration("jwt-ttl"),
				CORSOrigin:         cmd.String("cors-origin"),
				LogLevel:           cmd.String("log-level"),
				CacheSweepInterval: cmd.Duration("cache-sweep-interval"),
			}
			return run(ctx, cfg)
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logging.Init(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn("using the development JWT secret; set JWT_SECRET in production")
	}

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}

	// One cache and one hub for the whole process.
	store := cache.NewStore()
	store.StartJanitor(ctx, cfg.CacheSweepInterval)
	hub := realtime.NewHub()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.New(db, store, hub, tokens)
	router := routes.SetupRoutes(h, middleware.JWTAuthMiddleware(tokens), routes.Options{CORSOrigin: cfg.CORSOrigin})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Addr).Info("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
