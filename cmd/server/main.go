package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rajvir-app/mining-server/internal/clock"
	"github.com/rajvir-app/mining-server/internal/config"
	"github.com/rajvir-app/mining-server/internal/database"
	"github.com/rajvir-app/mining-server/internal/handler"
	"github.com/rajvir-app/mining-server/internal/jobs"
	"github.com/rajvir-app/mining-server/internal/middleware"
	"github.com/rajvir-app/mining-server/internal/mining"
	redisclient "github.com/rajvir-app/mining-server/internal/redis"
	"github.com/rajvir-app/mining-server/internal/repository"
	"github.com/rajvir-app/mining-server/internal/service"
	"github.com/rajvir-app/mining-server/internal/sse"
	"github.com/rajvir-app/mining-server/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	clk := clock.System()

	var (
		baseStore        mining.Store
		userRepo         repository.UserRepository
		rechargeRepo     repository.RechargeRepository
		adminSessionRepo repository.AdminSessionRepository
		db               *database.DB
	)

	if cfg.Standalone() {
		log.Info().Str("path", cfg.LocalDBPath).Msg("no DATABASE_URL set, running standalone with local storage")

		localStore, err := store.OpenLocal(cfg.LocalDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open local store")
		}
		defer localStore.Close()
		baseStore = localStore
	} else {
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		if err := db.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		cancel()
		log.Info().Msg("database connected")

		userRepo = repository.NewUserRepository(db.DB)
		rechargeRepo = repository.NewRechargeRepository(db.DB)
		adminSessionRepo = repository.NewAdminSessionRepository(db.DB)
		baseStore = store.NewRemote(userRepo, rechargeRepo)
	}

	var redisClient *redisclient.Client
	if cfg.RedisURL != "" {
		redisClient, err = redisclient.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	debouncedStore := mining.NewDebouncedStore(baseStore, cfg.SaveDebounce())

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	miningService := service.NewMiningService(debouncedStore, broker, clk, cfg.SecondsPerPoint)
	accountService := service.NewAccountService(userRepo, debouncedStore, clk)

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.Standalone())
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	miningHandler := handler.NewMiningHandler(miningService, accountService)
	eventsHandler := handler.NewEventsHandler(broker, miningService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		if !cfg.Standalone() {
			accountHandler := handler.NewAccountHandler(accountService)
			r.Mount("/account", accountHandler.Routes())
		}

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			if redisClient != nil {
				r.Use(middleware.NewRedisRateLimitMiddleware(redisClient.Client).Handler)
			}
			r.Get("/events", eventsHandler.ServeHTTP)
			r.Mount("/", miningHandler.Routes())
		})
	})

	if !cfg.Standalone() {
		adminService := service.NewAdminService(
			db, adminSessionRepo, userRepo, rechargeRepo, miningService,
			cfg.AdminPasswordHash, cfg.AdminSessionSecret,
		)
		adminSessionMiddleware := middleware.NewAdminSessionMiddleware(
			adminSessionRepo, cfg.AdminPasswordHash, cfg.AdminSessionSecret,
		)
		adminHandler := handler.NewAdminHandler(adminService, adminSessionMiddleware, isProduction)

		r.Route("/admin", func(r chi.Router) {
			r.Mount("/", adminHandler.Routes())
		})
	}

	janitor := jobs.NewJanitor(miningService, adminSessionRepo, config.SessionIdleTimeout, config.JanitorInterval)
	janitor.Start()
	defer janitor.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	miningService.Shutdown(shutdownCtx)
	if err := debouncedStore.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush deferred saves")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
