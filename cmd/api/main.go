package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/api/response"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/auth"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/cache"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/config"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/database"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/events"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/logger"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/metrics"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/middleware"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/repository/mongostore"
	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/workflow"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	response.ExposeInternalErrors = cfg.IsDevelopment()

	log.Info().Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("starting FashionX API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}()

	// Redis is optional: without it OTPs and generation locks live in
	// process memory and generation is not rate limited.
	var (
		redisCache *cache.Redis
		otps       cache.OTPStore = cache.NewMemoryOTPStore()
		locker     cache.Locker   = cache.NewMemoryLocker()
	)
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedisFromURL(ctx, cfg.RedisURL)
		if err != nil {
			if cfg.IsProduction() {
				log.Fatal().Err(err).Msg("failed to connect to Redis")
			}
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory OTPs and locks")
		} else {
			defer redisCache.Close()
			otps = cache.NewRedisOTPStore(redisCache)
			locker = cache.NewRedisLocker(redisCache)
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			Username: cfg.KafkaUsername,
			Password: cfg.KafkaPassword,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Kafka publisher")
		}
		publisher = kafkaPublisher
	} else {
		log.Info().Msg("no Kafka brokers configured, events are dropped")
	}
	defer publisher.Close()

	endpoints := cfg.WorkflowEndpoints()
	for _, mode := range workflow.Modes {
		if _, ok := endpoints[mode]; !ok {
			log.Warn().Str("mode", string(mode)).Msg("no webhook configured, generation will fail")
		}
	}

	var google auth.OAuthProvider
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimitPerMinute, time.Minute)
	defer authLimiter.Stop()

	router := api.NewRouter(api.Deps{
		Config:      cfg,
		Log:         log,
		Store:       store,
		Redis:       redisCache,
		OTPs:        otps,
		Locker:      locker,
		Backend:     workflow.NewClient(endpoints, log),
		Publisher:   publisher,
		Metrics:     metrics.New(),
		Google:      google,
		AuthLimiter: authLimiter,
	})

	// Video workflows may take up to VideoTimeout, so writes get headroom
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.VideoTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Give in-flight generations time to finish and be charged
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.VideoTimeout+10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		store, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDB, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil
	default:
		db, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL), log)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewPostgresStore(db), nil
	}
}
