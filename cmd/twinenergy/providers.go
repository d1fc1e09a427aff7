package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/anomaly"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/api"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/assist"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/audit"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/mq"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/profile"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/repository"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/service"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errBrokerClosed = errors.New("rabbitmq connection is closed")

// ProvideStore opens the configured store, creates the schema on start and
// closes it on stop
func ProvideStore(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (repository.Store, error) {
	store, err := repository.Open(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("database open failed", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := store.InitSchema(ctx); err != nil {
				logger.Error("schema initialization failed", zap.Error(err))
				return err
			}
			logger.Info("database ready", zap.String("driver", cfg.Database.Driver))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := store.Close(); err != nil {
				logger.Error("failed to close database", zap.Error(err))
				return err
			}
			logger.Info("database closed")
			return nil
		},
	})

	return store, nil
}

// ProvideAuditRecorder creates a new audit recorder instance
func ProvideAuditRecorder(store repository.Store, logger *zap.Logger) *audit.Recorder {
	return audit.NewRecorder(store, logger)
}

// ProvideAnomalyDetector creates a new anomaly detector instance
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection)
}

// ProvideValidator creates a new validator instance
func ProvideValidator() *validator.Validator {
	return validator.NewValidator()
}

// ProvideMQConnection connects to RabbitMQ, or returns nil when no broker is
// configured
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	if !cfg.RabbitMQ.Enabled() {
		logger.Info("RABBITMQ_URL not set, ingest consumer and reading events disabled")
		return nil, nil
	}
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates the reading event publisher, or nil without a broker
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (service.EventPublisher, error) {
	if conn == nil {
		return nil, nil
	}

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

// ProvideEnergyService creates a new energy service instance
func ProvideEnergyService(
	store repository.Store,
	recorder *audit.Recorder,
	validator *validator.Validator,
	detector *anomaly.Detector,
	publisher service.EventPublisher,
	logger *zap.Logger,
) *service.EnergyService {
	return service.NewEnergyService(store, recorder, validator, detector, publisher, logger)
}

// ProvideIngestProcessor creates a new ingest processor instance
func ProvideIngestProcessor(energy *service.EnergyService, logger *zap.Logger) *service.IngestProcessor {
	return service.NewIngestProcessor(energy, logger)
}

// ProvideProfileStore connects to Redis, or returns nil when REDIS_URL is unset
func ProvideProfileStore(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*profile.RedisStore, error) {
	if cfg.Redis.URL == "" {
		logger.Info("REDIS_URL not set, profile endpoints disabled")
		return nil, nil
	}

	store, err := profile.NewRedisStore(cfg.Redis.URL, cfg.Redis.KeyPrefix)
	if err != nil {
		logger.Error("redis connection failed", zap.Error(err))
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

// ProvideCompleter creates the tips completer, or nil without an API key
func ProvideCompleter(logger *zap.Logger, cfg *config.Config) (assist.Completer, error) {
	if cfg.OpenAI.APIKey == "" {
		logger.Info("OPENAI_API_KEY not set, tips endpoint disabled")
		return nil, nil
	}
	return assist.NewClient(cfg.OpenAI)
}

// ProvideRateLimiter creates the per-client limiter, or nil when disabled
func ProvideRateLimiter(lc fx.Lifecycle, cfg *config.Config) *api.RateLimiter {
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		return nil
	}

	limiter := api.NewRateLimiter(api.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		CleanupInterval:   time.Minute,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			limiter.Stop()
			return nil
		},
	})
	return limiter
}

// ProvideHealthHandler wires readiness checks for every configured dependency
func ProvideHealthHandler(store repository.Store, conn *mq.Connection, profiles *profile.RedisStore) *api.HealthHandler {
	checks := map[string]api.Checker{
		"database": store.Ping,
	}
	if conn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if !conn.Healthy() {
				return errBrokerClosed
			}
			return nil
		}
	}
	if profiles != nil {
		checks["redis"] = profiles.Ping
	}
	return api.NewHealthHandler(checks)
}

// ProvideHTTPHandler builds the routed, middleware-wrapped handler
func ProvideHTTPHandler(
	cfg *config.Config,
	limiter *api.RateLimiter,
	logger *zap.Logger,
	energy *service.EnergyService,
	health *api.HealthHandler,
	profiles *profile.RedisStore,
	completer assist.Completer,
) http.Handler {
	// a nil *RedisStore must reach the handler as a nil interface
	var profileStore profile.Store
	if profiles != nil {
		profileStore = profiles
	}

	return api.NewRouter(cfg.HTTP, limiter, logger,
		api.NewEnergyHandler(energy, logger),
		health,
		profile.NewHandler(profileStore, logger),
		assist.NewHandler(completer, logger),
	)
}
