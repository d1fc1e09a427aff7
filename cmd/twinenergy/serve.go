package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/api"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/mq"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when a broker is configured, the ingest consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func newApp(configPath string) *fx.App {
	return fx.New(
		appOptions(configPath),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
}

func appOptions(configPath string) fx.Option {
	return fx.Options(
		fx.Provide(
			func() (*config.Config, error) { return config.Load(configPath) },
			newLogger,
			ProvideStore,
			ProvideAuditRecorder,
			ProvideAnomalyDetector,
			ProvideValidator,
			ProvideMQConnection,
			ProvidePublisher,
			ProvideEnergyService,
			ProvideIngestProcessor,
			ProvideProfileStore,
			ProvideCompleter,
			ProvideRateLimiter,
			ProvideHealthHandler,
			ProvideHTTPHandler,
		),
		fx.Invoke(startHTTPServer, startIngestConsumer),
	)
}

func runServer(configPath string) error {
	app := newApp(configPath)

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, startCancel := context.WithTimeout(context.Background(), startTimeout)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		if startCtx.Err() == context.DeadlineExceeded {
			bootLogger().Error("application did not start within 30 seconds, a dependency (database, RabbitMQ or Redis) is probably unreachable")
		}
		return err
	}

	// Wait for interrupt signal
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	return app.Stop(stopCtx)
}

func startHTTPServer(lc fx.Lifecycle, cfg *config.Config, handler http.Handler, logger *zap.Logger) *api.Server {
	server := api.NewServer(cfg.HTTP, handler, logger)

	lc.Append(fx.Hook{
		OnStart: server.Start,
		OnStop:  server.Stop,
	})
	return server
}

// startIngestConsumer consumes the ingest queue when a broker is configured
func startIngestConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	processor *service.IngestProcessor,
	logger *zap.Logger,
) error {
	if conn == nil {
		return nil
	}

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.IngestQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.IngestExchange,
		RoutingKey:    cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       processor.ProcessMessage,
	})
	if err != nil {
		return err
	}

	consumer.RegisterLifecycle(lc, context.Background())
	return nil
}
