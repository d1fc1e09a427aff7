// Command seeder publishes sample readings to the ingest exchange so a running
// twinenergy instance has data to serve.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/RounakBanerji/Twinenergy-Demo/internal/config"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/logging"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/mq"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sampleSensors = []struct {
	ID       string
	Location string
	Rated    float64
}{
	{"turbine-01", "North Ridge", 2400},
	{"turbine-02", "North Ridge", 2400},
	{"solar-07", "Depot Roof", 350},
	{"solar-08", "Depot Roof", 350},
	{"hydro-03", "Lower Weir", 1200},
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		count      int
		interval   time.Duration
		spikeEvery int
	)

	cmd := &cobra.Command{
		Use:          "seeder",
		Short:        "Publish sample readings to the ingest exchange",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return errors.New("--count must be positive")
			}
			return run(cmd.Context(), configPath, count, interval, spikeEvery)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of readings to publish")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "delay between messages")
	cmd.Flags().IntVar(&spikeEvery, "spike-every", 0, "make every Nth reading a power spike, 0 disables")
	return cmd
}

func run(ctx context.Context, configPath string, count int, interval time.Duration, spikeEvery int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.RabbitMQ.Enabled() {
		return errors.New("RABBITMQ_URL is required")
	}

	logger, err := logging.NewLogger("twinenergy-seeder", cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	conn, err := mq.Dial(logger, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.IngestExchange, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	for i := 0; i < count; i++ {
		msg, err := sampleMessage(rng, i, spikeEvery)
		if err != nil {
			return err
		}
		if err := publisher.PublishIngest(ctx, cfg.RabbitMQ.IngestRoutingKey, msg); err != nil {
			return fmt.Errorf("publish %d: %w", i, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	logger.Info("seeding complete",
		zap.Int("count", count),
		zap.String("exchange", cfg.RabbitMQ.IngestExchange),
		zap.String("routing_key", cfg.RabbitMQ.IngestRoutingKey),
	)
	return nil
}

// sampleMessage builds the i-th ingest message. Sensors rotate in order so
// every sensor accumulates history.
func sampleMessage(rng *rand.Rand, i, spikeEvery int) (mq.IngestMessage, error) {
	sensor := sampleSensors[i%len(sampleSensors)]

	power := sensor.Rated * (0.4 + 0.4*rng.Float64())
	if spikeEvery > 0 && (i+1)%spikeEvery == 0 {
		power *= 4
	}
	temperature := 5 + 25*rng.Float64()

	reading, err := json.Marshal(map[string]any{
		"sensorId":    sensor.ID,
		"powerOutput": round2(power),
		"temperature": round2(temperature),
		"location":    sensor.Location,
	})
	if err != nil {
		return mq.IngestMessage{}, err
	}

	return mq.IngestMessage{
		RequestID:  uuid.NewString(),
		Source:     "seeder",
		ReceivedAt: time.Now().UTC(),
		Reading:    reading,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
