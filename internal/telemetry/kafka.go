package telemetry

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/velmart/storefront/internal/pkg/pool"
)

type envelope struct {
	Event string `json:"event"`
	TimeoutEvent
	At time.Time `json:"at"`
}

// Kafka publishes timeout events to a broker. Emission is asynchronous and
// lossy under pressure: the confirm path must never wait on telemetry.
type Kafka struct {
	writer  *kafkago.Writer
	workers *pool.Pool
	logger  *zap.Logger
}

func NewKafka(brokers []string, topic string, logger *zap.Logger) *Kafka {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Kafka{
		writer:  w,
		workers: pool.New(2),
		logger:  logger,
	}
}

func (k *Kafka) ReportTimeout(_ context.Context, ev TimeoutEvent) {
	ok := k.workers.TrySubmit(func() {
		value, err := json.Marshal(envelope{
			Event:        EventName,
			TimeoutEvent: ev,
			At:           time.Now().UTC(),
		})
		if err != nil {
			k.logger.Error("telemetry marshal failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = k.writer.WriteMessages(ctx, kafkago.Message{
			Key:   []byte(ev.Provider),
			Value: value,
		})
		if err != nil {
			k.logger.Warn("telemetry publish failed",
				zap.String("provider", ev.Provider),
				zap.Error(err),
			)
		}
	})
	if !ok {
		k.logger.Warn("telemetry queue full, event dropped",
			zap.String("provider", ev.Provider),
		)
	}
}

func (k *Kafka) Close() error {
	k.workers.Close()
	k.workers.Wait()
	return k.writer.Close()
}
