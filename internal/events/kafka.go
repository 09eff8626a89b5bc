package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

type kafkaPublisher struct {
	log    *logger.Logger
	writer *kafka.Writer
}

// NewKafkaPublisher builds a publisher against KAFKA_BROKERS. Returns the
// noop publisher when the variable is unset so single-box deployments run
// without a broker.
func NewKafkaPublisher(logg *logger.Logger) (Publisher, error) {
	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		logg.Info("KAFKA_BROKERS not set; domain events disabled")
		return NoopPublisher{}, nil
	}
	topic := strings.TrimSpace(os.Getenv("KAFKA_TOPIC"))
	if topic == "" {
		topic = "optocase.events"
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      strings.Split(brokers, ","),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	})

	logg.With("component", "KafkaPublisher").Info("domain event publisher ready", "topic", topic)
	return &kafkaPublisher{
		log:    logg.With("component", "KafkaPublisher"),
		writer: writer,
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Type, err)
	}
	key := ev.Key
	if key == "" {
		key = string(ev.Type)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: raw,
	}); err != nil {
		return fmt.Errorf("write event %s: %w", ev.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
