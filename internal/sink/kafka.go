package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/PratikDhanave/pixel-analytics-bridge/internal/auth"
	"github.com/PratikDhanave/pixel-analytics-bridge/internal/models"
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	ClientID     string
	WriteTimeout time.Duration
}

// KafkaWriter is the part of *kafka.Writer the sink needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes each record to a topic keyed by event id, so retries of one
// delivery land on the same partition.
type Kafka struct {
	w       KafkaWriter
	topic   string
	timeout time.Duration
}

func NewKafka(cfg KafkaConfig) *Kafka {
	timeout := cfg.WriteTimeout

	tr := &kafka.Transport{
		ClientID:    cfg.ClientID,
		MetadataTTL: 10 * time.Second,
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Transport:    tr,
	}
	return NewKafkaWithWriter(w, cfg.Topic, timeout)
}

// NewKafkaWithWriter wraps an existing writer; timeout <= 0 means 5s.
func NewKafkaWithWriter(w KafkaWriter, topic string, timeout time.Duration) *Kafka {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Kafka{w: w, topic: topic, timeout: timeout}
}

func (s *Kafka) Emit(ctx context.Context, r models.Record) error {
	msg, err := kafkaMessage(ctx, r)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.w.WriteMessages(cctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", s.topic, err)
	}
	return nil
}

func kafkaMessage(ctx context.Context, r models.Record) (kafka.Message, error) {
	b, err := encode(r)
	if err != nil {
		return kafka.Message{}, err
	}

	msg := kafka.Message{
		Key:   []byte(r.EventID()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(r.Event())},
		},
	}
	if tenant := auth.Tenant(ctx); tenant != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "tenant", Value: []byte(tenant)})
	}
	return msg, nil
}

func (s *Kafka) Close() error {
	return s.w.Close()
}
