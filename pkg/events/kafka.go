package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/dekorekillian57-star/spendo/pkg/config"
	"github.com/dekorekillian57-star/spendo/pkg/logger"
)

// KafkaPublisher writes order events to a single topic, keyed by payment reference.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.Logger
}

// NewSaramaConfig mirrors the durability settings used for order events.
func NewSaramaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	return cfg
}

func NewKafkaPublisher(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "kafka producer initialized")
	}
	return NewKafkaPublisherWithProducer(producer, cfg.OrderTopic, logg), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logg *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logg}
}

func (p *KafkaPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.PaymentRef),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	if p.logger != nil {
		logCtx := p.logger.WithFields(ctx, map[string]any{
			"topic":      p.topic,
			"event_type": event.Type,
			"partition":  partition,
			"offset":     offset,
		})
		p.logger.Info(logCtx, "order event published")
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// New returns a Kafka publisher when brokers are configured and a no-op otherwise.
func New(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return NoopPublisher{}, nil
	}
	return NewKafkaPublisher(ctx, cfg, logg)
}
