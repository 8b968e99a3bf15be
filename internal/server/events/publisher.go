// Package events publishes domain events to Kafka for downstream consumers
// (search indexing, analytics, fulfilment).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/dmitrijs2005/bazaar/internal/logging"
)

// Topics.
const (
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
	TopicOfferSubmitted = "offer.submitted"
	TopicOrderCompleted = "order.completed"
)

type Publisher interface {
	// Publish sends payload as JSON, keyed so that events of one entity keep
	// their order within a partition.
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   logging.Logger
}

func NewKafkaPublisher(brokers []string, logger logging.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, logger), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, logger logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, logger: logger.With("module", "events")}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(data),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Debug(ctx, "event published", "topic", topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) error { return nil }
func (NopPublisher) Close() error                                        { return nil }
