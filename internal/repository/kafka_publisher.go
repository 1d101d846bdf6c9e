package repository

import (
	"context"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	pkgkafka "MacroPulse/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Events are keyed by
// evaluation date so downstream consumers see one partition per day.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishEvaluation(ctx context.Context, ev *models.Evaluation) error {
	key := []byte(ev.Date.Format("2006-01-02"))
	return p.producer.Publish(ctx, p.topic, key, ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
