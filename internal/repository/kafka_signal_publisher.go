package repository

import (
	"context"

	"TrendPull/internal/domain/models"
	domrepo "TrendPull/internal/domain/repository"
	pkgkafka "TrendPull/pkg/kafka"
)

// KafkaSignalPublisher implements SignalPublisher for Kafka. Events are keyed by
// symbol so one symbol's signals stay ordered within a partition.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, ev *models.SignalEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, evs []models.SignalEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i := range evs {
		msgs[i] = pkgkafka.Message{Key: []byte(evs[i].Symbol), Value: evs[i]}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
