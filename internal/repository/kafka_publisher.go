package repository

import (
	"context"
	"fmt"

	"GridPull/internal/domain/models"
	"GridPull/internal/domain/repository"
	pkgkafka "GridPull/pkg/kafka"
)

// KafkaPublisher forwards newly ingested intervals to a Kafka topic so
// downstream consumers see new prices without polling the API.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishIntervals(ctx context.Context, intervals []*models.Interval) error {
	if len(intervals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(intervals))
	for i, iv := range intervals {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(fmt.Sprintf("%s-%d", iv.RegionID, iv.SettlementTS)),
			Value: iv,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
