package repository

import (
	"context"
	"strconv"
	"sync"

	"StockHolo/internal/domain/models"
	"StockHolo/internal/domain/repository"
	pkgkafka "StockHolo/pkg/kafka"

	"github.com/google/uuid"
)

const frameKey = "market"

// Producer is the part of pkg/kafka.Producer the publisher needs.
type Producer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaFramePublisher ships every frame to a Kafka topic, keyed "market" so
// frames stay ordered on one partition.
type KafkaFramePublisher struct {
	producer Producer
	topic    string

	mu      sync.Mutex
	lastSeq uint64
}

// NewKafkaFramePublisher creates the publisher.
func NewKafkaFramePublisher(producer Producer, topic string) *KafkaFramePublisher {
	return &KafkaFramePublisher{producer: producer, topic: topic}
}

var _ repository.FramePublisher = (*KafkaFramePublisher)(nil)

func (p *KafkaFramePublisher) Name() string { return "kafka" }

// Render publishes f unless a newer frame was already published.
func (p *KafkaFramePublisher) Render(ctx context.Context, f models.Frame) error {
	p.mu.Lock()
	if f.Seq <= p.lastSeq {
		p.mu.Unlock()
		return nil
	}
	p.lastSeq = f.Seq
	p.mu.Unlock()

	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:   []byte(frameKey),
		Value: f,
		Headers: map[string]string{
			"event_id": uuid.NewString(),
			"seq":      strconv.FormatUint(f.Seq, 10),
		},
	}})
}

func (p *KafkaFramePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
