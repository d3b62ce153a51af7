package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	writeTimeout = 5 * time.Second
	// Publish sends one message and waits for it, so the writer must not
	// hold it back to fill a batch.
	batchSize    = 1
	batchTimeout = 10 * time.Millisecond
)

// Producer writes JSON messages to a single topic.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer for topic on the given brokers.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           writeTimeout,
			BatchSize:              batchSize,
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
	}, nil
}

// Publish marshals v and writes it keyed by key, so events for the same key
// land on the same partition.
func (p *Producer) Publish(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
