// internal/messaging/kafka/kafka.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/messaging"
)

type publisher struct {
	writer *kafkaGo.Writer
}

// NewPublisher creates a Kafka publisher. One writer serves every topic; the
// topic travels on each message.
func NewPublisher(brokers []string, writeTimeout time.Duration) messaging.Publisher {
	return &publisher{
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Balancer:               &kafkaGo.LeastBytes{},
			RequiredAcks:           kafkaGo.RequireAll,
			WriteTimeout:           writeTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *publisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkaGo.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	logrus.WithFields(logrus.Fields{
		"topic": topic,
		"key":   key,
	}).Debug("Event published")
	return nil
}

func (p *publisher) Close() error {
	return p.writer.Close()
}
