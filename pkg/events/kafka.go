package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaSink forwards pipeline events to a Kafka topic keyed by conversation id,
// so downstream consumers see each conversation's events in order.
type KafkaSink struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *logrus.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Run drains the subscription channel until it closes or the context ends.
func (s *KafkaSink) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := s.send(ctx, event); err != nil {
				s.logger.WithError(err).WithField("event", event.Name).Error("Failed to publish event to Kafka")
			}
		}
	}
}

func (s *KafkaSink) send(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.ConversationID),
		Value: data,
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"event":           event.Name,
		"conversation_id": event.ConversationID,
	}).Debug("Published event to Kafka")
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
