package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Publisher is the sink KafkaSource forwards decoded events to
type Publisher interface {
	Publish(e Event)
}

// KafkaConfig configures the wallet event consumer
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaSource consumes JSON-encoded wallet events from a Kafka topic
type KafkaSource struct {
	reader *kafka.Reader
	sink   Publisher
	logger *slog.Logger
}

// NewKafkaSource creates a consumer that forwards events to sink
func NewKafkaSource(cfg KafkaConfig, sink Publisher, logger *slog.Logger) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return &KafkaSource{reader: reader, sink: sink, logger: logger}, nil
}

// Run reads messages until ctx is cancelled. Undecodable messages are logged and skipped.
func (s *KafkaSource) Run(ctx context.Context) error {
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read wallet event: %w", err)
		}

		event, err := DecodeEvent(msg.Value)
		if err != nil {
			s.logger.Warn("Skipping undecodable wallet event",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		s.logger.Debug("Wallet event received", "kind", event.Kind, "offset", msg.Offset)
		s.sink.Publish(event)
	}
}

// Close closes the underlying reader
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// DecodeEvent parses a JSON event payload and rejects unknown kinds
func DecodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if !e.Kind.Known() {
		return Event{}, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	e.Currency = strings.ToLower(strings.TrimSpace(e.Currency))
	return e, nil
}

// KafkaSink publishes wallet events to a Kafka topic
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a producer for cfg.Topic
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}, nil
}

// Send writes events keyed by kind so each kind keeps its order on one partition
func (s *KafkaSink) Send(ctx context.Context, events ...Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		payload, err := EncodeEvent(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(e.Kind), Value: payload})
	}
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write wallet events: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// EncodeEvent serializes an event in the format DecodeEvent reads
func EncodeEvent(e Event) ([]byte, error) {
	if !e.Kind.Known() {
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return json.Marshal(e)
}
