package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/market-returns/internal/analytics"
	"github.com/trogers1052/market-returns/internal/models"
)

// messageWriter is the part of kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishReturnsComputed publishes a summary computed over [start, end]
func (p *Producer) PublishReturnsComputed(ctx context.Context, start, end time.Time, summary analytics.ReturnSummary) error {
	event := models.ReturnsComputedEvent{
		EventID:   uuid.New().String(),
		EventType: models.EventTypeReturnsComputed,
		Start:     start.Format("2006-01-02"),
		End:       end.Format("2006-01-02"),
		Summary:   summary,
		Timestamp: p.now().UTC(),
	}

	symbols := make([]string, 0, len(summary.Rows))
	for _, row := range summary.Rows {
		symbols = append(symbols, row.Symbol)
	}
	return p.publish(ctx, strings.Join(symbols, ","), event)
}

func (p *Producer) publish(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
