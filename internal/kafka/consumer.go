package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/market-returns/internal/models"
)

// PriceRepository defines the storage the price consumer writes to
type PriceRepository interface {
	CreatePriceData(p *models.PriceDataDaily) error
}

// Consumer ingests daily price bars from Kafka into price storage
type Consumer struct {
	reader *kafka.Reader
	repo   PriceRepository
	logger *logrus.Entry
}

// NewConsumer creates a new Kafka consumer for price bar events
func NewConsumer(brokers []string, topic, groupID string, repo PriceRepository, log *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		logger: log.WithField("component", "price-consumer"),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.WithField("topic", c.reader.Config().Topic).Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.logger.WithError(err).Error("Error reading message")
				continue
			}

			if err := c.processMessage(msg); err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warn("Skipping message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	c.logger.WithFields(logrus.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
		"key":       string(msg.Key),
	}).Debug("Received message")

	var event models.PriceBarEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price bar event: %w", err)
	}

	// Only process PRICE_BAR events
	if event.EventType != models.EventTypePriceBar {
		c.logger.WithField("event_type", event.EventType).Debug("Ignoring event type")
		return nil
	}

	bar, err := convertEventToPriceData(event.Data)
	if err != nil {
		return fmt.Errorf("failed to convert event to price data: %w", err)
	}

	if err := c.repo.CreatePriceData(bar); err != nil {
		return fmt.Errorf("failed to save price data: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol": bar.Symbol,
		"date":   bar.Date.Format("2006-01-02"),
		"close":  bar.Close.String(),
		"source": event.Source,
	}).Info("Saved price bar")
	return nil
}

// convertEventToPriceData maps a price bar payload to a storage row
func convertEventToPriceData(data models.PriceBarData) (*models.PriceDataDaily, error) {
	symbol := strings.ToUpper(strings.TrimSpace(data.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}

	date, err := time.Parse("2006-01-02", data.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %s: %w", data.Date, err)
	}

	closePrice, err := decimal.NewFromString(data.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid close %s: %w", data.Close, err)
	}
	if !closePrice.IsPositive() {
		return nil, fmt.Errorf("close must be positive, got %s", data.Close)
	}

	bar := &models.PriceDataDaily{
		Symbol: symbol,
		Date:   date,
		Close:  closePrice,
		Volume: data.Volume,
	}

	// Missing open/high/low fall back to the close
	if bar.Open, err = priceOrDefault(data.Open, closePrice); err != nil {
		return nil, fmt.Errorf("invalid open %s: %w", data.Open, err)
	}
	if bar.High, err = priceOrDefault(data.High, closePrice); err != nil {
		return nil, fmt.Errorf("invalid high %s: %w", data.High, err)
	}
	if bar.Low, err = priceOrDefault(data.Low, closePrice); err != nil {
		return nil, fmt.Errorf("invalid low %s: %w", data.Low, err)
	}
	if data.VWAP != "" {
		vwap, err := decimal.NewFromString(data.VWAP)
		if err != nil {
			return nil, fmt.Errorf("invalid vwap %s: %w", data.VWAP, err)
		}
		bar.VWAP = vwap
	}

	return bar, nil
}

func priceOrDefault(s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return fallback, nil
	}
	return decimal.NewFromString(s)
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
