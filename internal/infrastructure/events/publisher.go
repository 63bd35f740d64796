package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ims-platform/inventory-service/internal/domain"
	"github.com/ims-platform/inventory-service/pkg/logging"
)

// Event types carried on the inventory topic
const (
	EventTypeSaleRecorded = "inventory.sale.recorded"
	EventTypeStockLow     = "inventory.stock.low"
)

// Config holds Kafka publisher settings
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// DefaultConfig returns sensible publisher defaults
func DefaultConfig(brokers []string) *Config {
	return &Config{
		Brokers:      brokers,
		Topic:        "inventory.events",
		BatchTimeout: 50 * time.Millisecond,
	}
}

// envelope is the wire format for inventory events
type envelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type saleRecordedPayload struct {
	SalesRecordID  string  `json:"salesRecordId"`
	ItemID         string  `json:"itemId"`
	ItemName       string  `json:"itemName"`
	Category       string  `json:"category"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unitPrice"`
	TotalPrice     float64 `json:"totalPrice"`
	RemainingStock int     `json:"remainingStock"`
}

type stockLowPayload struct {
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	MinStock int    `json:"minStock"`
}

// Publisher writes inventory events to Kafka. It satisfies
// application.SaleEventPublisher.
type Publisher struct {
	writer *kafka.Writer
	config *Config
	logger *logging.Logger
}

// NewPublisher creates a Kafka-backed publisher
func NewPublisher(config *Config, logger *logging.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: config.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &Publisher{writer: writer, config: config, logger: logger}
}

// PublishSaleRecorded publishes a sale event keyed by item id, so events for
// one item stay ordered within a partition.
func (p *Publisher) PublishSaleRecorded(ctx context.Context, record *domain.SalesRecord, remainingStock int) error {
	return p.publish(ctx, EventTypeSaleRecorded, record.ItemID, saleRecordedPayload{
		SalesRecordID:  record.ID.Hex(),
		ItemID:         record.ItemID,
		ItemName:       record.ItemName,
		Category:       record.Category,
		Quantity:       record.Quantity,
		UnitPrice:      record.UnitPrice,
		TotalPrice:     record.TotalPrice,
		RemainingStock: remainingStock,
	})
}

// PublishStockLow publishes a low-stock alert for the item
func (p *Publisher) PublishStockLow(ctx context.Context, item *domain.Item) error {
	return p.publish(ctx, EventTypeStockLow, item.ID.Hex(), stockLowPayload{
		ItemID:   item.ID.Hex(),
		ItemName: item.Name,
		Category: item.Category,
		Quantity: item.Quantity,
		MinStock: item.MinStock,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType, key string, payload any) error {
	event := envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "inventory-service",
		Timestamp: time.Now().UTC(),
		Data:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: event.Timestamp,
	})
	p.logger.KafkaPublish(ctx, p.config.Topic, eventType, err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
