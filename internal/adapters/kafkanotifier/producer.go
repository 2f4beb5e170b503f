package kafkanotifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"itmScreener/internal/domain"
	"itmScreener/internal/ports"
)

const (
	EventTextAlert  = "ITM_CALL_ALERT"
	EventImageAlert = "ITM_CALL_ALERT_WITH_CHART"
)

// AlertEvent is the JSON value published for every alert.
type AlertEvent struct {
	EventType string        `json:"event_type"`
	Symbol    string        `json:"symbol"`
	Text      string        `json:"text"`
	Alert     *domain.Alert `json:"alert"`
	ChartPNG  []byte        `json:"chart_png,omitempty"` // base64 in JSON
	Timestamp time.Time     `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes alert events to Kafka. It implements ports.Notifier.
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

// Name identifies the transport.
func (p *Producer) Name() string {
	return "kafka"
}

// SendText publishes the alert without a chart.
func (p *Producer) SendText(ctx context.Context, alert *domain.Alert) error {
	return p.publish(ctx, AlertEvent{
		EventType: EventTextAlert,
		Symbol:    alert.Symbol,
		Text:      alert.Text(),
		Alert:     alert,
		Timestamp: p.now().UTC(),
	})
}

// SendImage publishes the alert with the chart PNG inline.
func (p *Producer) SendImage(ctx context.Context, alert *domain.Alert, image []byte) error {
	return p.publish(ctx, AlertEvent{
		EventType: EventImageAlert,
		Symbol:    alert.Symbol,
		Text:      alert.Text(),
		Alert:     alert,
		ChartPNG:  image,
		Timestamp: p.now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, event AlertEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w: %w", ports.ErrInvalidRequest, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Symbol),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w: %w", ports.ErrTransportFailure, err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
