package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/openshop/appointment-intake/internal/model"
)

// Publisher emits created-appointment events to Kafka. Publication is
// best-effort: the appointment is already committed when an event is emitted,
// so a broker failure is logged and never propagated to the caller.
type Publisher struct {
	writer *kafka.Writer
	topic  string
	logger *slog.Logger
}

// NewPublisher returns nil when no brokers are configured; a nil Publisher is
// safe to call and publishes nothing.
func NewPublisher(brokers, topic string, logger *slog.Logger) *Publisher {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return nil
	}
	return &Publisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  list,
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}),
		topic:  topic,
		logger: logger,
	}
}

func (p *Publisher) AppointmentCreated(ctx context.Context, appt model.Appointment) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"appointmentId":   appt.ID,
		"location":        appt.Location,
		"appointmentTime": appt.AppointmentTime,
		"locationTimeKey": appt.LocationTimeKey,
		"services":        appt.Services,
		"createdAt":       appt.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		p.logger.Error("failed to build event payload", "err", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(appt.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event_type", Value: []byte(p.topic)},
		},
	}
	msg.Headers = injectTraceHeaders(ctx, msg.Headers)

	writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		p.logger.Error("event publish failed", "topic", p.topic, "appointment_id", appt.ID, "err", err)
	}
}

func (p *Publisher) Close() {
	if p != nil && p.writer != nil {
		_ = p.writer.Close()
	}
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ReadyCheck dials the first configured broker.
func ReadyCheck(brokers string) func(context.Context) error {
	return func(ctx context.Context) error {
		list := SplitBrokers(brokers)
		if len(list) == 0 {
			return errors.New("kafka brokers not configured")
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", list[0])
		if err != nil {
			return err
		}
		_ = conn.Close()
		return nil
	}
}
