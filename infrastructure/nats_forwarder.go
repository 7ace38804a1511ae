package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gamecredits/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const sourceService = "gamecredits"

// messagePublisher is the slice of the NATS client the forwarder needs
type messagePublisher interface {
	Publish(subject string, data []byte) error
}

// publishRecorder receives a count for every forwarded message
type publishRecorder interface {
	RecordNATSMessagePublished(eventType string)
}

// EventEnvelope wraps every forwarded event
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSForwarder publishes committed domain events to NATS subjects
type NATSForwarder struct {
	publisher     messagePublisher
	subjectPrefix string
	metrics       publishRecorder
	now           func() time.Time
}

// NewNATSForwarder creates a forwarder publishing under subjectPrefix; metrics may be nil
func NewNATSForwarder(publisher messagePublisher, subjectPrefix string, metrics publishRecorder) *NATSForwarder {
	return &NATSForwarder{
		publisher:     publisher,
		subjectPrefix: subjectPrefix,
		metrics:       metrics,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe forwards every event emitted on the bus
func (f *NATSForwarder) Subscribe(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := f.Forward(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event to NATS")
		}
	})
}

// Subject returns the NATS subject for an event type
func (f *NATSForwarder) Subject(eventType events.EventType) string {
	return fmt.Sprintf("%s.%s", f.subjectPrefix, eventType)
}

// Forward wraps the event in an envelope and publishes it
func (f *NATSForwarder) Forward(event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     f.now(),
		SourceService: sourceService,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	subject := f.Subject(event.Type())
	if err := f.publisher.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	if f.metrics != nil {
		f.metrics.RecordNATSMessagePublished(envelope.EventType)
	}

	log.WithFields(log.Fields{
		"eventType": envelope.EventType,
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Forwarded event to NATS")

	return nil
}
