package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/learning-tracker-core/internal/core/domain"
	"github.com/arklim/learning-tracker-core/internal/core/port"
	"github.com/arklim/learning-tracker-core/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types published by the core services.
const (
	EventTypeCredentialRotated   = "user.credential.rotated"
	EventTypeLevelChanged        = "user.level.changed"
	EventTypeSessionsInvalidated = "session.invalidated"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishCredentialRotated publishes tracker.user.credential.rotated events.
func (p *EventPublisher) PublishCredentialRotated(ctx context.Context, event domain.CredentialRotatedEvent) error {
	payload := struct {
		UserID              string         `json:"user_id"`
		RotatedAt           time.Time      `json:"rotated_at"`
		RotatedBy           string         `json:"rotated_by"`
		SessionsInvalidated int            `json:"sessions_invalidated"`
		Metadata            map[string]any `json:"metadata,omitempty"`
	}{
		UserID:              event.UserID,
		RotatedAt:           event.RotatedAt.UTC(),
		RotatedBy:           event.RotatedBy,
		SessionsInvalidated: event.SessionsInvalidated,
		Metadata:            event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeCredentialRotated, event.UserID, event.RotatedAt, payload)
}

// PublishLevelChanged publishes tracker.user.level.changed events.
func (p *EventPublisher) PublishLevelChanged(ctx context.Context, event domain.LevelChangedEvent) error {
	payload := struct {
		UserID        string         `json:"user_id"`
		PreviousLevel string         `json:"previous_level"`
		NewLevel      string         `json:"new_level"`
		Points        int            `json:"points"`
		ChangedAt     time.Time      `json:"changed_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		UserID:        event.UserID,
		PreviousLevel: event.PreviousLevel,
		NewLevel:      event.NewLevel,
		Points:        event.Points,
		ChangedAt:     event.ChangedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeLevelChanged, event.UserID, event.ChangedAt, payload)
}

// PublishSessionsInvalidated publishes tracker.session.invalidated events.
func (p *EventPublisher) PublishSessionsInvalidated(ctx context.Context, event domain.SessionsInvalidatedEvent) error {
	payload := struct {
		UserID        string         `json:"user_id"`
		Count         int            `json:"count"`
		Reason        string         `json:"reason"`
		InvalidatedAt time.Time      `json:"invalidated_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		UserID:        event.UserID,
		Count:         event.Count,
		Reason:        event.Reason,
		InvalidatedAt: event.InvalidatedAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, EventTypeSessionsInvalidated, event.UserID, event.InvalidatedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
