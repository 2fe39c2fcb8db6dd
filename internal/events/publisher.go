package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

const (
	// StreamName is the name of the conciergerie event stream.
	StreamName = "CONCIERGERIE"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "org"
)

// Kind classifies an event on the stream.
type Kind string

const (
	KindMessageCreated    Kind = "message_created"
	KindResponseDecided   Kind = "ai_response_decided"
	KindEscalationCreated Kind = "escalation_created"
)

// Event is one change notification for UI subscribers.
type Event struct {
	OrganizationID string         `json:"organization_id"`
	ConversationID string         `json:"conversation_id"`
	Kind           Kind           `json:"kind"`
	Payload        map[string]any `json:"payload,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Publisher is the event boundary the pipeline depends on.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NopPublisher discards every event. Used in tests and when NATS is disabled.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(ctx context.Context, event *Event) error { return nil }

// StreamPublisher publishes events to JetStream.
type StreamPublisher struct {
	client *Client
}

// NewStreamPublisher creates a JetStream-backed publisher.
func NewStreamPublisher(client *Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

// EnsureStream ensures the event stream exists with proper configuration.
func (p *StreamPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Conversation and AI pipeline change events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Subject returns the subject for an event.
func Subject(orgID, conversationID string, kind Kind) string {
	return fmt.Sprintf("%s.%s.conversation.%s.%s", SubjectPrefix, orgID, conversationID, kind)
}

// Publish publishes an event to JetStream.
func (p *StreamPublisher) Publish(ctx context.Context, event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(event.OrganizationID, event.ConversationID, event.Kind)
	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// MessageCreated builds a message-created event.
func MessageCreated(msg *model.Message, orgID string) *Event {
	return &Event{
		OrganizationID: orgID,
		ConversationID: msg.ConversationID,
		Kind:           KindMessageCreated,
		Payload: map[string]any{
			"message_id": msg.ID,
			"source":     string(msg.Source),
		},
	}
}

// ResponseDecided builds an ai-response-decided event.
func ResponseDecided(resp *model.AIResponse, orgID string) *Event {
	return &Event{
		OrganizationID: orgID,
		ConversationID: resp.ConversationID,
		Kind:           KindResponseDecided,
		Payload: map[string]any{
			"ai_response_id": resp.ID,
			"action":         string(resp.ActionTaken),
			"confidence":     resp.ConfidenceScore,
		},
	}
}
