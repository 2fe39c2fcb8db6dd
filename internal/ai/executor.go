package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alba-hq/conciergerie-platform/internal/events"
	"github.com/alba-hq/conciergerie-platform/internal/mailer"
	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/internal/store"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
	"github.com/alba-hq/conciergerie-platform/pkg/metrics"
)

// escalationRoles are the membership roles that receive escalation alerts.
var escalationRoles = []model.Role{model.RoleOwner, model.RoleAdmin}

// CompletionMeta carries model/usage/timing facts into the audit record.
type CompletionMeta struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	ResponseTimeMs   int64
}

// Executor performs the side effects of a decided action: persisting the
// AIResponse audit record, the auto-send message saga, and escalation
// notification fan-out.
type Executor struct {
	store  store.Store
	relay  mailer.Relay
	events events.Publisher
	log    *logger.Logger
}

// NewExecutor creates an effect executor. relay may be nil when outbound
// delivery is disabled; messages then stay pending for later reconciliation.
func NewExecutor(st store.Store, relay mailer.Relay, pub events.Publisher, log *logger.Logger) *Executor {
	return &Executor{
		store:  st,
		relay:  relay,
		events: pub,
		log:    log,
	}
}

// Execute persists the AIResponse record and runs the action's side effects.
//
// The insert is fatal on failure: no side effect runs without an audit record.
// Failures past the insert are isolated and logged; the decided action and the
// persisted record are never rolled back.
func (e *Executor) Execute(
	ctx context.Context,
	pctx *PromptContext,
	gen *model.GeneratedResponse,
	action model.AIAction,
	confidence float64,
	meta CompletionMeta,
) (*model.AIResponse, error) {
	record := &model.AIResponse{
		ID:               uuid.Must(uuid.NewV7()).String(),
		ConversationID:   pctx.Conversation.ID,
		GeneratedContent: gen.Response,
		ConfidenceScore:  confidence,
		ActionTaken:      action,
		Reasoning:        gen.Reasoning,
		DetectedIntent:   gen.DetectedIntent,
		ModelUsed:        meta.Model,
		PromptTokens:     meta.PromptTokens,
		CompletionTokens: meta.CompletionTokens,
		ResponseTimeMs:   meta.ResponseTimeMs,
		CreatedAt:        time.Now(),
	}

	if err := e.store.CreateAIResponse(ctx, record); err != nil {
		return nil, pipelineErr(KindPersistence, fmt.Errorf("failed to store AI response: %w", err))
	}

	metrics.ActionsTotal.WithLabelValues(pctx.Conversation.OrganizationID, string(action)).Inc()

	switch action {
	case model.ActionAutoSent:
		e.executeAutoSend(ctx, pctx, record)
	case model.ActionEscalated:
		e.executeEscalation(ctx, pctx, record)
	case model.ActionSuggested:
		// Surfaced to a human reviewer through the UI; no side effect here.
	}

	e.publish(ctx, events.ResponseDecided(record, pctx.Conversation.OrganizationID))

	return record, nil
}

// executeAutoSend runs the create message -> link record -> relay send -> mark
// status saga. Each step is best-effort after message creation: a partial
// failure leaves the message row observable in its last good status.
func (e *Executor) executeAutoSend(ctx context.Context, pctx *PromptContext, record *model.AIResponse) {
	conv := pctx.Conversation
	log := e.log.WithConversation(conv.ID)

	if record.MessageID != nil {
		// Already executed for this record: never double-create.
		return
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		Source:         model.SourceAI,
		Content:        record.GeneratedContent,
		Status:         model.StatusPending,
		CreatedAt:      time.Now(),
	}

	if err := e.store.CreateMessage(ctx, msg); err != nil {
		log.Error("failed to create auto-send message", zap.Error(err))
		return
	}
	metrics.MessagesTotal.WithLabelValues(conv.OrganizationID, string(model.SourceAI)).Inc()

	if err := e.store.LinkAIResponseMessage(ctx, record.ID, msg.ID); err != nil {
		log.Error("failed to link AI response to message",
			zap.String("ai_response_id", record.ID),
			zap.String("message_id", msg.ID),
			zap.Error(err))
	} else {
		record.MessageID = &msg.ID
	}

	e.publish(ctx, events.MessageCreated(msg, conv.OrganizationID))

	status := e.deliver(ctx, pctx, msg)
	if err := e.store.UpdateMessageStatus(ctx, msg.ID, status); err != nil {
		log.Error("failed to update message status",
			zap.String("message_id", msg.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// deliver hands the message to the mail relay and returns the resulting
// delivery status. Without a relay or guest address the message stays pending.
func (e *Executor) deliver(ctx context.Context, pctx *PromptContext, msg *model.Message) model.MessageStatus {
	conv := pctx.Conversation
	if e.relay == nil || conv.GuestEmail == nil || *conv.GuestEmail == "" {
		e.log.WithConversation(conv.ID).Warn("no relay or guest address, leaving message pending",
			zap.String("message_id", msg.ID))
		return model.StatusPending
	}

	subject := pctx.Property.Name
	if !pctx.Property.Linked {
		subject = "Votre réservation"
	}

	threadID := ""
	if conv.ThreadID != nil {
		threadID = *conv.ThreadID
	}

	_, err := e.relay.SendReply(ctx, mailer.SendReplyRequest{
		To:       *conv.GuestEmail,
		Subject:  subject,
		Body:     mailer.FormatOutbound(msg.Content, pctx.OrgSettings.Signature, ""),
		ThreadID: threadID,
	})
	if err != nil {
		e.log.WithConversation(conv.ID).Error("relay delivery failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return model.StatusFailed
	}
	return model.StatusSent
}

// executeEscalation fans out one notification per owner/admin member. Failures
// are per-member: one failed insert never blocks the rest.
func (e *Executor) executeEscalation(ctx context.Context, pctx *PromptContext, record *model.AIResponse) {
	conv := pctx.Conversation
	log := e.log.WithConversation(conv.ID)

	members, err := e.store.ListMembersByRole(ctx, conv.OrganizationID, escalationRoles)
	if err != nil {
		log.Error("failed to list organization members for escalation", zap.Error(err))
		return
	}

	content := fmt.Sprintf("Confiance: %d%%", int(math.Round(record.ConfidenceScore*100)))
	link := "/inbox/" + conv.ID

	for _, member := range members {
		n := &model.Notification{
			ID:             uuid.Must(uuid.NewV7()).String(),
			UserID:         member.UserID,
			OrganizationID: &conv.OrganizationID,
			Type:           model.NotificationEscalation,
			Title:          "Réponse IA nécessite vérification",
			Content:        &content,
			Link:           &link,
			Channel:        model.ChannelBoth,
			CreatedAt:      time.Now(),
		}
		if err := e.store.CreateNotification(ctx, n); err != nil {
			log.Error("failed to create escalation notification",
				zap.String("user_id", member.UserID),
				zap.Error(err))
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(string(model.NotificationEscalation)).Inc()
	}

	e.publish(ctx, &events.Event{
		OrganizationID: conv.OrganizationID,
		ConversationID: conv.ID,
		Kind:           events.KindEscalationCreated,
		Payload: map[string]any{
			"ai_response_id": record.ID,
			"confidence":     record.ConfidenceScore,
		},
	})
}

func (e *Executor) publish(ctx context.Context, event *events.Event) {
	if err := e.events.Publish(ctx, event); err != nil {
		metrics.EventPublishFailures.Inc()
		e.log.Warn("failed to publish event",
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
	}
}
