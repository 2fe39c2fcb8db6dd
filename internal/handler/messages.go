package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alba-hq/conciergerie-platform/internal/events"
	"github.com/alba-hq/conciergerie-platform/internal/mailer"
	"github.com/alba-hq/conciergerie-platform/internal/middleware"
	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/internal/store"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
	"github.com/alba-hq/conciergerie-platform/pkg/metrics"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	store  store.Store
	relay  mailer.Relay
	events events.Publisher
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler. relay may be nil when the
// outbound connector is disabled.
func NewMessageHandler(st store.Store, relay mailer.Relay, pub events.Publisher, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		store:  st,
		relay:  relay,
		events: pub,
		logger: log,
	}
}

// List handles GET /api/v1/conversations/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetConversation(ctx, orgID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to get conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	messages, err := h.store.ListMessages(ctx, conversationID)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, model.ListMessagesResponse{
		Messages: messages,
		Total:    len(messages),
	})
}

// Send handles POST /api/v1/conversations/{id}/messages
//
// A guest message comes from the ingestion connector and is stored as
// delivered. A host message is stored pending, handed to the mail relay, then
// marked sent or failed.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Source != model.SourceGuest && req.Source != model.SourceHost {
		writeError(w, http.StatusBadRequest, "source must be guest or host")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.GetConversation(ctx, orgID, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to get conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	now := time.Now()
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Source:         req.Source,
		Content:        req.Content,
		Status:         model.StatusPending,
		MailMessageID:  req.MailMessageID,
		CreatedAt:      now,
	}

	switch req.Source {
	case model.SourceGuest:
		msg.Status = model.StatusDelivered
		conv.UnreadCount++
	case model.SourceHost:
		msg.SentByUserID = &userID
	}

	if err := h.store.CreateMessage(ctx, msg); err != nil {
		h.logger.Error("failed to create message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create message")
		return
	}
	metrics.MessagesTotal.WithLabelValues(orgID, string(req.Source)).Inc()

	conv.LastMessageAt = &now
	conv.UpdatedAt = now
	if err := h.store.UpdateConversation(ctx, conv); err != nil {
		h.logger.Warn("failed to update conversation after message",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}

	if req.Source == model.SourceHost {
		msg.Status = h.relayHostMessage(ctx, conv, msg)
		if err := h.store.UpdateMessageStatus(ctx, msg.ID, msg.Status); err != nil {
			h.logger.Warn("failed to update message status",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}

	if err := h.events.Publish(ctx, events.MessageCreated(msg, orgID)); err != nil {
		h.logger.Warn("failed to publish message event",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		metrics.EventPublishFailures.Inc()
	}

	writeJSON(w, http.StatusCreated, msg)
}

// relayHostMessage hands a host reply to the mail relay and returns the
// resulting delivery status. Without a relay or guest address the message
// stays pending.
func (h *MessageHandler) relayHostMessage(ctx context.Context, conv *model.Conversation, msg *model.Message) model.MessageStatus {
	if h.relay == nil || conv.GuestEmail == nil || *conv.GuestEmail == "" {
		return model.StatusPending
	}

	subject := "Votre réservation"
	if conv.PropertyID != nil {
		if prop, err := h.store.GetProperty(ctx, *conv.PropertyID); err == nil {
			subject = prop.Name
		}
	}

	signature := ""
	if org, err := h.store.GetOrganization(ctx, conv.OrganizationID); err == nil && org.AISettings != nil {
		signature = org.AISettings.Signature
	}

	threadID := ""
	if conv.ThreadID != nil {
		threadID = *conv.ThreadID
	}

	result, err := h.relay.SendReply(ctx, mailer.SendReplyRequest{
		To:       *conv.GuestEmail,
		Subject:  mailer.ReplySubject(subject),
		Body:     mailer.FormatOutbound(msg.Content, signature, ""),
		ThreadID: threadID,
	})
	if err != nil {
		h.logger.Error("relay send failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		return model.StatusFailed
	}
	if result.MessageID != "" {
		msg.MailMessageID = &result.MessageID
	}
	return model.StatusSent
}
