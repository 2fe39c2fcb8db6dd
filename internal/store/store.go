// Package store provides persistent storage for the conciergerie platform.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the storage boundary the application depends on.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *model.Conversation) error
	GetConversation(ctx context.Context, orgID, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, orgID string, filter model.ConversationFilter) ([]model.Conversation, int, error)
	UpdateConversation(ctx context.Context, conv *model.Conversation) error

	// Messages
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
	UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error

	// Organizations, memberships, properties
	GetOrganization(ctx context.Context, id string) (*model.Organization, error)
	ListMembersByRole(ctx context.Context, orgID string, roles []model.Role) ([]model.Membership, error)
	GetProperty(ctx context.Context, id string) (*model.Property, error)

	// Knowledge base (read-only to the pipeline)
	ListKnowledgeBase(ctx context.Context, orgID string, propertyID *string, limit int) ([]model.KnowledgeBaseEntry, error)

	// AI responses
	CreateAIResponse(ctx context.Context, resp *model.AIResponse) error
	GetAIResponse(ctx context.Context, id string) (*model.AIResponse, error)
	LinkAIResponseMessage(ctx context.Context, aiResponseID, messageID string) error
	UpdateAIResponseFeedback(ctx context.Context, id string, feedback model.Feedback) error
	LatestSuggestion(ctx context.Context, conversationID string) (*model.AIResponse, error)
	AIStats(ctx context.Context, orgID string, start, end time.Time) (*model.AIStats, error)

	// Notifications
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, int, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}
