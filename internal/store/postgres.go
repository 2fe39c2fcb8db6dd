package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
)

// PostgresConfig holds connection settings for the postgres store.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresStore implements Store on top of Postgres via gorm.
type PostgresStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPostgresStore connects to Postgres and migrates the schema.
func NewPostgresStore(cfg PostgresConfig, log *logger.Logger) (*PostgresStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Organization{},
		&model.Membership{},
		&model.Property{},
		&model.Conversation{},
		&model.Message{},
		&model.AIResponse{},
		&model.KnowledgeBaseEntry{},
		&model.Notification{},
	); err != nil {
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}

	return &PostgresStore{db: db, log: log}, nil
}

func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// CreateConversation inserts a conversation.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	return s.db.WithContext(ctx).Create(conv).Error
}

// GetConversation fetches a conversation scoped to an organization.
func (s *PostgresStore) GetConversation(ctx context.Context, orgID, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&conv).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &conv, nil
}

// ListConversations lists an organization's conversations, most recent activity first.
func (s *PostgresStore) ListConversations(ctx context.Context, orgID string, filter model.ConversationFilter) ([]model.Conversation, int, error) {
	q := s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("organization_id = ?", orgID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var convs []model.Conversation
	err := q.Order("last_message_at DESC NULLS LAST").
		Limit(limit).Offset(filter.Offset).
		Find(&convs).Error
	if err != nil {
		return nil, 0, err
	}
	return convs, int(total), nil
}

// UpdateConversation saves a full conversation row.
func (s *PostgresStore) UpdateConversation(ctx context.Context, conv *model.Conversation) error {
	return s.db.WithContext(ctx).Save(conv).Error
}

// CreateMessage inserts a message.
func (s *PostgresStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	return s.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns a conversation's messages in chronological order.
func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}

// UpdateMessageStatus updates a single message's delivery status.
func (s *PostgresStore) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", messageID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrganization fetches an organization by id.
func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &org, nil
}

// ListMembersByRole returns memberships of an organization holding one of the roles.
func (s *PostgresStore) ListMembersByRole(ctx context.Context, orgID string, roles []model.Role) ([]model.Membership, error) {
	var members []model.Membership
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND role IN ?", orgID, roles).
		Find(&members).Error
	return members, err
}

// GetProperty fetches a property by id.
func (s *PostgresStore) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	var prop model.Property
	if err := s.db.WithContext(ctx).First(&prop, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &prop, nil
}

// ListKnowledgeBase returns top-usage approved Q/R pairs for an organization,
// optionally scoped to a property.
func (s *PostgresStore) ListKnowledgeBase(ctx context.Context, orgID string, propertyID *string, limit int) ([]model.KnowledgeBaseEntry, error) {
	q := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID)
	if propertyID != nil {
		q = q.Where("property_id IS NULL OR property_id = ?", *propertyID)
	} else {
		q = q.Where("property_id IS NULL")
	}

	var entries []model.KnowledgeBaseEntry
	err := q.Order("usage_count DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

// CreateAIResponse inserts an AI response record.
func (s *PostgresStore) CreateAIResponse(ctx context.Context, resp *model.AIResponse) error {
	return s.db.WithContext(ctx).Create(resp).Error
}

// GetAIResponse fetches an AI response by id.
func (s *PostgresStore) GetAIResponse(ctx context.Context, id string) (*model.AIResponse, error) {
	var resp model.AIResponse
	if err := s.db.WithContext(ctx).First(&resp, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	return &resp, nil
}

// LinkAIResponseMessage sets the message reference on an AI response.
func (s *PostgresStore) LinkAIResponseMessage(ctx context.Context, aiResponseID, messageID string) error {
	res := s.db.WithContext(ctx).Model(&model.AIResponse{}).
		Where("id = ?", aiResponseID).
		Update("message_id", messageID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAIResponseFeedback records the human verdict on a response.
func (s *PostgresStore) UpdateAIResponseFeedback(ctx context.Context, id string, feedback model.Feedback) error {
	res := s.db.WithContext(ctx).Model(&model.AIResponse{}).
		Where("id = ?", id).
		Update("user_feedback", feedback)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestSuggestion returns the newest suggested/escalated response awaiting feedback.
func (s *PostgresStore) LatestSuggestion(ctx context.Context, conversationID string) (*model.AIResponse, error) {
	var resp model.AIResponse
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Where("action_taken IN ?", []model.AIAction{model.ActionSuggested, model.ActionEscalated}).
		Where("user_feedback IS NULL").
		Order("created_at DESC").
		First(&resp).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &resp, nil
}

// AIStats aggregates response outcomes for an organization over a period.
func (s *PostgresStore) AIStats(ctx context.Context, orgID string, start, end time.Time) (*model.AIStats, error) {
	var rows []model.AIResponse
	err := s.db.WithContext(ctx).
		Joins("JOIN conversations ON conversations.id = ai_responses.conversation_id").
		Where("conversations.organization_id = ?", orgID).
		Where("ai_responses.created_at BETWEEN ? AND ?", start, end).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return aggregateStats(rows), nil
}

func aggregateStats(rows []model.AIResponse) *model.AIStats {
	stats := &model.AIStats{Total: len(rows)}
	var confidenceSum float64
	for _, r := range rows {
		switch r.ActionTaken {
		case model.ActionAutoSent:
			stats.AutoSent++
		case model.ActionSuggested:
			stats.Suggested++
		case model.ActionEscalated:
			stats.Escalated++
		}
		confidenceSum += r.ConfidenceScore
	}
	if stats.Total > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.Total)
	}
	return stats
}

// CreateNotification inserts a notification.
func (s *PostgresStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

// ListNotifications returns a user's notifications, newest first, plus unread count.
func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var notifications []model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}

	var unread int64
	err = s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, int(unread), nil
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks all of the user's notifications as read.
func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
