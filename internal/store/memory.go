package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

// MemoryStore is an in-memory Store used for tests and local development.
type MemoryStore struct {
	mu sync.RWMutex

	conversations map[string]*model.Conversation
	messages      map[string]*model.Message
	organizations map[string]*model.Organization
	memberships   map[string]*model.Membership
	properties    map[string]*model.Property
	knowledgeBase map[string]*model.KnowledgeBaseEntry
	aiResponses   map[string]*model.AIResponse
	notifications map[string]*model.Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string]*model.Message),
		organizations: make(map[string]*model.Organization),
		memberships:   make(map[string]*model.Membership),
		properties:    make(map[string]*model.Property),
		knowledgeBase: make(map[string]*model.KnowledgeBaseEntry),
		aiResponses:   make(map[string]*model.AIResponse),
		notifications: make(map[string]*model.Notification),
	}
}

// SeedOrganization inserts an organization directly. Test helper.
func (s *MemoryStore) SeedOrganization(org *model.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *org
	s.organizations[org.ID] = &copied
}

// SeedMembership inserts a membership directly. Test helper.
func (s *MemoryStore) SeedMembership(m *model.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *m
	s.memberships[m.ID] = &copied
}

// SeedProperty inserts a property directly. Test helper.
func (s *MemoryStore) SeedProperty(p *model.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *p
	s.properties[p.ID] = &copied
}

// SeedKnowledgeBase inserts a knowledge base entry directly. Test helper.
func (s *MemoryStore) SeedKnowledgeBase(e *model.KnowledgeBaseEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *e
	s.knowledgeBase[e.ID] = &copied
}

// CreateConversation inserts a conversation.
func (s *MemoryStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *conv
	s.conversations[conv.ID] = &copied
	return nil
}

// GetConversation fetches a conversation scoped to an organization.
func (s *MemoryStore) GetConversation(ctx context.Context, orgID, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok || conv.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

// ListConversations lists an organization's conversations.
func (s *MemoryStore) ListConversations(ctx context.Context, orgID string, filter model.ConversationFilter) ([]model.Conversation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var convs []model.Conversation
	for _, conv := range s.conversations {
		if conv.OrganizationID != orgID {
			continue
		}
		if filter.Status != nil && conv.Status != *filter.Status {
			continue
		}
		convs = append(convs, *conv)
	}

	sort.Slice(convs, func(i, j int) bool {
		ti, tj := convs[i].LastMessageAt, convs[j].LastMessageAt
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})

	total := len(convs)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	start := filter.Offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return convs[start:end], total, nil
}

// UpdateConversation replaces a conversation row.
func (s *MemoryStore) UpdateConversation(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conv.ID]; !ok {
		return ErrNotFound
	}
	copied := *conv
	s.conversations[conv.ID] = &copied
	return nil
}

// CreateMessage inserts a message.
func (s *MemoryStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *msg
	s.messages[msg.ID] = &copied
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *MemoryStore) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []model.Message
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			msgs = append(msgs, *msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// UpdateMessageStatus updates one message's delivery status.
func (s *MemoryStore) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[messageID]
	if !ok {
		return ErrNotFound
	}
	msg.Status = status
	return nil
}

// GetOrganization fetches an organization.
func (s *MemoryStore) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *org
	return &copied, nil
}

// ListMembersByRole returns memberships matching one of the roles.
func (s *MemoryStore) ListMembersByRole(ctx context.Context, orgID string, roles []model.Role) ([]model.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []model.Membership
	for _, m := range s.memberships {
		if m.OrganizationID != orgID {
			continue
		}
		for _, role := range roles {
			if m.Role == role {
				members = append(members, *m)
				break
			}
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

// GetProperty fetches a property.
func (s *MemoryStore) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prop, ok := s.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *prop
	return &copied, nil
}

// ListKnowledgeBase returns top-usage entries for an organization.
func (s *MemoryStore) ListKnowledgeBase(ctx context.Context, orgID string, propertyID *string, limit int) ([]model.KnowledgeBaseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []model.KnowledgeBaseEntry
	for _, e := range s.knowledgeBase {
		if e.OrganizationID != orgID {
			continue
		}
		if e.PropertyID != nil && (propertyID == nil || *e.PropertyID != *propertyID) {
			continue
		}
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UsageCount > entries[j].UsageCount
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// CreateAIResponse inserts an AI response record.
func (s *MemoryStore) CreateAIResponse(ctx context.Context, resp *model.AIResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *resp
	s.aiResponses[resp.ID] = &copied
	return nil
}

// GetAIResponse fetches an AI response.
func (s *MemoryStore) GetAIResponse(ctx context.Context, id string) (*model.AIResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp, ok := s.aiResponses[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *resp
	return &copied, nil
}

// LinkAIResponseMessage sets the message reference on an AI response.
func (s *MemoryStore) LinkAIResponseMessage(ctx context.Context, aiResponseID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.aiResponses[aiResponseID]
	if !ok {
		return ErrNotFound
	}
	resp.MessageID = &messageID
	return nil
}

// UpdateAIResponseFeedback records the human verdict.
func (s *MemoryStore) UpdateAIResponseFeedback(ctx context.Context, id string, feedback model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.aiResponses[id]
	if !ok {
		return ErrNotFound
	}
	resp.UserFeedback = &feedback
	return nil
}

// LatestSuggestion returns the newest suggested/escalated response awaiting feedback.
func (s *MemoryStore) LatestSuggestion(ctx context.Context, conversationID string) (*model.AIResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.AIResponse
	for _, resp := range s.aiResponses {
		if resp.ConversationID != conversationID || resp.UserFeedback != nil {
			continue
		}
		if resp.ActionTaken != model.ActionSuggested && resp.ActionTaken != model.ActionEscalated {
			continue
		}
		if latest == nil || resp.CreatedAt.After(latest.CreatedAt) {
			latest = resp
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

// AIStats aggregates response outcomes for an organization over a period.
func (s *MemoryStore) AIStats(ctx context.Context, orgID string, start, end time.Time) (*model.AIStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []model.AIResponse
	for _, resp := range s.aiResponses {
		conv, ok := s.conversations[resp.ConversationID]
		if !ok || conv.OrganizationID != orgID {
			continue
		}
		if resp.CreatedAt.Before(start) || resp.CreatedAt.After(end) {
			continue
		}
		rows = append(rows, *resp)
	}
	return aggregateStats(rows), nil
}

// CreateNotification inserts a notification.
func (s *MemoryStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *n
	s.notifications[n.ID] = &copied
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *MemoryStore) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var notifications []model.Notification
	unread := 0
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		notifications = append(notifications, *n)
		if !n.IsRead {
			unread++
		}
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	if limit > 0 && len(notifications) > limit {
		notifications = notifications[:limit]
	}
	return notifications, unread, nil
}

// MarkNotificationRead marks one notification read.
func (s *MemoryStore) MarkNotificationRead(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.IsRead = true
	return nil
}

// MarkAllNotificationsRead marks all of the user's notifications read.
func (s *MemoryStore) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}
