// Package model defines data structures for the conciergerie platform.
package model

import (
	"time"
)

// ConversationStatus represents the lifecycle status of a conversation.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
	ConversationResolved ConversationStatus = "resolved"
)

// Conversation represents a guest/host message thread.
type Conversation struct {
	ID             string             `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID string             `json:"organization_id" gorm:"type:uuid;index"`
	PropertyID     *string            `json:"property_id" gorm:"type:uuid;index"`
	GuestName      *string            `json:"guest_name"`
	GuestEmail     *string            `json:"guest_email"`
	ThreadID       *string            `json:"thread_id" gorm:"index"`
	CheckInDate    *time.Time         `json:"check_in_date"`
	CheckOutDate   *time.Time         `json:"check_out_date"`
	Status         ConversationStatus `json:"status" gorm:"default:active"`
	Language       string             `json:"language" gorm:"default:fr"`
	LastMessageAt  *time.Time         `json:"last_message_at"`
	UnreadCount    int                `json:"unread_count" gorm:"default:0"`
	AIDisabled     bool               `json:"ai_disabled" gorm:"default:false"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// CreateConversationRequest is the request to create a conversation manually.
type CreateConversationRequest struct {
	PropertyID *string `json:"property_id,omitempty"`
	GuestName  *string `json:"guest_name,omitempty"`
	GuestEmail *string `json:"guest_email,omitempty"`
	ThreadID   *string `json:"thread_id,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// UpdateConversationRequest is the request to update a conversation.
type UpdateConversationRequest struct {
	Status     *ConversationStatus `json:"status,omitempty"`
	AIDisabled *bool               `json:"ai_disabled,omitempty"`
	PropertyID *string             `json:"property_id,omitempty"`
}

// ConversationFilter narrows conversation listings.
type ConversationFilter struct {
	Status *ConversationStatus
	Limit  int
	Offset int
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
	HasMore       bool           `json:"has_more"`
}
