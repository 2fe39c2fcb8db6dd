package model

import (
	"time"
)

// MessageSource identifies who produced a message.
type MessageSource string

const (
	SourceGuest  MessageSource = "guest"
	SourceHost   MessageSource = "host"
	SourceAI     MessageSource = "ai"
	SourceSystem MessageSource = "system"
)

// MessageStatus is the delivery status of a message.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// Message represents one utterance in a conversation.
type Message struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:uuid;index"`
	Source         MessageSource  `json:"source"`
	Content        string         `json:"content"`
	Status         MessageStatus  `json:"status" gorm:"default:pending"`
	MailMessageID  *string        `json:"mail_message_id"`
	SentByUserID   *string        `json:"sent_by_user_id" gorm:"type:uuid"`
	Metadata       map[string]any `json:"metadata,omitempty" gorm:"serializer:json"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SendMessageRequest is the request to create a new message in a conversation.
type SendMessageRequest struct {
	Source  MessageSource `json:"source"`
	Content string        `json:"content"`
	// MailMessageID links an ingested guest message back to the mail thread.
	MailMessageID *string `json:"mail_message_id,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}
