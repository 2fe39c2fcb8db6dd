package model

import (
	"time"
)

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationEscalation NotificationType = "escalation"
	NotificationNewMessage NotificationType = "new_message"
	NotificationSyncError  NotificationType = "sync_error"
	NotificationSystem     NotificationType = "system"
)

// NotificationChannel selects how a notification is delivered.
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
	ChannelBoth  NotificationChannel = "both"
)

// Notification is an alert to an organization member.
type Notification struct {
	ID             string              `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         string              `json:"user_id" gorm:"type:uuid;index"`
	OrganizationID *string             `json:"organization_id" gorm:"type:uuid;index"`
	Type           NotificationType    `json:"type"`
	Title          string              `json:"title"`
	Content        *string             `json:"content"`
	Link           *string             `json:"link"`
	Channel        NotificationChannel `json:"channel" gorm:"default:in_app"`
	IsRead         bool                `json:"is_read" gorm:"default:false"`
	CreatedAt      time.Time           `json:"created_at"`
}

// ListNotificationsResponse is the response for listing notifications.
type ListNotificationsResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
