package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 { // ~100KB limit
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateResponseID validates an AI response ID.
func ValidateResponseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid response ID format")
	}
	return nil
}

// ValidateNotificationID validates a notification ID.
func ValidateNotificationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid notification ID format")
	}
	return nil
}

// ValidateGuestName validates a guest display name.
func ValidateGuestName(name string) error {
	if len(name) > 256 {
		return errors.New("guest name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("guest name must be valid UTF-8")
	}
	return nil
}
