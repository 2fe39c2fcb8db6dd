package model

import (
	"time"
)

// Tone controls the register of generated replies.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneCasual       Tone = "casual"
)

// AISettings are the per-organization generation settings.
type AISettings struct {
	Tone              Tone    `json:"tone"`
	AutoSendThreshold float64 `json:"auto_send_threshold"`
	Signature         string  `json:"signature"`
}

// DefaultAISettings are applied when an organization has none configured.
func DefaultAISettings() AISettings {
	return AISettings{
		Tone:              ToneProfessional,
		AutoSendThreshold: 0.85,
		Signature:         "",
	}
}

// Organization owns conversations, properties and notifications.
type Organization struct {
	ID         string      `json:"id" gorm:"type:uuid;primaryKey"`
	Name       string      `json:"name"`
	Slug       string      `json:"slug" gorm:"uniqueIndex"`
	AISettings *AISettings `json:"ai_settings" gorm:"serializer:json"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Role of a membership within an organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Membership ties a user to an organization with a role.
type Membership struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         string    `json:"user_id" gorm:"type:uuid;index"`
	OrganizationID string    `json:"organization_id" gorm:"type:uuid;index"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// Property is a managed rental unit.
type Property struct {
	ID                  string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID      string    `json:"organization_id" gorm:"type:uuid;index"`
	Name                string    `json:"name"`
	Address             *string   `json:"address"`
	Description         *string   `json:"description"`
	CheckInInstructions *string   `json:"check_in_instructions"`
	HouseRules          *string   `json:"house_rules"`
	Amenities           []string  `json:"amenities" gorm:"serializer:json"`
	IsActive            bool      `json:"is_active" gorm:"default:true"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// KnowledgeBaseEntry is a previously approved question/response pair.
// Read-only to the generation pipeline.
type KnowledgeBaseEntry struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID   string    `json:"organization_id" gorm:"type:uuid;index"`
	PropertyID       *string   `json:"property_id" gorm:"type:uuid"`
	QuestionPattern  string    `json:"question_pattern"`
	ApprovedResponse string    `json:"approved_response"`
	UsageCount       int       `json:"usage_count" gorm:"default:0"`
	SuccessRate      float64   `json:"success_rate" gorm:"default:0"`
	Language         string    `json:"language" gorm:"default:fr"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
