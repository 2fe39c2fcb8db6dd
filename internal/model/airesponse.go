package model

import (
	"time"
)

// AIAction is the terminal action decided for a generated response.
type AIAction string

const (
	ActionAutoSent  AIAction = "auto_sent"
	ActionSuggested AIAction = "suggested"
	ActionEscalated AIAction = "escalated"
)

// Feedback is the human verdict on a suggested or escalated response.
type Feedback string

const (
	FeedbackApproved Feedback = "approved"
	FeedbackEdited   Feedback = "edited"
	FeedbackRejected Feedback = "rejected"
)

// AIResponse is one generated candidate reply plus its evaluation trail.
// Immutable once the action is recorded; UserFeedback is the only later mutation.
type AIResponse struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	ConversationID   string    `json:"conversation_id" gorm:"type:uuid;index"`
	MessageID        *string   `json:"message_id" gorm:"type:uuid"`
	GeneratedContent string    `json:"generated_content"`
	ConfidenceScore  float64   `json:"confidence_score"`
	ActionTaken      AIAction  `json:"action_taken"`
	Reasoning        string    `json:"reasoning"`
	DetectedIntent   string    `json:"detected_intent"`
	ModelUsed        string    `json:"model_used"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	ResponseTimeMs   int64     `json:"response_time_ms"`
	UserFeedback     *Feedback `json:"user_feedback"`
	CreatedAt        time.Time `json:"created_at"`
}

// GeneratedResponse is the structured record the model must return.
type GeneratedResponse struct {
	Response       string  `json:"response"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	DetectedIntent string  `json:"detected_intent"`
}

// Usage reports token consumption for one completion call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResult is the success payload of the generation endpoint.
type GenerateResult struct {
	Success        bool            `json:"success"`
	Response       GenerateSummary `json:"response"`
	Usage          Usage           `json:"usage"`
	ResponseTimeMs int64           `json:"responseTimeMs"`
}

// GenerateSummary summarizes the decided response for the caller.
type GenerateSummary struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Intent     string   `json:"intent"`
	Action     AIAction `json:"action"`
}

// FeedbackRequest is the body of the feedback endpoint.
type FeedbackRequest struct {
	Feedback Feedback `json:"feedback"`
}

// AIStats aggregates AI response outcomes for an organization over a period.
type AIStats struct {
	Total         int     `json:"total"`
	AutoSent      int     `json:"auto_sent"`
	Suggested     int     `json:"suggested"`
	Escalated     int     `json:"escalated"`
	AvgConfidence float64 `json:"avg_confidence"`
}
