// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
)

// Default generation parameters, applied when a request leaves them unset.
const (
	DefaultModel       = "gpt-4-turbo-preview"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// CompletionRequest is one generation turn: a system instruction plus a user
// instruction, with optional parameter overrides.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// CompletionResponse is the raw model output plus usage and timing.
type CompletionResponse struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMs        int64
}

// Client is the interface for LLM providers. Implementations must request
// strictly parseable JSON output from the service.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewOpenAIClient(apiKey)
	}
}
