package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessageParamsDefaults(t *testing.T) {
	params := buildMessageParams(&CompletionRequest{
		SystemPrompt: "Tu es l'assistant d'une conciergerie.",
		UserPrompt:   "À quelle heure est le check-in ?",
	})

	assert.Equal(t, "claude-3-5-sonnet-20241022", params.Model.Value)
	assert.Equal(t, int64(DefaultMaxTokens), params.MaxTokens.Value)
	assert.False(t, params.Temperature.Present, "zero temperature stays unset so the API default applies")
}

func TestBuildMessageParamsTemperature(t *testing.T) {
	params := buildMessageParams(&CompletionRequest{
		Model:        "claude-3-opus-20240229",
		MaxTokens:    500,
		Temperature:  0.7,
		SystemPrompt: "Tu es l'assistant d'une conciergerie.",
		UserPrompt:   "À quelle heure est le check-in ?",
	})

	assert.Equal(t, "claude-3-opus-20240229", params.Model.Value)
	assert.Equal(t, int64(500), params.MaxTokens.Value)
	assert.True(t, params.Temperature.Present)
	assert.Equal(t, 0.7, params.Temperature.Value)
}
