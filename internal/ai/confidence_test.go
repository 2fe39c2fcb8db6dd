package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

func testGenerated(confidence float64) *model.GeneratedResponse {
	return &model.GeneratedResponse{
		Response:       "Le check-in est à partir de 15h, le code de la boîte à clés est dans votre email.",
		Confidence:     confidence,
		Reasoning:      "Information disponible dans les instructions d'arrivée",
		DetectedIntent: "check_in",
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	evaluator := NewEvaluator(DefaultEvaluatorConfig())
	gen := testGenerated(0.9)
	signals := Signals{
		KnowledgeBase: []model.KnowledgeBaseEntry{
			{QuestionPattern: "check_in time", SuccessRate: 0.8},
		},
		HasPropertyInfo:    true,
		ConversationLength: 4,
	}

	first := evaluator.Evaluate(gen, signals)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, evaluator.Evaluate(gen, signals))
	}
}

func TestEvaluateClampsToUnitInterval(t *testing.T) {
	evaluator := NewEvaluator(DefaultEvaluatorConfig())
	signals := Signals{HasPropertyInfo: true, ConversationLength: 5}

	high := evaluator.Evaluate(testGenerated(1.5), signals)
	assert.LessOrEqual(t, high, 1.0)
	assert.GreaterOrEqual(t, high, 0.0)

	low := evaluator.Evaluate(testGenerated(-0.2), Signals{})
	assert.GreaterOrEqual(t, low, 0.0)
	assert.LessOrEqual(t, low, 1.0)
}

func TestKnowledgeBaseMatchFactor(t *testing.T) {
	evaluator := NewEvaluator(DefaultEvaluatorConfig())

	t.Run("empty knowledge base is neutral", func(t *testing.T) {
		factors := evaluator.Factors(testGenerated(0.9), Signals{})
		assert.Equal(t, 0.5, factors.KnowledgeBaseMatch)
	})

	t.Run("no matching entry is neutral", func(t *testing.T) {
		factors := evaluator.Factors(testGenerated(0.9), Signals{
			KnowledgeBase: []model.KnowledgeBaseEntry{
				{QuestionPattern: "parking information", SuccessRate: 0.95},
			},
		})
		assert.Equal(t, 0.5, factors.KnowledgeBaseMatch)
	})

	t.Run("matching entries lift by average success rate", func(t *testing.T) {
		factors := evaluator.Factors(testGenerated(0.9), Signals{
			KnowledgeBase: []model.KnowledgeBaseEntry{
				{QuestionPattern: "check_in procedure", SuccessRate: 0.8},
				{QuestionPattern: "late check_in", SuccessRate: 0.6},
			},
		})
		assert.InDelta(t, 0.5+0.7*0.5, factors.KnowledgeBaseMatch, 1e-9)
	})

	t.Run("perfect success rate caps at one", func(t *testing.T) {
		factors := evaluator.Factors(testGenerated(0.9), Signals{
			KnowledgeBase: []model.KnowledgeBaseEntry{
				{QuestionPattern: "check_in", SuccessRate: 1.0},
			},
		})
		assert.Equal(t, 1.0, factors.KnowledgeBaseMatch)
	})
}

func TestIntentClarityFactor(t *testing.T) {
	evaluator := NewEvaluator(DefaultEvaluatorConfig())

	tests := []struct {
		intent string
		want   float64
	}{
		{"check_in", 0.9},
		{"amenities", 0.9},
		{"other", 0.6},
		{"quantum_physics", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			gen := testGenerated(0.9)
			gen.DetectedIntent = tt.intent
			factors := evaluator.Factors(gen, Signals{})
			assert.Equal(t, tt.want, factors.IntentClarity)
		})
	}
}

func TestContextCompletenessFactor(t *testing.T) {
	evaluator := NewEvaluator(DefaultEvaluatorConfig())
	gen := testGenerated(0.9)

	tests := []struct {
		name    string
		signals Signals
		want    float64
	}{
		{"bare context", Signals{}, 0.5},
		{"property only", Signals{HasPropertyInfo: true}, 0.8},
		{"short history", Signals{ConversationLength: 2}, 0.6},
		{"long history", Signals{ConversationLength: 5}, 0.7},
		{"everything", Signals{HasPropertyInfo: true, ConversationLength: 5}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors := evaluator.Factors(gen, tt.signals)
			assert.InDelta(t, tt.want, factors.ContextCompleteness, 1e-9)
		})
	}
}

func TestResponseQualityFactor(t *testing.T) {
	evaluator := NewEvaluator(DefaultEvaluatorConfig())

	quality := func(response string) float64 {
		gen := testGenerated(0.9)
		gen.Response = response
		return evaluator.Factors(gen, Signals{}).ResponseQuality
	}

	assert.Equal(t, 0.3, quality("Oui, 15h."), "short response")
	assert.Equal(t, 0.3, quality("Désolé, c'est fermé"), "19 accented characters is still short")
	assert.Equal(t, 0.85, quality("Désolé, c'est fermé."), "20 accented characters is long enough")
	assert.Equal(t, 0.6, quality(strings.Repeat("a", 1001)), "overlong response")
	assert.Equal(t, 0.85, quality(strings.Repeat("é", 1000)), "1000 accented characters is not overlong")
	assert.Equal(t, 0.6, quality("Je ne sais pas exactement, je vais vérifier et revenir vers vous."), "hedged response")
	assert.Equal(t, 0.6, quality("Honestly I think the pool opens at 9am but let me confirm."), "english hedge")
	assert.Equal(t, 0.85, quality("Le code wifi est AlbaGuest2024, il est affiché dans l'entrée."), "clean response")
}

func TestEvaluateHedgingLowersScore(t *testing.T) {
	evaluator := NewEvaluator(DefaultEvaluatorConfig())
	signals := Signals{HasPropertyInfo: true, ConversationLength: 2}

	clean := testGenerated(0.8)
	hedged := testGenerated(0.8)
	hedged.Response = "Je ne sais pas, il faudrait vérifier auprès du propriétaire du logement."

	assert.Greater(t, evaluator.Evaluate(clean, signals), evaluator.Evaluate(hedged, signals))
}
