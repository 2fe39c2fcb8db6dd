package ai

import (
	"strings"
	"unicode/utf8"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

// FactorWeights blend the four heuristic signals into one score.
type FactorWeights struct {
	KnowledgeBaseMatch  float64
	IntentClarity       float64
	ContextCompleteness float64
	ResponseQuality     float64
}

// EvaluatorConfig holds every tunable the confidence calibration uses, so the
// policy can be adjusted and tested without touching control flow.
type EvaluatorConfig struct {
	Weights FactorWeights

	// IntentCategories maps category names to keyword lists used for the
	// intent clarity factor.
	IntentCategories map[string][]string
	// FallbackIntent is the named category scored lower than the others.
	FallbackIntent string

	// HedgePhrases mark uncertain responses (French and English).
	HedgePhrases []string

	// Response quality bounds and scores.
	MinResponseLength int
	MaxResponseLength int
	ShortQuality      float64
	LongQuality       float64
	HedgedQuality     float64
	CleanQuality      float64
}

// DefaultEvaluatorConfig returns the production calibration.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Weights: FactorWeights{
			KnowledgeBaseMatch:  0.30,
			IntentClarity:       0.25,
			ContextCompleteness: 0.25,
			ResponseQuality:     0.20,
		},
		IntentCategories: map[string][]string{
			"check_in":  {"arrivée", "check-in", "clé", "clef", "heure", "entrée", "arrival", "key", "time"},
			"check_out": {"départ", "check-out", "sortie", "checkout", "departure", "leave"},
			"amenities": {"wifi", "parking", "équipement", "piscine", "climatisation", "chauffage", "amenities", "facilities"},
			"location":  {"adresse", "comment venir", "transport", "métro", "bus", "address", "directions", "getting there"},
			"booking":   {"réservation", "dates", "modification", "annulation", "booking", "cancel", "change"},
			"issue":     {"problème", "ne fonctionne pas", "cassé", "urgent", "problem", "broken", "not working"},
			"other":     {},
		},
		FallbackIntent: "other",
		HedgePhrases: []string{
			"je ne sais pas",
			"i don't know",
			"vérifier",
			"check with",
			"peut-être",
			"maybe",
			"je pense",
			"i think",
		},
		MinResponseLength: 20,
		MaxResponseLength: 1000,
		ShortQuality:      0.3,
		LongQuality:       0.6,
		HedgedQuality:     0.6,
		CleanQuality:      0.85,
	}
}

// Signals are the auxiliary context inputs to confidence calibration.
type Signals struct {
	KnowledgeBase      []model.KnowledgeBaseEntry
	HasPropertyInfo    bool
	ConversationLength int
}

// Factors are the four independent heuristic scores, each in [0,1].
type Factors struct {
	KnowledgeBaseMatch  float64
	IntentClarity       float64
	ContextCompleteness float64
	ResponseQuality     float64
}

// Evaluator computes calibrated confidence scores. Stateless and safe for
// concurrent use.
type Evaluator struct {
	cfg EvaluatorConfig
}

// NewEvaluator creates an evaluator with the given calibration.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate blends the model's self-reported confidence with the four heuristic
// factors and clamps the result to [0,1].
func (e *Evaluator) Evaluate(gen *model.GeneratedResponse, signals Signals) float64 {
	factors := e.Factors(gen, signals)

	weighted := factors.KnowledgeBaseMatch*e.cfg.Weights.KnowledgeBaseMatch +
		factors.IntentClarity*e.cfg.Weights.IntentClarity +
		factors.ContextCompleteness*e.cfg.Weights.ContextCompleteness +
		factors.ResponseQuality*e.cfg.Weights.ResponseQuality

	final := (gen.Confidence + weighted) / 2

	return clamp01(final)
}

// Factors computes the four independent heuristic scores.
func (e *Evaluator) Factors(gen *model.GeneratedResponse, signals Signals) Factors {
	return Factors{
		KnowledgeBaseMatch:  e.knowledgeBaseMatch(gen.DetectedIntent, signals.KnowledgeBase),
		IntentClarity:       e.intentClarity(gen.DetectedIntent),
		ContextCompleteness: e.contextCompleteness(signals),
		ResponseQuality:     e.responseQuality(gen.Response),
	}
}

func (e *Evaluator) knowledgeBaseMatch(intent string, kb []model.KnowledgeBaseEntry) float64 {
	if len(kb) == 0 {
		return 0.5
	}

	intentLower := strings.ToLower(intent)
	var matches []model.KnowledgeBaseEntry
	for _, entry := range kb {
		if strings.Contains(strings.ToLower(entry.QuestionPattern), intentLower) {
			matches = append(matches, entry)
		}
	}
	if len(matches) == 0 {
		return 0.5
	}

	var sum float64
	for _, entry := range matches {
		sum += entry.SuccessRate
	}
	avgSuccessRate := sum / float64(len(matches))

	score := 0.5 + avgSuccessRate*0.5
	if score > 1 {
		score = 1
	}
	return score
}

func (e *Evaluator) intentClarity(intent string) float64 {
	intentLower := strings.ToLower(intent)

	for category, keywords := range e.cfg.IntentCategories {
		matched := category == intent
		if !matched {
			for _, keyword := range keywords {
				if strings.Contains(intentLower, keyword) {
					matched = true
					break
				}
			}
		}
		if matched {
			if category == e.cfg.FallbackIntent {
				return 0.6
			}
			return 0.9
		}
	}
	return 0.5
}

func (e *Evaluator) contextCompleteness(signals Signals) float64 {
	score := 0.5
	if signals.HasPropertyInfo {
		score += 0.3
	}
	if signals.ConversationLength > 0 {
		score += 0.1
	}
	if signals.ConversationLength > 3 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

func (e *Evaluator) responseQuality(response string) float64 {
	// Length bounds are in characters, not bytes; accented French text
	// would otherwise cross both boundaries early.
	length := utf8.RuneCountInString(response)
	if length < e.cfg.MinResponseLength {
		return e.cfg.ShortQuality
	}
	if length > e.cfg.MaxResponseLength {
		return e.cfg.LongQuality
	}

	lower := strings.ToLower(response)
	for _, phrase := range e.cfg.HedgePhrases {
		if strings.Contains(lower, phrase) {
			return e.cfg.HedgedQuality
		}
	}
	return e.cfg.CleanQuality
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
