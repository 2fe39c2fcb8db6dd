package ai

import (
	"github.com/alba-hq/conciergerie-platform/internal/model"
)

// PolicyConfig centralizes every action threshold. Presentation layers must
// read banding from here rather than carrying their own constants.
type PolicyConfig struct {
	// DefaultAutoSendThreshold applies when an organization has no threshold
	// configured.
	DefaultAutoSendThreshold float64
	// SuggestFloor is the lower bound of the suggestion band; below it, the
	// turn escalates.
	SuggestFloor float64
}

// DefaultPolicyConfig returns the production thresholds.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		DefaultAutoSendThreshold: 0.85,
		SuggestFloor:             0.5,
	}
}

// Policy maps a calibrated confidence and an organization threshold to one of
// the three terminal actions. Pure function of (confidence, threshold).
type Policy struct {
	cfg PolicyConfig
}

// NewPolicy creates an action policy.
func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{cfg: cfg}
}

// Decide returns the terminal action for a turn.
//
//	confidence >= threshold        -> auto_sent
//	suggestFloor <= confidence < t -> suggested
//	confidence < suggestFloor      -> escalated
func (p *Policy) Decide(confidence, threshold float64) model.AIAction {
	if threshold <= 0 {
		threshold = p.cfg.DefaultAutoSendThreshold
	}
	if confidence >= threshold {
		return model.ActionAutoSent
	}
	if confidence >= p.cfg.SuggestFloor {
		return model.ActionSuggested
	}
	return model.ActionEscalated
}
