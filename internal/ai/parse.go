package ai

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alba-hq/conciergerie-platform/internal/model"
)

// ParseGeneratedResponse parses raw model output into a GeneratedResponse.
//
// Parsing is strict: the content must be a JSON object carrying all four
// fields with the right types, and the reply text must be non-empty. Anything
// else is a fatal parse error for the turn; nothing is defaulted.
func ParseGeneratedResponse(content string) (*model.GeneratedResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, pipelineErr(KindParse, fmt.Errorf("output is not a JSON object: %w", err))
	}

	var gen model.GeneratedResponse

	if err := requireString(raw, "response", &gen.Response); err != nil {
		return nil, pipelineErr(KindParse, err)
	}
	if gen.Response == "" {
		return nil, pipelineErr(KindParse, errors.New(`field "response" is empty`))
	}
	if err := requireNumber(raw, "confidence", &gen.Confidence); err != nil {
		return nil, pipelineErr(KindParse, err)
	}
	if err := requireString(raw, "reasoning", &gen.Reasoning); err != nil {
		return nil, pipelineErr(KindParse, err)
	}
	if err := requireString(raw, "detected_intent", &gen.DetectedIntent); err != nil {
		return nil, pipelineErr(KindParse, err)
	}

	return &gen, nil
}

func requireString(raw map[string]json.RawMessage, field string, dst *string) error {
	data, ok := raw[field]
	if !ok {
		return fmt.Errorf("missing field %q", field)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("field %q is not a string", field)
	}
	return nil
}

func requireNumber(raw map[string]json.RawMessage, field string, dst *float64) error {
	data, ok := raw[field]
	if !ok {
		return fmt.Errorf("missing field %q", field)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("field %q is not a number", field)
	}
	return nil
}
