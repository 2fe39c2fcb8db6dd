// Package ai implements the AI response decision pipeline: context building,
// prompt formatting, completion, parsing, confidence calibration, action policy
// and effect execution.
package ai

import (
	"fmt"
)

// ErrorKind classifies pipeline failures so callers and telemetry can tell
// them apart.
type ErrorKind string

const (
	// KindNoContext: nothing to respond to (no guest message). Expected,
	// non-fatal at the application level; no record is created.
	KindNoContext ErrorKind = "no_context"
	// KindAIDisabled: automatic replies are suppressed for the conversation.
	KindAIDisabled ErrorKind = "ai_disabled"
	// KindGeneration: the model service call failed (network, timeout).
	KindGeneration ErrorKind = "generation_error"
	// KindParse: model output was not structurally valid.
	KindParse ErrorKind = "parse_error"
	// KindPersistence: the AIResponse insert failed; side effects must not run.
	KindPersistence ErrorKind = "persistence_error"
)

// PipelineError is a classified failure of one generation turn.
type PipelineError struct {
	Kind ErrorKind
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func pipelineErr(kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}
