package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alba-hq/conciergerie-platform/internal/llm"
	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
	"github.com/alba-hq/conciergerie-platform/pkg/metrics"
)

// GenerationOptions override the default model parameters per deployment.
type GenerationOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Pipeline runs one conversation turn through the seven stages: context,
// prompt, completion, parse, confidence, policy, effects. Strictly sequential;
// at most one turn is in flight per conversation at a time.
type Pipeline struct {
	builder   *ContextBuilder
	client    llm.Client
	evaluator *Evaluator
	policy    *Policy
	executor  *Executor
	opts      GenerationOptions
	log       *logger.Logger

	locks keyedMutex
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(
	builder *ContextBuilder,
	client llm.Client,
	evaluator *Evaluator,
	policy *Policy,
	executor *Executor,
	opts GenerationOptions,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		builder:   builder,
		client:    client,
		evaluator: evaluator,
		policy:    policy,
		executor:  executor,
		opts:      opts,
		log:       log,
	}
}

// Generate runs the full decision pipeline for a conversation and returns the
// decided response. Errors are classified PipelineErrors; a persistence
// failure still returns the generated content best-effort alongside the error.
func (p *Pipeline) Generate(ctx context.Context, orgID, conversationID string) (*model.GenerateResult, error) {
	unlock := p.locks.lock(conversationID)
	defer unlock()

	result, err := p.generate(ctx, orgID, conversationID)
	if err != nil {
		var perr *PipelineError
		if errors.As(err, &perr) {
			metrics.GenerationErrorsTotal.WithLabelValues(string(perr.Kind)).Inc()
		} else {
			metrics.GenerationErrorsTotal.WithLabelValues("internal").Inc()
		}
	}
	return result, err
}

func (p *Pipeline) generate(ctx context.Context, orgID, conversationID string) (*model.GenerateResult, error) {
	log := p.log.WithConversation(conversationID)

	pctx, err := p.builder.Build(ctx, orgID, conversationID)
	if err != nil {
		return nil, err
	}

	if pctx.Conversation.AIDisabled {
		return nil, pipelineErr(KindAIDisabled, errors.New("automatic replies are disabled for this conversation"))
	}

	userPrompt := BuildUserPrompt(pctx)

	callCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	completion, err := p.client.Complete(callCtx, &llm.CompletionRequest{
		Model:        p.opts.Model,
		SystemPrompt: SystemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    p.opts.MaxTokens,
		Temperature:  p.opts.Temperature,
	})
	if err != nil {
		return nil, pipelineErr(KindGeneration, fmt.Errorf("completion failed: %w", err))
	}

	gen, err := ParseGeneratedResponse(completion.Content)
	if err != nil {
		log.Error("model output failed strict parsing",
			zap.String("model", completion.Model),
			zap.Error(err))
		return nil, err
	}

	hasPropertyInfo := pctx.Property.Description != nil && *pctx.Property.Description != ""
	confidence := p.evaluator.Evaluate(gen, Signals{
		KnowledgeBase:      pctx.KnowledgeBase,
		HasPropertyInfo:    hasPropertyInfo,
		ConversationLength: len(pctx.History),
	})

	action := p.policy.Decide(confidence, pctx.OrgSettings.AutoSendThreshold)

	log.Info("action decided",
		zap.Float64("model_confidence", gen.Confidence),
		zap.Float64("calibrated_confidence", confidence),
		zap.String("intent", gen.DetectedIntent),
		zap.String("action", string(action)))

	usage := model.Usage{
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		TotalTokens:      completion.TotalTokens,
	}

	record, err := p.executor.Execute(ctx, pctx, gen, action, confidence, CompletionMeta{
		Model:            completion.Model,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		ResponseTimeMs:   completion.LatencyMs,
	})
	if err != nil {
		// The decision was made and generation succeeded; return the content
		// best-effort so the caller can still display it.
		return &model.GenerateResult{
			Response: model.GenerateSummary{
				Content:    gen.Response,
				Confidence: confidence,
				Reasoning:  gen.Reasoning,
				Intent:     gen.DetectedIntent,
				Action:     action,
			},
			Usage:          usage,
			ResponseTimeMs: completion.LatencyMs,
		}, err
	}

	metrics.RecordGeneration(completion.Model, string(action),
		float64(completion.LatencyMs)/1000.0, confidence,
		completion.PromptTokens, completion.CompletionTokens)

	return &model.GenerateResult{
		Success: true,
		Response: model.GenerateSummary{
			ID:         record.ID,
			Content:    record.GeneratedContent,
			Confidence: record.ConfidenceScore,
			Reasoning:  record.Reasoning,
			Intent:     record.DetectedIntent,
			Action:     record.ActionTaken,
		},
		Usage:          usage,
		ResponseTimeMs: completion.LatencyMs,
	}, nil
}

// keyedMutex serializes work per conversation id. Entries are reference
// counted and removed once the last holder releases.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*lockEntry)
	}
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
