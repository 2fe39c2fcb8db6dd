package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/internal/store"
)

// knowledgeBaseLimit caps how many approved Q/R pairs are pulled into context.
const knowledgeBaseLimit = 10

// PropertyContext carries the descriptive facts of the linked property, or a
// placeholder when the conversation has none.
type PropertyContext struct {
	Name                string
	Description         *string
	CheckInInstructions *string
	HouseRules          *string
	Amenities           []string
	// Linked is false when the placeholder is in use.
	Linked bool
}

// PromptContext is the bounded snapshot of everything the model needs for one
// conversation turn.
type PromptContext struct {
	Conversation  *model.Conversation
	GuestMessage  string
	GuestLanguage string
	History       []model.Message
	Property      PropertyContext
	OrgSettings   model.AISettings
	KnowledgeBase []model.KnowledgeBaseEntry
}

// ContextBuilder assembles PromptContexts from storage.
type ContextBuilder struct {
	store store.Store
}

// NewContextBuilder creates a context builder.
func NewContextBuilder(st store.Store) *ContextBuilder {
	return &ContextBuilder{store: st}
}

// Build gathers the conversation's history, the latest guest message, property
// facts, organization settings and top knowledge base entries.
//
// Returns a KindNoContext error when the thread contains no guest message to
// respond to; the caller must not proceed to generation in that case.
func (b *ContextBuilder) Build(ctx context.Context, orgID, conversationID string) (*PromptContext, error) {
	conv, err := b.store.GetConversation(ctx, orgID, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pipelineErr(KindNoContext, fmt.Errorf("conversation %s not found", conversationID))
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	history, err := b.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	var latestGuest *model.Message
	for i := range history {
		if history[i].Source == model.SourceGuest {
			latestGuest = &history[i]
		}
	}
	if latestGuest == nil {
		return nil, pipelineErr(KindNoContext, errors.New("no guest message to respond to"))
	}

	property := PropertyContext{Name: "Non spécifié"}
	if conv.PropertyID != nil {
		prop, err := b.store.GetProperty(ctx, *conv.PropertyID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load property: %w", err)
		}
		if prop != nil {
			property = PropertyContext{
				Name:                prop.Name,
				Description:         prop.Description,
				CheckInInstructions: prop.CheckInInstructions,
				HouseRules:          prop.HouseRules,
				Amenities:           prop.Amenities,
				Linked:              true,
			}
		}
	}

	settings := model.DefaultAISettings()
	org, err := b.store.GetOrganization(ctx, conv.OrganizationID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}
	if org != nil && org.AISettings != nil {
		settings = *org.AISettings
	}

	kb, err := b.store.ListKnowledgeBase(ctx, conv.OrganizationID, conv.PropertyID, knowledgeBaseLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	language := conv.Language
	if language == "" {
		language = DetectLanguage(latestGuest.Content)
	}

	return &PromptContext{
		Conversation:  conv,
		GuestMessage:  latestGuest.Content,
		GuestLanguage: language,
		History:       history,
		Property:      property,
		OrgSettings:   settings,
		KnowledgeBase: kb,
	}, nil
}
