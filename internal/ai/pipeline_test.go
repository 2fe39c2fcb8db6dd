package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alba-hq/conciergerie-platform/internal/events"
	"github.com/alba-hq/conciergerie-platform/internal/llm"
	"github.com/alba-hq/conciergerie-platform/internal/mailer"
	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/internal/store"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
)

// fakeLLM returns a scripted completion and counts calls.
type fakeLLM struct {
	content string
	err     error
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{
		Content:          f.content,
		Model:            "gpt-4-turbo-preview",
		PromptTokens:     250,
		CompletionTokens: 80,
		TotalTokens:      330,
		LatencyMs:        120,
	}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

// recordingPublisher captures every published event.
type recordingPublisher struct {
	published []*events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *events.Event) error {
	p.published = append(p.published, event)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	out := make([]events.Kind, 0, len(p.published))
	for _, e := range p.published {
		out = append(out, e.Kind)
	}
	return out
}

// recordingRelay captures outbound sends.
type recordingRelay struct {
	sent []mailer.SendReplyRequest
	err  error
}

func (r *recordingRelay) SendReply(ctx context.Context, req mailer.SendReplyRequest) (*mailer.SendResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, req)
	return &mailer.SendResult{MessageID: "mail-1", ThreadID: req.ThreadID}, nil
}

// faultyStore wraps the in-memory store and fails selected write operations.
type faultyStore struct {
	store.Store
	createResponseErr error
	linkErr           error
	markStatusErr     error
}

func (s *faultyStore) CreateAIResponse(ctx context.Context, resp *model.AIResponse) error {
	if s.createResponseErr != nil {
		return s.createResponseErr
	}
	return s.Store.CreateAIResponse(ctx, resp)
}

func (s *faultyStore) LinkAIResponseMessage(ctx context.Context, aiResponseID, messageID string) error {
	if s.linkErr != nil {
		return s.linkErr
	}
	return s.Store.LinkAIResponseMessage(ctx, aiResponseID, messageID)
}

func (s *faultyStore) UpdateMessageStatus(ctx context.Context, messageID string, status model.MessageStatus) error {
	if s.markStatusErr != nil {
		return s.markStatusErr
	}
	return s.Store.UpdateMessageStatus(ctx, messageID, status)
}

type pipelineFixture struct {
	store     *store.MemoryStore
	faults    *faultyStore
	llm       *fakeLLM
	publisher *recordingPublisher
	relay     *recordingRelay
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T, llmContent string, llmErr error) *pipelineFixture {
	t.Helper()

	st := store.NewMemoryStore()
	faults := &faultyStore{Store: st}
	client := &fakeLLM{content: llmContent, err: llmErr}
	publisher := &recordingPublisher{}
	relay := &recordingRelay{}
	log := logger.NewNop()

	pipeline := NewPipeline(
		NewContextBuilder(faults),
		client,
		NewEvaluator(DefaultEvaluatorConfig()),
		NewPolicy(DefaultPolicyConfig()),
		NewExecutor(faults, relay, publisher, log),
		GenerationOptions{Model: "gpt-4-turbo-preview", MaxTokens: 1000, Temperature: 0.7},
		log,
	)

	return &pipelineFixture{
		store:     st,
		faults:    faults,
		llm:       client,
		publisher: publisher,
		relay:     relay,
		pipeline:  pipeline,
	}
}

func (f *pipelineFixture) seedConversation(t *testing.T, guestMessages ...string) *model.Conversation {
	t.Helper()
	ctx := context.Background()

	email := "guest@example.com"
	thread := "thread-1"
	desc := "Appartement avec vue sur le canal"
	propertyID := "5f0c9a2e-0000-0000-0000-000000000001"

	f.store.SeedOrganization(&model.Organization{
		ID:   "org-1",
		Name: "Alba Conciergerie",
		AISettings: &model.AISettings{
			Tone:              model.ToneProfessional,
			AutoSendThreshold: 0.85,
			Signature:         "L'équipe Alba",
		},
	})
	f.store.SeedProperty(&model.Property{
		ID:             propertyID,
		OrganizationID: "org-1",
		Name:           "Canal View Loft",
		Description:    &desc,
	})
	f.store.SeedKnowledgeBase(&model.KnowledgeBaseEntry{
		ID:               "kb-1",
		OrganizationID:   "org-1",
		QuestionPattern:  "check_in et remise des clés",
		ApprovedResponse: "Le check-in est possible à partir de 15h.",
		SuccessRate:      1.0,
	})
	f.store.SeedMembership(&model.Membership{ID: "m-1", UserID: "user-owner", OrganizationID: "org-1", Role: model.RoleOwner})
	f.store.SeedMembership(&model.Membership{ID: "m-2", UserID: "user-admin", OrganizationID: "org-1", Role: model.RoleAdmin})
	f.store.SeedMembership(&model.Membership{ID: "m-3", UserID: "user-member", OrganizationID: "org-1", Role: model.RoleMember})

	conv := &model.Conversation{
		ID:             "c0ffee00-0000-0000-0000-000000000001",
		OrganizationID: "org-1",
		PropertyID:     &propertyID,
		GuestEmail:     &email,
		ThreadID:       &thread,
		Status:         model.ConversationActive,
		Language:       "fr",
	}
	require.NoError(t, f.store.CreateConversation(ctx, conv))

	base := time.Now().Add(-time.Hour)
	for i, content := range guestMessages {
		require.NoError(t, f.store.CreateMessage(ctx, &model.Message{
			ID:             conv.ID + "-g" + string(rune('a'+i)),
			ConversationID: conv.ID,
			Source:         model.SourceGuest,
			Content:        content,
			Status:         model.StatusDelivered,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	return conv
}

func pipelineKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var perr *PipelineError
	require.True(t, errors.As(err, &perr), "expected a pipeline error, got %v", err)
	return perr.Kind
}

const autoSendOutput = `{
	"response": "Le check-in est possible à partir de 15h, le code vous sera envoyé le jour J.",
	"confidence": 1.0,
	"reasoning": "Réponse directement issue de la base de connaissances",
	"detected_intent": "check_in"
}`

func TestPipelineAutoSend(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, autoSendOutput, nil)
	conv := f.seedConversation(t,
		"Bonjour, j'ai réservé pour samedi",
		"Nous serons deux personnes",
		"Avec une petite valise chacun",
		"À quelle heure est le check-in ?",
	)

	result, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, model.ActionAutoSent, result.Response.Action)
	assert.GreaterOrEqual(t, result.Response.Confidence, 0.85)
	assert.Equal(t, 330, result.Usage.TotalTokens)

	// An AI message was created and delivered through the relay.
	messages, err := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	aiMsg := messages[4]
	assert.Equal(t, model.SourceAI, aiMsg.Source)
	assert.Equal(t, model.StatusSent, aiMsg.Status)
	assert.Contains(t, aiMsg.Content, "check-in est possible")

	// The record links back to the created message.
	record, err := f.store.GetAIResponse(ctx, result.Response.ID)
	require.NoError(t, err)
	require.NotNil(t, record.MessageID)
	assert.Equal(t, aiMsg.ID, *record.MessageID)

	// The relay received the formatted reply with the org signature.
	require.Len(t, f.relay.sent, 1)
	assert.Equal(t, "guest@example.com", f.relay.sent[0].To)
	assert.Equal(t, "Canal View Loft", f.relay.sent[0].Subject)
	assert.Contains(t, f.relay.sent[0].Body, "L'équipe Alba")
	assert.Equal(t, "thread-1", f.relay.sent[0].ThreadID)

	assert.Contains(t, f.publisher.kinds(), events.KindMessageCreated)
	assert.Contains(t, f.publisher.kinds(), events.KindResponseDecided)
}

func TestPipelineSuggested(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, `{
		"response": "Bien sûr, nous pouvons regarder ensemble les options pour votre demande.",
		"confidence": 0.5,
		"reasoning": "Demande inhabituelle, réponse générique",
		"detected_intent": "special_request"
	}`, nil)
	conv := f.seedConversation(t, "Bonjour, peut-on organiser un dîner surprise sur place ?")

	result, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.NoError(t, err)

	assert.Equal(t, model.ActionSuggested, result.Response.Action)
	assert.Less(t, result.Response.Confidence, 0.85)
	assert.GreaterOrEqual(t, result.Response.Confidence, 0.5)

	// No message sent, no notification raised; the record waits for review.
	messages, err := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Empty(t, f.relay.sent)

	record, err := f.store.GetAIResponse(ctx, result.Response.ID)
	require.NoError(t, err)
	assert.Nil(t, record.MessageID)
	assert.Nil(t, record.UserFeedback)

	suggestion, err := f.store.LatestSuggestion(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, suggestion.ID)

	notifications, _, err := f.store.ListNotifications(ctx, "user-owner", 10)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestPipelineEscalated(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, `{
		"response": "Je vais demander.",
		"confidence": 0.1,
		"reasoning": "Aucune information disponible sur ce sujet",
		"detected_intent": "legal_dispute"
	}`, nil)
	conv := f.seedConversation(t, "Bonjour, mon voisin menace de porter plainte pour le bruit")

	result, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.NoError(t, err)

	assert.Equal(t, model.ActionEscalated, result.Response.Action)
	assert.Less(t, result.Response.Confidence, 0.5)

	// No AI message goes out on escalation.
	messages, err := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Empty(t, f.relay.sent)

	// Owner and admin are notified; plain members are not.
	for _, userID := range []string{"user-owner", "user-admin"} {
		notifications, unread, err := f.store.ListNotifications(ctx, userID, 10)
		require.NoError(t, err)
		require.Len(t, notifications, 1, "expected a notification for %s", userID)
		assert.Equal(t, 1, unread)
		assert.Equal(t, model.NotificationEscalation, notifications[0].Type)
	}
	memberNotifications, _, err := f.store.ListNotifications(ctx, "user-member", 10)
	require.NoError(t, err)
	assert.Empty(t, memberNotifications)

	assert.Contains(t, f.publisher.kinds(), events.KindEscalationCreated)
}

func TestPipelineNoGuestMessage(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, autoSendOutput, nil)
	conv := f.seedConversation(t)

	require.NoError(t, f.store.CreateMessage(ctx, &model.Message{
		ID:             "host-only",
		ConversationID: conv.ID,
		Source:         model.SourceHost,
		Content:        "Bienvenue !",
		CreatedAt:      time.Now(),
	}))

	_, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.Error(t, err)
	assert.Equal(t, KindNoContext, pipelineKind(t, err))

	// The model must never be called without a guest message.
	assert.Zero(t, f.llm.calls)
}

func TestPipelineUnknownConversation(t *testing.T) {
	f := newPipelineFixture(t, autoSendOutput, nil)

	_, err := f.pipeline.Generate(context.Background(), "org-1", "c0ffee00-0000-0000-0000-00000000dead")
	require.Error(t, err)
	assert.Equal(t, KindNoContext, pipelineKind(t, err))
	assert.Zero(t, f.llm.calls)
}

func TestPipelineAIDisabled(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, autoSendOutput, nil)
	conv := f.seedConversation(t, "À quelle heure est le check-in ?")

	conv.AIDisabled = true
	require.NoError(t, f.store.UpdateConversation(ctx, conv))

	_, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.Error(t, err)
	assert.Equal(t, KindAIDisabled, pipelineKind(t, err))
	assert.Zero(t, f.llm.calls)
}

func TestPipelinePersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, autoSendOutput, nil)
	conv := f.seedConversation(t, "À quelle heure est le check-in ?")
	f.faults.createResponseErr = errors.New("connection reset")

	result, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.Error(t, err)
	assert.Equal(t, KindPersistence, pipelineKind(t, err))

	// The generated content still comes back for display.
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Empty(t, result.Response.ID)
	assert.Contains(t, result.Response.Content, "check-in est possible")

	// No side effect runs without the audit record.
	messages, listErr := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, listErr)
	assert.Len(t, messages, 1)
	assert.Empty(t, f.relay.sent)
	assert.Empty(t, f.publisher.published)

	notifications, _, listErr := f.store.ListNotifications(ctx, "user-owner", 10)
	require.NoError(t, listErr)
	assert.Empty(t, notifications)
}

func TestPipelineAutoSendRelayFailure(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, autoSendOutput, nil)
	conv := f.seedConversation(t,
		"Bonjour, j'ai réservé pour samedi",
		"Nous serons deux personnes",
		"Avec une petite valise chacun",
		"À quelle heure est le check-in ?",
	)
	f.relay.err = errors.New("relay unavailable")

	result, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionAutoSent, result.Response.Action)

	// The message row stays observable in its failed state.
	messages, listErr := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, listErr)
	require.Len(t, messages, 5)
	assert.Equal(t, model.SourceAI, messages[4].Source)
	assert.Equal(t, model.StatusFailed, messages[4].Status)

	record, getErr := f.store.GetAIResponse(ctx, result.Response.ID)
	require.NoError(t, getErr)
	require.NotNil(t, record.MessageID)
	assert.Equal(t, messages[4].ID, *record.MessageID)
}

func TestPipelineAutoSendLinkFailure(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, autoSendOutput, nil)
	conv := f.seedConversation(t,
		"Bonjour, j'ai réservé pour samedi",
		"Nous serons deux personnes",
		"Avec une petite valise chacun",
		"À quelle heure est le check-in ?",
	)
	f.faults.linkErr = errors.New("deadlock detected")

	result, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.NoError(t, err)

	// The link is lost but the message is still created and delivered.
	messages, listErr := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, listErr)
	require.Len(t, messages, 5)
	assert.Equal(t, model.StatusSent, messages[4].Status)
	require.Len(t, f.relay.sent, 1)

	record, getErr := f.store.GetAIResponse(ctx, result.Response.ID)
	require.NoError(t, getErr)
	assert.Nil(t, record.MessageID)
}

func TestPipelineAutoSendMarkStatusFailure(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, autoSendOutput, nil)
	conv := f.seedConversation(t,
		"Bonjour, j'ai réservé pour samedi",
		"Nous serons deux personnes",
		"Avec une petite valise chacun",
		"À quelle heure est le check-in ?",
	)
	f.faults.markStatusErr = errors.New("connection reset")

	_, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.NoError(t, err)

	// Delivery happened but the row keeps its last good status.
	require.Len(t, f.relay.sent, 1)
	messages, listErr := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, listErr)
	require.Len(t, messages, 5)
	assert.Equal(t, model.StatusPending, messages[4].Status)
}

func TestPipelineGenerationError(t *testing.T) {
	f := newPipelineFixture(t, "", errors.New("upstream timeout"))
	conv := f.seedConversation(t, "À quelle heure est le check-in ?")

	_, err := f.pipeline.Generate(context.Background(), "org-1", conv.ID)
	require.Error(t, err)
	assert.Equal(t, KindGeneration, pipelineKind(t, err))
}

func TestPipelineParseError(t *testing.T) {
	ctx := context.Background()
	f := newPipelineFixture(t, "Sure, check-in is at 3pm!", nil)
	conv := f.seedConversation(t, "À quelle heure est le check-in ?")

	_, err := f.pipeline.Generate(ctx, "org-1", conv.ID)
	require.Error(t, err)
	assert.Equal(t, KindParse, pipelineKind(t, err))

	// No record is written for a failed turn.
	_, suggestionErr := f.store.LatestSuggestion(ctx, conv.ID)
	assert.ErrorIs(t, suggestionErr, store.ErrNotFound)
}
