package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alba-hq/conciergerie-platform/internal/events"
	"github.com/alba-hq/conciergerie-platform/internal/mailer"
	"github.com/alba-hq/conciergerie-platform/internal/middleware"
	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/internal/store"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
)

type captureRelay struct {
	sent []mailer.SendReplyRequest
	err  error
}

func (r *captureRelay) SendReply(ctx context.Context, req mailer.SendReplyRequest) (*mailer.SendResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, req)
	return &mailer.SendResult{MessageID: "mail-7", ThreadID: req.ThreadID}, nil
}

func newMessageRouter(st *store.MemoryStore, relay mailer.Relay) http.Handler {
	h := NewMessageHandler(st, relay, events.NopPublisher{}, logger.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.OrganizationIDKey, testOrgID)
			ctx = context.WithValue(ctx, middleware.UserIDKey, "user-1")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/api/v1/conversations/{id}/messages", h.List)
	r.Post("/api/v1/conversations/{id}/messages", h.Send)
	return r
}

func seedMessagingConversation(t *testing.T, st *store.MemoryStore) {
	t.Helper()
	email := "guest@example.com"
	thread := "thread-1"
	st.SeedOrganization(&model.Organization{
		ID:         testOrgID,
		AISettings: &model.AISettings{Tone: model.ToneProfessional, AutoSendThreshold: 0.85, Signature: "L'équipe Alba"},
	})
	require.NoError(t, st.CreateConversation(context.Background(), &model.Conversation{
		ID:             testConversationID,
		OrganizationID: testOrgID,
		GuestEmail:     &email,
		ThreadID:       &thread,
		Status:         model.ConversationActive,
	}))
}

func postMessage(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/"+testConversationID+"/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendGuestMessage(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessagingConversation(t, st)
	relay := &captureRelay{}
	router := newMessageRouter(st, relay)

	rec := postMessage(router, `{"source":"guest","content":"Bonjour, le wifi ne fonctionne pas","mail_message_id":"gm-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, model.SourceGuest, msg.Source)
	assert.Equal(t, model.StatusDelivered, msg.Status)

	// Guest input never goes back out through the relay.
	assert.Empty(t, relay.sent)

	conv, err := st.GetConversation(context.Background(), testOrgID, testConversationID)
	require.NoError(t, err)
	assert.Equal(t, 1, conv.UnreadCount)
	require.NotNil(t, conv.LastMessageAt)
}

func TestSendHostMessageRelays(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessagingConversation(t, st)
	relay := &captureRelay{}
	router := newMessageRouter(st, relay)

	rec := postMessage(router, `{"source":"host","content":"Je regarde le problème de wifi tout de suite."}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, model.StatusSent, msg.Status)
	require.NotNil(t, msg.SentByUserID)
	assert.Equal(t, "user-1", *msg.SentByUserID)

	require.Len(t, relay.sent, 1)
	assert.Equal(t, "guest@example.com", relay.sent[0].To)
	assert.Contains(t, relay.sent[0].Body, "L'équipe Alba")

	stored, err := st.ListMessages(context.Background(), testConversationID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.StatusSent, stored[0].Status)
}

func TestSendHostMessageRelayFailure(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessagingConversation(t, st)
	router := newMessageRouter(st, &captureRelay{err: context.DeadlineExceeded})

	rec := postMessage(router, `{"source":"host","content":"Réponse qui ne partira pas."}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, model.StatusFailed, msg.Status)
}

func TestSendHostMessageWithoutRelayStaysPending(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessagingConversation(t, st)
	router := newMessageRouter(st, nil)

	rec := postMessage(router, `{"source":"host","content":"Pas de connecteur configuré."}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, model.StatusPending, msg.Status)
}

func TestSendMessageValidation(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessagingConversation(t, st)
	router := newMessageRouter(st, &captureRelay{})

	assert.Equal(t, http.StatusBadRequest, postMessage(router, `{"source":"ai","content":"interdit"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postMessage(router, `{"source":"guest","content":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, postMessage(router, `not json`).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/c0ffee00-0000-0000-0000-00000000dead/messages",
		strings.NewReader(`{"source":"guest","content":"bonjour"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessages(t *testing.T) {
	st := store.NewMemoryStore()
	seedMessagingConversation(t, st)
	router := newMessageRouter(st, &captureRelay{})

	require.Equal(t, http.StatusCreated, postMessage(router, `{"source":"guest","content":"Bonjour"}`).Code)
	require.Equal(t, http.StatusCreated, postMessage(router, `{"source":"host","content":"Bonjour, bienvenue !"}`).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/"+testConversationID+"/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ListMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}
