package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alba-hq/conciergerie-platform/internal/middleware"
	"github.com/alba-hq/conciergerie-platform/internal/model"
	"github.com/alba-hq/conciergerie-platform/internal/store"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
)

// AIResponseHandler handles AI response review endpoints.
type AIResponseHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewAIResponseHandler creates a new AI response handler.
func NewAIResponseHandler(st store.Store, log *logger.Logger) *AIResponseHandler {
	return &AIResponseHandler{
		store:  st,
		logger: log,
	}
}

// LatestSuggestion handles GET /api/v1/conversations/{id}/suggestion
//
// Returns the newest suggested or escalated response still awaiting feedback.
func (h *AIResponseHandler) LatestSuggestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetConversation(ctx, orgID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to get conversation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get conversation")
		return
	}

	suggestion, err := h.store.LatestSuggestion(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no pending suggestion")
			return
		}
		h.logger.Error("failed to get suggestion", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get suggestion")
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}

// Feedback handles PATCH /api/v1/ai-responses/{id}/feedback
func (h *AIResponseHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	responseID := chi.URLParam(r, "id")

	if err := middleware.ValidateResponseID(responseID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Feedback {
	case model.FeedbackApproved, model.FeedbackEdited, model.FeedbackRejected:
	default:
		writeError(w, http.StatusBadRequest, "feedback must be approved, edited or rejected")
		return
	}

	resp, err := h.store.GetAIResponse(ctx, responseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "response not found")
			return
		}
		h.logger.Error("failed to get ai response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get response")
		return
	}

	if resp.ActionTaken == model.ActionAutoSent {
		writeError(w, http.StatusConflict, "auto-sent responses do not take feedback")
		return
	}
	if resp.UserFeedback != nil {
		writeError(w, http.StatusConflict, "feedback already recorded")
		return
	}

	if err := h.store.UpdateAIResponseFeedback(ctx, responseID, req.Feedback); err != nil {
		h.logger.Error("failed to record feedback", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record feedback")
		return
	}

	resp.UserFeedback = &req.Feedback
	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/v1/organizations/stats
func (h *AIResponseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)

	end := time.Now()
	start := end.AddDate(0, -1, 0)

	if s := r.URL.Query().Get("start"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
		start = parsed
	}
	if e := r.URL.Query().Get("end"); e != "" {
		parsed, err := time.Parse(time.RFC3339, e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	stats, err := h.store.AIStats(ctx, orgID, start, end)
	if err != nil {
		h.logger.Error("failed to compute stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
