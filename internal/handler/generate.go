package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alba-hq/conciergerie-platform/internal/ai"
	"github.com/alba-hq/conciergerie-platform/internal/middleware"
	"github.com/alba-hq/conciergerie-platform/pkg/logger"
)

// GenerateHandler handles the AI response generation endpoint.
type GenerateHandler struct {
	pipeline *ai.Pipeline
	logger   *logger.Logger
}

// NewGenerateHandler creates a new generation handler.
func NewGenerateHandler(pipeline *ai.Pipeline, log *logger.Logger) *GenerateHandler {
	return &GenerateHandler{
		pipeline: pipeline,
		logger:   log,
	}
}

// Generate handles POST /api/v1/conversations/{id}/ai-response
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pipeline.Generate(ctx, orgID, conversationID)
	if err != nil {
		h.writePipelineError(w, conversationID, result, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *GenerateHandler) writePipelineError(w http.ResponseWriter, conversationID string, result interface{}, err error) {
	var perr *ai.PipelineError
	if !errors.As(err, &perr) {
		h.logger.Error("generation failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	h.logger.Warn("generation rejected",
		zap.String("conversation_id", conversationID),
		zap.String("kind", string(perr.Kind)),
		zap.Error(perr.Err))

	switch perr.Kind {
	case ai.KindNoContext:
		writeErrorCode(w, http.StatusUnprocessableEntity, string(perr.Kind), perr.Err.Error())
	case ai.KindAIDisabled:
		writeErrorCode(w, http.StatusConflict, string(perr.Kind), perr.Err.Error())
	case ai.KindGeneration:
		writeErrorCode(w, http.StatusBadGateway, string(perr.Kind), "the language model call failed")
	case ai.KindParse:
		writeErrorCode(w, http.StatusBadGateway, string(perr.Kind), "the model returned an unusable response")
	case ai.KindPersistence:
		// Generation succeeded but the record could not be stored. The
		// generated content rides along for display-only use.
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"code":   string(perr.Kind),
			"error":  "failed to store the generated response",
			"result": result,
		})
	default:
		writeError(w, http.StatusInternalServerError, "generation failed")
	}
}
