package assist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/RounakBanerji/Twinenergy-Demo/internal/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxPromptBytes = 4 << 10
	requestTimeout = 30 * time.Second
)

// TipsRequest is the body of POST /api/assist/tips
type TipsRequest struct {
	Prompt string `json:"prompt"`
}

// TipsResponse carries the generated text
type TipsResponse struct {
	Text string `json:"text"`
}

// Handler serves /api/assist/tips
type Handler struct {
	completer Completer
	logger    *zap.Logger
}

// NewHandler creates a tips handler. A nil completer answers 503.
func NewHandler(completer Completer, logger *zap.Logger) *Handler {
	return &Handler{completer: completer, logger: logger}
}

// RegisterRoutes registers the tips route on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assist/tips", h.handleTips)
}

func (h *Handler) handleTips(w http.ResponseWriter, r *http.Request) {
	if h.completer == nil {
		apperrors.WriteError(w, apperrors.ServiceUnavailableError("tips assistant"))
		return
	}

	var req TipsRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPromptBytes+1))
	if err != nil || len(body) > maxPromptBytes {
		apperrors.WriteError(w, apperrors.ValidationError("prompt is too long"))
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		apperrors.WriteError(w, apperrors.ValidationError("invalid JSON body"))
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		apperrors.WriteError(w, apperrors.ValidationError("prompt is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	text, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		h.logger.Warn("tips completion failed", zap.Error(err))
		apperrors.WriteError(w, apperrors.UpstreamError("tips assistant", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(TipsResponse{Text: text})
}
