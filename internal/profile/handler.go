package profile

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"regexp"

	apperrors "github.com/RounakBanerji/Twinenergy-Demo/internal/pkg/errors"
	"go.uber.org/zap"
)

const maxValueBytes = 64 << 10

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// Handler serves /api/profile/{key}
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a profile handler. A nil store answers 503.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers the profile routes on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profile/{key}", h.handleLoad)
	mux.HandleFunc("PUT /api/profile/{key}", h.handleSave)
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	key, ok := h.prepare(w, r)
	if !ok {
		return
	}

	value, err := h.store.Load(r.Context(), key)
	if err != nil {
		h.logger.Error("failed to load profile value", zap.String("key", key), zap.Error(err))
		apperrors.WriteError(w, apperrors.UpstreamError("profile store", err))
		return
	}
	if value == nil {
		value = json.RawMessage("null")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	key, ok := h.prepare(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxValueBytes+1))
	if err != nil || len(body) > maxValueBytes {
		apperrors.WriteError(w, apperrors.ValidationError("value is too large"))
		return
	}
	if !json.Valid(body) {
		apperrors.WriteError(w, apperrors.ValidationError("value must be valid JSON"))
		return
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		apperrors.WriteError(w, apperrors.ValidationError("value must be valid JSON"))
		return
	}

	if err := h.store.Save(r.Context(), key, compact.Bytes()); err != nil {
		h.logger.Error("failed to save profile value", zap.String("key", key), zap.Error(err))
		apperrors.WriteError(w, apperrors.UpstreamError("profile store", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// prepare checks the store is configured and the key is well formed
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.store == nil {
		apperrors.WriteError(w, apperrors.ServiceUnavailableError("profile store"))
		return "", false
	}
	key := r.PathValue("key")
	if !validKey.MatchString(key) {
		apperrors.WriteError(w, apperrors.ValidationError("invalid profile key"))
		return "", false
	}
	return key, true
}
