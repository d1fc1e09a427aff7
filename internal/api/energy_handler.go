// Package api exposes the energy reading service over HTTP. Handlers only
// decode requests, call the service and shape responses.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/RounakBanerji/Twinenergy-Demo/internal/pkg/errors"
	"github.com/RounakBanerji/Twinenergy-Demo/internal/service"
	"go.uber.org/zap"
)

// maxBodyBytes bounds reading request bodies
const maxBodyBytes = 1 << 20

// EnergyHandler serves /api/energy
type EnergyHandler struct {
	svc    *service.EnergyService
	logger *zap.Logger
}

// NewEnergyHandler creates a new energy handler
func NewEnergyHandler(svc *service.EnergyService, logger *zap.Logger) *EnergyHandler {
	return &EnergyHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the reading routes on mux
func (h *EnergyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/energy", h.handleCreate)
	mux.HandleFunc("GET /api/energy", h.handleList)
	mux.HandleFunc("PUT /api/energy/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/energy/{id}", h.handleDelete)
	mux.HandleFunc("GET /api/energy/audit/logs", h.handleAuditLogs)
}

func (h *EnergyHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, readErr := readBody(w, r)

	row, err := h.svc.CreateBody(r.Context(), body, readErr)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReadingResponse(row))
}

func (h *EnergyHandler) handleList(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.List(r.Context(), r.URL.Query())
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(result))
}

func (h *EnergyHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, readErr := readBody(w, r)

	row, err := h.svc.UpdateBody(r.Context(), r.PathValue("id"), body, readErr)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReadingResponse(row))
}

func (h *EnergyHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (h *EnergyHandler) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.AuditLogs(r.Context())
	if err != nil {
		h.logger.Error("failed to load audit logs", zap.Error(err))
		apperrors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuditEntryResponses(entries))
}

// writeMutationError maps storage failures on create, update and delete to
// 400; everything else keeps its own status.
func writeMutationError(w http.ResponseWriter, err error) {
	if apperrors.IsStorage(err) {
		apperrors.WriteErrorWithStatus(w, http.StatusBadRequest, err)
		return
	}
	apperrors.WriteError(w, err)
}

// readBody reads at most maxBodyBytes. Failures come back as validation
// errors so the service audits them like any other bad body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.Wrap(apperrors.CodeValidation,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
		}
		return nil, apperrors.Wrap(apperrors.CodeValidation, "failed to read request body", err)
	}
	return body, nil
}
