package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/murmur-app/murmur/internal/auth"
	"github.com/murmur-app/murmur/internal/handler/dto"
	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/service"
)

// DashboardHandler handles the token-authenticated management surface.
// All routes require the auth middleware; the account comes from context.
type DashboardHandler struct {
	svc    *service.DashboardService
	logger *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *service.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		svc:    svc,
		logger: logger,
	}
}

// Me handles GET /api/v1/dashboard/me.
// A cheap token check for clients restoring a session.
func (h *DashboardHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// ListMessages handles GET /api/v1/dashboard/messages.
func (h *DashboardHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())
	query := r.URL.Query()

	filter := model.MessageFilter{
		IsRead:     parseBoolParam(query.Get("is_read")),
		IsArchived: parseBoolParam(query.Get("is_archived")),
		IsFavorite: parseBoolParam(query.Get("is_favorite")),
	}
	if p, err := strconv.Atoi(query.Get("page")); err == nil {
		filter.Page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = l
	}

	page, err := h.svc.ListMessages(r.Context(), user.ID, filter)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMessageListResponse(page))
}

// UpdateMessage handles PATCH /api/v1/dashboard/messages/{id}.
func (h *DashboardHandler) UpdateMessage(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Message ID is required")
		return
	}

	var req dto.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.svc.UpdateMessage(r.Context(), user.ID, id, model.MessageFlagsUpdate{
		IsRead:     req.IsRead,
		IsArchived: req.IsArchived,
		IsFavorite: req.IsFavorite,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToMessageResponse(msg))
}

// DeleteMessage handles DELETE /api/v1/dashboard/messages/{id}.
func (h *DashboardHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Message ID is required")
		return
	}

	if err := h.svc.DeleteMessage(r.Context(), user.ID, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/v1/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	rangeDays := service.StatsRangeWeek
	if r.URL.Query().Get("range") == "30d" {
		rangeDays = service.StatsRangeMonth
	}

	stats, err := h.svc.Stats(r.Context(), user.ID, rangeDays)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleServiceError maps service errors to HTTP responses.
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "MESSAGE_NOT_FOUND", "Message not found")
	case errors.Is(err, service.ErrEmptyUpdate):
		writeError(w, http.StatusBadRequest, "EMPTY_UPDATE", "No fields to update")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// parseBoolParam parses an optional boolean query parameter.
// Returns nil when absent or unparseable, leaving the filter unset.
func parseBoolParam(s string) *bool {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &v
}
