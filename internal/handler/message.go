package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murmur-app/murmur/internal/handler/dto"
	"github.com/murmur-app/murmur/internal/middleware"
	"github.com/murmur-app/murmur/internal/service"
)

// MessageHandler handles anonymous message submissions.
type MessageHandler struct {
	svc    *service.MessageService
	logger *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(svc *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		svc:    svc,
		logger: logger,
	}
}

// Submit handles POST /api/v1/messages/{username}.
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USERNAME", "Username is required")
		return
	}

	var req dto.SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	msg, err := h.svc.Submit(r.Context(), service.SubmitInput{
		Username:        username,
		Content:         req.Content,
		TrapField:       req.Website,
		ClientTimestamp: req.RenderedAt,
		Origin:          middleware.GetClientIP(r),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SubmitMessageResponse{
		ID:        msg.ID,
		CreatedAt: msg.CreatedAt,
		ExpiresAt: msg.ExpiresAt,
	})
}

// handleServiceError maps pipeline errors to HTTP responses.
func (h *MessageHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSpamDetected):
		writeError(w, http.StatusBadRequest, "SPAM_DETECTED", "Submission rejected")
	case errors.Is(err, service.ErrTooFast):
		writeError(w, http.StatusBadRequest, "TOO_FAST", "Submission rejected")
	case errors.Is(err, service.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "EMPTY_CONTENT", "Message content is required")
	case errors.Is(err, service.ErrContentTooLong):
		writeError(w, http.StatusBadRequest, "CONTENT_TOO_LONG", "Message content exceeds maximum length")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrCooldownActive):
		writeError(w, http.StatusTooManyRequests, "COOLDOWN_ACTIVE", "Please wait before sending another message to this user")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
