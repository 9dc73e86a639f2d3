package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/murmur-app/murmur/internal/auth"
	"github.com/murmur-app/murmur/internal/handler/dto"
	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/push"
)

// SubscriptionRegistry is the persistence surface for push registrations.
// *repository.Repository satisfies it.
type SubscriptionRegistry interface {
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	DeleteSubscription(ctx context.Context, userID, endpoint string) error
}

// PushHandler handles push subscription lifecycle endpoints.
type PushHandler struct {
	registry SubscriptionRegistry
	keys     *push.KeyManager
	logger   *slog.Logger
}

// NewPushHandler creates a new PushHandler.
func NewPushHandler(registry SubscriptionRegistry, keys *push.KeyManager, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		registry: registry,
		keys:     keys,
		logger:   logger,
	}
}

// PublicKey handles GET /api/v1/push/key.
// Always succeeds; an empty key tells clients to skip subscription.
func (h *PushHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.VAPIDKeyResponse{PublicKey: h.keys.PublicKey()})
}

// Subscribe handles POST /api/v1/dashboard/push/subscriptions.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	if !h.keys.Active() {
		writeError(w, http.StatusNotFound, "PUSH_DISABLED", "Push delivery is not available")
		return
	}

	var req dto.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	endpoint := strings.TrimSpace(req.Endpoint)
	if !strings.HasPrefix(endpoint, "https://") || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "INVALID_SUBSCRIPTION", "Endpoint and keys are required")
		return
	}

	now := time.Now().UTC()
	sub := &model.Subscription{
		ID:         ulid.Make().String(),
		UserID:     user.ID,
		Endpoint:   endpoint,
		P256dh:     req.Keys.P256dh,
		Auth:       req.Keys.Auth,
		UserAgent:  r.UserAgent(),
		LastSeenAt: &now,
		CreatedAt:  now,
	}

	if err := h.registry.UpsertSubscription(r.Context(), sub); err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("push_subscribed", "user_id", user.ID)

	w.WriteHeader(http.StatusCreated)
}

// Unsubscribe handles DELETE /api/v1/dashboard/push/subscriptions.
// Dropping an unknown endpoint succeeds; the end state is the same.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user := auth.MustUserFromContext(r.Context())

	var req dto.UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.Endpoint == "" {
		writeError(w, http.StatusBadRequest, "INVALID_SUBSCRIPTION", "Endpoint is required")
		return
	}

	if err := h.registry.DeleteSubscription(r.Context(), user.ID, req.Endpoint); err != nil {
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("push_unsubscribed", "user_id", user.ID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
