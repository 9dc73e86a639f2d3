// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/murmur-app/murmur/internal/model"
)

// ErrorBody is the inner error object of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// RegisterRequest represents the request body for creating an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

// RegisterResponse carries the one-time dashboard token. The token is shown
// exactly once; the server keeps no recoverable copy.
type RegisterResponse struct {
	Username       string `json:"username"`
	DashboardToken string `json:"dashboard_token"`
}

// SubmitMessageRequest represents an anonymous submission.
// Website is a honeypot field hidden from humans; RenderedAt is when the
// form became interactive on the client, in Unix milliseconds.
type SubmitMessageRequest struct {
	Content    string `json:"content"`
	Website    string `json:"website,omitempty"`
	RenderedAt *int64 `json:"ts,omitempty"`
}

// SubmitMessageResponse acknowledges an accepted submission.
type SubmitMessageResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateMessageRequest represents a partial flag update.
type UpdateMessageRequest struct {
	IsRead     *bool `json:"is_read,omitempty"`
	IsArchived *bool `json:"is_archived,omitempty"`
	IsFavorite *bool `json:"is_favorite,omitempty"`
}

// MessageResponse represents a message in dashboard responses.
type MessageResponse struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	IsArchived bool      `json:"is_archived"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// MessageListResponse is one page of a dashboard inbox.
type MessageListResponse struct {
	Data       []MessageResponse `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// Pagination provides page-based pagination info.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// SubscribeRequest represents a push subscription registration, mirroring
// the browser PushSubscription shape.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// UnsubscribeRequest identifies the subscription to drop.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// VAPIDKeyResponse exposes the server's push public key.
type VAPIDKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// ToMessageResponse converts a message to its dashboard representation.
func ToMessageResponse(m *model.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		IsArchived: m.IsArchived,
		IsFavorite: m.IsFavorite,
		CreatedAt:  m.CreatedAt,
		ExpiresAt:  m.ExpiresAt,
	}
}

// ToMessageListResponse converts a message page to its dashboard
// representation.
func ToMessageListResponse(page *model.MessagePage) MessageListResponse {
	data := make([]MessageResponse, 0, len(page.Items))
	for _, m := range page.Items {
		data = append(data, ToMessageResponse(m))
	}
	return MessageListResponse{
		Data: data,
		Pagination: Pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
		},
	}
}
