package model

import "time"

// MessageTTL is the fixed time-to-live of an anonymous message.
const MessageTTL = 7 * 24 * time.Hour

// MaxMessageContentLen bounds the message body.
const MaxMessageContentLen = 1000

// Message represents one anonymous message in a recipient's inbox.
// SourceIPHash is a salted one-way fingerprint of the submitter's network
// origin; the raw origin is never persisted.
type Message struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Content      string    `json:"content"`
	IsRead       bool      `json:"is_read"`
	IsArchived   bool      `json:"is_archived"`
	IsFavorite   bool      `json:"is_favorite"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	SourceIPHash string    `json:"-"` // Never serialize
}

// MessageFlagsUpdate carries a partial update of the inbox flags.
// Nil fields are left untouched.
type MessageFlagsUpdate struct {
	IsRead     *bool `json:"isRead,omitempty"`
	IsArchived *bool `json:"isArchived,omitempty"`
	IsFavorite *bool `json:"isFavorite,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u MessageFlagsUpdate) Empty() bool {
	return u.IsRead == nil && u.IsArchived == nil && u.IsFavorite == nil
}

// MessageFilter selects messages in dashboard listings.
type MessageFilter struct {
	IsRead     *bool
	IsArchived *bool
	IsFavorite *bool
	Page       int
	Limit      int
}

// MessagePage is one page of a dashboard listing.
type MessagePage struct {
	Items []*Message `json:"items"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int64      `json:"total"`
}

// DayCount is a per-day message count used by the stats endpoint.
type DayCount struct {
	Day   time.Time
	Count int64
}

// Stats is the zero-filled per-day series for a stats window.
type Stats struct {
	Labels []string `json:"labels"`
	Series []int64  `json:"series"`
}
