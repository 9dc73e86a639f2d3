package model

import "time"

// Subscription is a registered Web Push delivery endpoint.
// Unique per (UserID, Endpoint); re-registration of the same endpoint updates
// the key material instead of duplicating, and an endpoint presented by a
// different account is reassigned to it.
type Subscription struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Endpoint   string     `json:"endpoint"`
	P256dh     string     `json:"-"` // Client public key - never serialize
	Auth       string     `json:"-"` // Shared auth secret - never serialize
	UserAgent  string     `json:"user_agent,omitempty"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// VAPIDKeyPair is the key pair authenticating outbound push messages.
// At most one active pair exists system-wide.
type VAPIDKeyPair struct {
	PublicKey  string    `json:"public_key"`
	PrivateKey string    `json:"-"` // Never serialize
	CreatedAt  time.Time `json:"created_at"`
}
