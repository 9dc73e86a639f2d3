// Package model defines domain entities for the application.
package model

import "time"

// Theme constants for the public profile.
const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

// ValidThemes contains all valid theme values.
var ValidThemes = []string{ThemeSystem, ThemeLight, ThemeDark}

// Username length bounds (restricted alphabet enforced in the service layer).
const (
	UsernameMinLen = 3
	UsernameMaxLen = 15
)

// User represents a registered handle and its management credential material.
// The raw dashboard token is never stored; only the one-way hash and the
// indexed lookup prefix survive registration.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	CoverURL    string    `json:"cover_url"`
	Theme       string    `json:"theme"`
	TokenHash   string    `json:"-"` // Never serialize
	TokenPrefix string    `json:"-"` // Lookup aid, still never emitted
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PublicProfile is the anonymous-visitor view of a user.
type PublicProfile struct {
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
	CoverURL  string `json:"coverUrl"`
	Theme     string `json:"theme"`
}

// ToPublicProfile strips everything a visitor has no business seeing.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
		Theme:     u.Theme,
	}
}

// RegistrationResponse includes the plaintext token (shown only once).
type RegistrationResponse struct {
	Username       string `json:"username"`
	DashboardToken string `json:"dashboard_token"` // Plaintext - display once only!
}
