// Package service implements the application's business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/murmur-app/murmur/internal/auth"
	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/repository"
)

// Common service errors surfaced to handlers.
var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrBioTooLong      = errors.New("bio too long")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
)

// MaxBioLen bounds the profile bio.
const MaxBioLen = 500

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,15}$`)

// UserStore is the persistence surface the user service needs.
// *repository.Repository satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// UserService handles registration and public profiles.
type UserService struct {
	store  UserStore
	secret []byte
	logger *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewUserService creates a UserService.
// secret keys the integrity tag baked into every dashboard token.
func NewUserService(store UserStore, secret string, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		secret: []byte(secret),
		logger: logger.With("component", "service.user"),
		now:    time.Now,
	}
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Username string
	Bio      string
	Theme    string
}

// Register creates an account and mints its dashboard token.
// The returned token is the only copy that will ever exist: the server keeps
// a one-way hash and a lookup prefix, nothing recoverable.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, string, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if !usernameRegex.MatchString(username) {
		return nil, "", ErrInvalidUsername
	}

	bio := strings.TrimSpace(input.Bio)
	if len(bio) > MaxBioLen {
		return nil, "", ErrBioTooLong
	}

	theme := input.Theme
	if theme == "" {
		theme = model.ThemeSystem
	}
	if !slices.Contains(model.ValidThemes, theme) {
		return nil, "", ErrInvalidTheme
	}

	// The ID exists before the insert so the token tag can bind to it.
	id := ulid.Make().String()

	token, err := auth.GenerateToken(id, s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("mint dashboard token: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:          id,
		Username:    username,
		Bio:         bio,
		Theme:       theme,
		TokenHash:   token.Hash,
		TokenPrefix: token.Prefix,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	return user, token.Plaintext, nil
}

// PublicProfile returns the anonymous-visitor view of a handle.
func (s *UserService) PublicProfile(ctx context.Context, username string) (model.PublicProfile, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.PublicProfile{}, ErrUserNotFound
		}
		return model.PublicProfile{}, fmt.Errorf("get user: %w", err)
	}

	return user.ToPublicProfile(), nil
}
