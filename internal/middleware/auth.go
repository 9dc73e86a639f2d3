package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/murmur-app/murmur/internal/auth"
	"github.com/murmur-app/murmur/internal/cache"
	"github.com/murmur-app/murmur/internal/model"
)

const (
	// minAuthDuration is the minimum time to spend on auth so response
	// timing does not distinguish the failure modes.
	minAuthDuration = 200 * time.Millisecond
)

// UserSource resolves dashboard-token prefixes to candidate accounts.
// *repository.Repository satisfies it.
type UserSource interface {
	GetUsersByTokenPrefix(ctx context.Context, prefix string) ([]*model.User, error)
}

// UserCache caches verified tokens so the argon2 work runs once per TTL.
// *cache.Cache satisfies it.
type UserCache interface {
	GetCachedUser(ctx context.Context, cacheKey string) (*cache.CachedUser, error)
	SetCachedUser(ctx context.Context, cacheKey string, user *cache.CachedUser) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Users  UserSource
	Cache  UserCache
}

// Auth returns a middleware that authenticates dashboard requests.
// It extracts the dashboard token, verifies it against the stored hash,
// and injects the account into the request context. Every failure mode
// collapses into the same 401.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			// Ensure consistent timing regardless of outcome
			defer func() {
				elapsed := time.Since(startTime)
				if elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			token := extractToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			// Check cache first
			cacheKey := auth.QuickHash(token)
			if cached, _ := cfg.Cache.GetCachedUser(r.Context(), cacheKey); cached != nil {
				user := &model.User{ID: cached.UserID, Username: cached.Username}
				next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
				return
			}

			// Cache miss - look up candidates by prefix
			candidates, err := cfg.Users.GetUsersByTokenPrefix(r.Context(), auth.Prefix(token))
			if err != nil {
				cfg.Logger.Error("database error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			// Verify against each candidate (handles prefix collisions)
			var matched *model.User
			for _, u := range candidates {
				ok, err := auth.VerifyToken(token, u.TokenHash)
				if err != nil {
					continue
				}
				if ok {
					matched = u
					break
				}
			}

			if matched == nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			_ = cfg.Cache.SetCachedUser(r.Context(), cacheKey, &cache.CachedUser{
				UserID:   matched.ID,
				Username: matched.Username,
			})

			cfg.Logger.Info("authentication successful",
				slog.String("user_id", matched.ID),
				slog.String("username", matched.Username),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), matched)))
		})
	}
}

// extractToken extracts the dashboard token from the request.
// The Authorization header wins over the token query parameter.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing dashboard token"}}`))
}
