package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/murmur-app/murmur/internal/abuse"
	"github.com/murmur-app/murmur/internal/cache"
)

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded-for single",
			remoteAddr: "10.0.0.1:34567",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:34567",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.7",
		},
		{
			name:       "real-ip",
			remoteAddr: "10.0.0.1:34567",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr strips port",
			remoteAddr: "203.0.113.7:40001",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr ipv6 strips port",
			remoteAddr: "[2001:db8::1]:40001",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr without port kept verbatim",
			remoteAddr: "203.0.113.7",
			want:       "203.0.113.7",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodPost, "/api/v1/messages/alice", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Two direct connections from the same host carry different ephemeral
// ports; the cooldown keyed on the extracted origin must still engage on
// the second one.
func TestGetClientIP_CooldownAcrossConnections(t *testing.T) {
	t.Parallel()

	first := httptest.NewRequest(http.MethodPost, "/api/v1/messages/alice", nil)
	first.RemoteAddr = "203.0.113.7:40001"
	second := httptest.NewRequest(http.MethodPost, "/api/v1/messages/alice", nil)
	second.RemoteAddr = "203.0.113.7:40002"

	guard := abuse.NewCooldownGuard(time.Minute)
	guard.Arm(abuse.Key(abuse.OriginHash(GetClientIP(first), "salt"), "alice"))

	key := abuse.Key(abuse.OriginHash(GetClientIP(second), "salt"), "alice")
	if !guard.Blocked(key) {
		t.Errorf("second connection from the same host should be blocked: origin1=%q origin2=%q",
			GetClientIP(first), GetClientIP(second))
	}
}

type captureLimiter struct {
	lastIP string
}

func (l *captureLimiter) CheckSubmitRateLimit(_ context.Context, ip string, _, _ int) (*cache.RateLimitResult, error) {
	l.lastIP = ip
	return &cache.RateLimitResult{Allowed: true}, nil
}

func TestRateLimitSubmit_UsesPortFreeIP(t *testing.T) {
	t.Parallel()

	limiter := &captureLimiter{}
	mw := RateLimitSubmit(RateLimitConfig{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter:       limiter,
		SubmitEnabled: true,
		SubmitRPS:     5,
		SubmitBurst:   10,
	})

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/v1/messages/alice", nil)
	r.RemoteAddr = "203.0.113.7:40001"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if limiter.lastIP != "203.0.113.7" {
		t.Errorf("limiter saw %q, want %q", limiter.lastIP, "203.0.113.7")
	}
}
