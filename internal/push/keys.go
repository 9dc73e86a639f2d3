// Package push provides Web Push delivery: VAPID key lifecycle management
// and best-effort notification dispatch to registered endpoints.
package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/repository"
)

// KeyStore persists the VAPID key pair across restarts.
// *repository.Repository satisfies it.
type KeyStore interface {
	LoadVAPIDKeyPair(ctx context.Context) (*model.VAPIDKeyPair, error)
	SaveVAPIDKeyPair(ctx context.Context, pair *model.VAPIDKeyPair) error
}

// KeyManager owns the VAPID key pair authenticating outbound push messages.
//
// The pair is resolved once per process, with this precedence: explicitly
// configured pair > previously persisted pair > freshly generated pair
// (persisted before use). Regenerating a pair invalidates every registered
// endpoint's trust relationship, so generation happens at most once and only
// when the store definitively reports that no pair exists.
type KeyManager struct {
	store   KeyStore
	contact string
	logger  *slog.Logger

	mu     sync.Mutex
	active bool
	pair   model.VAPIDKeyPair

	// generate is injectable for tests.
	generate func() (privateKey, publicKey string, err error)
	// now is injectable for tests.
	now func() time.Time
}

// NewKeyManager creates an unresolved key manager.
func NewKeyManager(store KeyStore, contact string, logger *slog.Logger) *KeyManager {
	return &KeyManager{
		store:    store,
		contact:  contact,
		logger:   logger.With("component", "push.keys"),
		generate: webpush.GenerateVAPIDKeys,
		now:      time.Now,
	}
}

// Init resolves the key pair. Safe to call concurrently and repeatedly:
// re-entrant calls are no-ops once the manager is active.
//
// Init never fails the caller. A storage error during load leaves the
// manager inactive (push disabled) rather than risking a second pair; a
// failure to persist a generated pair is logged as a durability warning and
// the pair is used in-memory.
func (m *KeyManager) Init(ctx context.Context, configuredPublic, configuredPrivate string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return
	}

	if configuredPublic != "" && configuredPrivate != "" {
		m.pair = model.VAPIDKeyPair{PublicKey: configuredPublic, PrivateKey: configuredPrivate, CreatedAt: m.now()}
		m.active = true
		m.logger.Info("push keys configured from environment")
		return
	}

	pair, err := m.store.LoadVAPIDKeyPair(ctx)
	if err == nil {
		m.pair = *pair
		m.active = true
		m.logger.Info("push keys loaded from storage")
		return
	}
	if !errors.Is(err, repository.ErrNoVAPIDKeyPair) {
		// Cannot tell whether a pair exists; generating now could orphan
		// every registered endpoint. Stay inactive.
		m.logger.Error("push key load failed, push disabled", "error", err)
		return
	}

	privateKey, publicKey, err := m.generate()
	if err != nil {
		m.logger.Error("push key generation failed, push disabled", "error", err)
		return
	}

	m.pair = model.VAPIDKeyPair{PublicKey: publicKey, PrivateKey: privateKey, CreatedAt: m.now()}
	if err := m.store.SaveVAPIDKeyPair(ctx, &m.pair); err != nil {
		m.logger.Warn("generated push keys could not be persisted, continuing in-memory", "error", err)
	}
	m.active = true
	m.logger.Info("push keys generated")
}

// Active reports whether a key pair has been resolved.
// All dispatch attempts are gated on this.
func (m *KeyManager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// PublicKey returns the public key, or the empty string when the manager
// was never configured. Never fails.
func (m *KeyManager) PublicKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair.PublicKey
}

// privateKey is only handed to the dispatcher's transport.
func (m *KeyManager) privateKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair.PrivateKey
}

// Contact returns the subscriber contact used in VAPID claims.
func (m *KeyManager) Contact() string {
	return m.contact
}
