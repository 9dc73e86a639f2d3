package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/repository"
)

// fakeKeyStore is an in-memory KeyStore with controllable failures.
type fakeKeyStore struct {
	mu        sync.Mutex
	pair      *model.VAPIDKeyPair
	loadErr   error
	saveErr   error
	loadCalls int
	saveCalls int
}

func (s *fakeKeyStore) LoadVAPIDKeyPair(_ context.Context) (*model.VAPIDKeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCalls++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.pair == nil {
		return nil, repository.ErrNoVAPIDKeyPair
	}
	pair := *s.pair
	return &pair, nil
}

func (s *fakeKeyStore) SaveVAPIDKeyPair(_ context.Context, pair *model.VAPIDKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	p := *pair
	s.pair = &p
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestKeyManager(store *fakeKeyStore) *KeyManager {
	m := NewKeyManager(store, "ops@murmur.test", discardLogger())
	m.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return m
}

func TestKeyManager_ConfiguredPairWins(t *testing.T) {
	t.Parallel()

	store := &fakeKeyStore{pair: &model.VAPIDKeyPair{PublicKey: "stored-pub", PrivateKey: "stored-priv"}}
	m := newTestKeyManager(store)

	m.Init(context.Background(), "cfg-pub", "cfg-priv")

	if !m.Active() {
		t.Fatal("manager should be active")
	}
	if m.PublicKey() != "cfg-pub" {
		t.Errorf("configured key should win, got %q", m.PublicKey())
	}
	if store.loadCalls != 0 {
		t.Error("storage should not be consulted when a pair is configured")
	}
}

func TestKeyManager_LoadsPersistedPair(t *testing.T) {
	t.Parallel()

	store := &fakeKeyStore{pair: &model.VAPIDKeyPair{PublicKey: "stored-pub", PrivateKey: "stored-priv"}}
	m := newTestKeyManager(store)

	m.Init(context.Background(), "", "")

	if !m.Active() {
		t.Fatal("manager should be active")
	}
	if m.PublicKey() != "stored-pub" {
		t.Errorf("persisted key should be used, got %q", m.PublicKey())
	}
	if store.saveCalls != 0 {
		t.Error("nothing should be persisted when a pair already exists")
	}
}

func TestKeyManager_GeneratesAndPersistsOnce(t *testing.T) {
	t.Parallel()

	store := &fakeKeyStore{}
	m := newTestKeyManager(store)

	var generated int
	m.generate = func() (string, string, error) {
		generated++
		return "gen-priv", "gen-pub", nil
	}

	m.Init(context.Background(), "", "")
	m.Init(context.Background(), "", "")

	if !m.Active() {
		t.Fatal("manager should be active")
	}
	if generated != 1 {
		t.Errorf("pair should be generated exactly once, got %d", generated)
	}
	if store.saveCalls != 1 {
		t.Errorf("pair should be persisted exactly once, got %d saves", store.saveCalls)
	}
	if m.PublicKey() != "gen-pub" {
		t.Errorf("generated key should be exposed, got %q", m.PublicKey())
	}
}

func TestKeyManager_ConcurrentInitGeneratesOnce(t *testing.T) {
	t.Parallel()

	store := &fakeKeyStore{}
	m := newTestKeyManager(store)

	var mu sync.Mutex
	generated := 0
	m.generate = func() (string, string, error) {
		mu.Lock()
		generated++
		mu.Unlock()
		return "gen-priv", "gen-pub", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Init(context.Background(), "", "")
		}()
	}
	wg.Wait()

	if generated != 1 {
		t.Errorf("concurrent initialization must generate exactly one pair, got %d", generated)
	}
	if store.saveCalls != 1 {
		t.Errorf("concurrent initialization must persist exactly once, got %d", store.saveCalls)
	}
}

func TestKeyManager_PersistFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	store := &fakeKeyStore{saveErr: errors.New("disk on fire")}
	m := newTestKeyManager(store)
	m.generate = func() (string, string, error) { return "gen-priv", "gen-pub", nil }

	m.Init(context.Background(), "", "")

	if !m.Active() {
		t.Error("manager should continue in-memory when persisting fails")
	}
	if m.PublicKey() != "gen-pub" {
		t.Errorf("generated key should still be exposed, got %q", m.PublicKey())
	}
}

func TestKeyManager_LoadErrorDisablesPush(t *testing.T) {
	t.Parallel()

	store := &fakeKeyStore{loadErr: errors.New("connection refused")}
	m := newTestKeyManager(store)
	m.generate = func() (string, string, error) {
		t.Error("must not generate when storage state is unknown")
		return "", "", nil
	}

	m.Init(context.Background(), "", "")

	if m.Active() {
		t.Error("manager should stay inactive on a storage error")
	}
	if m.PublicKey() != "" {
		t.Errorf("public key should be empty when never configured, got %q", m.PublicKey())
	}
}
