package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/murmur-app/murmur/internal/abuse"
	"github.com/murmur-app/murmur/internal/model"
	"github.com/murmur-app/murmur/internal/push"
	"github.com/murmur-app/murmur/internal/repository"
)

// Submission pipeline errors, each a distinct externally observable condition.
var (
	ErrSpamDetected   = errors.New("spam detected")
	ErrTooFast        = errors.New("submission too fast")
	ErrCooldownActive = errors.New("cooldown active")
	ErrEmptyContent   = errors.New("empty content")
	ErrContentTooLong = errors.New("content too long")
)

// MinInteractionLatency is the minimum time between the form becoming
// interactive and the submission. Sub-700ms submissions are not achievable
// by a human reading and typing a message.
const MinInteractionLatency = 700 * time.Millisecond

// Notifier is the fire-and-forget delivery surface.
// *push.Dispatcher satisfies it.
type Notifier interface {
	NotifyUser(userID string, payload push.Payload)
}

// MessageStore is the persistence surface the submission pipeline needs.
// *repository.Repository satisfies it.
type MessageStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
}

// MessageService runs the inbound anonymous-message pipeline.
type MessageService struct {
	store    MessageStore
	cooldown *abuse.CooldownGuard
	notifier Notifier
	salt     string
	logger   *slog.Logger

	// now is injectable for tests.
	now func() time.Time
}

// NewMessageService creates a MessageService.
// salt peppers the submitter origin fingerprint.
func NewMessageService(store MessageStore, cooldown *abuse.CooldownGuard, notifier Notifier, salt string, logger *slog.Logger) *MessageService {
	return &MessageService{
		store:    store,
		cooldown: cooldown,
		notifier: notifier,
		salt:     salt,
		logger:   logger.With("component", "service.message"),
		now:      time.Now,
	}
}

// SubmitInput carries one anonymous submission.
type SubmitInput struct {
	Username string
	Content  string
	// TrapField is a hidden form field humans leave blank.
	TrapField string
	// ClientTimestamp marks (in Unix milliseconds) when the form became
	// interactive on the client. Nil when missing or non-numeric.
	ClientTimestamp *int64
	// Origin is the submitter's network origin. Hashed immediately;
	// never persisted or keyed raw.
	Origin string
}

// Submit runs the pipeline: trap field, minimum interaction latency,
// recipient resolution, cooldown check, persist, cooldown arm, notify.
// The order is deliberate - the free checks run before any lookup or state
// mutation, the cooldown is checked before the write and armed only after
// it succeeds, and notification can no longer affect the outcome.
func (s *MessageService) Submit(ctx context.Context, input SubmitInput) (*model.Message, error) {
	if strings.TrimSpace(input.TrapField) != "" {
		return nil, ErrSpamDetected
	}

	now := s.now()
	if input.ClientTimestamp == nil {
		return nil, ErrTooFast
	}
	elapsed := now.Sub(time.UnixMilli(*input.ClientTimestamp))
	if elapsed < MinInteractionLatency {
		return nil, ErrTooFast
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(content)) > model.MaxMessageContentLen {
		return nil, ErrContentTooLong
	}

	// Resolve the recipient before touching cooldown state so invalid
	// handles cannot probe or burn the window.
	user, err := s.store.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(input.Username)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve recipient: %w", err)
	}

	originHash := abuse.OriginHash(input.Origin, s.salt)
	cooldownKey := abuse.Key(originHash, user.Username)
	if s.cooldown.Blocked(cooldownKey) {
		return nil, ErrCooldownActive
	}

	createdAt := now.UTC()
	msg := &model.Message{
		ID:           ulid.Make().String(),
		UserID:       user.ID,
		Content:      content,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(model.MessageTTL),
		SourceIPHash: originHash,
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		// A failed attempt never consumes the cooldown window.
		return nil, fmt.Errorf("persist message: %w", err)
	}

	s.cooldown.Arm(cooldownKey)

	s.logger.Info("message accepted", "user_id", user.ID, "message_id", msg.ID)

	// Outcome already owed to the submitter; delivery is a convenience.
	s.notifier.NotifyUser(user.ID, push.Payload{
		Title: "New message",
		Body:  "You received an anonymous message",
		Data:  map[string]string{"username": user.Username},
	})

	return msg, nil
}
