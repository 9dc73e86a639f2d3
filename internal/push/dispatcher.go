package push

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/murmur-app/murmur/internal/model"
)

const (
	// dispatchTimeout bounds one whole notification fan-out.
	dispatchTimeout = 30 * time.Second
	// pushTTL is how long the push service may queue an undelivered message.
	pushTTL = 60
)

// SubscriptionStore provides the registrations a dispatch fans out to and
// the removal hook for endpoints the transport reports permanently gone.
// *repository.Repository satisfies it.
type SubscriptionStore interface {
	ListSubscriptionsByUserID(ctx context.Context, userID string) ([]*model.Subscription, error)
	DeleteSubscriptionByID(ctx context.Context, id string) error
	TouchSubscription(ctx context.Context, id string, seenAt time.Time) error
}

// transport performs one push delivery and reports the HTTP status.
type transport interface {
	Send(ctx context.Context, sub *model.Subscription, body []byte) (status int, err error)
}

// Payload is the notification body shown to the recipient.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Dispatcher sends notifications to a user's registered endpoints.
//
// Dispatch is best-effort and all-settle: every endpoint is attempted
// independently and concurrently, an individual failure never aborts the
// batch, and no outcome is ever surfaced to the caller. Endpoints the push
// service reports as permanently gone are deleted (self-heal).
type Dispatcher struct {
	keys      *KeyManager
	store     SubscriptionStore
	logger    *slog.Logger
	transport transport

	// wg tracks in-flight dispatches so shutdown can drain them.
	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher using the Web Push protocol.
func NewDispatcher(keys *KeyManager, store SubscriptionStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		keys:   keys,
		store:  store,
		logger: logger.With("component", "push.dispatcher"),
		transport: &webpushTransport{
			keys:   keys,
			client: newHTTPClient(),
		},
	}
}

// NotifyUser sends the payload to every endpoint registered to the user.
// Fire-and-forget: it returns immediately, runs detached from the caller's
// request context, and absorbs every failure.
func (d *Dispatcher) NotifyUser(userID string, payload Payload) {
	if !d.keys.Active() {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		subs, err := d.store.ListSubscriptionsByUserID(ctx, userID)
		if err != nil {
			d.logger.Warn("push fan-out skipped, listing endpoints failed", "error", err)
			return
		}

		d.dispatch(ctx, subs, payload)
	}()
}

// Drain blocks until all in-flight dispatches complete.
// Called during graceful shutdown.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch delivers the payload to each endpoint independently.
func (d *Dispatcher) dispatch(ctx context.Context, subs []*model.Subscription, payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warn("push payload marshal failed", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *model.Subscription) {
			defer wg.Done()
			d.deliver(ctx, sub, body)
		}(sub)
	}
	wg.Wait()
}

// deliver attempts one endpoint and handles its outcome.
func (d *Dispatcher) deliver(ctx context.Context, sub *model.Subscription, body []byte) {
	status, err := d.transport.Send(ctx, sub, body)
	if err != nil {
		d.logger.Warn("push delivery failed",
			"subscription_id", sub.ID,
			"error", err,
		)
		return
	}

	switch {
	case status >= 200 && status < 300:
		if err := d.store.TouchSubscription(ctx, sub.ID, time.Now()); err != nil {
			d.logger.Warn("push last-seen update failed", "subscription_id", sub.ID, "error", err)
		}
	case status == http.StatusNotFound || status == http.StatusGone:
		// The push service says this endpoint will never work again.
		if err := d.store.DeleteSubscriptionByID(ctx, sub.ID); err != nil {
			d.logger.Warn("pruning dead push endpoint failed", "subscription_id", sub.ID, "error", err)
			return
		}
		d.logger.Info("dead push endpoint pruned",
			"subscription_id", sub.ID,
			"http_status", status,
		)
	default:
		d.logger.Warn("push delivery rejected",
			"subscription_id", sub.ID,
			"http_status", status,
		)
	}
}

// webpushTransport delivers via the Web Push protocol with VAPID auth.
type webpushTransport struct {
	keys   *KeyManager
	client *http.Client
}

func (t *webpushTransport) Send(ctx context.Context, sub *model.Subscription, body []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.keys.Contact(),
		VAPIDPublicKey:  t.keys.PublicKey(),
		VAPIDPrivateKey: t.keys.privateKey(),
		TTL:             pushTTL,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return resp.StatusCode, nil
}

// newHTTPClient creates an HTTP client configured for push delivery.
// It has tight timeouts and does not follow redirects.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
