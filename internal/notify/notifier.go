// Package notify delivers lifecycle event webhooks on a best-effort basis.
package notify

import (
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/botdock/botdock/internal"
)

var log = logrus.WithField("component", "notify")

// Event is the webhook payload for one lifecycle event.
type Event struct {
	Kind      internal.EventKind  `json:"event"`
	Bot       internal.BotSummary `json:"bot"`
	Message   string              `json:"message"`
	Details   map[string]string   `json:"details,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Webhook posts events to a single webhook URL from a background worker.
// Notify never blocks the caller and delivery is not guaranteed: events are
// dropped when the queue is full or the endpoint fails, with a warning
// logged either way.
type Webhook struct {
	client *resty.Client
	url    string

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

// NewWebhook creates a Webhook notifier. An empty url yields a notifier
// that silently discards every event, so callers never need to special-case
// a missing webhook configuration.
func NewWebhook(url string) *Webhook {
	w := &Webhook{
		client: resty.New().SetTimeout(10 * time.Second),
		url:    url,
		queue:  make(chan Event, 64),
		done:   make(chan struct{}),
	}
	go w.worker()
	return w
}

// Notify enqueues a lifecycle event for delivery. It is fire-and-forget:
// the call returns immediately and a failed or dropped delivery never
// affects the operation that produced the event. Events offered after
// Close are dropped, so an operation racing daemon shutdown still
// completes cleanly.
func (w *Webhook) Notify(kind internal.EventKind, bot internal.BotSummary, message string, details map[string]string) {
	event := Event{
		Kind:      kind,
		Bot:       bot,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		log.WithField("event", string(kind)).Warn("notifier closed, dropping event")
		return
	}
	select {
	case w.queue <- event:
	default:
		log.WithField("event", string(kind)).Warn("notification queue full, dropping event")
	}
}

// Close stops the worker after draining queued events. It is idempotent.
func (w *Webhook) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	<-w.done
}

func (w *Webhook) worker() {
	defer close(w.done)

	for event := range w.queue {
		if w.url == "" {
			continue
		}

		response, err := w.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(event).
			Post(w.url)
		if err != nil {
			log.WithField("event", string(event.Kind)).Warnf("webhook delivery failed: %v", err)
			continue
		}
		if response.IsError() {
			log.WithFields(logrus.Fields{
				"event":  string(event.Kind),
				"status": response.StatusCode(),
			}).Warn("webhook endpoint returned an error")
		}
	}
}
