package orchestrator

import "sync"

// subscriptionKey identifies one log subscription: a subscriber (typically
// a WebSocket connection) following one bot.
type subscriptionKey struct {
	Subscriber string
	BotID      string
}

// subscriptionRegistry owns the cancel function of every live log
// subscription. Requesting a subscription for a key that already has one
// replaces it: the old stream is canceled before the new one is recorded.
type subscriptionRegistry struct {
	mu      sync.Mutex
	streams map[subscriptionKey]*subscription
}

type subscription struct {
	cancel func()
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{streams: make(map[subscriptionKey]*subscription)}
}

// replace records cancel as the key's current subscription, canceling any
// previous one first. The returned release function cancels the stream and
// removes the registry entry, but only if this subscription is still the
// current one for the key; it is safe to call more than once.
func (r *subscriptionRegistry) replace(key subscriptionKey, cancel func()) (release func()) {
	sub := &subscription{cancel: cancel}

	r.mu.Lock()
	old := r.streams[key]
	r.streams[key] = sub
	r.mu.Unlock()

	if old != nil {
		old.cancel()
	}

	return func() {
		r.mu.Lock()
		if r.streams[key] == sub {
			delete(r.streams, key)
		}
		r.mu.Unlock()
		sub.cancel()
	}
}

// closeAll cancels every live subscription, for daemon shutdown.
func (r *subscriptionRegistry) closeAll() {
	r.mu.Lock()
	streams := r.streams
	r.streams = make(map[subscriptionKey]*subscription)
	r.mu.Unlock()

	for _, sub := range streams {
		sub.cancel()
	}
}

// len reports the number of live subscriptions.
func (r *subscriptionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}
