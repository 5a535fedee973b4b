package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/emojichain/internal/adpolicy"
	"github.com/playperu/emojichain/internal/emojichain"
	"github.com/playperu/emojichain/internal/feedback"
	"github.com/playperu/emojichain/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
	errHubClosed       = errors.New("hub closed")
)

const (
	defaultSweepPeriod = time.Minute
	minimumSweepPeriod = time.Second
)

// SessionFactory builds a session with the shared collaborators (catalog,
// high score store, strategy, logger) plus the per-player options the hub
// passes in.
type SessionFactory func(opts ...session.Option) *session.Session

type HubConfig struct {
	// TTL is how long a session may stay idle before the sweeper drops it.
	TTL         time.Duration
	MaxSessions int
	// Continues and interstitial frequency for each player's ad policy.
	AdMaxContinues      int
	AdInterstitialEvery int
}

// Entry is one live player session.
type Entry struct {
	id       string
	sess     *session.Session
	ads      *adpolicy.Policy
	lastSeen atomic.Int64

	once sync.Once
	done chan struct{}
	// reason is written by the hub before done is closed.
	reason string
}

func newEntry(id string, ads *adpolicy.Policy) *Entry {
	return &Entry{id: id, ads: ads, done: make(chan struct{})}
}

func (e *Entry) ID() string                { return e.id }
func (e *Entry) Session() *session.Session { return e.sess }
func (e *Entry) Ads() *adpolicy.Policy     { return e.ads }

// Done is closed once the hub has dropped the session. Streams that
// subscribed after the broker closed the session's channels rely on it.
func (e *Entry) Done() <-chan struct{} { return e.done }

func (e *Entry) markDone() { e.once.Do(func() { close(e.done) }) }

func (e *Entry) closedEvent() Event {
	return Event{Type: EventClosed, Data: map[string]string{"reason": e.reason}}
}

func (e *Entry) touch(now time.Time) { e.lastSeen.Store(now.UnixNano()) }

func (e *Entry) idleSince() time.Time { return time.Unix(0, e.lastSeen.Load()) }

// Hub owns the live sessions, keyed by a random ID. Sessions publish their
// snapshots and feedback signals to the broker under that ID.
type Hub struct {
	cfg        HubConfig
	logger     *slog.Logger
	broker     *Broker
	newSession SessionFactory
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]*Entry
	closed  bool
}

func NewHub(cfg HubConfig, broker *Broker, factory SessionFactory, logger *slog.Logger) *Hub {
	return &Hub{
		cfg:        cfg,
		logger:     logger,
		broker:     broker,
		newSession: factory,
		now:        time.Now,
		entries:    make(map[string]*Entry),
	}
}

// Create registers a new pre-game session.
func (h *Hub) Create() (*Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errHubClosed
	}
	if h.cfg.MaxSessions > 0 && len(h.entries) >= h.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	e := newEntry(id, adpolicy.New(h.cfg.AdMaxContinues, h.cfg.AdInterstitialEvery))
	e.touch(h.now())
	e.sess = h.newSession(
		session.WithAdPolicy(e.ads),
		session.WithObserver(func(st emojichain.GameState) {
			h.broker.Publish(id, Event{Type: EventState, Data: newStateResponse(st)})
		}),
		session.WithFeedback(feedback.Func(func(k feedback.Kind) {
			h.broker.Publish(id, Event{Type: EventFeedback, Data: FeedbackEvent{Kind: string(k)}})
		})),
	)
	h.entries[id] = e
	h.logger.Debug("session created", "session_id", id, "sessions", len(h.entries))
	return e, nil
}

// Get returns the session and marks it as active.
func (h *Hub) Get(id string) (*Entry, error) {
	h.mu.RLock()
	e, ok := h.entries[id]
	h.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.touch(h.now())
	return e, nil
}

// Remove stops the session and disconnects its subscribers.
func (h *Hub) Remove(id string) error {
	h.mu.Lock()
	e, ok := h.entries[id]
	delete(h.entries, id)
	h.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	h.drop(e, "removed")
	return nil
}

// drop closes the broker's channels before marking the entry done, so a
// stream that sees Done finds everything that was published already
// buffered on its channel.
func (h *Hub) drop(e *Entry, reason string) {
	e.sess.Close()
	e.reason = reason
	h.broker.Publish(e.id, e.closedEvent())
	h.broker.Close(e.id)
	e.markDone()
	h.logger.Debug("session closed", "session_id", e.id, "reason", reason)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Sweep drops every session idle for longer than the TTL and returns how
// many were dropped.
func (h *Hub) Sweep() int {
	if h.cfg.TTL <= 0 {
		return 0
	}
	cutoff := h.now().Add(-h.cfg.TTL)

	var expired []*Entry
	h.mu.Lock()
	for id, e := range h.entries {
		if e.idleSince().Before(cutoff) {
			expired = append(expired, e)
			delete(h.entries, id)
		}
	}
	h.mu.Unlock()

	for _, e := range expired {
		h.drop(e, "expired")
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is done, then closes every
// remaining session.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepPeriod(h.cfg.TTL))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Close()
			return nil
		case <-ticker.C:
			if n := h.Sweep(); n > 0 {
				h.logger.Info("expired idle sessions", "count", n, "remaining", h.Len())
			}
		}
	}
}

// Close drops every session. Create fails afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	entries := h.entries
	h.entries = make(map[string]*Entry)
	h.mu.Unlock()

	for _, e := range entries {
		h.drop(e, "shutdown")
	}
}

func sweepPeriod(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultSweepPeriod
	}
	return max(min(ttl/4, defaultSweepPeriod), minimumSweepPeriod)
}
