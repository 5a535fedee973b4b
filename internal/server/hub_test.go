package server

import (
	"errors"
	"testing"
	"time"
)

func TestHubSweep(t *testing.T) {
	env := newTestEnv(t, HubConfig{TTL: 10 * time.Minute, MaxSessions: 10})
	now := epoch
	env.hub.now = func() time.Time { return now }

	stale, err := env.hub.Create()
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	now = now.Add(6 * time.Minute)
	fresh, err := env.hub.Create()
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	ch := env.broker.Subscribe(stale.ID())

	now = now.Add(5 * time.Minute)
	if n := env.hub.Sweep(); n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	if _, err := env.hub.Get(stale.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("stale session: got %v, want ErrSessionNotFound", err)
	}
	if _, err := env.hub.Get(fresh.ID()); err != nil {
		t.Errorf("fresh session: %v", err)
	}

	msg := <-ch
	if msg.Type != EventClosed {
		t.Errorf("got event %q, want %q", msg.Type, EventClosed)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after sweep")
	}
}

func TestHubGetRefreshesIdleTime(t *testing.T) {
	env := newTestEnv(t, HubConfig{TTL: 10 * time.Minute})
	now := epoch
	env.hub.now = func() time.Time { return now }

	e, _ := env.hub.Create()
	now = now.Add(9 * time.Minute)
	if _, err := env.hub.Get(e.ID()); err != nil {
		t.Fatalf("getting session: %v", err)
	}
	now = now.Add(9 * time.Minute)
	if n := env.hub.Sweep(); n != 0 {
		t.Errorf("swept %d sessions, want 0", n)
	}
}

func TestHubRemoveAndClose(t *testing.T) {
	env := newTestEnv(t, HubConfig{MaxSessions: 1})

	e, err := env.hub.Create()
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if _, err := env.hub.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("got %v, want ErrTooManySessions", err)
	}
	if err := env.hub.Remove(e.ID()); err != nil {
		t.Fatalf("removing: %v", err)
	}
	if err := env.hub.Remove(e.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second remove: got %v, want ErrSessionNotFound", err)
	}

	if _, err := env.hub.Create(); err != nil {
		t.Fatalf("creating after remove: %v", err)
	}
	env.hub.Close()
	if env.hub.Len() != 0 {
		t.Errorf("len = %d after close, want 0", env.hub.Len())
	}
	if _, err := env.hub.Create(); err == nil {
		t.Error("create succeeded on a closed hub")
	}
}

func TestSweepPeriod(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{0, time.Minute},
		{30 * time.Minute, time.Minute},
		{2 * time.Minute, 30 * time.Second},
		{time.Second, time.Second},
	}
	for _, tt := range tests {
		if got := sweepPeriod(tt.ttl); got != tt.want {
			t.Errorf("sweepPeriod(%s) = %s, want %s", tt.ttl, got, tt.want)
		}
	}
}

func TestClosingAfterRemove(t *testing.T) {
	tests := []struct {
		name      string
		subscribe func(env *testEnv, e *Entry) chan Message
		wantTypes []string
	}{
		{
			name: "subscribed before remove",
			subscribe: func(env *testEnv, e *Entry) chan Message {
				ch := env.broker.Subscribe(e.ID())
				env.broker.Publish(e.ID(), Event{Type: EventFeedback, Data: FeedbackEvent{Kind: "correct"}})
				env.hub.Remove(e.ID())
				return ch
			},
			wantTypes: []string{EventFeedback, EventClosed},
		},
		{
			name: "subscribed after remove",
			subscribe: func(env *testEnv, e *Entry) chan Message {
				env.hub.Remove(e.ID())
				return env.broker.Subscribe(e.ID())
			},
			wantTypes: []string{EventClosed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, defaultHubConfig())
			e, err := env.hub.Create()
			if err != nil {
				t.Fatalf("creating session: %v", err)
			}
			ch := tt.subscribe(env, e)
			defer env.broker.Unsubscribe(e.ID(), ch)

			select {
			case <-e.Done():
			default:
				t.Fatal("entry not done after remove")
			}

			msgs := closing(e, ch)
			if len(msgs) != len(tt.wantTypes) {
				t.Fatalf("got %d messages, want %d", len(msgs), len(tt.wantTypes))
			}
			for i, want := range tt.wantTypes {
				if msgs[i].Type != want {
					t.Errorf("message %d = %q, want %q", i, msgs[i].Type, want)
				}
			}
			if last := msgs[len(msgs)-1]; string(last.Data) != `{"reason":"removed"}` {
				t.Errorf("closed data = %s", last.Data)
			}
		})
	}
}
