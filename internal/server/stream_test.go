package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type sseEvent struct {
	typ  string
	data string
}

// readSSE parses events from an SSE body until the stream ends.
func readSSE(body *bufio.Scanner, out chan<- sseEvent) {
	defer close(out)
	var ev sseEvent
	for body.Scan() {
		line := body.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.typ = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		case line == "" && ev.typ != "":
			out <- ev
			ev = sseEvent{}
		}
	}
}

func nextEvent(t *testing.T, events <-chan sseEvent, typ string) sseEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("stream ended before %q event", typ)
			}
			if ev.typ == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", typ)
		}
	}
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	created := env.create(t, "normal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/session/events?token="+created.Token, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("opening stream: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	events := make(chan sseEvent, 32)
	go readSSE(bufio.NewScanner(resp.Body), events)

	first := nextEvent(t, events, EventState)
	var st StateResponse
	if err := json.Unmarshal([]byte(first.data), &st); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	if st.QuestionNumber != 1 {
		t.Errorf("initial question = %d, want 1", st.QuestionNumber)
	}

	truth := env.truth(t, created.SessionID)
	env.do(t, http.MethodPost, "/api/session/choice", created.Token, ChoiceRequest{Emoji: wrongChoice(truth)})

	fb := nextEvent(t, events, EventFeedback)
	if !strings.Contains(fb.data, `"incorrect"`) {
		t.Errorf("feedback = %s, want incorrect", fb.data)
	}
	answered := nextEvent(t, events, EventState)
	if !strings.Contains(answered.data, `"isCorrectAnswer":"incorrect"`) {
		t.Errorf("state after choice = %s", answered.data)
	}

	env.do(t, http.MethodDelete, "/api/session", created.Token, nil)
	nextEvent(t, events, EventClosed)
}

func TestWebSocket(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	created := env.create(t, "normal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/api/session/ws?token=" + created.Token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	read := func(typ string) WSEnvelope {
		t.Helper()
		for {
			var msg WSEnvelope
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				t.Fatalf("read waiting for %q: %v", typ, err)
			}
			if msg.Type == typ {
				return msg
			}
		}
	}

	read(EventState)

	if err := wsjson.Write(ctx, conn, WSCommand{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	read("error")

	answer := env.truth(t, created.SessionID).CorrectAnswer
	if err := wsjson.Write(ctx, conn, WSCommand{Type: "choice", Emoji: answer}); err != nil {
		t.Fatalf("write: %v", err)
	}
	fb := read(EventFeedback)
	if !strings.Contains(string(fb.Data), `"correct"`) {
		t.Errorf("feedback = %s, want correct", fb.Data)
	}

	if err := wsjson.Write(ctx, conn, WSCommand{Type: "start", Mode: "blitz"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		var st StateResponse
		if err := json.Unmarshal(read(EventState).Data, &st); err != nil {
			t.Fatalf("decoding state: %v", err)
		}
		if st.Mode == "blitz" && st.QuestionNumber == 1 {
			break
		}
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestEventStreamEndsWhenSessionRemovedBeforeSubscribe(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	e, err := env.hub.Create()
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}

	// The request resolved its entry, then the session went away before
	// the handler subscribed.
	req := httptest.NewRequest(http.MethodGet, "/api/session/events", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKeyEntry, e))
	if err := env.hub.Remove(e.ID()); err != nil {
		t.Fatalf("removing: %v", err)
	}

	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		handleEvents(env.broker)(rec, req)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end for a removed session")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: closed\ndata: {\"reason\":\"removed\"}") {
		t.Errorf("body missing closed event:\n%s", body)
	}
	if env.broker.Subscribers(e.ID()) != 0 {
		t.Error("subscription left behind")
	}
}
