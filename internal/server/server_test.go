package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/emojichain"
	"github.com/playperu/emojichain/internal/highscore"
	"github.com/playperu/emojichain/internal/session"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	router chi.Router
	hub    *Hub
	broker *Broker
	tokens *Tokens
	clock  *session.FakeClock
	scores *highscore.Memory
}

func newTestEnv(t *testing.T, cfg HubConfig) *testEnv {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("creating tokens: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	env := &testEnv{
		broker: NewBroker(),
		tokens: tokens,
		clock:  session.NewFakeClock(epoch),
		scores: highscore.NewMemory(),
	}

	var mu sync.Mutex
	seed := uint64(0)
	factory := func(opts ...session.Option) *session.Session {
		mu.Lock()
		seed++
		rng := rand.New(rand.NewPCG(42, seed))
		mu.Unlock()
		base := []session.Option{
			session.WithClock(env.clock),
			session.WithRand(rng),
			session.WithHighScores(env.scores),
		}
		return session.New(cat, append(base, opts...)...)
	}
	env.hub = NewHub(cfg, env.broker, factory, logger)
	t.Cleanup(env.hub.Close)

	env.router = newRouter(logger, Deps{
		Hub:     env.hub,
		Broker:  env.broker,
		Tokens:  tokens,
		Scores:  env.scores,
		Catalog: cat,
	}, nil)
	return env
}

func defaultHubConfig() HubConfig {
	return HubConfig{TTL: time.Hour, MaxSessions: 4, AdMaxContinues: 1, AdInterstitialEvery: 1}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) create(t *testing.T, mode string) CreateSessionResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", "", CreateSessionRequest{Mode: mode})
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating session: status %d: %s", rec.Code, rec.Body.String())
	}
	var resp CreateSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	return resp
}

// truth reads the unredacted snapshot straight from the session.
func (e *testEnv) truth(t *testing.T, id string) emojichain.GameState {
	t.Helper()
	entry, err := e.hub.Get(id)
	if err != nil {
		t.Fatalf("looking up session: %v", err)
	}
	return entry.Session().State()
}

func wrongChoice(st emojichain.GameState) string {
	for _, c := range st.Choices {
		if c != st.CorrectAnswer {
			return c
		}
	}
	return ""
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) StateResponse {
	t.Helper()
	var st StateResponse
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decoding state: %v", err)
	}
	return st
}

func TestCreateSessionAndState(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	created := env.create(t, "normal")

	if created.Token == "" || created.SessionID == "" {
		t.Fatalf("missing token or id: %+v", created)
	}
	st := created.State
	if st.Mode != "normal" || st.QuestionNumber != 1 || st.Result != "in_progress" {
		t.Errorf("unexpected first state: %+v", st)
	}
	if st.CorrectAnswer != "" {
		t.Errorf("correct answer leaked: %q", st.CorrectAnswer)
	}
	if len(st.Choices) < 3 || len(st.EmojiChain) == 0 {
		t.Errorf("question not populated: %+v", st)
	}

	rec := env.do(t, http.MethodGet, "/api/session", created.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	got := decodeState(t, rec)
	if !slices.Equal(got.Choices, st.Choices) {
		t.Errorf("got choices %v, want %v", got.Choices, st.Choices)
	}
}

func TestCreateSessionBadRequest(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())

	tests := []struct {
		name string
		body any
	}{
		{"unknown mode", map[string]string{"mode": "zen"}},
		{"missing mode", map[string]string{}},
		{"unknown field", map[string]string{"mode": "normal", "level": "9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/sessions", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
	if env.hub.Len() != 0 {
		t.Errorf("hub has %d sessions, want 0", env.hub.Len())
	}
}

func TestSessionAuth(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	created := env.create(t, "survival")

	other, err := NewTokens("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("creating tokens: %v", err)
	}
	forged, _ := other.Issue(created.SessionID)
	orphan, _ := env.tokens.Issue("no-such-session")

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"wrong key", forged, http.StatusUnauthorized},
		{"unknown session", orphan, http.StatusNotFound},
		{"valid", created.Token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/session", tt.token, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	// Streaming endpoints take the token from the query string.
	req := httptest.NewRequest(http.MethodGet, "/api/session?token="+created.Token, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("query token: status = %d, want 200", rec.Code)
	}
}

func TestChoiceRevealsAnswer(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	created := env.create(t, "normal")
	answer := env.truth(t, created.SessionID).CorrectAnswer

	rec := env.do(t, http.MethodPost, "/api/session/choice", created.Token, ChoiceRequest{Emoji: answer})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	st := decodeState(t, rec)
	if st.IsCorrectAnswer != "correct" {
		t.Errorf("isCorrectAnswer = %q, want correct", st.IsCorrectAnswer)
	}
	if st.CorrectAnswer != answer {
		t.Errorf("correctAnswer = %q, want %q", st.CorrectAnswer, answer)
	}
	if st.Score <= 0 {
		t.Errorf("score = %d, want > 0", st.Score)
	}

	// A second choice before the next question is ignored.
	rec = env.do(t, http.MethodPost, "/api/session/choice", created.Token, ChoiceRequest{Emoji: answer})
	if got := decodeState(t, rec).Score; got != st.Score {
		t.Errorf("score changed to %d on ignored choice, want %d", got, st.Score)
	}

	env.clock.Advance(time.Second)
	rec = env.do(t, http.MethodGet, "/api/session", created.Token, nil)
	next := decodeState(t, rec)
	if next.QuestionNumber != 2 || next.CorrectAnswer != "" {
		t.Errorf("after pacing: question %d, answer %q", next.QuestionNumber, next.CorrectAnswer)
	}

	rec = env.do(t, http.MethodPost, "/api/session/choice", created.Token, ChoiceRequest{Emoji: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank emoji: status = %d, want 400", rec.Code)
	}
}

// loseSurvival answers wrongly until the game ends.
func loseSurvival(t *testing.T, env *testEnv, created CreateSessionResponse) StateResponse {
	t.Helper()
	var st StateResponse
	for range 3 {
		truth := env.truth(t, created.SessionID)
		rec := env.do(t, http.MethodPost, "/api/session/choice", created.Token, ChoiceRequest{Emoji: wrongChoice(truth)})
		st = decodeState(t, rec)
		env.clock.Advance(time.Second)
	}
	rec := env.do(t, http.MethodGet, "/api/session", created.Token, nil)
	return decodeState(t, rec)
}

func TestSurvivalLossAndContinue(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	created := env.create(t, "survival")

	st := loseSurvival(t, env, created)
	if st.Result != "ad_continue_offered" || st.LossReason != "out_of_lives" {
		t.Fatalf("got result %q (%q), want ad_continue_offered (out_of_lives)", st.Result, st.LossReason)
	}

	rec := env.do(t, http.MethodPost, "/api/session/ad-reward", created.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ad reward: status = %d: %s", rec.Code, rec.Body.String())
	}
	st = decodeState(t, rec)
	if st.Result != "in_progress" || st.Lives != 3 || st.ContinuesUsed != 1 {
		t.Errorf("after continue: %+v", st)
	}

	st = loseSurvival(t, env, created)
	if st.Result != "lost" {
		t.Errorf("second loss: result %q, want lost", st.Result)
	}
	if !st.ShowInterstitial {
		t.Error("showInterstitial = false on completed game")
	}

	rec = env.do(t, http.MethodPost, "/api/session/ad-reward", created.Token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second reward: status = %d, want 409", rec.Code)
	}
}

func TestResetAfterFinishedGame(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	created := env.create(t, "survival")

	rec := env.do(t, http.MethodPost, "/api/session/reset", created.Token, nil)
	var resp ResetResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.ShowAd {
		t.Error("showAd set when leaving a game in progress")
	}
	if resp.State.QuestionNumber != 0 || len(resp.State.Choices) != 0 {
		t.Errorf("reset state not pre-game: %+v", resp.State)
	}

	rec = env.do(t, http.MethodPost, "/api/session/start", created.Token, StartRequest{Mode: "survival"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: status = %d: %s", rec.Code, rec.Body.String())
	}
	loseSurvival(t, env, created)

	rec = env.do(t, http.MethodPost, "/api/session/reset", created.Token, nil)
	resp = ResetResponse{}
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.ShowAd {
		t.Error("showAd not set when leaving a finished game")
	}
}

func TestStartBadMode(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	created := env.create(t, "blitz")

	rec := env.do(t, http.MethodPost, "/api/session/start", created.Token, StartRequest{Mode: "arcade"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTooManySessions(t *testing.T) {
	cfg := defaultHubConfig()
	cfg.MaxSessions = 2
	env := newTestEnv(t, cfg)

	env.create(t, "normal")
	env.create(t, "timed")
	rec := env.do(t, http.MethodPost, "/api/sessions", "", CreateSessionRequest{Mode: "normal"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	created := env.create(t, "timed")

	rec := env.do(t, http.MethodDelete, "/api/session", created.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/session", created.Token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("after delete: status = %d, want 404", rec.Code)
	}
	if env.clock.Pending() != 0 {
		t.Errorf("%d timers still pending after delete", env.clock.Pending())
	}
}

func TestHighScoresEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())
	if err := env.scores.UpdateIfNewRecord(context.Background(), emojichain.ModeBlitz, 44); err != nil {
		t.Fatalf("seeding score: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/highscores", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got HighScoresResponse
	json.NewDecoder(rec.Body).Decode(&got)
	want := HighScoresResponse{"normal": 0, "timed": 0, "survival": 0, "blitz": 44}
	for mode, score := range want {
		if s, ok := got[mode]; !ok || s != score {
			t.Errorf("%s: got %d (present %v), want %d", mode, s, ok, score)
		}
	}
}

func TestCatalogEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultHubConfig())

	rec := env.do(t, http.MethodGet, "/api/catalog", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got CatalogResponse
	json.NewDecoder(rec.Body).Decode(&got)
	if len(got.Categories) == 0 {
		t.Error("no categories")
	}
	if len(got.Rules) != 4 || len(got.Modes) != 4 {
		t.Errorf("got %d rules and %d modes, want 4 and 4", len(got.Rules), len(got.Modes))
	}
}
