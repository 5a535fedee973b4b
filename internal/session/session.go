// Package session runs one player's game: it asks the leveling policy and
// a generation strategy for questions, scores choices, drives the pacing
// and countdown timers, and publishes an immutable GameState snapshot after
// every transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/emojichain"
	"github.com/playperu/emojichain/internal/generator"
	"github.com/playperu/emojichain/internal/leveling"
)

var (
	ErrNoContinueOffered = errors.New("no continue offered")
	ErrUnknownMode       = errors.New("unknown mode")
	ErrClosed            = errors.New("session closed")
)

// storeTimeout bounds each high score store call.
const storeTimeout = 3 * time.Second

// HighScoreStore persists the best score per mode. The session never calls
// it while holding its state lock; a slow store delays observer delivery
// but not answers or timers.
type HighScoreStore interface {
	HighScore(ctx context.Context, mode emojichain.Mode) (int, error)
	UpdateIfNewRecord(ctx context.Context, mode emojichain.Mode, score int) error
}

// FeedbackSink receives fire-and-forget scoring signals.
type FeedbackSink interface {
	PlayCorrect()
	PlayIncorrect()
}

// AdPolicy decides whether a loss may be continued and whether a finished
// game should be followed by an interstitial.
type AdPolicy interface {
	OfferContinue(mode emojichain.Mode, continuesUsed int) bool
	GameCompleted(mode emojichain.Mode) bool
}

// Observer receives every published snapshot in transition order. It runs
// outside the session lock but must not call back into the session
// synchronously.
type Observer func(emojichain.GameState)

type Session struct {
	cat      *catalog.Catalog
	clock    Clock
	rng      *rand.Rand
	scores   HighScoreStore
	feedback FeedbackSink
	ads      AdPolicy
	logger   *slog.Logger
	strategy generator.Strategy
	policy   *leveling.Policy
	configs  map[emojichain.Mode]ModeConfig

	observers []Observer

	// state is written only with mu held and read lock-free.
	state atomic.Pointer[emojichain.GameState]

	mu       sync.Mutex
	timers   *timerSet
	cfg      ModeConfig
	answered int
	correct  int
	shownAt  time.Time
	// clockEnd is the game clock deadline in modes that have one.
	clockEnd time.Time
	// ending holds the loss to apply when the final delay elapses.
	ending  *emojichain.GameResult
	closed  bool
	effects []func()

	// pubMu serializes effect delivery so observers see transitions in order.
	pubMu sync.Mutex
}

type Option func(*Session)

func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

func WithRand(r *rand.Rand) Option { return func(s *Session) { s.rng = r } }

func WithHighScores(h HighScoreStore) Option { return func(s *Session) { s.scores = h } }

func WithFeedback(f FeedbackSink) Option { return func(s *Session) { s.feedback = f } }

func WithAdPolicy(a AdPolicy) Option { return func(s *Session) { s.ads = a } }

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithStrategy replaces the default question strategy.
func WithStrategy(g generator.Strategy) Option { return func(s *Session) { s.strategy = g } }

// WithLeveling replaces the default leveling policy.
func WithLeveling(p *leveling.Policy) Option { return func(s *Session) { s.policy = p } }

// WithModeConfig overrides the configuration of one mode.
func WithModeConfig(mode emojichain.Mode, cfg ModeConfig) Option {
	return func(s *Session) { s.configs[mode] = cfg }
}

// New returns a session in the pre-game state. Unset collaborators default
// to no-ops: scores are not kept, feedback is dropped and continues are
// never offered.
func New(cat *catalog.Catalog, opts ...Option) *Session {
	s := &Session{
		cat:     cat,
		configs: make(map[emojichain.Mode]ModeConfig, len(modeConfigs)),
	}
	for m, cfg := range modeConfigs {
		s.configs[m] = cfg
	}
	for _, o := range opts {
		o(s)
	}

	if s.clock == nil {
		s.clock = RealClock()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.scores == nil {
		s.scores = nopScores{}
	}
	if s.feedback == nil {
		s.feedback = nopFeedback{}
	}
	if s.ads == nil {
		s.ads = nopAds{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.strategy == nil {
		s.strategy = generator.NewQuestionStrategy(s.rng, cat)
	}
	if s.policy == nil {
		s.policy = leveling.New(cat, s.rng)
	}

	s.timers = newTimerSet(s.clock)
	s.cfg = s.configs[emojichain.ModeNormal]
	st := s.preGame(emojichain.ModeNormal, 0)
	s.state.Store(&st)
	return s
}

// State returns the current snapshot.
func (s *Session) State() emojichain.GameState {
	return s.state.Load().Clone()
}

// Start begins a new game in mode, abandoning any game in progress, and
// publishes the first question.
func (s *Session) Start(mode emojichain.Mode) error {
	cfg, ok := s.configs[mode]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownMode, mode)
	}

	// The store is read before taking mu so a slow backend never blocks
	// answers or timers.
	highScore := s.loadHighScore(mode)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	waits := s.timers.cancelAll()
	s.cfg = cfg
	s.answered, s.correct = 0, 0
	s.ending = nil

	st := s.preGame(mode, highScore)
	if cfg.GameClock > 0 {
		s.clockEnd = s.clock.Now().Add(cfg.GameClock)
		st.Deadline = s.clockEnd
		s.timers.schedule(gameClock, cfg.GameClock, s.onGameClock)
	}
	s.logger.Debug("game started", "mode", mode)
	s.nextQuestion(&st)
	s.mu.Unlock()

	drain(waits)
	s.flush()
	return nil
}

// Choose scores emoji against the current question. It is ignored before
// the first question, after the question was answered, and once the game
// has ended. Anything other than the correct answer is wrong.
func (s *Session) Choose(emoji string) {
	s.mu.Lock()
	st := s.state.Load().Clone()
	if s.closed || st.Result != emojichain.InProgress || st.QuestionNumber == 0 || st.IsCorrectAnswer != emojichain.Unanswered {
		s.mu.Unlock()
		return
	}
	s.timers.cancel(countdown)
	s.answered++
	if emoji == st.CorrectAnswer {
		s.onCorrect(&st)
	} else {
		s.onIncorrect(&st, false)
	}
	s.mu.Unlock()
	s.flush()
}

// Reset cancels every timer, waits for in-flight callbacks and publishes
// the pre-game snapshot for the current mode. It does not start a game.
func (s *Session) Reset() {
	s.mu.Lock()
	waits := s.timers.cancelAll()
	s.answered, s.correct = 0, 0
	s.ending = nil
	cur := s.state.Load()
	st := s.preGame(cur.Mode, cur.HighScore)
	s.publish(st)
	s.mu.Unlock()

	drain(waits)
	s.flush()
}

// AdReward resumes a game whose loss was wrapped in a continue offer. Lives
// and, where the mode has one, the game clock are restored; score and
// streak are kept.
func (s *Session) AdReward() error {
	s.mu.Lock()
	st := s.state.Load().Clone()
	if _, ok := st.Result.Underlying(); !ok || s.closed {
		s.mu.Unlock()
		return ErrNoContinueOffered
	}

	st.ContinuesUsed++
	st.Result = emojichain.InProgress
	st.ShowInterstitial = false
	st.Lives = s.cfg.RewardLives
	if s.cfg.GameClock > 0 {
		s.clockEnd = s.clock.Now().Add(s.cfg.RewardClock)
		st.Deadline = s.clockEnd
		s.timers.schedule(gameClock, s.cfg.RewardClock, s.onGameClock)
	}
	s.logger.Debug("continue granted", "mode", st.Mode, "continues_used", st.ContinuesUsed)
	s.nextQuestion(&st)
	s.mu.Unlock()

	s.flush()
	return nil
}

// Close cancels every timer and waits for in-flight callbacks. A closed
// session ignores further input.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	waits := s.timers.cancelAll()
	s.mu.Unlock()
	drain(waits)
}

func (s *Session) preGame(mode emojichain.Mode, highScore int) emojichain.GameState {
	cfg := s.configs[mode]
	return emojichain.GameState{
		Mode:           mode,
		HighScore:      highScore,
		TotalQuestions: cfg.TotalQuestions,
		Level:          1,
		Result:         emojichain.InProgress,
		Lives:          cfg.Lives,
	}
}

func (s *Session) level() int {
	if s.cfg.LevelByScore {
		return leveling.Level(s.correct)
	}
	return leveling.Level(s.answered)
}

// nextQuestion publishes the next question, or ends the game when the cap
// is reached or no question can be generated. mu must be held.
func (s *Session) nextQuestion(st *emojichain.GameState) {
	if s.cfg.TotalQuestions > 0 && st.QuestionNumber >= s.cfg.TotalQuestions {
		s.finish(st, emojichain.Won, false)
		return
	}

	level := s.level()
	rule, category := s.policy.Select(level)
	q, used, ok := s.strategy.Generate(rule, category, level)
	if !ok {
		s.logger.Warn("question generation failed",
			"mode", st.Mode,
			"rule", rule.Slug(),
			"category", category.Name,
			"level", level,
		)
		s.finish(st, emojichain.Lost(emojichain.LossOutOfLives), true)
		return
	}

	now := s.clock.Now()
	st.QuestionNumber++
	st.Level = level
	st.Rule = used
	st.Category = category.Name
	st.EmojiChain = q.Chain
	st.Choices = q.Choices
	st.CorrectAnswer = q.Answer
	st.IsCorrectAnswer = emojichain.Unanswered
	st.CurrentTimeBonus = 0
	st.CurrentStreakBonus = 0
	s.shownAt = now

	switch {
	case s.cfg.QuestionTimeout > 0:
		st.Deadline = now.Add(s.cfg.QuestionTimeout)
		s.timers.schedule(countdown, s.cfg.QuestionTimeout, s.onCountdown)
	case s.cfg.GameClock > 0:
		st.Deadline = s.clockEnd
	default:
		st.Deadline = time.Time{}
	}

	s.logger.Debug("question",
		"mode", st.Mode,
		"number", st.QuestionNumber,
		"level", level,
		"rule", used.Slug(),
		"category", category.Name,
	)
	s.publish(*st)
}

func (s *Session) onCorrect(st *emojichain.GameState) {
	now := s.clock.Now()
	st.IsCorrectAnswer = emojichain.Correct
	st.CurrentStreakCount++
	s.correct++

	timeBonus := s.cfg.timeBonusFor(now.Sub(s.shownAt))
	st.CurrentTimeBonus = timeBonus
	if s.cfg.ClockBonus > 0 {
		s.clockEnd = s.clockEnd.Add(s.cfg.ClockBonus)
		st.CurrentTimeBonus = int(s.cfg.ClockBonus / time.Second)
		s.timers.schedule(gameClock, s.clockEnd.Sub(now), s.onGameClock)
	}
	st.CurrentStreakBonus = s.cfg.streakBonusFor(st.CurrentStreakCount)
	st.Score += 1 + timeBonus + st.CurrentStreakBonus

	if s.cfg.QuestionTimeout > 0 {
		st.Deadline = time.Time{}
	} else if s.cfg.GameClock > 0 {
		st.Deadline = s.clockEnd
	}

	s.effects = append(s.effects, s.feedback.PlayCorrect)
	s.publish(*st)
	s.timers.schedule(pacing, s.cfg.CorrectDelay, s.onPacing)
}

func (s *Session) onIncorrect(st *emojichain.GameState, timeout bool) {
	st.IsCorrectAnswer = emojichain.Incorrect
	st.CurrentStreakCount = 0
	st.CurrentStreakBonus = 0
	st.CurrentTimeBonus = 0
	if s.cfg.QuestionTimeout > 0 {
		st.Deadline = time.Time{}
	}
	s.effects = append(s.effects, s.feedback.PlayIncorrect)

	if !s.cfg.UsesLives {
		s.publish(*st)
		s.timers.schedule(pacing, s.cfg.IncorrectDelay, s.onPacing)
		return
	}

	st.Lives = max(st.Lives-1, 0)
	if st.Lives > 0 {
		s.publish(*st)
		s.timers.schedule(pacing, s.cfg.IncorrectDelay, s.onPacing)
		return
	}

	reason := emojichain.LossOutOfLives
	if timeout {
		reason = emojichain.LossTimeOut
	}
	lost := emojichain.Lost(reason)
	s.ending = &lost
	s.publish(*st)
	s.timers.schedule(pacing, s.cfg.FinalDelay, s.onPacing)
}

// finish ends the game. A loss may be wrapped in a continue offer unless
// noOffer is set. mu must be held.
func (s *Session) finish(st *emojichain.GameState, result emojichain.GameResult, noOffer bool) {
	s.timers.cancelAll()
	s.ending = nil

	// The record is written after mu is released, ahead of the terminal
	// snapshot, so an observer of that snapshot can already read it back.
	mode, score := st.Mode, st.Score
	s.effects = append(s.effects, func() { s.recordScore(mode, score) })
	st.HighScore = max(st.HighScore, score)

	st.Deadline = time.Time{}
	st.Result = result
	st.ShowInterstitial = false
	if result.Kind == emojichain.ResultLost && !noOffer && s.ads.OfferContinue(st.Mode, st.ContinuesUsed) {
		st.Result = emojichain.OfferContinue(result)
	} else {
		st.ShowInterstitial = s.ads.GameCompleted(st.Mode)
	}

	s.logger.Debug("game over", "mode", st.Mode, "result", st.Result.String(), "score", st.Score)
	s.publish(*st)
}

func (s *Session) onPacing(gen uint64) {
	s.mu.Lock()
	if !s.timers.claim(pacing, gen) {
		s.mu.Unlock()
		return
	}
	st := s.state.Load().Clone()
	if ending := s.ending; ending != nil {
		s.finish(&st, *ending, false)
	} else if st.Result == emojichain.InProgress {
		s.nextQuestion(&st)
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) onCountdown(gen uint64) {
	s.mu.Lock()
	if !s.timers.claim(countdown, gen) {
		s.mu.Unlock()
		return
	}
	st := s.state.Load().Clone()
	if st.Result == emojichain.InProgress && st.IsCorrectAnswer == emojichain.Unanswered {
		s.logger.Debug("question timed out", "mode", st.Mode, "number", st.QuestionNumber)
		s.answered++
		s.onIncorrect(&st, true)
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) onGameClock(gen uint64) {
	s.mu.Lock()
	if !s.timers.claim(gameClock, gen) {
		s.mu.Unlock()
		return
	}
	st := s.state.Load().Clone()
	if st.Result == emojichain.InProgress {
		s.finish(&st, emojichain.Lost(emojichain.LossTimeOut), false)
	}
	s.mu.Unlock()
	s.flush()
}

func (s *Session) recordScore(mode emojichain.Mode, score int) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.scores.UpdateIfNewRecord(ctx, mode, score); err != nil {
		s.logger.Warn("updating high score", "mode", mode, "error", err)
	}
}

func (s *Session) loadHighScore(mode emojichain.Mode) int {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	hs, err := s.scores.HighScore(ctx, mode)
	if err != nil {
		s.logger.Warn("reading high score", "mode", mode, "error", err)
		return 0
	}
	return hs
}

// publish swaps in st and queues it for observers. mu must be held.
func (s *Session) publish(st emojichain.GameState) {
	snap := st.Clone()
	s.state.Store(&snap)
	if len(s.observers) == 0 {
		return
	}
	out := snap.Clone()
	s.effects = append(s.effects, func() {
		for _, o := range s.observers {
			o(out)
		}
	})
}

// flush runs queued effects in the order they were queued. mu must not be
// held.
func (s *Session) flush() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	effects := s.effects
	s.effects = nil
	s.mu.Unlock()

	for _, f := range effects {
		f()
	}
}

type nopScores struct{}

func (nopScores) HighScore(context.Context, emojichain.Mode) (int, error) { return 0, nil }

func (nopScores) UpdateIfNewRecord(context.Context, emojichain.Mode, int) error { return nil }

type nopFeedback struct{}

func (nopFeedback) PlayCorrect()   {}
func (nopFeedback) PlayIncorrect() {}

type nopAds struct{}

func (nopAds) OfferContinue(emojichain.Mode, int) bool { return false }
func (nopAds) GameCompleted(emojichain.Mode) bool      { return false }
