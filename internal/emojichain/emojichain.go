// Package emojichain defines the core domain types shared by the generators,
// the session state machine and the presentation adapters.
package emojichain

import (
	"fmt"
	"slices"
	"time"
)

// Rule identifies one of the four chain generation strategies.
type Rule int

const (
	RuleSequential Rule = iota
	RuleOpposite
	RuleMixUp
	RuleSynonym
)

var ruleNames = [...]string{
	RuleSequential: "Sequential in Category",
	RuleOpposite:   "Opposite Meaning",
	RuleMixUp:      "Category Mix-Up",
	RuleSynonym:    "Synonym Chain",
}

var ruleSlugs = [...]string{
	RuleSequential: "sequential",
	RuleOpposite:   "opposite",
	RuleMixUp:      "mixup",
	RuleSynonym:    "synonym",
}

// Rules returns every rule in declaration order.
func Rules() []Rule {
	return []Rule{RuleSequential, RuleOpposite, RuleMixUp, RuleSynonym}
}

func (r Rule) Valid() bool { return r >= RuleSequential && r <= RuleSynonym }

// String returns the display name shown to players.
func (r Rule) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rule(%d)", int(r))
	}
	return ruleNames[r]
}

// Slug returns the short machine name used on the wire.
func (r Rule) Slug() string {
	if !r.Valid() {
		return ""
	}
	return ruleSlugs[r]
}

func (r Rule) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rule %d", int(r))
	}
	return []byte(r.Slug()), nil
}

func (r *Rule) UnmarshalText(b []byte) error {
	v, err := ParseRule(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRule accepts either the slug or the display name.
func ParseRule(s string) (Rule, error) {
	for _, r := range Rules() {
		if s == r.Slug() || s == r.String() {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rule %q", s)
}

// Mode is a game mode. Modes differ only by configuration.
type Mode int

const (
	ModeNormal Mode = iota
	ModeTimed
	ModeSurvival
	ModeBlitz
)

var modeSlugs = [...]string{
	ModeNormal:   "normal",
	ModeTimed:    "timed",
	ModeSurvival: "survival",
	ModeBlitz:    "blitz",
}

func Modes() []Mode {
	return []Mode{ModeNormal, ModeTimed, ModeSurvival, ModeBlitz}
}

func (m Mode) Valid() bool { return m >= ModeNormal && m <= ModeBlitz }

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeSlugs[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if s == m.String() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

type LossReason string

const (
	LossOutOfLives LossReason = "out_of_lives"
	LossTimeOut    LossReason = "time_out"
)

type ResultKind string

const (
	ResultInProgress        ResultKind = "in_progress"
	ResultWon               ResultKind = "won"
	ResultLost              ResultKind = "lost"
	ResultAdContinueOffered ResultKind = "ad_continue_offered"
)

// GameResult is InProgress, Won, Lost(reason) or AdContinueOffered wrapping
// a Lost. For an offer, Reason carries the underlying loss reason.
type GameResult struct {
	Kind   ResultKind `json:"kind"`
	Reason LossReason `json:"reason,omitempty"`
}

var (
	InProgress = GameResult{Kind: ResultInProgress}
	Won        = GameResult{Kind: ResultWon}
)

func Lost(reason LossReason) GameResult {
	return GameResult{Kind: ResultLost, Reason: reason}
}

// OfferContinue wraps a Lost result. Any other result is returned as is.
func OfferContinue(lost GameResult) GameResult {
	if lost.Kind != ResultLost {
		return lost
	}
	return GameResult{Kind: ResultAdContinueOffered, Reason: lost.Reason}
}

// Underlying returns the Lost result wrapped by an offer.
func (g GameResult) Underlying() (GameResult, bool) {
	if g.Kind != ResultAdContinueOffered {
		return GameResult{}, false
	}
	return Lost(g.Reason), true
}

// Terminal reports whether no further answers are accepted.
func (g GameResult) Terminal() bool {
	return g.Kind != ResultInProgress && g.Kind != ""
}

func (g GameResult) String() string {
	if g.Reason == "" {
		return string(g.Kind)
	}
	return fmt.Sprintf("%s(%s)", g.Kind, g.Reason)
}

// Answer is the tri-state correctness of the current question.
type Answer string

const (
	Unanswered Answer = ""
	Correct    Answer = "correct"
	Incorrect  Answer = "incorrect"
)

// Question is one generated puzzle: the chain shown to the player, the
// candidate choices, and the emoji that correctly continues the chain.
type Question struct {
	Chain   []string `json:"chain"`
	Choices []string `json:"choices"`
	Answer  string   `json:"answer"`
}

// Valid reports whether q satisfies the question invariants: a non-empty
// chain, an answer absent from the chain and present exactly once among
// distinct choices, and no choice repeating a chain element.
func (q Question) Valid() bool {
	if len(q.Chain) == 0 || q.Answer == "" {
		return false
	}
	if slices.Contains(q.Chain, q.Answer) {
		return false
	}
	seen := make(map[string]struct{}, len(q.Choices))
	hits := 0
	for _, c := range q.Choices {
		if _, dup := seen[c]; dup {
			return false
		}
		seen[c] = struct{}{}
		if c == q.Answer {
			hits++
		}
		if slices.Contains(q.Chain, c) {
			return false
		}
	}
	return hits == 1
}

// GameState is an immutable session snapshot. The owning session replaces
// it wholesale on every transition; readers must not modify the slices.
type GameState struct {
	Mode               Mode       `json:"mode"`
	Score              int        `json:"score"`
	HighScore          int        `json:"highScore"`
	TotalQuestions     int        `json:"totalQuestions"`
	QuestionNumber     int        `json:"questionNumber"`
	Level              int        `json:"level"`
	Rule               Rule       `json:"rule"`
	Category           string     `json:"category"`
	EmojiChain         []string   `json:"emojiChain"`
	Choices            []string   `json:"choices"`
	CorrectAnswer      string     `json:"correctAnswer"`
	IsCorrectAnswer    Answer     `json:"isCorrectAnswer"`
	Result             GameResult `json:"result"`
	Lives              int        `json:"lives"`
	CurrentTimeBonus   int        `json:"currentTimeBonus"`
	CurrentStreakBonus int        `json:"currentStreakBonus"`
	CurrentStreakCount int        `json:"currentStreakCount"`
	Deadline           time.Time  `json:"deadline"`
	ContinuesUsed      int        `json:"continuesUsed"`
	ShowInterstitial   bool       `json:"showInterstitial"`
}

// Clone returns a copy that shares no slices with s.
func (s GameState) Clone() GameState {
	s.EmojiChain = slices.Clone(s.EmojiChain)
	s.Choices = slices.Clone(s.Choices)
	return s
}

// Unlimited reports whether the mode has no question cap.
func (s GameState) Unlimited() bool { return s.TotalQuestions == 0 }
