package session

import (
	"time"

	"github.com/playperu/emojichain/internal/emojichain"
)

// ModeConfig describes everything that differs between game modes.
type ModeConfig struct {
	// TotalQuestions caps the game; zero means unlimited.
	TotalQuestions int
	Lives          int
	// UsesLives is false when wrong answers only reset the streak.
	UsesLives bool

	// TimeBonusWindow and TimeBonusRate award points for the time left in
	// the window when the answer is correct, fractional seconds included.
	TimeBonusWindow time.Duration
	TimeBonusRate   int

	// QuestionTimeout is the per-question countdown. Expiry counts as a
	// wrong answer.
	QuestionTimeout time.Duration
	// GameClock is the whole-game countdown; ClockBonus is added to it on
	// every correct answer.
	GameClock  time.Duration
	ClockBonus time.Duration

	StreakThreshold int
	StreakBonus     int
	// StreakScales multiplies StreakBonus by the streak length.
	StreakScales bool

	CorrectDelay   time.Duration
	IncorrectDelay time.Duration
	// FinalDelay separates the last wrong answer from the loss.
	FinalDelay time.Duration

	RewardLives int
	RewardClock time.Duration

	// LevelByScore derives the level from correct answers instead of
	// questions answered.
	LevelByScore bool
}

const (
	streakThreshold = 3
	streakBonus     = 20
	pointsPerSecond = 5
)

var modeConfigs = map[emojichain.Mode]ModeConfig{
	emojichain.ModeNormal: {
		TotalQuestions:  10,
		Lives:           3,
		UsesLives:       true,
		TimeBonusWindow: 10 * time.Second,
		TimeBonusRate:   pointsPerSecond,
		StreakThreshold: streakThreshold,
		StreakBonus:     streakBonus,
		CorrectDelay:    500 * time.Millisecond,
		IncorrectDelay:  time.Second,
		FinalDelay:      500 * time.Millisecond,
		RewardLives:     3,
	},
	emojichain.ModeTimed: {
		Lives:           3,
		GameClock:       60 * time.Second,
		ClockBonus:      2 * time.Second,
		StreakThreshold: streakThreshold,
		StreakBonus:     streakBonus,
		StreakScales:    true,
		CorrectDelay:    300 * time.Millisecond,
		IncorrectDelay:  500 * time.Millisecond,
		FinalDelay:      500 * time.Millisecond,
		RewardLives:     1,
		RewardClock:     30 * time.Second,
	},
	emojichain.ModeSurvival: {
		Lives:           3,
		UsesLives:       true,
		StreakThreshold: streakThreshold,
		StreakBonus:     streakBonus,
		StreakScales:    true,
		CorrectDelay:    300 * time.Millisecond,
		IncorrectDelay:  500 * time.Millisecond,
		FinalDelay:      500 * time.Millisecond,
		RewardLives:     3,
		LevelByScore:    true,
	},
	emojichain.ModeBlitz: {
		Lives:           3,
		UsesLives:       true,
		TimeBonusWindow: 3 * time.Second,
		TimeBonusRate:   pointsPerSecond,
		QuestionTimeout: 3 * time.Second,
		StreakThreshold: streakThreshold,
		StreakBonus:     streakBonus,
		StreakScales:    true,
		CorrectDelay:    300 * time.Millisecond,
		IncorrectDelay:  150 * time.Millisecond,
		FinalDelay:      150 * time.Millisecond,
		RewardLives:     3,
	},
}

// ConfigFor returns the default configuration of mode.
func ConfigFor(mode emojichain.Mode) (ModeConfig, bool) {
	cfg, ok := modeConfigs[mode]
	return cfg, ok
}

// streakBonusFor returns the bonus earned by a streak of n.
func (c ModeConfig) streakBonusFor(n int) int {
	if c.StreakThreshold <= 0 || n < c.StreakThreshold {
		return 0
	}
	if c.StreakScales {
		return c.StreakBonus * n
	}
	return c.StreakBonus
}

// timeBonusFor returns the bonus for answering after elapsed. Unused time
// counts in fractional seconds; the product is truncated.
func (c ModeConfig) timeBonusFor(elapsed time.Duration) int {
	left := c.TimeBonusWindow - elapsed
	if c.TimeBonusWindow <= 0 || left <= 0 {
		return 0
	}
	return int(left.Seconds() * float64(c.TimeBonusRate))
}
