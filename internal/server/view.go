package server

import (
	"time"

	"github.com/playperu/emojichain/internal/emojichain"
)

// StateResponse is the public view of a session snapshot. CorrectAnswer is
// withheld until the current question is answered or the game is over.
type StateResponse struct {
	Mode               string     `json:"mode"`
	Score              int        `json:"score"`
	HighScore          int        `json:"highScore"`
	TotalQuestions     int        `json:"totalQuestions"`
	QuestionNumber     int        `json:"questionNumber"`
	Level              int        `json:"level"`
	Rule               string     `json:"rule,omitempty"`
	RuleName           string     `json:"ruleName,omitempty"`
	Category           string     `json:"category,omitempty"`
	EmojiChain         []string   `json:"emojiChain"`
	Choices            []string   `json:"choices"`
	CorrectAnswer      string     `json:"correctAnswer,omitempty"`
	IsCorrectAnswer    string     `json:"isCorrectAnswer,omitempty" enum:"correct,incorrect"`
	Result             string     `json:"result" enum:"in_progress,won,lost,ad_continue_offered"`
	LossReason         string     `json:"lossReason,omitempty" enum:"out_of_lives,time_out"`
	Lives              int        `json:"lives"`
	CurrentTimeBonus   int        `json:"currentTimeBonus"`
	CurrentStreakBonus int        `json:"currentStreakBonus"`
	CurrentStreakCount int        `json:"currentStreakCount"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	ContinuesUsed      int        `json:"continuesUsed"`
	ShowInterstitial   bool       `json:"showInterstitial"`
}

func newStateResponse(st emojichain.GameState) StateResponse {
	resp := StateResponse{
		Mode:               st.Mode.String(),
		Score:              st.Score,
		HighScore:          st.HighScore,
		TotalQuestions:     st.TotalQuestions,
		QuestionNumber:     st.QuestionNumber,
		Level:              st.Level,
		Category:           st.Category,
		EmojiChain:         nonNil(st.EmojiChain),
		Choices:            nonNil(st.Choices),
		IsCorrectAnswer:    string(st.IsCorrectAnswer),
		Result:             string(st.Result.Kind),
		LossReason:         string(st.Result.Reason),
		Lives:              st.Lives,
		CurrentTimeBonus:   st.CurrentTimeBonus,
		CurrentStreakBonus: st.CurrentStreakBonus,
		CurrentStreakCount: st.CurrentStreakCount,
		ContinuesUsed:      st.ContinuesUsed,
		ShowInterstitial:   st.ShowInterstitial,
	}
	if st.QuestionNumber > 0 {
		resp.Rule = st.Rule.Slug()
		resp.RuleName = st.Rule.String()
	}
	if st.IsCorrectAnswer != emojichain.Unanswered || st.Result.Terminal() {
		resp.CorrectAnswer = st.CorrectAnswer
	}
	if !st.Deadline.IsZero() {
		d := st.Deadline.UTC()
		resp.Deadline = &d
	}
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
