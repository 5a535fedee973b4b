package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/playperu/emojichain/internal/emojichain"
	"github.com/playperu/emojichain/internal/session"
)

// tickRate is the redraw cadence while a countdown is on screen.
const tickRate = 100 * time.Millisecond

var (
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleText    = tcell.StyleDefault
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleGood    = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleBad     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleWarn    = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	styleReverse = tcell.StyleDefault.Reverse(true)
)

var modeKeys = map[rune]emojichain.Mode{
	'n': emojichain.ModeNormal,
	't': emojichain.ModeTimed,
	's': emojichain.ModeSurvival,
	'b': emojichain.ModeBlitz,
}

// game is the part of the session the terminal drives.
type game interface {
	State() emojichain.GameState
	Start(mode emojichain.Mode) error
	Choose(emoji string)
	Reset()
	AdReward() error
}

// homeAds tracks interstitials owed when the player leaves a finished game.
type homeAds interface {
	MarkHomeReturn()
	ShowOnHomeReturn() bool
}

type app struct {
	screen tcell.Screen
	game   game
	ads    homeAds
	now    func() time.Time

	// notice is a one-off line shown under the board until the next key.
	notice string
	// interstitial is set when returning home owes the player an ad.
	interstitial bool
}

func newApp(screen tcell.Screen, g game, ads homeAds) *app {
	return &app{screen: screen, game: g, ads: ads, now: time.Now}
}

// row is one rendered line of the board.
type row struct {
	text  string
	style tcell.Style
}

func (a *app) loop(ctx context.Context, events <-chan tcell.Event) error {
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				r := rune(0)
				if ev.Key() == tcell.KeyRune {
					r = ev.Rune()
				}
				if a.onKey(ev.Key(), r) {
					return nil
				}
			case *tcell.EventResize:
				a.screen.Sync()
			}
			a.draw()
		case <-ticker.C:
			if st := a.game.State(); !st.Deadline.IsZero() && !st.Result.Terminal() {
				a.draw()
			}
		}
	}
}

// onKey applies one key press and reports whether the player asked to quit.
func (a *app) onKey(key tcell.Key, r rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	a.notice = ""
	st := a.game.State()
	switch {
	case r == 'q':
		return true
	case r >= '1' && r <= '9':
		i := int(r - '1')
		if i < len(st.Choices) {
			a.game.Choose(st.Choices[i])
		}
	case r == 'r':
		if st.Result.Terminal() {
			a.ads.MarkHomeReturn()
		}
		a.game.Reset()
		a.interstitial = a.ads.ShowOnHomeReturn()
	case r == 'a':
		if err := a.game.AdReward(); err != nil {
			a.notice = "No continue on offer."
		}
	default:
		if mode, ok := modeKeys[r]; ok {
			a.interstitial = false
			if err := a.game.Start(mode); err != nil {
				a.notice = err.Error()
			}
		}
	}
	return false
}

func (a *app) draw() {
	a.screen.Clear()
	for y, l := range a.rows(a.game.State()) {
		drawText(a.screen, 1, y, l.style, l.text)
	}
	a.screen.Show()
}

// rows lays out the board for st.
func (a *app) rows(st emojichain.GameState) []row {
	out := []row{{fmt.Sprintf("EmojiChain  [%s]", st.Mode), styleTitle}, {}}

	if st.QuestionNumber == 0 {
		if a.interstitial {
			out = append(out, row{"[ advertisement ] Thanks for playing!", styleReverse}, row{})
		}
		out = append(out,
			row{fmt.Sprintf("High score: %d", st.HighScore), styleText},
			row{},
			row{"n  Normal     ten questions", styleText},
			row{"t  Timed      sixty seconds, +2s per right answer", styleText},
			row{"s  Survival   endless, three lives", styleText},
			row{"b  Blitz      three seconds per question", styleText},
			row{},
			row{"q  quit", styleDim},
		)
		return a.withNotice(out)
	}

	out = append(out,
		row{statusLine(st), styleText},
		row{fmt.Sprintf("Level %d  %s  (%s)", st.Level, st.Rule, st.Category), styleDim},
		row{},
		row{chainLine(st), styleText},
		row{},
	)
	out = append(out, a.choiceRows(st)...)
	out = append(out, row{})

	switch {
	case st.Result.Terminal():
		out = append(out, resultRows(st)...)
	case st.IsCorrectAnswer == emojichain.Correct:
		out = append(out, row{bonusLine(st), styleGood})
	case st.IsCorrectAnswer == emojichain.Incorrect:
		out = append(out, row{"Wrong! It was " + st.CorrectAnswer, styleBad})
	case !st.Deadline.IsZero():
		left := max(st.Deadline.Sub(a.now()), 0)
		out = append(out, row{fmt.Sprintf("Time left: %.1fs", left.Seconds()), styleWarn})
	}

	out = append(out, row{}, row{"1-4 choose   r home   q quit", styleDim})
	return a.withNotice(out)
}

func (a *app) withNotice(out []row) []row {
	if a.notice == "" {
		return out
	}
	return append(out, row{}, row{a.notice, styleWarn})
}

func (a *app) choiceRows(st emojichain.GameState) []row {
	answered := st.IsCorrectAnswer != emojichain.Unanswered || st.Result.Terminal()
	rows := make([]row, 0, len(st.Choices))
	for i, c := range st.Choices {
		style := styleText
		if answered {
			style = styleDim
			if c == st.CorrectAnswer {
				style = styleGood
			}
		}
		rows = append(rows, row{fmt.Sprintf("[%d] %s", i+1, c), style})
	}
	return rows
}

func statusLine(st emojichain.GameState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score %d   Best %d   ", st.Score, st.HighScore)
	if st.Unlimited() {
		fmt.Fprintf(&b, "Question %d", st.QuestionNumber)
	} else {
		fmt.Fprintf(&b, "Question %d/%d", st.QuestionNumber, st.TotalQuestions)
	}
	if cfg, ok := session.ConfigFor(st.Mode); ok && cfg.UsesLives {
		fmt.Fprintf(&b, "   Lives %s", strings.Repeat("♥", st.Lives))
	}
	if st.CurrentStreakCount > 1 {
		fmt.Fprintf(&b, "   Streak x%d", st.CurrentStreakCount)
	}
	return b.String()
}

func chainLine(st emojichain.GameState) string {
	return strings.Join(append(append([]string{}, st.EmojiChain...), "?"), "  →  ")
}

func bonusLine(st emojichain.GameState) string {
	s := "Correct!"
	if st.CurrentTimeBonus > 0 {
		s += fmt.Sprintf("  time +%d", st.CurrentTimeBonus)
	}
	if st.CurrentStreakBonus > 0 {
		s += fmt.Sprintf("  streak +%d", st.CurrentStreakBonus)
	}
	return s
}

func resultRows(st emojichain.GameState) []row {
	var out []row
	switch st.Result.Kind {
	case emojichain.ResultWon:
		out = append(out, row{fmt.Sprintf("You finished with %d points!", st.Score), styleGood})
	case emojichain.ResultLost:
		out = append(out, row{lossText(st.Result.Reason) + fmt.Sprintf(" Final score %d.", st.Score), styleBad})
	case emojichain.ResultAdContinueOffered:
		out = append(out,
			row{lossText(st.Result.Reason), styleBad},
			row{"Press a to watch an ad and keep going.", styleWarn},
		)
	}
	if st.Score > 0 && st.Score >= st.HighScore {
		out = append(out, row{"New high score!", styleTitle})
	}
	if st.ShowInterstitial {
		out = append(out, row{"[ advertisement ]", styleReverse})
	}
	return append(out, row{"n/t/s/b play again", styleDim})
}

func lossText(reason emojichain.LossReason) string {
	if reason == emojichain.LossTimeOut {
		return "Time's up!"
	}
	return "Out of lives!"
}

// drawText writes s one grapheme cluster per cell run, so emoji built from
// several code points keep their width.
func drawText(screen tcell.Screen, x, y int, style tcell.Style, s string) {
	w, _ := screen.Size()
	g := uniseg.NewGraphemes(s)
	for g.Next() && x < w {
		rs := g.Runes()
		screen.SetContent(x, y, rs[0], rs[1:], style)
		x += max(g.Width(), 1)
	}
}
