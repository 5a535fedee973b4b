// Package feedback provides sinks for the correct and incorrect answer
// signals a session emits. Sinks are fire and forget: they never block the
// session for long and never report errors back.
package feedback

import (
	"log/slog"
	"sync/atomic"
)

// Sink matches session.FeedbackSink.
type Sink interface {
	PlayCorrect()
	PlayIncorrect()
}

// Kind names a feedback signal.
type Kind string

const (
	Correct   Kind = "correct"
	Incorrect Kind = "incorrect"
)

// Nop drops every signal.
type Nop struct{}

func (Nop) PlayCorrect()   {}
func (Nop) PlayIncorrect() {}

// Func adapts a function to Sink. The server uses it to forward signals to
// event subscribers.
type Func func(Kind)

func (f Func) PlayCorrect()   { f(Correct) }
func (f Func) PlayIncorrect() { f(Incorrect) }

// Multi fans each signal out to every sink in order.
type Multi []Sink

func (m Multi) PlayCorrect() {
	for _, s := range m {
		s.PlayCorrect()
	}
}

func (m Multi) PlayIncorrect() {
	for _, s := range m {
		s.PlayIncorrect()
	}
}

// Logger writes each signal as a debug line and counts them.
type Logger struct {
	logger    *slog.Logger
	correct   atomic.Int64
	incorrect atomic.Int64
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) PlayCorrect() {
	n := l.correct.Add(1)
	l.logger.Debug("feedback", "kind", Correct, "count", n)
}

func (l *Logger) PlayIncorrect() {
	n := l.incorrect.Add(1)
	l.logger.Debug("feedback", "kind", Incorrect, "count", n)
}

// Counts returns how many signals of each kind were received.
func (l *Logger) Counts() (correct, incorrect int64) {
	return l.correct.Load(), l.incorrect.Load()
}
