package feedback

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

type note struct {
	freq float64
	dur  time.Duration
}

var (
	// Rising major third.
	correctNotes = []note{{659.25, 70 * time.Millisecond}, {830.61, 110 * time.Millisecond}}
	// Falling minor second, low.
	incorrectNotes = []note{{196, 120 * time.Millisecond}, {185, 160 * time.Millisecond}}
)

// Speaker plays short tones through the system audio device. Until
// Initialize succeeds every Play call is a no-op, so a machine without
// audio still runs the game.
type Speaker struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	initialized bool
}

// NewSpeaker returns an uninitialized speaker. volume is in beep's
// logarithmic base-2 scale: 0 is unchanged, -1 halves the amplitude.
func NewSpeaker(volume float64) *Speaker {
	return &Speaker{mixer: &beep.Mixer{}, volume: volume}
}

// Initialize opens the audio device. Calling it again is a no-op.
func (s *Speaker) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("initializing speaker: %w", err)
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

// Close silences pending tones and releases the device.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	s.initialized = false
}

func (s *Speaker) PlayCorrect()   { s.play(correctNotes) }
func (s *Speaker) PlayIncorrect() { s.play(incorrectNotes) }

func (s *Speaker) play(notes []note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}
	st, err := melody(sampleRate, s.volume, notes)
	if err != nil {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// melody renders notes back to back as sine tones.
func melody(sr beep.SampleRate, volume float64, notes []note) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		sine, err := generators.SineTone(sr, n.freq)
		if err != nil {
			return nil, fmt.Errorf("tone %.2f Hz: %w", n.freq, err)
		}
		parts = append(parts, beep.Take(sr.N(n.dur), sine))
	}
	return &effects.Volume{
		Streamer: beep.Seq(parts...),
		Base:     2,
		Volume:   volume,
	}, nil
}
