package adpolicy_test

import (
	"testing"

	"github.com/playperu/emojichain/internal/adpolicy"
	"github.com/playperu/emojichain/internal/emojichain"
)

func TestOfferContinue(t *testing.T) {
	tests := []struct {
		name string
		max  int
		used int
		want bool
	}{
		{"first loss", 1, 0, true},
		{"limit reached", 1, 1, false},
		{"two allowed", 2, 1, true},
		{"disabled", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := adpolicy.New(tt.max, 0)
			if got := p.OfferContinue(emojichain.ModeSurvival, tt.used); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGameCompletedEveryN(t *testing.T) {
	p := adpolicy.New(1, 3)
	var got []bool
	for range 7 {
		got = append(got, p.GameCompleted(emojichain.ModeNormal))
	}
	want := []bool{false, false, true, false, false, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if p.Completed() != 7 {
		t.Errorf("completed = %d, want 7", p.Completed())
	}

	var zero adpolicy.Policy
	if zero.GameCompleted(emojichain.ModeBlitz) {
		t.Error("zero policy asked for an interstitial")
	}
	if zero.OfferContinue(emojichain.ModeBlitz, 0) {
		t.Error("zero policy offered a continue")
	}
}

func TestHomeReturn(t *testing.T) {
	p := adpolicy.New(1, 0)
	if p.ShowOnHomeReturn() {
		t.Fatal("flag set before MarkHomeReturn")
	}
	p.MarkHomeReturn()
	if !p.ShowOnHomeReturn() {
		t.Fatal("flag not set after MarkHomeReturn")
	}
	if p.ShowOnHomeReturn() {
		t.Error("flag not cleared after reading")
	}
}
