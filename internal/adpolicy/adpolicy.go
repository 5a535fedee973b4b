// Package adpolicy decides when a player is offered a rewarded continue and
// when a finished game should be followed by an interstitial. It only emits
// signals; showing ads is up to the client.
package adpolicy

import (
	"sync"

	"github.com/playperu/emojichain/internal/emojichain"
)

// Policy counts completed games per player. The zero value offers no
// continues and never asks for an interstitial.
type Policy struct {
	maxContinues int
	every        int

	mu         sync.Mutex
	completed  int
	homeReturn bool
}

// New returns a policy that offers up to maxContinues continues per game
// and an interstitial after every nth completed game. every <= 0 disables
// interstitials.
func New(maxContinues, every int) *Policy {
	return &Policy{maxContinues: maxContinues, every: every}
}

// OfferContinue reports whether a lost game may be continued after a
// rewarded ad. Every mode follows the same limit.
func (p *Policy) OfferContinue(_ emojichain.Mode, continuesUsed int) bool {
	return continuesUsed < p.maxContinues
}

// GameCompleted records a finished game and reports whether an
// interstitial is due.
func (p *Policy) GameCompleted(emojichain.Mode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	return p.every > 0 && p.completed%p.every == 0
}

// Completed returns how many games have finished under this policy.
func (p *Policy) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// MarkHomeReturn records that the player left a result screen, so the next
// visit to the home screen may show an interstitial.
func (p *Policy) MarkHomeReturn() {
	p.mu.Lock()
	p.homeReturn = true
	p.mu.Unlock()
}

// ShowOnHomeReturn reports and clears the flag set by MarkHomeReturn.
func (p *Policy) ShowOnHomeReturn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	show := p.homeReturn
	p.homeReturn = false
	return show
}
