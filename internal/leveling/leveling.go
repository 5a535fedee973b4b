// Package leveling maps progress to a difficulty level and picks the rule
// and category for each round.
package leveling

import (
	"math/rand/v2"
	"slices"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/emojichain"
)

// QuestionsPerLevel is how many answered questions raise the level by one.
const QuestionsPerLevel = 5

// Level returns floor(answered/5)+1. Negative input counts as zero.
func Level(answered int) int {
	return max(answered, 0)/QuestionsPerLevel + 1
}

const oppositeCategory = "Emotions"

var synonymCategories = []string{"Faces", "Emotions"}

// Policy selects a rule and category per level. It may be pinned to a rule
// or a category.
type Policy struct {
	cat      *catalog.Catalog
	rng      *rand.Rand
	rule     *emojichain.Rule
	category string
}

type Option func(*Policy)

// WithRule pins every selection to rule, skipping the applicability check.
func WithRule(rule emojichain.Rule) Option {
	return func(p *Policy) { p.rule = &rule }
}

// WithCategory pins every selection to the named category. A name the
// catalog does not know yields an empty category.
func WithCategory(name string) Option {
	return func(p *Policy) { p.category = name }
}

func New(cat *catalog.Catalog, rng *rand.Rand, opts ...Option) *Policy {
	p := &Policy{cat: cat, rng: rng}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Applicable returns the rules the catalog has data for.
func (p *Policy) Applicable() []emojichain.Rule {
	var nonEmpty, opposite, synonym bool
	for _, c := range p.cat.Categories() {
		if !c.Empty() {
			nonEmpty = true
		}
		for _, e := range c.Emojis {
			if p.cat.HasOpposite(e) {
				opposite = true
			}
			if _, ok := p.cat.SynonymGroup(e); ok {
				synonym = true
			}
		}
	}

	var out []emojichain.Rule
	for _, r := range emojichain.Rules() {
		switch r {
		case emojichain.RuleSequential, emojichain.RuleMixUp:
			if nonEmpty {
				out = append(out, r)
			}
		case emojichain.RuleOpposite:
			if opposite {
				out = append(out, r)
			}
		case emojichain.RuleSynonym:
			if synonym {
				out = append(out, r)
			}
		}
	}
	return out
}

// Rules narrows the applicable rules to the level band: level 1 prefers
// Sequential, levels 2 and 3 leave out Opposite, later levels allow all.
func (p *Policy) Rules(level int) []emojichain.Rule {
	applicable := p.Applicable()
	var banded []emojichain.Rule
	switch {
	case level <= 1:
		if slices.Contains(applicable, emojichain.RuleSequential) {
			banded = []emojichain.Rule{emojichain.RuleSequential}
		}
	case level <= 3:
		for _, r := range applicable {
			if r != emojichain.RuleOpposite {
				banded = append(banded, r)
			}
		}
	default:
		banded = applicable
	}
	if len(banded) == 0 {
		banded = applicable
	}
	return banded
}

// Select returns the rule and category for a round at level.
func (p *Policy) Select(level int) (emojichain.Rule, catalog.Category) {
	rule := emojichain.RuleSequential
	switch {
	case p.rule != nil:
		rule = *p.rule
	default:
		if rules := p.Rules(level); len(rules) > 0 {
			rule = rules[p.rng.IntN(len(rules))]
		}
	}
	return rule, p.categoryFor(rule)
}

func (p *Policy) categoryFor(rule emojichain.Rule) catalog.Category {
	if p.category != "" {
		c, ok := p.cat.Category(p.category)
		if !ok {
			return catalog.Category{Name: p.category}
		}
		return c
	}

	all := p.cat.Categories()
	switch rule {
	case emojichain.RuleOpposite:
		if c, ok := p.cat.Category(oppositeCategory); ok && slices.ContainsFunc(c.Emojis, p.cat.HasOpposite) {
			return c
		}
		if c, ok := p.random(all, func(c catalog.Category) bool { return slices.ContainsFunc(c.Emojis, p.cat.HasOpposite) }); ok {
			return c
		}
	case emojichain.RuleSynonym:
		hasSynonym := func(c catalog.Category) bool {
			return slices.ContainsFunc(c.Emojis, func(e string) bool {
				_, ok := p.cat.SynonymGroup(e)
				return ok
			})
		}
		var pool []catalog.Category
		for _, name := range synonymCategories {
			if c, ok := p.cat.Category(name); ok && hasSynonym(c) {
				pool = append(pool, c)
			}
		}
		if len(pool) > 0 {
			return pool[p.rng.IntN(len(pool))]
		}
		if c, ok := p.random(all, hasSynonym); ok {
			return c
		}
	}

	if c, ok := p.random(all, func(c catalog.Category) bool { return !c.Empty() }); ok {
		return c
	}
	return all[p.rng.IntN(len(all))]
}

func (p *Policy) random(cats []catalog.Category, keep func(catalog.Category) bool) (catalog.Category, bool) {
	var cands []catalog.Category
	for _, c := range cats {
		if keep(c) {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		return catalog.Category{}, false
	}
	return cands[p.rng.IntN(len(cands))], true
}
