package generator

import (
	"math/rand/v2"
	"slices"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/emojichain"
)

// QuestionGenerator builds a complete question from a set of available
// emoji. Each implementation retries a bounded number of times and reports
// false once its budget is spent.
type QuestionGenerator interface {
	Question(available []string, level int) (q emojichain.Question, ok bool)
}

const (
	questionAttempts = 20
	mixUpAttempts    = 10
	minChoices       = 3
)

func acceptable(q emojichain.Question) bool {
	return q.Valid() && len(q.Choices) >= minChoices
}

// outside returns the catalog emoji not in pool.
func outside(cat *catalog.Catalog, pool []string) []string {
	return filter(cat.AllEmojis(), exclude(pool))
}

// SequentialQuestions walks the available emoji with a level-derived step.
type SequentialQuestions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewSequentialQuestions(rng *rand.Rand, cat *catalog.Catalog) *SequentialQuestions {
	return &SequentialQuestions{rng: rng, cat: cat}
}

// sequentialShapes holds the chain length and step for levels 1 to 8.
var sequentialShapes = [...][2]int{
	{3, 1}, {4, 1}, {5, 1},
	{3, 2}, {4, 2}, {5, 2},
	{3, 3}, {4, 3},
}

func (g *SequentialQuestions) Question(available []string, level int) (emojichain.Question, bool) {
	pool := filter(available, nil)
	if len(pool) < 3 {
		return emojichain.Question{}, false
	}
	others := outside(g.cat, pool)

	for range questionAttempts {
		q := g.candidate(pool, others, level)
		if acceptable(q) {
			return q, true
		}
	}
	return emojichain.Question{}, false
}

func (g *SequentialQuestions) candidate(pool, others []string, level int) emojichain.Question {
	length, step := 5, 1+g.rng.IntN(3)
	if level >= 1 && level <= len(sequentialShapes) {
		length, step = sequentialShapes[level-1][0], sequentialShapes[level-1][1]
	}
	n := len(pool)
	length = min(length, n-1, 5)
	if !cyclicWalk(n, step, length) {
		step = 1
	}

	start := g.rng.IntN(n)
	chain := make([]string, length)
	for i := range chain {
		chain[i] = pool[(start+i*step)%n]
	}
	answer := pool[(start+length*step)%n]

	want := 2
	if level > 3 {
		want = 3
	}
	ex := exclude(chain, []string{answer})
	var ds []string
	switch {
	case level <= 3:
		ds = draw(g.rng, want, ex, others)
		ds = append(ds, draw(g.rng, want-len(ds), ex, pool)...)
	case level <= 6:
		ds = draw(g.rng, 1, ex, pool)
		ds = append(ds, draw(g.rng, want-len(ds), ex, others)...)
		ds = append(ds, draw(g.rng, want-len(ds), ex, pool)...)
	default:
		ds = draw(g.rng, want, ex, pool)
		ds = append(ds, draw(g.rng, want-len(ds), ex, others)...)
	}
	return emojichain.Question{Chain: chain, Choices: withAnswer(g.rng, answer, ds), Answer: answer}
}

// OppositeQuestions builds opposite walks over the available emoji.
type OppositeQuestions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewOppositeQuestions(rng *rand.Rand, cat *catalog.Catalog) *OppositeQuestions {
	return &OppositeQuestions{rng: rng, cat: cat}
}

var oppositeLengths = [...]int{2, 3, 3, 4, 4, 5}

func (g *OppositeQuestions) Question(available []string, level int) (emojichain.Question, bool) {
	length := oppositeLengths[min(max(level, 1), len(oppositeLengths))-1]

	for range questionAttempts {
		chain, answer, ok := oppositeWalk(g.rng, g.cat, available, length)
		if !ok {
			continue
		}

		ex := exclude(chain)
		if o, ok := g.cat.Opposite(answer); ok {
			ex.add(o)
		}
		var related []string
		for _, e := range chain {
			if o, ok := g.cat.Opposite(e); ok {
				related = append(related, o)
			}
		}

		quota := 0
		switch {
		case level >= 5:
			quota = targetChoices - 2
		case level >= 3:
			quota = 1
		}
		random := append(slices.Clone(available), g.cat.AllEmojis()...)
		q := emojichain.Question{
			Chain:   chain,
			Choices: blend(g.rng, answer, targetChoices-1, quota, ex, related, random),
			Answer:  answer,
		}
		if acceptable(q) {
			return q, true
		}
	}
	return emojichain.Question{}, false
}

// MixUpQuestions serves the catalog's predefined association chains.
type MixUpQuestions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewMixUpQuestions(rng *rand.Rand, cat *catalog.Catalog) *MixUpQuestions {
	return &MixUpQuestions{rng: rng, cat: cat}
}

const maxMixUpLength = 4

func (g *MixUpQuestions) Question(available []string, level int) (emojichain.Question, bool) {
	var cands []catalog.MixUp
	for _, m := range g.cat.MixUps() {
		_, answer := m.Question()
		if m.Difficulty <= level && len(m.Chain)-1 <= maxMixUpLength && slices.Contains(available, answer) {
			cands = append(cands, m)
		}
	}
	if len(cands) == 0 {
		return emojichain.Question{}, false
	}

	random := append(slices.Clone(available), g.cat.AllEmojis()...)
	for range mixUpAttempts {
		chain, answer := cands[g.rng.IntN(len(cands))].Question()

		var related []string
		quota := 0
		if level >= 2 {
			for _, e := range chain {
				for _, name := range g.cat.CategoriesOf(e) {
					c, _ := g.cat.Category(name)
					related = append(related, c.Emojis...)
				}
			}
			quota = targetChoices - 1
		}
		q := emojichain.Question{
			Chain:   chain,
			Choices: blend(g.rng, answer, targetChoices-1, quota, exclude(chain), related, random),
			Answer:  answer,
		}
		if acceptable(q) {
			return q, true
		}
	}
	return emojichain.Question{}, false
}

// SynonymQuestions draws a chain from one synonym group restricted to the
// available emoji.
type SynonymQuestions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewSynonymQuestions(rng *rand.Rand, cat *catalog.Catalog) *SynonymQuestions {
	return &SynonymQuestions{rng: rng, cat: cat}
}

func (g *SynonymQuestions) Question(available []string, level int) (emojichain.Question, bool) {
	var groups [][]string
	for _, grp := range g.cat.SynonymGroups() {
		members := within(grp, available)
		if len(members) >= 3 {
			groups = append(groups, members)
		}
	}
	if len(groups) == 0 {
		return emojichain.Question{}, false
	}

	length := 2
	switch {
	case level >= 5:
		length = 4
	case level >= 3:
		length = 3
	}

	quota := 0
	switch {
	case level >= 5:
		quota = targetChoices - 1
	case level >= 3:
		quota = 1
	}

	random := append(slices.Clone(available), g.cat.AllEmojis()...)
	for range questionAttempts {
		members := shuffled(g.rng, groups[g.rng.IntN(len(groups))])
		n := min(length, len(members)-1)
		chain := slices.Clone(members[:n])
		answer := members[n]

		// Any member of the answer's group would also be correct.
		ex := exclude(chain)
		own, _ := g.cat.SynonymGroup(answer)
		ex.add(own...)

		var related []string
		for _, grp := range g.cat.SynonymGroups() {
			if !slices.Contains(grp, answer) {
				related = append(related, grp...)
			}
		}
		q := emojichain.Question{
			Chain:   chain,
			Choices: blend(g.rng, answer, targetChoices-1, quota, ex, related, random),
			Answer:  answer,
		}
		if acceptable(q) {
			return q, true
		}
	}
	return emojichain.Question{}, false
}

// within returns the distinct members of group present in pool.
func within(group, pool []string) []string {
	var out []string
	for _, e := range filter(group, nil) {
		if slices.Contains(pool, e) {
			out = append(out, e)
		}
	}
	return out
}
