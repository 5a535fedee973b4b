// Package generator builds emoji chain questions. Chain generators produce a
// chain and its answer for a category, option generators add distractors,
// and question generators do both with bounded retry loops. Strategies tie
// them to a rule.
//
// Generators hold a *rand.Rand and are not safe for concurrent use.
package generator

import (
	"math/rand/v2"
	"slices"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/emojichain"
)

// ChainGenerator builds a chain and its answer. Choices are left empty.
// ok is false when the category cannot support the rule.
type ChainGenerator interface {
	Chain(category catalog.Category, level int) (q emojichain.Question, ok bool)
}

// SequentialChain walks a category cyclically.
type SequentialChain struct {
	rng *rand.Rand
}

func NewSequentialChain(rng *rand.Rand) *SequentialChain {
	return &SequentialChain{rng: rng}
}

func (g *SequentialChain) Chain(category catalog.Category, level int) (emojichain.Question, bool) {
	emojis := category.Emojis
	n := len(emojis)
	if n < 2 {
		return emojichain.Question{}, false
	}

	length := min(sequentialLength(g.rng, level), n-1)

	offset, step := 0, 1
	if level >= 2 {
		offset = g.rng.IntN(n)
	}
	if level >= 3 && g.rng.IntN(2) == 1 && cyclicWalk(n, 2, length) {
		step = 2
	}

	chain := make([]string, length)
	for i := range chain {
		chain[i] = emojis[(offset+i*step)%n]
	}
	answer := emojis[(offset+length*step)%n]
	if slices.Contains(chain, answer) {
		return emojichain.Question{}, false
	}
	return emojichain.Question{Chain: chain, Answer: answer}, true
}

func sequentialLength(rng *rand.Rand, level int) int {
	switch {
	case level <= 1:
		return 3
	case level == 2:
		return 4
	case level == 3:
		return 5
	default:
		return 6 + rng.IntN(3)
	}
}

// OppositeChain follows the opposite table.
type OppositeChain struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewOppositeChain(rng *rand.Rand, cat *catalog.Catalog) *OppositeChain {
	return &OppositeChain{rng: rng, cat: cat}
}

func (g *OppositeChain) Chain(category catalog.Category, level int) (emojichain.Question, bool) {
	length := 2
	switch {
	case level == 2:
		length = 3
	case level == 3:
		length = 4
	case level >= 4:
		length = 4 + g.rng.IntN(2)
	}
	chain, answer, ok := oppositeWalk(g.rng, g.cat, category.Emojis, length)
	if !ok {
		return emojichain.Question{}, false
	}
	return emojichain.Question{Chain: chain, Answer: answer}, true
}

type oppositePair struct {
	sides []string
}

// oppositeWalk builds a chain over the members of pool that have an
// opposite. Counting back from the last element, even positions start a
// fresh pair and odd positions repeat the opposite of the element before
// them. The answer is the opposite of the last element, which starts a pair
// of its own and so never appears earlier in the chain. Length is capped at
// 2*pairs-1.
func oppositeWalk(rng *rand.Rand, cat *catalog.Catalog, pool []string, length int) ([]string, string, bool) {
	var valid []string
	for _, e := range filter(pool, nil) {
		if cat.HasOpposite(e) {
			valid = append(valid, e)
		}
	}
	if len(valid) < 2 || length < 1 {
		return nil, "", false
	}

	var pairs []*oppositePair
	byKey := make(map[[2]string]*oppositePair)
	for _, e := range valid {
		o, _ := cat.Opposite(e)
		key := [2]string{min(e, o), max(e, o)}
		p, ok := byKey[key]
		if !ok {
			p = &oppositePair{}
			byKey[key] = p
			pairs = append(pairs, p)
		}
		p.sides = append(p.sides, e)
	}
	rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })

	length = min(length, 2*len(pairs)-1)
	chain := make([]string, length)
	next := 0
	for i := range chain {
		back := length - 1 - i
		if back%2 == 1 && i > 0 {
			chain[i], _ = cat.Opposite(chain[i-1])
			continue
		}
		chain[i] = pick(rng, pairs[next].sides)
		next++
	}

	answer, _ := cat.Opposite(chain[length-1])
	if slices.Contains(chain, answer) || len(filter(chain, nil)) != len(chain) {
		return nil, "", false
	}
	return chain, answer, true
}

// MixUpChain blends the category with one other random category.
type MixUpChain struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewMixUpChain(rng *rand.Rand, cat *catalog.Catalog) *MixUpChain {
	return &MixUpChain{rng: rng, cat: cat}
}

func (g *MixUpChain) Chain(category catalog.Category, level int) (emojichain.Question, bool) {
	if category.Empty() {
		return emojichain.Question{}, false
	}
	var others []catalog.Category
	for _, c := range g.cat.Categories() {
		if c.Name != category.Name && !c.Empty() {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		return emojichain.Question{}, false
	}
	other := others[g.rng.IntN(len(others))]

	perCategory := 2
	if level >= 3 {
		perCategory = 3
	}

	ex := make(exclusion)
	var chain []string
	chain = append(chain, draw(g.rng, perCategory, ex, category.Emojis)...)
	chain = append(chain, draw(g.rng, perCategory, ex, other.Emojis)...)
	chain = shuffled(g.rng, chain)

	rest := filter(append(slices.Clone(category.Emojis), other.Emojis...), ex)
	if len(chain) == 0 || len(rest) == 0 {
		return emojichain.Question{}, false
	}
	return emojichain.Question{Chain: chain, Answer: pick(g.rng, rest)}, true
}

// SynonymChain samples one synonym group.
type SynonymChain struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewSynonymChain(rng *rand.Rand, cat *catalog.Catalog) *SynonymChain {
	return &SynonymChain{rng: rng, cat: cat}
}

// synonymPool lists the categories whose emoji stand in for a category that
// holds no synonyms of its own.
var synonymPool = []string{"Faces", "Emotions"}

func (g *SynonymChain) Chain(category catalog.Category, level int) (emojichain.Question, bool) {
	groups := groupsWithin(g.cat, category.Emojis, 2)
	if len(groups) == 0 {
		var pool []string
		for _, name := range synonymPool {
			if c, ok := g.cat.Category(name); ok {
				pool = append(pool, c.Emojis...)
			}
		}
		groups = groupsWithin(g.cat, pool, 2)
	}
	if len(groups) == 0 {
		return emojichain.Question{}, false
	}

	group := shuffled(g.rng, groups[g.rng.IntN(len(groups))])
	length := 2
	switch {
	case level == 2:
		length = 3
	case level == 3:
		length = 4
	case level >= 4:
		length = 3 + g.rng.IntN(2)
	}
	length = min(length, len(group)-1)

	chain := slices.Clone(group[:length])
	return emojichain.Question{Chain: chain, Answer: group[length]}, true
}

// groupsWithin returns the synonym groups with at least n members in pool.
func groupsWithin(cat *catalog.Catalog, pool []string, n int) [][]string {
	var out [][]string
	for _, g := range cat.SynonymGroups() {
		hits := 0
		for _, e := range g {
			if slices.Contains(pool, e) {
				hits++
			}
		}
		if hits >= n {
			out = append(out, g)
		}
	}
	return out
}
