package generator

import (
	"math/rand/v2"
	"slices"

	"github.com/playperu/emojichain/internal/catalog"
)

// OptionGenerator returns the shuffled choices for a chain: the answer
// exactly once plus up to three distractors. Distractors never repeat the
// answer or a chain element; when too few qualify the result shrinks.
type OptionGenerator interface {
	Options(answer string, category catalog.Category, chain []string, level int) []string
}

// relatedQuota is how many related distractors the option generators ask
// for at a level.
func relatedQuota(level int) int {
	switch {
	case level <= 2:
		return 0
	case level == 3:
		return 1
	default:
		return targetChoices - 1
	}
}

// blend picks up to want distractors: at most quota from the related pool,
// the rest from the random pool, topping up from the related pool when the
// random one runs dry. The answer is added and the result shuffled.
func blend(rng *rand.Rand, answer string, want, quota int, ex exclusion, related, random []string) []string {
	ex.add(answer)
	ds := draw(rng, min(quota, want), ex, related)
	ds = append(ds, draw(rng, want-len(ds), ex, random)...)
	ds = append(ds, draw(rng, want-len(ds), ex, related)...)
	return withAnswer(rng, answer, ds)
}

// SequentialOptions favours emoji that sit near the end of the chain.
type SequentialOptions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewSequentialOptions(rng *rand.Rand, cat *catalog.Catalog) *SequentialOptions {
	return &SequentialOptions{rng: rng, cat: cat}
}

func (g *SequentialOptions) Options(answer string, category catalog.Category, chain []string, level int) []string {
	ex := exclude(chain, []string{answer})
	want := targetChoices - 1
	others := g.cat.OtherEmojis(category.Name)

	if level <= 1 {
		return withAnswer(g.rng, answer, draw(g.rng, want, ex, others))
	}

	var ds []string
	emojis := category.Emojis
	if n := len(emojis); n > 0 && len(chain) > 0 {
		if last := slices.Index(emojis, chain[len(chain)-1]); last >= 0 {
			for range 20 {
				if len(ds) == want {
					break
				}
				off := g.rng.IntN(5) + 1
				if g.rng.IntN(2) == 0 {
					off = -off
				}
				e := emojis[((last+off)%n+n)%n]
				if !ex.has(e) {
					ex.add(e)
					ds = append(ds, e)
				}
			}
		}
	}
	ds = append(ds, draw(g.rng, want-len(ds), ex, emojis)...)
	ds = append(ds, draw(g.rng, want-len(ds), ex, others)...)
	return withAnswer(g.rng, answer, ds)
}

// OppositeOptions uses the opposites of chain elements as related
// distractors. The answer's own opposite is never offered.
type OppositeOptions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewOppositeOptions(rng *rand.Rand, cat *catalog.Catalog) *OppositeOptions {
	return &OppositeOptions{rng: rng, cat: cat}
}

func (g *OppositeOptions) Options(answer string, category catalog.Category, chain []string, level int) []string {
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
	return blend(g.rng, answer, targetChoices-1, relatedQuota(level), ex, related, g.cat.AllEmojis())
}

// MixUpOptions draws related distractors from categories that overlap the
// chain's source categories, never from the sources themselves.
type MixUpOptions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewMixUpOptions(rng *rand.Rand, cat *catalog.Catalog) *MixUpOptions {
	return &MixUpOptions{rng: rng, cat: cat}
}

func (g *MixUpOptions) Options(answer string, category catalog.Category, chain []string, level int) []string {
	sources := map[string]bool{category.Name: true}
	for _, e := range chain {
		for _, name := range g.cat.CategoriesOf(e) {
			sources[name] = true
		}
	}

	ex := exclude(chain)
	var sourceEmojis []string
	for _, c := range g.cat.Categories() {
		if sources[c.Name] {
			sourceEmojis = append(sourceEmojis, c.Emojis...)
		}
	}
	ex.add(sourceEmojis...)

	var related []string
	for _, c := range g.cat.Categories() {
		if sources[c.Name] {
			continue
		}
		if slices.ContainsFunc(c.Emojis, func(e string) bool { return slices.Contains(sourceEmojis, e) }) {
			related = append(related, c.Emojis...)
		}
	}
	return blend(g.rng, answer, targetChoices-1, relatedQuota(level), ex, related, g.cat.AllEmojis())
}

// SynonymOptions draws related distractors from other synonym groups. The
// answer's own group is never offered since any member would be correct.
type SynonymOptions struct {
	rng *rand.Rand
	cat *catalog.Catalog
}

func NewSynonymOptions(rng *rand.Rand, cat *catalog.Catalog) *SynonymOptions {
	return &SynonymOptions{rng: rng, cat: cat}
}

func (g *SynonymOptions) Options(answer string, category catalog.Category, chain []string, level int) []string {
	ex := exclude(chain)
	own, _ := g.cat.SynonymGroup(answer)
	ex.add(own...)

	var related []string
	for _, grp := range g.cat.SynonymGroups() {
		if !slices.Contains(grp, answer) {
			related = append(related, grp...)
		}
	}
	return blend(g.rng, answer, targetChoices-1, relatedQuota(level), ex, related, g.cat.AllEmojis())
}
