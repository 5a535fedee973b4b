package generator

import (
	"math/rand/v2"
	"slices"
)

// targetChoices is the number of choices shown when enough distractors exist.
const targetChoices = 4

// exclusion is the set of emoji a generator may no longer hand out.
type exclusion map[string]struct{}

func exclude(groups ...[]string) exclusion {
	ex := make(exclusion)
	for _, g := range groups {
		ex.add(g...)
	}
	return ex
}

func (ex exclusion) add(emojis ...string) {
	for _, e := range emojis {
		ex[e] = struct{}{}
	}
}

func (ex exclusion) has(e string) bool {
	_, ok := ex[e]
	return ok
}

// filter returns the distinct members of pool not in ex, in pool order.
func filter(pool []string, ex exclusion) []string {
	seen := make(map[string]struct{}, len(pool))
	var out []string
	for _, e := range pool {
		if e == "" || ex.has(e) {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// draw takes up to n random distinct members of pool that are not yet
// excluded and excludes them.
func draw(r *rand.Rand, n int, ex exclusion, pool []string) []string {
	if n <= 0 {
		return nil
	}
	cands := shuffled(r, filter(pool, ex))
	if len(cands) > n {
		cands = cands[:n]
	}
	ex.add(cands...)
	return cands
}

func shuffled(r *rand.Rand, s []string) []string {
	out := slices.Clone(s)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func pick(r *rand.Rand, s []string) string {
	return s[r.IntN(len(s))]
}

// withAnswer returns the answer and distractors in random order.
func withAnswer(r *rand.Rand, answer string, distractors []string) []string {
	out := make([]string, 0, len(distractors)+1)
	out = append(out, answer)
	out = append(out, distractors...)
	return shuffled(r, out)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// cyclicWalk reports whether stepping through n slots by step visits
// length+1 distinct positions.
func cyclicWalk(n, step, length int) bool {
	return n > 0 && step > 0 && n/gcd(n, step) >= length+1
}
