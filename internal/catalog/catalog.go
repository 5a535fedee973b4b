// Package catalog holds the read-only emoji data the generators draw from:
// named categories, the opposite table, synonym groups and the predefined
// association chains used by mix-up questions.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultYAML []byte

var ErrEmptyCatalog = errors.New("catalog has no categories")

// Category is a named, ordered list of emoji.
type Category struct {
	Name   string   `yaml:"name" json:"name"`
	Emojis []string `yaml:"emojis" json:"emojis"`
}

// Empty reports whether the category has no emoji to draw from.
func (c Category) Empty() bool { return len(c.Emojis) == 0 }

// MixUp is a predefined association chain. Answer is the index of the
// element that is removed from Chain and becomes the correct answer.
type MixUp struct {
	Chain      []string `yaml:"chain" json:"chain"`
	Answer     int      `yaml:"answer" json:"answer"`
	Difficulty int      `yaml:"difficulty" json:"difficulty"`
}

// Question returns the chain without the answer element and the answer.
func (m MixUp) Question() ([]string, string) {
	q := make([]string, 0, len(m.Chain)-1)
	q = append(q, m.Chain[:m.Answer]...)
	q = append(q, m.Chain[m.Answer+1:]...)
	return q, m.Chain[m.Answer]
}

type document struct {
	Categories []Category `yaml:"categories"`
	Opposites  [][]string `yaml:"opposites"`
	Synonyms   [][]string `yaml:"synonyms"`
	MixUps     []MixUp    `yaml:"mixups"`
}

// Catalog is immutable once constructed. All accessors return copies.
type Catalog struct {
	categories []Category
	byName     map[string]int
	opposites  map[string]string
	synonyms   [][]string
	groupOf    map[string]int
	mixups     []MixUp
	all        []string
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultYAML))
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML catalog and validates it.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	pairs := make([][2]string, 0, len(doc.Opposites))
	for i, p := range doc.Opposites {
		if len(p) != 2 {
			return nil, fmt.Errorf("opposite pair %d: %d members, need 2", i, len(p))
		}
		pairs = append(pairs, [2]string{p[0], p[1]})
	}
	return New(doc.Categories, pairs, doc.Synonyms, doc.MixUps)
}

// New builds a catalog from already decoded parts. Opposite pairs are
// installed in both directions.
func New(categories []Category, opposites [][2]string, synonyms [][]string, mixups []MixUp) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		byName:    make(map[string]int, len(categories)),
		opposites: make(map[string]string, len(opposites)*2),
		groupOf:   make(map[string]int),
	}

	seen := make(map[string]struct{})
	for i, cat := range categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d: blank name", i)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("category %q: duplicate name", name)
		}
		for _, e := range cat.Emojis {
			if strings.TrimSpace(e) == "" {
				return nil, fmt.Errorf("category %q: blank emoji", name)
			}
			if _, ok := seen[e]; !ok {
				seen[e] = struct{}{}
				c.all = append(c.all, e)
			}
		}
		c.byName[name] = len(c.categories)
		c.categories = append(c.categories, Category{Name: name, Emojis: slices.Clone(cat.Emojis)})
	}

	for _, p := range opposites {
		a, b := p[0], p[1]
		if a == "" || b == "" {
			return nil, fmt.Errorf("opposite pair %q: blank side", p)
		}
		if a == b {
			return nil, fmt.Errorf("opposite pair %q: identical sides", p)
		}
		c.opposites[a] = b
		c.opposites[b] = a
	}

	for i, g := range synonyms {
		if len(g) < 3 {
			return nil, fmt.Errorf("synonym group %d: %d members, need 3", i, len(g))
		}
		group := slices.Clone(g)
		for _, e := range group {
			if e == "" {
				return nil, fmt.Errorf("synonym group %d: blank emoji", i)
			}
			// First group wins when an emoji is listed twice.
			if _, ok := c.groupOf[e]; !ok {
				c.groupOf[e] = len(c.synonyms)
			}
		}
		c.synonyms = append(c.synonyms, group)
	}

	for i, m := range mixups {
		if len(m.Chain) < 2 {
			return nil, fmt.Errorf("mixup %d: chain too short", i)
		}
		if m.Answer < 0 || m.Answer >= len(m.Chain) {
			return nil, fmt.Errorf("mixup %d: answer index %d out of range", i, m.Answer)
		}
		if slices.Index(m.Chain, m.Chain[m.Answer]) != m.Answer || slices.Contains(m.Chain[m.Answer+1:], m.Chain[m.Answer]) {
			return nil, fmt.Errorf("mixup %d: answer repeated in chain", i)
		}
		if m.Difficulty < 1 {
			return nil, fmt.Errorf("mixup %d: difficulty %d below 1", i, m.Difficulty)
		}
		c.mixups = append(c.mixups, MixUp{Chain: slices.Clone(m.Chain), Answer: m.Answer, Difficulty: m.Difficulty})
	}

	return c, nil
}

func (c *Catalog) Category(name string) (Category, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Category{}, false
	}
	return cloneCategory(c.categories[i]), true
}

// Categories returns every category in catalog order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cloneCategory(cat)
	}
	return out
}

func (c *Catalog) Names() []string {
	out := make([]string, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cat.Name
	}
	return out
}

func (c *Catalog) Opposite(emoji string) (string, bool) {
	o, ok := c.opposites[emoji]
	return o, ok
}

func (c *Catalog) HasOpposite(emoji string) bool {
	_, ok := c.opposites[emoji]
	return ok
}

// SynonymGroup returns the group containing emoji.
func (c *Catalog) SynonymGroup(emoji string) ([]string, bool) {
	i, ok := c.groupOf[emoji]
	if !ok {
		return nil, false
	}
	return slices.Clone(c.synonyms[i]), true
}

func (c *Catalog) SynonymGroups() [][]string {
	out := make([][]string, len(c.synonyms))
	for i, g := range c.synonyms {
		out[i] = slices.Clone(g)
	}
	return out
}

func (c *Catalog) MixUps() []MixUp {
	out := make([]MixUp, len(c.mixups))
	for i, m := range c.mixups {
		out[i] = MixUp{Chain: slices.Clone(m.Chain), Answer: m.Answer, Difficulty: m.Difficulty}
	}
	return out
}

// AllEmojis returns every distinct emoji in catalog order.
func (c *Catalog) AllEmojis() []string {
	return slices.Clone(c.all)
}

// CategoriesOf returns the names of every category listing emoji.
func (c *Catalog) CategoriesOf(emoji string) []string {
	var out []string
	for _, cat := range c.categories {
		if slices.Contains(cat.Emojis, emoji) {
			out = append(out, cat.Name)
		}
	}
	return out
}

// OtherEmojis returns the distinct emoji of every category except name.
func (c *Catalog) OtherEmojis(name string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, cat := range c.categories {
		if cat.Name == name {
			continue
		}
		for _, e := range cat.Emojis {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

func cloneCategory(c Category) Category {
	return Category{Name: c.Name, Emojis: slices.Clone(c.Emojis)}
}
