package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/playperu/emojichain/internal/catalog"
	"github.com/playperu/emojichain/internal/emojichain"
)

// Strategy produces the question for one round. It reports the rule that
// actually produced the question, which differs from the requested rule
// when generation fell back to Sequential. ok is false when no valid
// question could be produced at all.
type Strategy interface {
	Generate(rule emojichain.Rule, category catalog.Category, level int) (q emojichain.Question, used emojichain.Rule, ok bool)
}

const (
	KindQuestion = "question"
	KindChain    = "chain"
)

var ErrUnknownKind = errors.New("unknown generator kind")

// Factory builds a strategy of an already validated kind around rng.
type Factory func(rng *rand.Rand) Strategy

// NewFactory checks kind once so callers that build many strategies, one
// per session, cannot fail later.
func NewFactory(kind string, cat *catalog.Catalog) (Factory, error) {
	switch kind {
	case KindQuestion, "":
		return func(rng *rand.Rand) Strategy { return NewQuestionStrategy(rng, cat) }, nil
	case KindChain:
		return func(rng *rand.Rand) Strategy { return NewChainStrategy(rng, cat) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// New returns the strategy named by kind.
func New(kind string, rng *rand.Rand, cat *catalog.Catalog) (Strategy, error) {
	f, err := NewFactory(kind, cat)
	if err != nil {
		return nil, err
	}
	return f(rng), nil
}

// ChainStrategy pairs a chain generator with the option generator for the
// same rule.
type ChainStrategy struct {
	chains  map[emojichain.Rule]ChainGenerator
	options map[emojichain.Rule]OptionGenerator
}

func NewChainStrategy(rng *rand.Rand, cat *catalog.Catalog) *ChainStrategy {
	return &ChainStrategy{
		chains: map[emojichain.Rule]ChainGenerator{
			emojichain.RuleSequential: NewSequentialChain(rng),
			emojichain.RuleOpposite:   NewOppositeChain(rng, cat),
			emojichain.RuleMixUp:      NewMixUpChain(rng, cat),
			emojichain.RuleSynonym:    NewSynonymChain(rng, cat),
		},
		options: map[emojichain.Rule]OptionGenerator{
			emojichain.RuleSequential: NewSequentialOptions(rng, cat),
			emojichain.RuleOpposite:   NewOppositeOptions(rng, cat),
			emojichain.RuleMixUp:      NewMixUpOptions(rng, cat),
			emojichain.RuleSynonym:    NewSynonymOptions(rng, cat),
		},
	}
}

func (s *ChainStrategy) Generate(rule emojichain.Rule, category catalog.Category, level int) (emojichain.Question, emojichain.Rule, bool) {
	if q, ok := s.try(rule, category, level); ok {
		return q, rule, true
	}
	if rule != emojichain.RuleSequential {
		if q, ok := s.try(emojichain.RuleSequential, category, level); ok {
			return q, emojichain.RuleSequential, true
		}
	}
	return emojichain.Question{}, rule, false
}

func (s *ChainStrategy) try(rule emojichain.Rule, category catalog.Category, level int) (emojichain.Question, bool) {
	gen, ok := s.chains[rule]
	if !ok {
		return emojichain.Question{}, false
	}
	q, ok := gen.Chain(category, level)
	if !ok {
		return emojichain.Question{}, false
	}
	q.Choices = s.options[rule].Options(q.Answer, category, q.Chain, level)
	return q, q.Valid()
}

// QuestionStrategy uses the retrying question generators over the
// category's emoji.
type QuestionStrategy struct {
	questions map[emojichain.Rule]QuestionGenerator
}

func NewQuestionStrategy(rng *rand.Rand, cat *catalog.Catalog) *QuestionStrategy {
	return &QuestionStrategy{
		questions: map[emojichain.Rule]QuestionGenerator{
			emojichain.RuleSequential: NewSequentialQuestions(rng, cat),
			emojichain.RuleOpposite:   NewOppositeQuestions(rng, cat),
			emojichain.RuleMixUp:      NewMixUpQuestions(rng, cat),
			emojichain.RuleSynonym:    NewSynonymQuestions(rng, cat),
		},
	}
}

func (s *QuestionStrategy) Generate(rule emojichain.Rule, category catalog.Category, level int) (emojichain.Question, emojichain.Rule, bool) {
	if gen, ok := s.questions[rule]; ok {
		if q, ok := gen.Question(category.Emojis, level); ok {
			return q, rule, true
		}
	}
	if rule != emojichain.RuleSequential {
		if q, ok := s.questions[emojichain.RuleSequential].Question(category.Emojis, level); ok {
			return q, emojichain.RuleSequential, true
		}
	}
	return emojichain.Question{}, rule, false
}
