// Package masking turns an article into a masked view and the answer sequence that
// reconstructs what was removed.
//
// One tier applies per article. With DocumentMaskP the whole article is replaced by a
// single mask token. Otherwise the article is split into sentence segments; each
// content segment is either masked whole (SentenceMaskP) or scanned token by token,
// where a position is masked with WordMaskP, either as an n-gram (NgramMaskP) or as a
// single token. Every removed piece is appended to the answer followed by the mask
// token.
package masking

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"newsmask/internal/models"
	"newsmask/internal/tokenizer"
)

// Rand is the random source consumed by the engine. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Policy holds the masking probabilities and n-gram length range.
type Policy struct {
	DocumentMaskP  float64
	SentenceMaskP  float64
	WordMaskP      float64
	NgramMaskP     float64
	MinNgramLength int
	MaxNgramLength int // exclusive
}

// DefaultPolicy returns the probabilities used for the news pretraining corpus.
func DefaultPolicy() Policy {
	return Policy{
		DocumentMaskP:  0.03,
		SentenceMaskP:  0.07,
		WordMaskP:      0.1,
		NgramMaskP:     0.5,
		MinNgramLength: 2,
		MaxNgramLength: 6,
	}
}

// ngramLength draws n uniformly from [MinNgramLength, MaxNgramLength). A degenerate
// range yields MinNgramLength without a draw, and n is never below 1 so the cursor
// always advances.
func (p Policy) ngramLength(rng Rand) int {
	n := p.MinNgramLength
	if span := p.MaxNgramLength - p.MinNgramLength; span > 0 {
		n += rng.IntN(span)
	}

	return max(n, 1)
}

// Engine applies a Policy using a tokenizer.
type Engine struct {
	tok        tokenizer.Tokenizer
	delimiters Delimiters
	policy     Policy
}

// Option configures an Engine.
type Option func(*Engine)

// WithDelimiters replaces the default sentence delimiters.
func WithDelimiters(d Delimiters) Option {
	return func(e *Engine) {
		e.delimiters = d
	}
}

// NewEngine creates an engine.
func NewEngine(tok tokenizer.Tokenizer, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		tok:        tok,
		policy:     policy,
		delimiters: DefaultDelimiters,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Delimiters returns the engine's sentence delimiters.
func (e *Engine) Delimiters() Delimiters {
	return e.delimiters
}

// Mask corrupts article. The article is truncated to the tokenizer's maximum length
// once, before any segmentation. The only errors returned come from the tokenizer.
func Mask(tok tokenizer.Tokenizer, rng Rand, article string, policy Policy) (models.MaskedExample, error) {
	return NewEngine(tok, policy).Mask(rng, article)
}

// Mask corrupts article using the engine's policy and rng.
func (e *Engine) Mask(rng Rand, article string) (models.MaskedExample, error) {
	text, tokens, err := tokenizer.Truncate(e.tok, article)
	if err != nil {
		return models.MaskedExample{}, err
	}

	maskToken := e.tok.MaskToken()
	trace := models.MaskTrace{
		Tokens: len(tokens),
		Runes:  utf8.RuneCountInString(text),
	}

	if rng.Float64() < e.policy.DocumentMaskP {
		trace.Tier = models.TierDocument
		trace.MaskedRunes = trace.Runes

		return models.MaskedExample{
			Masked: maskToken,
			Answer: text + maskToken,
			Trace:  trace,
		}, nil
	}

	trace.Tier = models.TierSegment

	var masked strings.Builder

	var answers []string

	for _, seg := range e.delimiters.Split(text) {
		trace.Segments++

		if seg.Delimiter {
			masked.WriteString(seg.Text)

			continue
		}

		trace.ContentSegments++

		if rng.Float64() < e.policy.SentenceMaskP {
			masked.WriteString(maskToken)
			answers = append(answers, seg.Text)
			trace.MaskedSentences++
			trace.MaskedRunes += utf8.RuneCountInString(seg.Text)

			continue
		}

		pieces, err := e.maskWords(rng, seg.Text, maskToken, &masked, &trace)
		if err != nil {
			return models.MaskedExample{}, err
		}

		answers = append(answers, pieces...)
	}

	return models.MaskedExample{
		Masked: masked.String(),
		Answer: strings.Join(answers, maskToken) + maskToken,
		Trace:  trace,
	}, nil
}

// maskWords scans one sentence token by token, writing the masked view to out and
// returning the removed pieces in order.
func (e *Engine) maskWords(
	rng Rand,
	sentence, maskToken string,
	out *strings.Builder,
	trace *models.MaskTrace,
) ([]string, error) {
	words, err := e.tok.Tokenize(sentence)
	if err != nil {
		return nil, fmt.Errorf("tokenize sentence: %w", err)
	}

	var pieces []string

	for i := 0; i < len(words); {
		if rng.Float64() >= e.policy.WordMaskP {
			out.WriteString(words[i])
			i++

			continue
		}

		out.WriteString(maskToken)

		if rng.Float64() < e.policy.NgramMaskP {
			n := e.policy.ngramLength(rng)
			// n is not clamped: near the end of a sentence the slice is simply shorter.
			end := min(i+n, len(words))
			piece := strings.Join(words[i:end], "")

			pieces = append(pieces, piece)
			trace.MaskedNgrams++
			trace.NgramLengths = append(trace.NgramLengths, n)
			trace.MaskedRunes += utf8.RuneCountInString(piece)
			i += n

			continue
		}

		pieces = append(pieces, words[i])
		trace.MaskedWords++
		trace.MaskedRunes += utf8.RuneCountInString(words[i])
		i++
	}

	return pieces, nil
}
