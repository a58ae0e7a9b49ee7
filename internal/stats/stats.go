// Package stats summarizes the masking decisions made over a batch of examples.
package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"newsmask/internal/models"
)

// Summary aggregates the traces of a batch.
type Summary struct {
	Examples             int     `json:"examples" yaml:"examples"`
	DocumentMasked       int     `json:"document_masked" yaml:"document_masked"`
	DocumentMaskRate     float64 `json:"document_mask_rate" yaml:"document_mask_rate"`
	MeanMaskedFraction   float64 `json:"mean_masked_fraction" yaml:"mean_masked_fraction"`
	StdDevMaskedFraction float64 `json:"stddev_masked_fraction" yaml:"stddev_masked_fraction"`
	MaskedSentences      int     `json:"masked_sentences" yaml:"masked_sentences"`
	MaskedWords          int     `json:"masked_words" yaml:"masked_words"`
	MaskedNgrams         int     `json:"masked_ngrams" yaml:"masked_ngrams"`
	MeanNgramLength      float64 `json:"mean_ngram_length" yaml:"mean_ngram_length"`
	MinNgramLength       int     `json:"min_ngram_length" yaml:"min_ngram_length"`
	MaxNgramLength       int     `json:"max_ngram_length" yaml:"max_ngram_length"`
}

// Summarize computes batch statistics. The masked fraction of an example is the
// share of its (truncated) article runes that moved into the answer.
func Summarize(examples []models.MaskedExample) Summary {
	s := Summary{Examples: len(examples)}
	if len(examples) == 0 {
		return s
	}

	fractions := make([]float64, 0, len(examples))

	var lengths []float64

	for i := range examples {
		tr := &examples[i].Trace

		if tr.Tier == models.TierDocument {
			s.DocumentMasked++
		}

		s.MaskedSentences += tr.MaskedSentences
		s.MaskedWords += tr.MaskedWords
		s.MaskedNgrams += tr.MaskedNgrams

		frac := 0.0
		if tr.Runes > 0 {
			frac = float64(tr.MaskedRunes) / float64(tr.Runes)
		}

		fractions = append(fractions, frac)

		for _, n := range tr.NgramLengths {
			lengths = append(lengths, float64(n))
		}
	}

	s.DocumentMaskRate = float64(s.DocumentMasked) / float64(len(examples))

	if len(fractions) > 1 {
		s.MeanMaskedFraction, s.StdDevMaskedFraction = stat.MeanStdDev(fractions, nil)
	} else {
		s.MeanMaskedFraction = fractions[0]
	}

	if len(lengths) > 0 {
		s.MeanNgramLength = stat.Mean(lengths, nil)
		s.MinNgramLength = int(floats.Min(lengths))
		s.MaxNgramLength = int(floats.Max(lengths))
	}

	return s
}

// LogArgs returns the summary as slog key/value pairs.
func (s Summary) LogArgs() []any {
	return []any{
		"examples", s.Examples,
		"document_mask_rate", fmt.Sprintf("%.4f", s.DocumentMaskRate),
		"masked_fraction_mean", fmt.Sprintf("%.4f", s.MeanMaskedFraction),
		"masked_fraction_stddev", fmt.Sprintf("%.4f", s.StdDevMaskedFraction),
		"masked_sentences", s.MaskedSentences,
		"masked_words", s.MaskedWords,
		"masked_ngrams", s.MaskedNgrams,
		"ngram_length_mean", fmt.Sprintf("%.2f", s.MeanNgramLength),
	}
}

// String renders a one-line human readable summary.
func (s Summary) String() string {
	return fmt.Sprintf(
		"examples=%d document=%d (%.2f%%) masked=%.3f±%.3f sentences=%d words=%d ngrams=%d (len %d-%d, mean %.2f)",
		s.Examples, s.DocumentMasked, s.DocumentMaskRate*100,
		s.MeanMaskedFraction, s.StdDevMaskedFraction,
		s.MaskedSentences, s.MaskedWords, s.MaskedNgrams,
		s.MinNgramLength, s.MaxNgramLength, s.MeanNgramLength,
	)
}
