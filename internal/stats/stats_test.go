package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"newsmask/internal/models"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{}, s)
}

func TestSummarize_Single(t *testing.T) {
	s := Summarize([]models.MaskedExample{{
		Trace: models.MaskTrace{Tier: models.TierSegment, Runes: 10, MaskedRunes: 3, MaskedWords: 3},
	}})

	assert.Equal(t, 1, s.Examples)
	assert.InDelta(t, 0.3, s.MeanMaskedFraction, 1e-9)
	assert.Zero(t, s.StdDevMaskedFraction)
	assert.False(t, math.IsNaN(s.StdDevMaskedFraction))
}

func TestSummarize(t *testing.T) {
	examples := []models.MaskedExample{
		{Trace: models.MaskTrace{Tier: models.TierDocument, Runes: 8, MaskedRunes: 8}},
		{Trace: models.MaskTrace{
			Tier: models.TierSegment, Runes: 10, MaskedRunes: 5,
			MaskedSentences: 1, MaskedWords: 1, MaskedNgrams: 2, NgramLengths: []int{2, 4},
		}},
		{Trace: models.MaskTrace{
			Tier: models.TierSegment, Runes: 10, MaskedRunes: 0,
		}},
		{Trace: models.MaskTrace{
			Tier: models.TierSegment, Runes: 0, MaskedNgrams: 1, NgramLengths: []int{6},
		}},
	}

	s := Summarize(examples)

	assert.Equal(t, 4, s.Examples)
	assert.Equal(t, 1, s.DocumentMasked)
	assert.InDelta(t, 0.25, s.DocumentMaskRate, 1e-9)
	assert.Equal(t, 1, s.MaskedSentences)
	assert.Equal(t, 1, s.MaskedWords)
	assert.Equal(t, 3, s.MaskedNgrams)

	// Fractions are 1, 0.5, 0, 0.
	assert.InDelta(t, 0.375, s.MeanMaskedFraction, 1e-9)
	assert.InDelta(t, math.Sqrt(0.6875/3), s.StdDevMaskedFraction, 1e-9)

	assert.InDelta(t, 4.0, s.MeanNgramLength, 1e-9)
	assert.Equal(t, 2, s.MinNgramLength)
	assert.Equal(t, 6, s.MaxNgramLength)

	assert.Contains(t, s.String(), "ngrams=3 (len 2-6")
	assert.Len(t, s.LogArgs(), 16)
}
