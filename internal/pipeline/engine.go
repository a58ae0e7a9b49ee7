package pipeline

import (
	"hash/fnv"
	"math/rand/v2"

	"newsmask/internal/config"
	"newsmask/internal/masking"
	"newsmask/internal/tokenizer"
)

// PolicyFromConfig converts the masking section of the config.
func PolicyFromConfig(cfg config.MaskingConfig) masking.Policy {
	return masking.Policy{
		DocumentMaskP:  cfg.DocumentMaskP,
		SentenceMaskP:  cfg.SentenceMaskP,
		WordMaskP:      cfg.WordMaskP,
		NgramMaskP:     cfg.NgramMaskP,
		MinNgramLength: cfg.MinNgramLength,
		MaxNgramLength: cfg.MaxNgramLength,
	}
}

// DelimitersFromConfig returns the configured delimiter set, or the default one.
func DelimitersFromConfig(cfg config.MaskingConfig) masking.Delimiters {
	if cfg.Delimiters == "" {
		return masking.DefaultDelimiters
	}

	return masking.NewDelimiters(cfg.Delimiters)
}

// NewEngine builds the tokenizer and masking engine described by cfg.
func NewEngine(cfg *config.Config) (*masking.Engine, error) {
	tok, err := tokenizer.New(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}

	return masking.NewEngine(tok, PolicyFromConfig(cfg.Masking),
		masking.WithDelimiters(DelimitersFromConfig(cfg.Masking))), nil
}

// policyManifest is the policy as recorded in split manifests.
func policyManifest(p masking.Policy, d masking.Delimiters) map[string]any {
	return map[string]any{
		"document_mask_p":  p.DocumentMaskP,
		"sentence_mask_p":  p.SentenceMaskP,
		"word_mask_p":      p.WordMaskP,
		"ngram_mask_p":     p.NgramMaskP,
		"min_ngram_length": p.MinNgramLength,
		"max_ngram_length": p.MaxNgramLength,
		"delimiters":       d.String(),
	}
}

// RecordRand returns the random source for one record. It depends only on the
// seed, the split name and the record position, so output does not change with
// the number of workers.
func RecordRand(seed uint64, split string, index int) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(split))

	return rand.New(rand.NewPCG(seed, h.Sum64()^uint64(index)))
}
