// Package tokenizer provides the lossless tokenizers consumed by the masking engine.
//
// Every implementation returns token strings that concatenate back to the exact input,
// so truncation and word-level masking never lose characters the tokenizer did not
// emit.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"newsmask/internal/config"
)

// Tokenizer kinds accepted by New.
const (
	KindGrapheme  = "grapheme"
	KindWord      = "word"
	KindWordPiece = "wordpiece"
)

// DefaultMaskToken is used when the configuration leaves mask_token empty.
const DefaultMaskToken = "[MASK]"

// Tokenizer errors.
var (
	ErrUnknownKind    = errors.New("unknown tokenizer kind")
	ErrMissingVocab   = errors.New("wordpiece tokenizer requires vocab_path")
	ErrEmptyMaskToken = errors.New("mask token must not be empty")
)

// Tokenizer splits text into token strings and carries the model limits the
// masking engine depends on.
type Tokenizer interface {
	// Tokenize returns the ordered tokens of text. Joining them yields text.
	Tokenize(text string) ([]string, error)
	// MaxLength is the model's maximum sequence length in tokens; <= 0 means unlimited.
	MaxLength() int
	// MaskToken is the reserved placeholder string.
	MaskToken() string
}

// base holds the settings shared by every implementation.
type base struct {
	maskToken string
	maxLength int
}

func (b base) MaxLength() int    { return b.maxLength }
func (b base) MaskToken() string { return b.maskToken }

func newBase(maskToken string, maxLength int) (base, error) {
	if maskToken == "" {
		return base{}, ErrEmptyMaskToken
	}

	return base{maskToken: maskToken, maxLength: maxLength}, nil
}

// New builds the tokenizer described by cfg.
func New(cfg config.TokenizerConfig) (Tokenizer, error) {
	maskToken := cfg.MaskToken
	if maskToken == "" {
		maskToken = DefaultMaskToken
	}

	switch strings.ToLower(cfg.Kind) {
	case "", KindGrapheme:
		return NewGrapheme(maskToken, cfg.MaxLength)
	case KindWord:
		return NewWord(maskToken, cfg.MaxLength)
	case KindWordPiece:
		if cfg.VocabPath == "" {
			return nil, ErrMissingVocab
		}

		return NewWordPiece(cfg.VocabPath, maskToken, cfg.MaxLength)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// Truncate tokenizes text and keeps at most tok.MaxLength() whole tokens.
func Truncate(tok Tokenizer, text string) (string, []string, error) {
	tokens, err := tok.Tokenize(text)
	if err != nil {
		return "", nil, fmt.Errorf("tokenize article: %w", err)
	}

	if limit := tok.MaxLength(); limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}

	return strings.Join(tokens, ""), tokens, nil
}
