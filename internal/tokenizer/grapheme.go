package tokenizer

import "github.com/rivo/uniseg"

// Grapheme emits one token per extended grapheme cluster. For Chinese text this is
// one token per character, which is what a character-level vocabulary produces.
type Grapheme struct {
	base
}

// NewGrapheme creates a grapheme tokenizer.
func NewGrapheme(maskToken string, maxLength int) (*Grapheme, error) {
	b, err := newBase(maskToken, maxLength)
	if err != nil {
		return nil, err
	}

	return &Grapheme{base: b}, nil
}

// Tokenize splits text into grapheme clusters.
func (g *Grapheme) Tokenize(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	tokens := make([]string, 0, len(text)/2)

	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		tokens = append(tokens, gr.Str())
	}

	return tokens, nil
}

// Word emits Unicode word-boundary segments (UAX #29). Spaces and punctuation
// become tokens of their own.
type Word struct {
	base
}

// NewWord creates a word tokenizer.
func NewWord(maskToken string, maxLength int) (*Word, error) {
	b, err := newBase(maskToken, maxLength)
	if err != nil {
		return nil, err
	}

	return &Word{base: b}, nil
}

// Tokenize splits text on word boundaries.
func (w *Word) Tokenize(text string) ([]string, error) {
	var tokens []string

	state := -1
	rest := text

	for len(rest) > 0 {
		var word string

		word, rest, state = uniseg.FirstWordInString(rest, state)
		tokens = append(tokens, word)
	}

	return tokens, nil
}
