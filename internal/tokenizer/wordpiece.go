package tokenizer

import (
	"fmt"
	"unicode/utf8"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
)

// WordPiece wraps a sugarme BERT-style WordPiece tokenizer built from vocab.txt.
//
// WordPiece tokens are normalized ("##" prefixes, [UNK]) so their values cannot be
// joined back into the input. Token text is therefore cut from the input using the
// encoding offsets; the gap before a token (usually whitespace) is attached to it and
// any tail is attached to the last token.
type WordPiece struct {
	base
	t *tk.Tokenizer
}

// NewWordPiece loads vocabPath and builds the tokenizer. Case and accents are kept so
// offsets always point at the original characters, and CJK characters are split one
// per token as in the BERT Chinese vocabularies.
func NewWordPiece(vocabPath, maskToken string, maxLength int) (*WordPiece, error) {
	b, err := newBase(maskToken, maxLength)
	if err != nil {
		return nil, err
	}

	wp, err := wordpiece.NewWordPieceFromFile(vocabPath, "[UNK]")
	if err != nil {
		return nil, fmt.Errorf("load vocab %s: %w", vocabPath, err)
	}

	t := tk.NewTokenizer(wp)
	t.WithNormalizer(normalizer.NewBertNormalizer(true, false, true, false))
	t.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	return &WordPiece{base: b, t: t}, nil
}

// Tokenize encodes text without special tokens and maps every token back to its span.
func (w *WordPiece) Tokenize(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	enc, err := w.t.Encode(tk.NewSingleEncodeInput(tk.NewInputSequence(text)), false)
	if err != nil {
		return nil, fmt.Errorf("wordpiece encode: %w", err)
	}

	return spansToTokens(text, enc.GetOffsets()), nil
}

// spansToTokens rebuilds lossless token strings from byte offsets. A token whose
// offsets are out of order or not on rune boundaries is skipped; its text is carried
// by the next token's gap or by the tail.
func spansToTokens(text string, offsets [][]int) []string {
	tokens := make([]string, 0, len(offsets))
	cursor := 0

	for _, off := range offsets {
		end, ok := spanEnd(text, off, cursor)
		if !ok {
			continue
		}

		tokens = append(tokens, text[cursor:end])
		cursor = end
	}

	if len(tokens) == 0 {
		return []string{text}
	}

	tokens[len(tokens)-1] += text[cursor:]

	return tokens
}

// spanEnd validates a [start, end) offset pair against the text and the cursor.
func spanEnd(text string, off []int, cursor int) (int, bool) {
	if len(off) < 2 {
		return 0, false
	}

	start, end := off[0], off[1]
	if start < cursor || end <= start || end > len(text) {
		return 0, false
	}

	if !boundary(text, start) || !boundary(text, end) {
		return 0, false
	}

	return end, true
}

func boundary(text string, i int) bool {
	return i == len(text) || utf8.RuneStart(text[i])
}
