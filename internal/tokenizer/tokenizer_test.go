package tokenizer

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsmask/internal/config"
)

func TestGrapheme_Tokenize(t *testing.T) {
	tok, err := NewGrapheme("[MASK]", 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"Chinese", "我喜歡吃蘋果。", []string{"我", "喜", "歡", "吃", "蘋", "果", "。"}},
		{"ASCII", "ab c", []string{"a", "b", " ", "c"}},
		{"Combining mark", "é!", []string{"é", "!"}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tok.Tokenize(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWord_TokenizeIsLossless(t *testing.T) {
	tok, err := NewWord("[MASK]", 0)
	require.NoError(t, err)

	texts := []string{
		"Hello, world! It's 2024.",
		"台北市今天下雨，气温 20°C。",
		"  leading and trailing  ",
		"",
	}

	for _, text := range texts {
		got, err := tok.Tokenize(text)
		require.NoError(t, err)
		assert.Equal(t, text, strings.Join(got, ""))

		for _, token := range got {
			assert.NotEmpty(t, token)
		}
	}
}

func TestWord_SplitsWords(t *testing.T) {
	tok, err := NewWord("[MASK]", 0)
	require.NoError(t, err)

	got, err := tok.Tokenize("stock prices rose")
	require.NoError(t, err)
	assert.Equal(t, []string{"stock", " ", "prices", " ", "rose"}, got)
}

func TestTruncate(t *testing.T) {
	tok, err := NewGrapheme("[MASK]", 4)
	require.NoError(t, err)

	text, tokens, err := Truncate(tok, "新聞報導內容")
	require.NoError(t, err)
	assert.Equal(t, "新聞報導", text)
	assert.Len(t, tokens, 4)

	unlimited, err := NewGrapheme("[MASK]", 0)
	require.NoError(t, err)

	text, _, err = Truncate(unlimited, "新聞報導內容")
	require.NoError(t, err)
	assert.Equal(t, "新聞報導內容", text)
}

func TestTruncate_WholeTokens(t *testing.T) {
	tok, err := NewWord("[MASK]", 3)
	require.NoError(t, err)

	text, _, err := Truncate(tok, "markets fell sharply")
	require.NoError(t, err)
	assert.Equal(t, "markets fell", text)
}

func TestNewGrapheme_EmptyMaskToken(t *testing.T) {
	_, err := NewGrapheme("", 10)
	require.ErrorIs(t, err, ErrEmptyMaskToken)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TokenizerConfig
		wantErr error
		check   func(t *testing.T, tok Tokenizer)
	}{
		{
			name: "Default kind is grapheme",
			cfg:  config.TokenizerConfig{MaxLength: 400},
			check: func(t *testing.T, tok Tokenizer) {
				assert.IsType(t, &Grapheme{}, tok)
				assert.Equal(t, DefaultMaskToken, tok.MaskToken())
				assert.Equal(t, 400, tok.MaxLength())
			},
		},
		{
			name: "Word",
			cfg:  config.TokenizerConfig{Kind: "word", MaskToken: "<mask>"},
			check: func(t *testing.T, tok Tokenizer) {
				assert.IsType(t, &Word{}, tok)
				assert.Equal(t, "<mask>", tok.MaskToken())
			},
		},
		{
			name:    "Wordpiece without vocab",
			cfg:     config.TokenizerConfig{Kind: "wordpiece"},
			wantErr: ErrMissingVocab,
		},
		{
			name:    "Unknown kind",
			cfg:     config.TokenizerConfig{Kind: "bpe"},
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := New(tt.cfg)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)

				return
			}

			require.NoError(t, err)
			tt.check(t, tok)
		})
	}
}

func TestSpansToTokens(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		offsets [][]int
		want    []string
	}{
		{
			name:    "Gaps attach to next token",
			text:    "hello  world!",
			offsets: [][]int{{0, 5}, {7, 12}, {12, 13}},
			want:    []string{"hello", "  world", "!"},
		},
		{
			name:    "Tail attaches to last token",
			text:    "news ",
			offsets: [][]int{{0, 4}},
			want:    []string{"news "},
		},
		{
			name:    "Subword pieces",
			text:    "newspaper",
			offsets: [][]int{{0, 4}, {4, 9}},
			want:    []string{"news", "paper"},
		},
		{
			name:    "Invalid offsets are absorbed",
			text:    "新聞",
			offsets: [][]int{{0, 1}, {3, 6}},
			want:    []string{"新聞"},
		},
		{
			name:    "No offsets",
			text:    "   ",
			offsets: nil,
			want:    []string{"   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spansToTokens(tt.text, tt.offsets)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}

func TestWordPiece_Lossless(t *testing.T) {
	tok, err := NewWordPiece(filepath.Join("testdata", "vocab.txt"), "[MASK]", 0)
	require.NoError(t, err)

	for _, text := range []string{"hello world", "hello, newspaper world!"} {
		got, err := tok.Tokenize(text)
		require.NoError(t, err)
		assert.Equal(t, text, strings.Join(got, ""))
		assert.NotEmpty(t, got)
	}
}

func TestWordPiece_ChineseCharacters(t *testing.T) {
	tok, err := NewWordPiece(filepath.Join("testdata", "vocab.txt"), "[MASK]", 0)
	require.NoError(t, err)

	got, err := tok.Tokenize("我喜歡吃蘋果。")
	require.NoError(t, err)
	assert.Equal(t, []string{"我", "喜", "歡", "吃", "蘋", "果", "。"}, got)

	// Unknown characters still map to one token each.
	got, err = tok.Tokenize("我愛你。")
	require.NoError(t, err)
	assert.Equal(t, []string{"我", "愛", "你", "。"}, got)

	short, err := NewWordPiece(filepath.Join("testdata", "vocab.txt"), "[MASK]", 3)
	require.NoError(t, err)

	text, kept, err := Truncate(short, "我喜歡吃蘋果。")
	require.NoError(t, err)
	assert.Equal(t, "我喜歡", text)
	assert.Len(t, kept, 3)
}
