package masking

import "strings"

// DefaultDelimiterChars is the sentence punctuation of Chinese news text plus the
// ASCII equivalents.
const DefaultDelimiterChars = "，,。：:；;！!？?"

// DefaultDelimiters is the delimiter set built from DefaultDelimiterChars.
var DefaultDelimiters = NewDelimiters(DefaultDelimiterChars)

// Delimiters is the set of characters that end a sentence segment. Each delimiter
// character forms a segment of its own.
type Delimiters struct {
	set   map[rune]struct{}
	chars string
}

// NewDelimiters builds a delimiter set from every rune in chars.
func NewDelimiters(chars string) Delimiters {
	set := make(map[rune]struct{}, len(chars))

	var b strings.Builder

	for _, r := range chars {
		if _, dup := set[r]; dup {
			continue
		}

		set[r] = struct{}{}

		b.WriteRune(r)
	}

	return Delimiters{set: set, chars: b.String()}
}

// Contains reports whether r is a delimiter.
func (d Delimiters) Contains(r rune) bool {
	_, ok := d.set[r]

	return ok
}

// Len returns the number of distinct delimiter characters.
func (d Delimiters) Len() int {
	return len(d.set)
}

// String returns the delimiter characters in declaration order.
func (d Delimiters) String() string {
	return d.chars
}

// Segment is one piece of a split article.
type Segment struct {
	Text      string
	Delimiter bool
}

// Split cuts text into content and delimiter segments in order. Empty content between
// adjacent delimiters is not emitted, so Join(d.Split(text)) == text always holds.
func (d Delimiters) Split(text string) []Segment {
	var segments []Segment

	start := 0

	for i, r := range text {
		if !d.Contains(r) {
			continue
		}

		if i > start {
			segments = append(segments, Segment{Text: text[start:i]})
		}

		end := i + len(string(r))
		segments = append(segments, Segment{Text: text[i:end], Delimiter: true})
		start = end
	}

	if start < len(text) {
		segments = append(segments, Segment{Text: text[start:]})
	}

	return segments
}

// Join concatenates segments back into text.
func Join(segments []Segment) string {
	var b strings.Builder

	for _, s := range segments {
		b.WriteString(s.Text)
	}

	return b.String()
}
