package models

// Tier names which masking tier produced an example.
type Tier string

// Masking tiers.
const (
	TierDocument Tier = "document"
	TierSegment  Tier = "segment"
)

// MaskedExample is the output pair of the masking engine.
type MaskedExample struct {
	Masked string    `json:"masked_article"`
	Answer string    `json:"answer"`
	Trace  MaskTrace `json:"-"`
}

// MaskTrace records what the engine did to produce an example. It is used for
// batch statistics and debug logging only.
type MaskTrace struct {
	Tier            Tier
	Tokens          int // tokens in the truncated article
	Runes           int // runes in the truncated article
	Segments        int
	ContentSegments int
	MaskedSentences int
	MaskedWords     int
	MaskedNgrams    int
	MaskedRunes     int // runes removed into the answer
	NgramLengths    []int
}

// Split is a named, ordered collection of records such as "train" or "test".
type Split struct {
	Name    string
	Records []Record
}
