package feature

import (
	"strings"

	"github.com/blevesearch/segment"
)

// BagOfWords extracts token counts from text.
//
// Text is split with Unicode word segmentation; whitespace and punctuation
// segments are dropped. Every remaining token contributes 1 to its count.
type BagOfWords struct {
	// Lowercase folds tokens to lower case before counting.
	Lowercase bool
}

// Features implements Extractor[string].
func (b BagOfWords) Features(text string) (map[string]float64, error) {
	counts := make(map[string]float64)
	for _, tok := range b.Tokens(text) {
		counts[tok]++
	}
	return counts, nil
}

// Tokens returns the word tokens of text in order of appearance.
func (b BagOfWords) Tokens(text string) []string {
	var tokens []string
	seg := segment.NewWordSegmenterDirect([]byte(text))
	for seg.Segment() {
		if seg.Type() == segment.None {
			continue
		}
		tok := string(seg.Bytes())
		if b.Lowercase {
			tok = strings.ToLower(tok)
		}
		tokens = append(tokens, tok)
	}
	// Direct segmentation over an in-memory buffer only fails on malformed
	// input, in which case the tokens seen so far are kept.
	return tokens
}
