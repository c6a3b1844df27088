package index

import (
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
)

var (
	segOnce sync.Once
	seg     gse.Segmenter
)

// Tokenize splits text into lowercase search terms. Chinese text is
// word-segmented; text without CJK runes is split on unicode word
// boundaries directly.
func Tokenize(text string) []string {
	text = strings.ToLower(text)

	var raw []string
	if containsCJK(text) {
		segOnce.Do(func() {
			if err := seg.LoadDict(); err != nil {
				slog.Warn("lexical: failed to load segmenter dictionary, using character fallback", "error", err)
			}
		})
		raw = seg.CutSearch(text, true)
	} else {
		raw = strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
	}

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimFunc(t, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if t == "" {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

func containsCJK(text string) bool {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
