// Package words tokenizes hypothesis text into word units and decides when
// two words count as the same word for overlap detection.
package words

import (
	"strings"
	"unicode"
)

// punctuation is the character set stripped when building the clean form.
const punctuation = `.,!?;:-'"()`

// Word is a single token of hypothesis text. Original preserves the exact
// form received from the recognizer; Clean is the lowercased,
// punctuation-stripped form used for matching.
type Word struct {
	Original       string
	Clean          string
	HasPunctuation bool
	IsCompound     bool
}

// Tokenize splits text on whitespace runs. Each non-empty run of
// non-whitespace becomes one Word. Whitespace-only input yields nil.
func Tokenize(text string) []Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	ws := make([]Word, 0, len(fields))
	for _, f := range fields {
		ws = append(ws, New(f))
	}
	return ws
}

// New builds a Word from a single token.
func New(original string) Word {
	return Word{
		Original:       original,
		Clean:          cleanForm(original),
		HasPunctuation: strings.ContainsAny(original, punctuation),
		IsCompound:     isCompound(original),
	}
}

// Reconstruct joins the original word forms back into text. Whitespace runs
// collapse to single spaces; this is the only reconstruction the pipeline
// performs.
func Reconstruct(ws []Word) string {
	if len(ws) == 0 {
		return ""
	}
	parts := make([]string, len(ws))
	for i, w := range ws {
		parts[i] = w.Original
	}
	return strings.Join(parts, " ")
}

// IsDigits reports whether the clean form is a non-empty pure integer
// string. Integer words only ever match byte-identical integer words.
func (w Word) IsDigits() bool {
	if w.Clean == "" {
		return false
	}
	for _, r := range w.Clean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CompoundParts splits the original form of a compound word at its hyphens
// and returns the clean form of each part. Nil for non-compound words.
func (w Word) CompoundParts() []string {
	if !w.IsCompound {
		return nil
	}
	raw := strings.Split(w.Original, "-")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if c := cleanForm(p); c != "" {
			parts = append(parts, c)
		}
	}
	return parts
}

func cleanForm(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(punctuation, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// isCompound reports whether the word contains an internal hyphen with a
// letter on both sides, e.g. "self-centered". Leading and trailing hyphens
// do not count.
func isCompound(s string) bool {
	runes := []rune(s)
	for i := 1; i < len(runes)-1; i++ {
		if runes[i] == '-' && unicode.IsLetter(runes[i-1]) && unicode.IsLetter(runes[i+1]) {
			return true
		}
	}
	return false
}
