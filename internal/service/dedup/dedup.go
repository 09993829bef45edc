// Package dedup removes text from a new partial hypothesis that was already
// part of the previously committed final. Recognizer streams re-emit the
// tail of the last utterance at the start of the next one; stripping it
// keeps live captions from stuttering.
package dedup

import (
	"strings"
	"time"

	"sermon-translate-service/internal/service/words"
)

const (
	// fallbackWindow bounds the loose word-by-word comparison to the last
	// words of the final and the first words of the partial.
	fallbackWindow = 5

	// minResultChars suppresses a partial entirely when stripping leaves
	// almost nothing behind.
	minResultChars = 3
)

// Config controls overlap detection.
type Config struct {
	// TimeWindow is how long after a commit its text is still considered
	// for overlap. Older finals are ignored.
	TimeWindow time.Duration

	// MaxPhraseLen caps the phrase length tried during tail matching.
	MaxPhraseLen int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		TimeWindow:   5 * time.Second,
		MaxPhraseLen: 5,
	}
}

// Deduplicator strips leading overlap from partial hypotheses. It is
// stateless; callers supply the previous final and its commit time.
type Deduplicator struct {
	cfg Config
}

// New returns a Deduplicator. Zero config fields fall back to defaults.
func New(cfg Config) *Deduplicator {
	def := DefaultConfig()
	if cfg.TimeWindow <= 0 {
		cfg.TimeWindow = def.TimeWindow
	}
	if cfg.MaxPhraseLen <= 0 {
		cfg.MaxPhraseLen = def.MaxPhraseLen
	}
	return &Deduplicator{cfg: cfg}
}

// overlap describes the best match found between the final's tail and the
// partial. skipCount is set only by the window fallback and names how many
// leading partial words to drop.
type overlap struct {
	phraseLen    int
	partialStart int
	skipCount    int
}

// StripOverlap returns partial with any leading text that repeats the tail
// of prevFinal removed. prevAt is when prevFinal finished committing; now is
// the partial's arrival time. The input is returned unchanged when either
// text is empty, the final is outside the freshness window, or no overlap is
// found. When stripping leaves fewer than three characters the partial is
// suppressed and the empty string is returned.
//
// The operation is idempotent: running it twice yields the same text.
func (d *Deduplicator) StripOverlap(prevFinal string, prevAt time.Time, partial string, now time.Time) string {
	if strings.TrimSpace(partial) == "" || strings.TrimSpace(prevFinal) == "" {
		return partial
	}
	if now.Sub(prevAt) >= d.cfg.TimeWindow {
		return partial
	}

	finalWords := words.Tokenize(prevFinal)
	partialWords := words.Tokenize(partial)

	best, found := d.phraseSearch(finalWords, partialWords)
	if !found {
		best, found = windowFallback(finalWords, partialWords, prevFinal, partial)
	}
	if !found {
		return partial
	}

	result := rebuild(partialWords, best)
	if len(strings.TrimSpace(result)) < minResultChars {
		return ""
	}
	return result
}

// phraseSearch looks for the final's last L words appearing as L consecutive
// words anywhere in the partial, trying the longest phrase first. An integer
// mismatch mid-phrase truncates the candidate to the words matched so far
// instead of failing it outright. Longer matches win; among equal lengths
// the earliest partial position wins.
func (d *Deduplicator) phraseSearch(finalWords, partialWords []words.Word) (overlap, bool) {
	maxLen := d.cfg.MaxPhraseLen
	if len(finalWords) < maxLen {
		maxLen = len(finalWords)
	}
	if len(partialWords) < maxLen {
		maxLen = len(partialWords)
	}

	var best overlap
	found := false
	for phraseLen := maxLen; phraseLen >= 1; phraseLen-- {
		tail := finalWords[len(finalWords)-phraseLen:]
		for start := 0; start+phraseLen <= len(partialWords); start++ {
			n := matchedRunLen(tail, partialWords[start:start+phraseLen], finalWords)
			if n == 0 {
				continue
			}
			if !found || n > best.phraseLen {
				best = overlap{phraseLen: n, partialStart: start}
				found = true
			}
		}
	}
	return best, found
}

// matchedRunLen compares tail and candidate position by position and returns
// how many leading words matched. A non-integer mismatch fails the whole
// phrase; an integer mismatch keeps the words matched before it.
func matchedRunLen(tail, candidate []words.Word, context []words.Word) int {
	for i := range tail {
		a, b := tail[i], candidate[i]
		if a.IsDigits() && b.IsDigits() && a.Clean != b.Clean {
			return i
		}
		if !words.Match(a, b, context) {
			return 0
		}
	}
	return len(tail)
}

// windowFallback compares the final's last words against the partial's first
// words one by one when no phrase matched. On success the partial is cut
// after the rightmost matched word.
func windowFallback(finalWords, partialWords []words.Word, prevFinal, partial string) (overlap, bool) {
	finalZone := finalWords
	if len(finalZone) > fallbackWindow {
		finalZone = finalZone[len(finalZone)-fallbackWindow:]
	}
	partialZone := partialWords
	if len(partialZone) > fallbackWindow {
		partialZone = partialZone[:fallbackWindow]
	}

	matchCount := 0
	rightmost := -1
	lastPartialIdx, lastFinalIdx := -1, -1
	for j, pw := range partialZone {
		for i, fw := range finalZone {
			if words.Match(fw, pw, finalWords) {
				matchCount++
				if j > rightmost {
					rightmost = j
				}
				lastPartialIdx, lastFinalIdx = j, i
				break
			}
		}
	}
	if matchCount == 0 {
		return overlap{}, false
	}

	if startsNewSentence(prevFinal, partial, matchCount, lastPartialIdx, lastFinalIdx, len(finalZone)) {
		return overlap{}, false
	}
	return overlap{phraseLen: matchCount, skipCount: rightmost + 1}, true
}

// startsNewSentence guards the fallback against trimming the opening word of
// a genuinely new sentence. A single first-word match that does not line up
// with the final's last word, right after sentence-ending punctuation and a
// capitalized start, is a coincidence, not bleed-over.
func startsNewSentence(prevFinal, partial string, matchCount, partialIdx, finalIdx, zoneLen int) bool {
	if matchCount != 1 || partialIdx != 0 {
		return false
	}
	if !endsSentence(prevFinal) || !startsUpper(partial) {
		return false
	}
	return finalIdx != zoneLen-1
}

func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	switch t[len(t)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func startsUpper(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && t[0] >= 'A' && t[0] <= 'Z'
}

// rebuild removes the matched words from the partial. Window-fallback
// matches drop everything up to the rightmost matched word. Phrase matches
// at the very start drop the phrase; a short phrase in the middle with text
// on both sides is cut out; a lone match elsewhere drops nothing, since
// cutting there would damage the sentence.
func rebuild(partialWords []words.Word, o overlap) string {
	switch {
	case o.skipCount > 0:
		if o.skipCount >= len(partialWords) {
			return ""
		}
		return words.Reconstruct(partialWords[o.skipCount:])
	case o.partialStart == 0:
		if o.phraseLen >= len(partialWords) {
			return ""
		}
		return words.Reconstruct(partialWords[o.phraseLen:])
	case (o.phraseLen == 2 || o.phraseLen == 3) && o.partialStart+o.phraseLen < len(partialWords):
		kept := make([]words.Word, 0, len(partialWords)-o.phraseLen)
		kept = append(kept, partialWords[:o.partialStart]...)
		kept = append(kept, partialWords[o.partialStart+o.phraseLen:]...)
		return words.Reconstruct(kept)
	default:
		return words.Reconstruct(partialWords)
	}
}
