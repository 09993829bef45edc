package dedup

import (
	"sermon-translate-service/internal/service/words"
)

const (
	joinMaxWords = 5
	joinMaxChars = 20
)

// JoinOverlap merges a and b when the last words of a are also the first
// words of b, keeping the shared run once. The largest overlap up to
// joinMaxWords words and joinMaxChars characters wins. ok reports whether
// any overlap was found; on failure the returned text is empty.
func JoinOverlap(a, b string) (string, bool) {
	aw := words.Tokenize(a)
	bw := words.Tokenize(b)
	if len(aw) == 0 || len(bw) == 0 {
		return "", false
	}

	max := joinMaxWords
	if len(aw) < max {
		max = len(aw)
	}
	if len(bw) < max {
		max = len(bw)
	}

	for k := max; k >= 1; k-- {
		if overlapChars(bw[:k]) > joinMaxChars {
			continue
		}
		if runsMatch(aw[len(aw)-k:], bw[:k], aw) {
			joined := make([]words.Word, 0, len(aw)+len(bw)-k)
			joined = append(joined, aw...)
			joined = append(joined, bw[k:]...)
			return words.Reconstruct(joined), true
		}
	}
	return "", false
}

func runsMatch(a, b []words.Word, context []words.Word) bool {
	for i := range a {
		if !words.Match(a[i], b[i], context) {
			return false
		}
	}
	return true
}

func overlapChars(ws []words.Word) int {
	n := 0
	for i, w := range ws {
		if i > 0 {
			n++
		}
		n += len(w.Original)
	}
	return n
}
