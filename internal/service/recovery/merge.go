// Package recovery reconciles the text buffered when a recognizer stream is
// torn down with the re-read the restarted stream produces for the same
// audio. The merge never discards words: when no textual relationship can
// be established the two texts are concatenated rather than dropped.
package recovery

import (
	"strings"

	"sermon-translate-service/internal/service/dedup"
)

// Reason names the strategy that produced a merge result.
type Reason int

const (
	// ReasonNone means no merge happened; the buffered text stands alone.
	ReasonNone Reason = iota
	// ReasonExact means both texts normalized to the same string.
	ReasonExact
	// ReasonExtended means the recovered text starts with the buffered text.
	ReasonExtended
	// ReasonCompleted means the recovered text ends with the buffered text,
	// supplying the words the buffer was missing at the front.
	ReasonCompleted
	// ReasonWordOverlap means a word-level overlap joined the two texts.
	ReasonWordOverlap
	// ReasonNextSegment means the combined text merged against the segment
	// that followed the recovery audio.
	ReasonNextSegment
	// ReasonConcatenated means no relationship was found and the texts were
	// joined end to end.
	ReasonConcatenated
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonExact:
		return "exact"
	case ReasonExtended:
		return "extended"
	case ReasonCompleted:
		return "completed"
	case ReasonWordOverlap:
		return "word_overlap"
	case ReasonNextSegment:
		return "next_segment"
	case ReasonConcatenated:
		return "concatenated"
	default:
		return "unknown"
	}
}

// Result is the outcome of reconciling buffered and recovered text.
type Result struct {
	Text   string
	Merged bool
	Reason Reason
}

// Merge reconciles buffered (the text held when the stream went down) with
// recovered (what the restarted recognizer heard for the same audio).
// nextText, when non-empty, is the in-progress text of the segment that
// followed the recovery audio; it is consulted only when the primary
// strategies fail, since recovery audio sometimes belongs to the next
// utterance.
//
// Merged is false only when recovered is empty, in which case Text is the
// buffered text verbatim.
func Merge(buffered, recovered, nextText string) Result {
	buffered = strings.TrimSpace(buffered)
	recovered = strings.TrimSpace(recovered)

	if recovered == "" {
		return Result{Text: buffered, Merged: false, Reason: ReasonNone}
	}
	if buffered == "" {
		return Result{Text: recovered, Merged: true, Reason: ReasonExtended}
	}

	if res, ok := relate(buffered, recovered); ok {
		return res
	}

	if nextText = strings.TrimSpace(nextText); nextText != "" {
		combined := buffered + " " + recovered
		if res, ok := relate(combined, nextText); ok {
			res.Reason = ReasonNextSegment
			return res
		}
	}

	return Result{Text: buffered + " " + recovered, Merged: true, Reason: ReasonConcatenated}
}

// relate tries the ordered textual strategies: exact match, recovered
// extending the buffer, recovered completing the buffer from the front, and
// word-level overlap.
func relate(buffered, recovered string) (Result, bool) {
	normBuffered := normalize(buffered)
	normRecovered := normalize(recovered)

	if normBuffered == normRecovered {
		return Result{Text: buffered, Merged: true, Reason: ReasonExact}, true
	}

	// The two reads rarely agree on trailing punctuation; comparisons strip
	// it from both sides and stay on word boundaries.
	trimmedB := strings.TrimRight(normBuffered, ".!?… ")
	trimmedR := strings.TrimRight(normRecovered, ".!?… ")
	if trimmedB != "" && trimmedR != "" {
		if trimmedB == trimmedR {
			// Same words; keep the read carrying the punctuation.
			text := buffered
			if len(recovered) > len(buffered) {
				text = recovered
			}
			return Result{Text: text, Merged: true, Reason: ReasonExact}, true
		}
		if strings.HasPrefix(trimmedR, trimmedB+" ") {
			return Result{Text: recovered, Merged: true, Reason: ReasonExtended}, true
		}
		if strings.HasSuffix(trimmedR, " "+trimmedB) {
			return Result{Text: recovered, Merged: true, Reason: ReasonCompleted}, true
		}
	}

	if joined, ok := dedup.JoinOverlap(buffered, recovered); ok {
		return Result{Text: joined, Merged: true, Reason: ReasonWordOverlap}, true
	}

	return Result{}, false
}

// normalize lowercases and collapses whitespace so comparisons ignore
// formatting differences between the two reads.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
