// Package translate turns committed transcript text into the target
// language and classifies downstream outcomes so the pipeline knows
// whether to retry, accept, or ship the source text as fallback.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider-independent failure modes. Backends wrap their transport errors
// into these so classification stays uniform.
var (
	ErrRateLimited = errors.New("translation rate limited")
	ErrTruncated   = errors.New("translation truncated by length limit")
	ErrEmptyResult = errors.New("translation returned no text")
)

// Category classifies one downstream transformation outcome.
type Category int

const (
	// CategoryNone - no transformation ran (pass-through mode).
	CategoryNone Category = iota
	// CategoryOK - usable translated text.
	CategoryOK
	// CategoryCancelled - the attempt was cancelled, typically because a
	// newer attempt superseded it.
	CategoryCancelled
	// CategoryConversational - the model chatted instead of translating.
	CategoryConversational
	// CategoryLeakedSource - the output is the input echoed back untranslated.
	CategoryLeakedSource
	// CategoryTruncated - the output was cut off by a length limit.
	CategoryTruncated
	// CategoryTimeout - the attempt exceeded its deadline.
	CategoryTimeout
	// CategoryRateLimit - the backend refused the request under load.
	CategoryRateLimit
	// CategoryUnknown - any other failure.
	CategoryUnknown
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryOK:
		return "ok"
	case CategoryCancelled:
		return "cancelled"
	case CategoryConversational:
		return "conversational"
	case CategoryLeakedSource:
		return "leaked_source"
	case CategoryTruncated:
		return "truncated"
	case CategoryTimeout:
		return "timeout"
	case CategoryRateLimit:
		return "rate_limit"
	case CategoryUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// Action is what the commit pipeline does with an outcome.
type Action int

const (
	// ActionAccept - take the output and advance.
	ActionAccept Action = iota
	// ActionRetry - try the same text again without advancing.
	ActionRetry
	// ActionFallback - advance with the untranslated source text.
	ActionFallback
)

// Action maps a category to its handling. Retryable categories are the
// ones where a second attempt can plausibly produce usable text; everything
// else ships the source text so the audience is never left waiting.
func (c Category) Action() Action {
	switch c {
	case CategoryNone, CategoryOK:
		return ActionAccept
	case CategoryCancelled, CategoryLeakedSource, CategoryTruncated:
		return ActionRetry
	default:
		return ActionFallback
	}
}

// Classify inspects one transformation attempt. input is the source text,
// output what the backend returned, err its error if any.
func Classify(input, output string, err error) Category {
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return CategoryCancelled
		case errors.Is(err, context.DeadlineExceeded):
			return CategoryTimeout
		case errors.Is(err, ErrRateLimited):
			return CategoryRateLimit
		case errors.Is(err, ErrTruncated):
			return CategoryTruncated
		default:
			return CategoryUnknown
		}
	}

	out := strings.TrimSpace(output)
	if out == "" {
		return CategoryUnknown
	}
	if isConversational(out) {
		return CategoryConversational
	}
	if normalizeText(out) == normalizeText(input) {
		return CategoryLeakedSource
	}
	return CategoryOK
}

// conversationalOpenings are chat-style starts a translation never has.
var conversationalOpenings = []string{
	"i'm sorry",
	"i am sorry",
	"i apologize",
	"i cannot",
	"i can't",
	"as an ai",
	"sure, here",
	"sure! here",
	"here is the translation",
	"here's the translation",
	"the translation is",
	"please provide",
}

func isConversational(output string) bool {
	lower := strings.ToLower(output)
	for _, opening := range conversationalOpenings {
		if strings.HasPrefix(lower, opening) {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
