package translate

import (
	"context"
	"strings"
)

// Provider is a translation backend.
type Provider interface {
	// Translate renders text from sourceLang into targetLang. Both are
	// BCP-47 tags ("en-US", "es"). Implementations honor ctx deadlines.
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)

	// Name identifies the backend in logs and metrics.
	Name() string
}

// Bound fixes a language pair onto a provider so the commit pipeline can
// transform text without knowing about languages. The attempt token is
// carried through for logging and supersession checks by providers that
// support them.
type Bound struct {
	provider   Provider
	sourceLang string
	targetLang string
}

// Bind returns a Bound transformer, or nil when the pair needs no
// translation (same language on both sides).
func Bind(p Provider, sourceLang, targetLang string) *Bound {
	if p == nil || sameLanguage(sourceLang, targetLang) {
		return nil
	}
	return &Bound{provider: p, sourceLang: sourceLang, targetLang: targetLang}
}

// Transform implements the pipeline's transformer capability.
func (b *Bound) Transform(ctx context.Context, text string, attempt uint64) (string, error) {
	_ = attempt
	return b.provider.Translate(ctx, text, b.sourceLang, b.targetLang)
}

// Provider returns the wrapped backend.
func (b *Bound) Provider() Provider {
	return b.provider
}

// sameLanguage compares primary language subtags, so "en-US" and "en-GB"
// count as the same language.
func sameLanguage(a, b string) bool {
	return primarySubtag(a) == primarySubtag(b)
}

func primarySubtag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return tag[:i]
	}
	return tag
}
