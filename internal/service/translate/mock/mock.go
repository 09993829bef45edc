// Package mock provides a translation provider for development sessions
// without OpenAI credentials. Output is the source text tagged with the
// target language, so listeners can tell translated lines apart.
package mock

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider implements translate.Provider with deterministic pseudo
// translations.
type Provider struct {
	// Delay simulates backend latency on every call.
	Delay time.Duration
}

// New creates a new mock translation provider.
func New() *Provider {
	return &Provider{}
}

// Name implements translate.Provider.
func (p *Provider) Name() string {
	return "mock"
}

// Translate implements translate.Provider.
func (p *Provider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("[%s] %s", primarySubtag(targetLang), text), nil
}

func primarySubtag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return tag[:i]
	}
	return tag
}
