// Package transcript normalizes the raw hypothesis stream of a speech
// recognizer into an ordered sequence of live caption updates and committed
// utterances. It deduplicates partials against committed text, holds
// incomplete finals open for extension, reconciles stream-restart re-reads,
// and serializes downstream post-processing per session.
package transcript

import "time"

// Config holds the pipeline tunables. Zero durations and counts fall back
// to the DefaultConfig values at construction; EnableRecovery is a plain
// flag and stays as given.
type Config struct {
	// DedupTimeWindow is how long a committed final stays eligible for
	// overlap detection against new partials.
	DedupTimeWindow time.Duration

	// DedupMaxPhraseLen caps the phrase length tried during tail matching.
	DedupMaxPhraseLen int

	// PendingMaxWait bounds how long an incomplete final is held open
	// before it commits regardless.
	PendingMaxWait time.Duration

	// PendingIdleTimeout commits a held finalization once no extension has
	// arrived for this long. Zero disables the idle check.
	PendingIdleTimeout time.Duration

	// ShortPartialThreshold is the length below which a partial right after
	// a commit is treated as recognizer noise.
	ShortPartialThreshold int

	// CommitDeadline bounds one downstream post-processing attempt.
	CommitDeadline time.Duration

	// LongestPartialMaxAge bounds how old a tracked partial may be and
	// still substitute for a shorter final.
	LongestPartialMaxAge time.Duration

	// EnableRecovery turns stream-restart reconciliation on. When false a
	// forced final commits immediately and recovery segments are handled
	// as ordinary finals.
	EnableRecovery bool

	// MaxRetries is how many extra downstream attempts a commit gets
	// before its source text ships as fallback.
	MaxRetries int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		DedupTimeWindow:       5 * time.Second,
		DedupMaxPhraseLen:     5,
		PendingMaxWait:        5 * time.Second,
		PendingIdleTimeout:    2 * time.Second,
		ShortPartialThreshold: 4,
		CommitDeadline:        2 * time.Second,
		LongestPartialMaxAge:  10 * time.Second,
		EnableRecovery:        true,
		MaxRetries:            2,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DedupTimeWindow <= 0 {
		c.DedupTimeWindow = def.DedupTimeWindow
	}
	if c.DedupMaxPhraseLen <= 0 {
		c.DedupMaxPhraseLen = def.DedupMaxPhraseLen
	}
	if c.PendingMaxWait <= 0 {
		c.PendingMaxWait = def.PendingMaxWait
	}
	if c.ShortPartialThreshold <= 0 {
		c.ShortPartialThreshold = def.ShortPartialThreshold
	}
	if c.CommitDeadline <= 0 {
		c.CommitDeadline = def.CommitDeadline
	}
	if c.LongestPartialMaxAge <= 0 {
		c.LongestPartialMaxAge = def.LongestPartialMaxAge
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
