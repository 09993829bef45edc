package transcript

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sermon-translate-service/internal/service/dedup"
)

// FinalizationState represents the commit gate of the pipeline.
type FinalizationState int

const (
	// FinalizationIdle - no utterance is waiting to commit.
	FinalizationIdle FinalizationState = iota
	// FinalizationPending - an incomplete final is held open for extension.
	FinalizationPending
)

// String returns the string representation of the state.
func (s FinalizationState) String() string {
	switch s {
	case FinalizationIdle:
		return "IDLE"
	case FinalizationPending:
		return "PENDING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// CommitCause names what pushed a held finalization out the door.
type CommitCause string

const (
	CauseNone       CommitCause = ""
	CauseMaxWait    CommitCause = "max_wait"
	CauseIdle       CommitCause = "idle"
	CauseSuperseded CommitCause = "superseded"
	CauseFlush      CommitCause = "flush"
)

// Pending holds one finalization that is waiting for more words.
type Pending struct {
	Text       string
	CreatedAt  time.Time
	ExtendedAt time.Time
	initialLen int
}

// Extended reports whether partials or finals have grown the text since
// the pending was created.
func (p Pending) Extended() bool {
	return len(p.Text) > p.initialLen
}

// Engine decides when recognized text is ready to commit. Finals that do
// not look like finished sentences are held open so trailing words arriving
// as separate hypotheses can join them.
//
// State transitions:
//
//	IDLE ──incomplete final──→ PENDING ──extension──→ PENDING (text grows)
//	  ↑                           │
//	  └───────── commit ──────────┘
//	      (max wait, idle timeout,
//	       non-extending final, flush)
//
// Held text always commits eventually; the engine never drops it.
// Confined to the pipeline goroutine; not thread-safe.
type Engine struct {
	cfg     Config
	tracker *Tracker
	state   FinalizationState
	pending Pending
}

// NewEngine returns an Engine consulting tracker for commit-time partial
// substitution.
func NewEngine(cfg Config, tracker *Tracker) *Engine {
	return &Engine{cfg: cfg.withDefaults(), tracker: tracker}
}

// State returns the current state.
func (e *Engine) State() FinalizationState {
	return e.state
}

// Snapshot returns the held finalization, if any.
func (e *Engine) Snapshot() (Pending, bool) {
	return e.pending, e.state == FinalizationPending
}

// OnPartial offers a partial as an extension of the held text. Returns true
// if the pending grew.
func (e *Engine) OnPartial(text string, now time.Time) bool {
	if e.state != FinalizationPending {
		return false
	}
	if !extendsText(text, e.pending.Text) {
		return false
	}
	e.pending.Text = text
	e.pending.ExtendedAt = now
	return true
}

// OnFinal routes a final hypothesis. Incomplete finals are held open;
// complete ones commit immediately. A final that neither extends nor can
// coexist with the held text pushes it out first, so up to two texts can
// commit, in order.
func (e *Engine) OnFinal(text string, now time.Time) []string {
	if e.state == FinalizationPending {
		if extendsText(text, e.pending.Text) {
			e.pending.Text = text
			e.pending.ExtendedAt = now
			return nil
		}
		committed := e.commit(now)
		if isIncomplete(text) {
			e.CreatePending(text, now)
			return []string{committed}
		}
		return []string{committed, text}
	}

	if isIncomplete(text) {
		e.CreatePending(text, now)
		return nil
	}
	return []string{text}
}

// CreatePending holds text open for extension.
func (e *Engine) CreatePending(text string, now time.Time) {
	e.state = FinalizationPending
	e.pending = Pending{
		Text:       text,
		CreatedAt:  now,
		ExtendedAt: now,
		initialLen: len(text),
	}
}

// Tick commits the held finalization once it is overdue: past the absolute
// max wait, or idle beyond the idle timeout. Returns the committed text and
// cause, or CauseNone.
func (e *Engine) Tick(now time.Time) (string, CommitCause) {
	if e.state != FinalizationPending {
		return "", CauseNone
	}
	if now.Sub(e.pending.CreatedAt) >= e.cfg.PendingMaxWait {
		return e.commit(now), CauseMaxWait
	}
	if e.cfg.PendingIdleTimeout > 0 && now.Sub(e.pending.ExtendedAt) >= e.cfg.PendingIdleTimeout {
		return e.commit(now), CauseIdle
	}
	return "", CauseNone
}

// Flush commits the held finalization unconditionally. Returns false when
// nothing was held.
func (e *Engine) Flush(now time.Time) (string, bool) {
	if e.state != FinalizationPending {
		return "", false
	}
	return e.commit(now), true
}

// commit releases the held text, substituting the longest tracked partial
// when the recognizer's view fell behind what the audience already saw.
func (e *Engine) commit(now time.Time) string {
	text := e.pending.Text
	if longest, ok := e.tracker.Longest(); ok && now.Sub(longest.At) < e.cfg.LongestPartialMaxAge {
		if extendsText(longest.Text, text) {
			text = longest.Text
		} else if joined, ok := dedup.JoinOverlap(text, longest.Text); ok && len(joined) > len(text)+3 {
			text = joined
		}
	}
	e.state = FinalizationIdle
	e.pending = Pending{}
	e.tracker.Reset()
	return text
}

// extensionBytePrefix is how many identical leading bytes count as the same
// utterance even when the tail was rewritten.
const extensionBytePrefix = 10

// extendsText reports whether candidate grows base: strictly longer, and
// either continuing it case-insensitively or sharing a long common prefix.
func extendsText(candidate, base string) bool {
	if len(candidate) <= len(base) {
		return false
	}
	if base == "" {
		return true
	}
	if strings.EqualFold(candidate[:len(base)], base) {
		return true
	}
	return commonPrefixLen(candidate, base) >= extensionBytePrefix
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// isIncomplete reports whether text looks like a cut-off sentence: no
// sentence-final punctuation at the end.
func isIncomplete(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(t)
	switch r {
	case '.', '!', '?', '…':
		return false
	}
	return true
}
