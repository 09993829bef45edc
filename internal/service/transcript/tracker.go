package transcript

import (
	"strings"
	"time"
)

// TrackedPartial is a snapshot of one partial hypothesis.
type TrackedPartial struct {
	Text string
	At   time.Time
}

// Tracker remembers the latest and the longest partial of the current
// utterance. Recognizers sometimes settle on a final that is shorter than
// text they already showed; the longest partial rescues those words at
// commit time.
//
// Confined to the pipeline goroutine; not thread-safe.
type Tracker struct {
	latest  TrackedPartial
	longest TrackedPartial
	valid   bool
}

// Update records a partial. Whitespace-only text is ignored.
func (t *Tracker) Update(text string, at time.Time) {
	if strings.TrimSpace(text) == "" {
		return
	}
	t.latest = TrackedPartial{Text: text, At: at}
	if !t.valid || len(text) > len(t.longest.Text) {
		t.longest = TrackedPartial{Text: text, At: at}
	}
	t.valid = true
}

// Latest returns the most recent partial.
func (t *Tracker) Latest() (TrackedPartial, bool) {
	return t.latest, t.valid
}

// Longest returns the longest partial seen since the last reset.
func (t *Tracker) Longest() (TrackedPartial, bool) {
	return t.longest, t.valid
}

// Reset forgets both snapshots. Called on every commit and on stream
// teardown so stale text never substitutes into a later utterance.
func (t *Tracker) Reset() {
	*t = Tracker{}
}
