package segment

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Kind classifies a hypothesis segment.
type Kind int

const (
	// KindPartial - In-progress hypothesis; text may still change.
	KindPartial Kind = iota
	// KindFinal - Settled hypothesis for one utterance.
	KindFinal
	// KindForcedFinal - Text force-flushed because the recognizer stream was
	// torn down mid-utterance, not because the utterance ended.
	KindForcedFinal
	// KindRecovery - First final from a restarted stream, covering audio
	// that was re-fed after a teardown.
	KindRecovery
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPartial:
		return "PARTIAL"
	case KindFinal:
		return "FINAL"
	case KindForcedFinal:
		return "FORCED_FINAL"
	case KindRecovery:
		return "RECOVERY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// Segment is one hypothesis event from the recognizer side.
type Segment struct {
	Text      string
	Kind      Kind
	SeqID     uint64
	ArrivedAt time.Time
}

// ErrOutOfOrder signals a segment whose sequence number regressed. Such
// segments are dropped and logged; they are never fatal.
var ErrOutOfOrder = errors.New("segment sequence regressed")

// Guard validates that segment sequence numbers strictly increase within a
// session. Thread-safe.
type Guard struct {
	mu      sync.Mutex
	lastSeq uint64
	seen    bool
}

// Admit checks seqID against the last admitted sequence number. Returns
// ErrOutOfOrder when the number does not advance.
func (g *Guard) Admit(seqID uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen && seqID <= g.lastSeq {
		return fmt.Errorf("%w: got %d after %d", ErrOutOfOrder, seqID, g.lastSeq)
	}
	g.lastSeq = seqID
	g.seen = true
	return nil
}

// Generator hands out strictly increasing sequence numbers and derived
// utterance IDs for a session.
type Generator struct {
	counter    uint64
	utterances uint64
}

func NewGenerator() *Generator {
	return &Generator{}
}

// NextSeq returns the next segment sequence number.
func (g *Generator) NextSeq() uint64 {
	return atomic.AddUint64(&g.counter, 1)
}

// NextUtteranceID returns the next utterance ID for the session.
func (g *Generator) NextUtteranceID(sessionId string) string {
	n := atomic.AddUint64(&g.utterances, 1)
	return fmt.Sprintf("%s-utt-%d", sessionId, n)
}
