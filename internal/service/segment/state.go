// Package segment defines the hypothesis segments flowing out of the speech
// recognizer and the per-utterance lifecycle the ingest side tracks.
package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of an utterance on the ingest side.
type State int

const (
	// StateOpen - Utterance is active, partials are flowing.
	StateOpen State = iota
	// StateFinalized - Final hypothesis received, waiting to close.
	StateFinalized
	// StateClosed - Utterance is closed normally.
	StateClosed
	// StateInterrupted - The recognizer stream went down before a final
	// arrived. The accumulated text is buffered and recovered, never
	// dropped. This is a terminal state for the utterance itself.
	StateInterrupted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalized:
		return "FINALIZED"
	case StateClosed:
		return "CLOSED"
	case StateInterrupted:
		return "INTERRUPTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (CLOSED or INTERRUPTED).
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateInterrupted
}

// Errors for invalid state transitions.
var (
	ErrUtteranceClosed      = errors.New("utterance is closed")
	ErrFinalAlreadyReceived = errors.New("final already received for this utterance")
	ErrPartialAfterFinal    = errors.New("cannot record partial after final")
)

// Lifecycle manages the state machine for a single utterance.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	OPEN → FINALIZED → CLOSED
//	  │        │
//	  │        └── RecordFinal() ──→ only once
//	  │
//	  ├── RecordPartial() ──→ multiple times
//	  │
//	  └── Interrupt() ──→ INTERRUPTED (stream teardown; text goes to recovery)
//
// Rules:
//   - OPEN: Can record partials (multiple), can record final (once → FINALIZED)
//   - FINALIZED: Cannot record partials, cannot record final again, can close
//   - CLOSED / INTERRUPTED: All operations are no-ops or return errors
type Lifecycle struct {
	mu          sync.RWMutex
	utteranceId string
	state       State
}

// NewLifecycle creates a new utterance lifecycle in OPEN state.
func NewLifecycle(utteranceId string) *Lifecycle {
	return &Lifecycle{
		utteranceId: utteranceId,
		state:       StateOpen,
	}
}

// UtteranceId returns the utterance ID.
func (l *Lifecycle) UtteranceId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.utteranceId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsClosed returns true if the utterance is in a terminal state.
func (l *Lifecycle) IsClosed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// RecordPartial validates a partial hypothesis arrival.
// Returns nil if allowed, error if not allowed.
func (l *Lifecycle) RecordPartial() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		return nil
	case StateFinalized:
		return ErrPartialAfterFinal
	case StateClosed, StateInterrupted:
		return ErrUtteranceClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// RecordFinal validates a final hypothesis arrival and transitions to
// FINALIZED. Returns nil if allowed, error if not allowed.
func (l *Lifecycle) RecordFinal() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateFinalized
		return nil
	case StateFinalized:
		return ErrFinalAlreadyReceived
	case StateClosed, StateInterrupted:
		return ErrUtteranceClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close transitions the utterance to CLOSED state.
// Can be called from any state. Idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateClosed
}

// Interrupt marks the utterance as cut off by a stream teardown before its
// final arrived. The caller is expected to buffer the accumulated text for
// recovery; the words are never discarded.
//
// Returns true if the utterance was open and its text needs recovery, false
// if it was already finalized or closed.
func (l *Lifecycle) Interrupt() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateOpen {
		return false
	}
	l.state = StateInterrupted
	return true
}

// Reset resets the lifecycle to OPEN state with a new utterance ID.
// Used when a new utterance begins after an end-of-utterance signal.
func (l *Lifecycle) Reset(newUtteranceId string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.utteranceId = newUtteranceId
	l.state = StateOpen
}
