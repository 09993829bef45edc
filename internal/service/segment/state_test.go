package segment

import (
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	if lc.State() != StateOpen {
		t.Errorf("expected StateOpen, got %v", lc.State())
	}
	if lc.UtteranceId() != "sess-1-utt-1" {
		t.Errorf("expected sess-1-utt-1, got %v", lc.UtteranceId())
	}
	if lc.IsClosed() {
		t.Error("expected IsClosed to be false")
	}
}

func TestLifecycle_RecordPartial_InOpenState(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	// Should allow multiple partials
	for i := 0; i < 5; i++ {
		if err := lc.RecordPartial(); err != nil {
			t.Errorf("partial %d: unexpected error: %v", i, err)
		}
	}

	// State should still be OPEN
	if lc.State() != StateOpen {
		t.Errorf("expected StateOpen after partials, got %v", lc.State())
	}
}

func TestLifecycle_RecordFinal_TransitionsToFinalized(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	if err := lc.RecordFinal(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if lc.State() != StateFinalized {
		t.Errorf("expected StateFinalized, got %v", lc.State())
	}
}

func TestLifecycle_RecordFinal_OnlyOnce(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	// First final should succeed
	if err := lc.RecordFinal(); err != nil {
		t.Errorf("first final: unexpected error: %v", err)
	}

	// Second final should fail
	if err := lc.RecordFinal(); err != ErrFinalAlreadyReceived {
		t.Errorf("second final: expected ErrFinalAlreadyReceived, got %v", err)
	}
}

func TestLifecycle_RecordPartial_FailsAfterFinal(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	if err := lc.RecordFinal(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := lc.RecordPartial(); err != ErrPartialAfterFinal {
		t.Errorf("expected ErrPartialAfterFinal, got %v", err)
	}
}

func TestLifecycle_Close_TransitionsToClosed(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	lc.Close()

	if lc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", lc.State())
	}
	if !lc.IsClosed() {
		t.Error("expected IsClosed to be true")
	}
}

func TestLifecycle_Close_Idempotent(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	lc.Close()
	lc.Close()
	lc.Close()

	if lc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", lc.State())
	}
}

func TestLifecycle_OperationsFailAfterClose(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")
	lc.Close()

	if err := lc.RecordPartial(); err != ErrUtteranceClosed {
		t.Errorf("RecordPartial: expected ErrUtteranceClosed, got %v", err)
	}

	if err := lc.RecordFinal(); err != ErrUtteranceClosed {
		t.Errorf("RecordFinal: expected ErrUtteranceClosed, got %v", err)
	}
}

func TestLifecycle_Reset(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	lc.RecordFinal()
	lc.Close()

	// Reset to new utterance
	lc.Reset("sess-1-utt-2")

	if lc.UtteranceId() != "sess-1-utt-2" {
		t.Errorf("expected sess-1-utt-2, got %v", lc.UtteranceId())
	}
	if lc.State() != StateOpen {
		t.Errorf("expected StateOpen after reset, got %v", lc.State())
	}
	if err := lc.RecordPartial(); err != nil {
		t.Errorf("expected partials allowed after reset, got %v", err)
	}
}

func TestLifecycle_FullCycle(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	// Record partials
	for i := 0; i < 3; i++ {
		if err := lc.RecordPartial(); err != nil {
			t.Fatalf("partial %d failed: %v", i, err)
		}
	}

	// Record final
	if err := lc.RecordFinal(); err != nil {
		t.Fatalf("final failed: %v", err)
	}

	// Close
	lc.Close()

	// Verify final state
	if lc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateOpen, "OPEN"},
		{StateFinalized, "FINALIZED"},
		{StateClosed, "CLOSED"},
		{StateInterrupted, "INTERRUPTED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

// --- Tests for INTERRUPTED state (stream teardown) ---

func TestLifecycle_Interrupt_FromOpenState(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	// Interrupt should report that recovery is needed from OPEN
	if !lc.Interrupt() {
		t.Error("expected Interrupt() to return true from OPEN state")
	}

	if lc.State() != StateInterrupted {
		t.Errorf("expected StateInterrupted, got %v", lc.State())
	}
	if !lc.IsClosed() {
		t.Error("expected IsClosed to be true for interrupted utterance")
	}
}

func TestLifecycle_Interrupt_AfterFinal(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")
	lc.RecordFinal()

	// A finalized utterance has nothing to recover
	if lc.Interrupt() {
		t.Error("expected Interrupt() to return false from FINALIZED state")
	}

	if lc.State() != StateFinalized {
		t.Errorf("expected StateFinalized, got %v", lc.State())
	}
}

func TestLifecycle_Interrupt_Idempotent(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")

	if !lc.Interrupt() {
		t.Error("expected first Interrupt() to return true")
	}

	// Subsequent interrupts return false (already terminal)
	if lc.Interrupt() {
		t.Error("expected second Interrupt() to return false")
	}

	if lc.State() != StateInterrupted {
		t.Errorf("expected StateInterrupted, got %v", lc.State())
	}
}

func TestLifecycle_OperationsFailAfterInterrupt(t *testing.T) {
	lc := NewLifecycle("sess-1-utt-1")
	lc.Interrupt()

	if err := lc.RecordPartial(); err != ErrUtteranceClosed {
		t.Errorf("RecordPartial: expected ErrUtteranceClosed, got %v", err)
	}

	if err := lc.RecordFinal(); err != ErrUtteranceClosed {
		t.Errorf("RecordFinal: expected ErrUtteranceClosed, got %v", err)
	}
}

func TestLifecycle_Interrupt_MidUtterance(t *testing.T) {
	// Simulate the production scenario: partials are flowing, the
	// recognizer stream hits its duration cap and is torn down, and the
	// accumulated text has to be handed to recovery.
	lc := NewLifecycle("sess-1-utt-1")

	for i := 0; i < 3; i++ {
		if err := lc.RecordPartial(); err != nil {
			t.Fatalf("partial %d failed: %v", i, err)
		}
	}

	if !lc.Interrupt() {
		t.Error("expected Interrupt() to succeed mid-utterance")
	}

	if err := lc.RecordFinal(); err != ErrUtteranceClosed {
		t.Errorf("expected ErrUtteranceClosed after interrupt, got %v", err)
	}
}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state      State
		isTerminal bool
	}{
		{StateOpen, false},
		{StateFinalized, false},
		{StateClosed, true},
		{StateInterrupted, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.isTerminal {
			t.Errorf("State(%s).IsTerminal() = %v, want %v", tt.state, got, tt.isTerminal)
		}
	}
}
