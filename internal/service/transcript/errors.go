package transcript

import (
	"errors"
	"fmt"
)

// ErrQueueClosed is returned by Queue.Submit after Close.
var ErrQueueClosed = errors.New("commit queue closed")

// InvariantViolationError reports an internal pipeline bug: a commit
// sequence that failed to advance, or a submission after shutdown. It is
// the only fatal error class; the session must terminate rather than ship
// corrupt output. Everything else in the pipeline degrades per segment.
type InvariantViolationError struct {
	Op     string
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("transcript invariant violated in %s: %s", e.Op, e.Detail)
}

// Reasons attached to skipped or rerouted segments in logs and metrics.
const (
	reasonEmptyInput        = "empty_input"
	reasonOutOfOrder        = "out_of_order"
	reasonDuplicateOfBuffer = "duplicate_of_buffer"
	reasonDedupSuppressed   = "dedup_suppressed"
	reasonVeryShort         = "very_short"
)
