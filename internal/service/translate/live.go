package translate

import (
	"context"
	"sync"
	"time"
)

// liveTransformDeadline bounds one live-snapshot translation. Live lines
// go stale fast, so a slow call is worth less than the next snapshot.
const liveTransformDeadline = 1500 * time.Millisecond

// Live translates live caption snapshots on a latest-wins basis. A single
// worker goroutine holds at most one queued snapshot; submitting a newer
// one replaces the queued text and cancels the in-flight call. Results
// that were superseded while translating are discarded, so the deliver
// callback only ever sees the translation of the newest line it was
// worth finishing.
type Live struct {
	bound   *Bound
	deliver func(source, translated string)

	mu      sync.Mutex
	next    string
	hasNext bool
	cancel  context.CancelFunc
	attempt uint64
	closed  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewLive starts the worker. bound must be non-nil; deliver is invoked
// from the worker goroutine for each snapshot that translated cleanly.
func NewLive(bound *Bound, deliver func(source, translated string)) *Live {
	l := &Live{
		bound:   bound,
		deliver: deliver,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Submit replaces any queued snapshot and cancels the in-flight call.
// It never blocks. Submitting after Close is a no-op.
func (l *Live) Submit(text string) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.next = text
	l.hasNext = true
	if l.cancel != nil {
		l.cancel()
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Close cancels any in-flight call and waits for the worker to exit.
func (l *Live) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	if l.cancel != nil {
		l.cancel()
	}
	close(l.quit)
	l.mu.Unlock()
	<-l.done
}

func (l *Live) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}
		l.drain()

		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return
		}
	}
}

// drain works through snapshots until none is queued. Each call carries
// a fresh attempt token; a snapshot that arrived mid-call supersedes the
// result even when the call finished cleanly.
func (l *Live) drain() {
	for {
		l.mu.Lock()
		if l.closed || !l.hasNext {
			l.mu.Unlock()
			return
		}
		text := l.next
		l.hasNext = false
		ctx, cancel := context.WithTimeout(context.Background(), liveTransformDeadline)
		l.cancel = cancel
		l.attempt++
		attempt := l.attempt
		l.mu.Unlock()

		out, err := l.bound.Transform(ctx, text, attempt)
		cancel()

		l.mu.Lock()
		l.cancel = nil
		superseded := l.hasNext
		closed := l.closed
		l.mu.Unlock()

		if closed {
			return
		}
		if superseded {
			continue
		}
		if Classify(text, out, err) != CategoryOK {
			continue
		}
		l.deliver(text, out)
	}
}
