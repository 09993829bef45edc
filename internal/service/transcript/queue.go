package transcript

import (
	"sync"
	"time"
)

// CommitRecord is one finalized utterance handed to downstream
// post-processing.
type CommitRecord struct {
	Text        string
	Seq         uint64
	CommittedAt time.Time
}

// Queue runs downstream post-processing for commits strictly in submission
// order. A single dispatcher goroutine works one commit at a time, so a
// slow translation can never reorder utterances. Submit never blocks the
// pipeline.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	waiting  []CommitRecord
	inFlight bool
	closed   bool
	process  func(CommitRecord)
	done     chan struct{}
}

// NewQueue starts the dispatcher. process is invoked on the dispatcher
// goroutine and may block; its own deadlines bound each call.
func NewQueue(process func(CommitRecord)) *Queue {
	q := &Queue{
		process: process,
		done:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Submit appends a commit for processing. Returns ErrQueueClosed after
// Close.
func (q *Queue) Submit(rec CommitRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.waiting = append(q.waiting, rec)
	q.cond.Signal()
	return nil
}

// Depth reports queued plus in-flight commits.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.waiting)
	if q.inFlight {
		n++
	}
	return n
}

// Close stops intake. Already-queued commits still drain; Done is closed
// once the last one has been processed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Done reports dispatcher exit after Close and drain.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.waiting) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.waiting) == 0 {
			q.mu.Unlock()
			return
		}
		rec := q.waiting[0]
		q.waiting = q.waiting[1:]
		q.inFlight = true
		q.mu.Unlock()

		q.process(rec)

		q.mu.Lock()
		q.inFlight = false
		q.mu.Unlock()
	}
}
