package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/observability/metrics"
	"sermon-translate-service/internal/service/dedup"
	"sermon-translate-service/internal/service/recovery"
	"sermon-translate-service/internal/service/segment"
	"sermon-translate-service/internal/service/translate"
)

// Transformer turns committed transcript text into its downstream form.
// Implementations are typically translation providers bound to a language
// pair; a nil Transformer passes text through unchanged.
type Transformer interface {
	Transform(ctx context.Context, text string, attempt uint64) (string, error)
}

// Sink observes pipeline output. Calls arrive on the goroutine driving the
// pipeline; implementations must not block it.
type Sink interface {
	// OnLivePartial replaces the live caption line. Empty text clears it.
	OnLivePartial(text string)

	// OnCommitted delivers one finalized utterance after downstream
	// processing. Fires exactly once per commit, in commit order.
	OnCommitted(ev CommittedEvent)
}

// CommittedEvent is one finalized utterance with its downstream result.
type CommittedEvent struct {
	Seq         uint64
	Text        string
	Output      string
	Fallback    bool
	Category    translate.Category
	CommittedAt time.Time
	ProcessedIn time.Duration
}

// Hardcoded router thresholds. The configurable knobs live in Config.
const (
	// veryShortGrace is the window after a commit in which stray short
	// partials count as recognizer noise.
	veryShortGrace = 500 * time.Millisecond

	// postCommitWindow is the window after a commit in which a substantial
	// partial opens a new pending finalization, catching utterances whose
	// final never arrives.
	postCommitWindow = 2 * time.Second

	// postCommitMinChars is how long such a partial must be.
	postCommitMinChars = 15
)

// forcedBuffer holds text flushed by a stream teardown until its recovery
// re-read arrives.
type forcedBuffer struct {
	text      string
	createdAt time.Time
}

// Core routes recognizer segments through deduplication, finalization, and
// recovery, and serializes downstream post-processing. One Core serves one
// session and is driven by a single goroutine; only the commit queue's
// dispatcher runs beside it.
type Core struct {
	cfg         Config
	clk         clock.Clock
	log         zerolog.Logger
	sink        Sink
	transformer Transformer

	dedup   *dedup.Deduplicator
	tracker *Tracker
	engine  *Engine
	queue   *Queue
	guard   *segment.Guard
	buffer  *forcedBuffer

	lastFinalText string
	lastFinalAt   time.Time
	hasLastFinal  bool

	commitSeq        uint64
	lastProcessedSeq uint64
	attempts         uint64

	completions chan CommittedEvent
	failure     error
}

// New builds a Core. transformer may be nil for transcription-only
// sessions.
func New(cfg Config, clk clock.Clock, transformer Transformer, sink Sink, logger zerolog.Logger) *Core {
	cfg = cfg.withDefaults()
	tracker := &Tracker{}
	c := &Core{
		cfg:         cfg,
		clk:         clk,
		log:         logger,
		sink:        sink,
		transformer: transformer,
		dedup: dedup.New(dedup.Config{
			TimeWindow:   cfg.DedupTimeWindow,
			MaxPhraseLen: cfg.DedupMaxPhraseLen,
		}),
		tracker:     tracker,
		engine:      NewEngine(cfg, tracker),
		guard:       &segment.Guard{},
		completions: make(chan CommittedEvent, 32),
	}
	c.queue = NewQueue(c.processCommit)
	return c
}

// HandleSegment routes one recognizer segment. The returned error is
// non-nil only for invariant violations, which are fatal to the session;
// malformed segments are dropped and logged.
func (c *Core) HandleSegment(seg segment.Segment) error {
	if c.failure != nil {
		return c.failure
	}

	if err := c.guard.Admit(seg.SeqID); err != nil {
		c.log.Warn().Err(err).Uint64("seq_id", seg.SeqID).Str("kind", seg.Kind.String()).
			Msg("dropping out-of-order segment")
		metrics.DefaultMetrics.RecordSegmentDropped(reasonOutOfOrder)
		return nil
	}
	metrics.DefaultMetrics.RecordSegment(seg.Kind.String())

	now := seg.ArrivedAt
	if now.IsZero() {
		now = c.clk.Now()
	}

	switch seg.Kind {
	case segment.KindPartial:
		c.handlePartial(seg.Text, now)
	case segment.KindFinal:
		c.handleFinal(seg.Text, now)
	case segment.KindForcedFinal:
		c.handleForcedFinal(seg.Text, now)
	case segment.KindRecovery:
		c.handleRecovery(seg.Text, now)
	default:
		c.log.Warn().Str("kind", seg.Kind.String()).Msg("dropping segment of unknown kind")
	}
	return c.failure
}

// Tick drives time-based commits: overdue pending finalizations and
// teardown buffers whose recovery never arrived.
func (c *Core) Tick(now time.Time) {
	if c.failure != nil {
		return
	}

	if text, cause := c.engine.Tick(now); cause != CauseNone {
		c.log.Debug().Str("cause", string(cause)).Msg("held finalization timed out")
		metrics.DefaultMetrics.RecordPendingTimeout(string(cause))
		c.submitCommit(text, now)
	}

	if c.buffer != nil && now.Sub(c.buffer.createdAt) >= c.cfg.PendingMaxWait {
		c.log.Warn().Msg("recovery never arrived, committing buffered text")
		metrics.DefaultMetrics.RecordRecoveryTimeout()
		text := c.buffer.text
		c.buffer = nil
		c.submitCommit(text, now)
	}
}

// Flush commits everything still held: the pending finalization and any
// buffered teardown text. Called when the session ends.
func (c *Core) Flush(now time.Time) {
	if text, ok := c.engine.Flush(now); ok {
		c.submitCommit(text, now)
	}
	if c.buffer != nil {
		text := c.buffer.text
		c.buffer = nil
		c.submitCommit(text, now)
	}
}

// Completions delivers processed commits to the driving goroutine, which
// must pass each to OnCommitProcessed.
func (c *Core) Completions() <-chan CommittedEvent {
	return c.completions
}

// OnCommitProcessed records a finished commit and notifies the sink. Must
// be called from the driving goroutine for every event read from
// Completions.
func (c *Core) OnCommitProcessed(ev CommittedEvent) {
	if ev.Seq <= c.lastProcessedSeq {
		c.fail("commit_completion", fmt.Sprintf("seq %d completed after %d", ev.Seq, c.lastProcessedSeq))
		return
	}
	c.lastProcessedSeq = ev.Seq

	c.lastFinalText = ev.Text
	c.lastFinalAt = c.clk.Now()
	c.hasLastFinal = true

	metrics.DefaultMetrics.RecordCommitDequeued()
	c.sink.OnCommitted(ev)
}

// Close stops the commit queue after Flush. Queued commits still drain;
// Done is closed when the last one has been processed. Callers must keep
// draining Completions until then.
func (c *Core) Close() {
	c.queue.Close()
}

// Done reports that the commit queue has drained.
func (c *Core) Done() <-chan struct{} {
	return c.queue.Done()
}

// QueueDepth reports commits waiting for downstream processing.
func (c *Core) QueueDepth() int {
	return c.queue.Depth()
}

// Err returns the latched invariant violation, if any.
func (c *Core) Err() error {
	return c.failure
}

func (c *Core) handlePartial(text string, now time.Time) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.DefaultMetrics.RecordSegmentDropped(reasonEmptyInput)
		return
	}

	shown := text
	if c.hasLastFinal {
		shown = c.dedup.StripOverlap(c.lastFinalText, c.lastFinalAt, text, now)
	}
	if shown == "" {
		c.log.Debug().Int("text_len", len(text)).Msg("partial fully deduplicated")
		metrics.DefaultMetrics.RecordPartialSuppressed(reasonDedupSuppressed)
		c.sink.OnLivePartial("")
		return
	}

	if c.dropVeryShort(shown, now) {
		c.log.Debug().Str("text", shown).Msg("dropping very short post-commit partial")
		metrics.DefaultMetrics.RecordPartialSuppressed(reasonVeryShort)
		return
	}

	c.tracker.Update(shown, now)

	if c.engine.OnPartial(shown, now) {
		metrics.DefaultMetrics.RecordPendingExtended()
	} else if c.shouldOpenPostCommitPending(shown, now) {
		c.engine.CreatePending(shown, now)
		metrics.DefaultMetrics.RecordPendingCreated()
	}

	metrics.DefaultMetrics.RecordLivePartial()
	c.sink.OnLivePartial(shown)
}

// dropVeryShort filters stray fragments the recognizer emits right after
// an utterance boundary.
func (c *Core) dropVeryShort(text string, now time.Time) bool {
	if len(text) >= c.cfg.ShortPartialThreshold {
		return false
	}
	if !c.hasLastFinal || now.Sub(c.lastFinalAt) >= veryShortGrace {
		return false
	}
	if c.engine.State() == FinalizationPending {
		return false
	}
	if c.buffer != nil && extendsText(text, c.buffer.text) {
		return false
	}
	return true
}

// shouldOpenPostCommitPending opens a pending for a substantial partial
// arriving right after a commit, so its words still commit even if the
// recognizer never sends a final for them.
func (c *Core) shouldOpenPostCommitPending(text string, now time.Time) bool {
	if c.engine.State() != FinalizationIdle {
		return false
	}
	if !c.hasLastFinal || now.Sub(c.lastFinalAt) >= postCommitWindow {
		return false
	}
	return len(text) >= postCommitMinChars
}

func (c *Core) handleFinal(text string, now time.Time) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.DefaultMetrics.RecordSegmentDropped(reasonEmptyInput)
		return
	}

	if c.buffer != nil && sameText(text, c.buffer.text) {
		// The restarted recognizer re-heard exactly what was force-flushed;
		// the recovery path owns that text.
		c.log.Debug().Msg("final duplicates the teardown buffer, dropping")
		metrics.DefaultMetrics.RecordSegmentDropped(reasonDuplicateOfBuffer)
		return
	}

	textToUse := text
	if longest, ok := c.tracker.Longest(); ok &&
		len(longest.Text) > len(text) &&
		extendsText(longest.Text, text) &&
		now.Sub(longest.At) < c.cfg.LongestPartialMaxAge {
		c.log.Debug().Int("final_len", len(text)).Int("longest_len", len(longest.Text)).
			Msg("final shorter than longest partial, substituting")
		textToUse = longest.Text
	}

	for _, committed := range c.engine.OnFinal(textToUse, now) {
		c.submitCommit(committed, now)
	}
}

func (c *Core) handleForcedFinal(text string, now time.Time) {
	text = strings.TrimSpace(text)

	// A teardown interrupts any held finalization; its text commits now
	// rather than riding through recovery twice.
	if committed, ok := c.engine.Flush(now); ok {
		c.submitCommit(committed, now)
	}

	if text == "" {
		return
	}

	if !c.cfg.EnableRecovery {
		c.submitCommit(text, now)
		return
	}

	if c.buffer != nil {
		// Two teardowns without a recovery between them. The held text is
		// committed verbatim; replacing it silently would lose words.
		c.log.Warn().Msg("forced final arrived while one was already buffered, committing the old one")
		metrics.DefaultMetrics.RecordStaleForcedFinal()
		c.submitCommit(c.buffer.text, now)
	}

	c.buffer = &forcedBuffer{text: text, createdAt: now}
	c.tracker.Reset()
	metrics.DefaultMetrics.RecordForcedFinalBuffered()
	c.log.Info().Int("text_len", len(text)).Msg("buffered teardown text, awaiting recovery")
}

func (c *Core) handleRecovery(text string, now time.Time) {
	text = strings.TrimSpace(text)

	if c.buffer == nil {
		// Nothing was torn down; the tag is wrong but the words are real.
		c.log.Debug().Msg("recovery segment without buffered text, handling as final")
		metrics.DefaultMetrics.RecordRecoveryUnmatched()
		c.handleFinal(text, now)
		return
	}

	buf := c.buffer
	c.buffer = nil

	next := ""
	if latest, ok := c.tracker.Latest(); ok {
		next = latest.Text
	}

	res := recovery.Merge(buf.text, text, next)
	metrics.DefaultMetrics.RecordRecoveryMerge(res.Reason.String())
	c.log.Info().Str("reason", res.Reason.String()).Bool("merged", res.Merged).
		Int("buffered_len", len(buf.text)).Int("recovered_len", len(text)).
		Msg("reconciled teardown buffer with recovery")

	if !res.Merged {
		// Empty recovery: the buffered text commits verbatim.
		c.submitCommit(res.Text, now)
		return
	}
	c.handleFinal(res.Text, now)
}

func (c *Core) submitCommit(text string, now time.Time) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.commitSeq++
	rec := CommitRecord{Text: text, Seq: c.commitSeq, CommittedAt: now}

	c.tracker.Reset()

	if err := c.queue.Submit(rec); err != nil {
		c.fail("commit_submit", err.Error())
		return
	}
	metrics.DefaultMetrics.RecordCommitQueued()
	c.log.Info().Uint64("commit_seq", rec.Seq).Int("text_len", len(text)).Msg("utterance committed")
}

// processCommit runs on the queue dispatcher goroutine.
func (c *Core) processCommit(rec CommitRecord) {
	start := c.clk.Now()
	ev := c.transform(rec)
	ev.ProcessedIn = c.clk.Now().Sub(start)
	metrics.DefaultMetrics.RecordCommitProcessed(ev.ProcessedIn.Seconds())
	c.completions <- ev
}

// transform runs downstream post-processing with bounded retries. It always
// produces output: when translation cannot be had, the source text ships.
func (c *Core) transform(rec CommitRecord) CommittedEvent {
	ev := CommittedEvent{Seq: rec.Seq, Text: rec.Text, CommittedAt: rec.CommittedAt}
	if c.transformer == nil {
		ev.Output = rec.Text
		return ev
	}

	tries := c.cfg.MaxRetries + 1
	for i := 0; i < tries; i++ {
		c.attempts++
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CommitDeadline)
		out, err := c.transformer.Transform(ctx, rec.Text, c.attempts)
		cancel()

		cat := translate.Classify(rec.Text, out, err)
		metrics.DefaultMetrics.RecordTranslationOutcome(cat.String())
		ev.Category = cat

		switch cat.Action() {
		case translate.ActionAccept:
			ev.Output = strings.TrimSpace(out)
			return ev
		case translate.ActionRetry:
			c.log.Warn().Str("category", cat.String()).Int("attempt", i+1).
				Uint64("commit_seq", rec.Seq).Msg("downstream transform retrying")
		default:
			ev.Output = rec.Text
			ev.Fallback = true
			metrics.DefaultMetrics.RecordTranslationFallback()
			c.log.Warn().Str("category", cat.String()).Uint64("commit_seq", rec.Seq).
				Msg("downstream transform failed, shipping source text")
			return ev
		}
	}

	ev.Output = rec.Text
	ev.Fallback = true
	metrics.DefaultMetrics.RecordTranslationFallback()
	c.log.Warn().Str("category", ev.Category.String()).Uint64("commit_seq", rec.Seq).
		Msg("downstream retries exhausted, shipping source text")
	return ev
}

func (c *Core) fail(op, detail string) {
	err := &InvariantViolationError{Op: op, Detail: detail}
	c.failure = err
	metrics.DefaultMetrics.RecordInvariantViolation()
	c.log.Error().Err(err).Msg("fatal pipeline error")
}

// sameText compares texts ignoring case and whitespace runs.
func sameText(a, b string) bool {
	return strings.Join(strings.Fields(strings.ToLower(a)), " ") ==
		strings.Join(strings.Fields(strings.ToLower(b)), " ")
}
