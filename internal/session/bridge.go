package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/observability/logging"
	"sermon-translate-service/internal/observability/metrics"
	"sermon-translate-service/internal/service/segment"
	"sermon-translate-service/internal/service/stt"
)

// AdapterFactory builds a fresh recognizer stream. The bridge calls it
// once at startup and again on every stream restart.
type AdapterFactory func(ctx context.Context) (stt.Adapter, error)

const (
	// A stream that errors repeatedly right after coming up is not
	// worth restarting forever; three strikes inside the window and
	// the session fails.
	errorStrikeWindow = 2 * time.Second
	maxErrorStrikes   = 3
)

// asrBridge feeds audio to a recognizer stream and converts its
// callbacks into ordered segments for the transcript core. It owns
// stream rotation: near the provider's stream limits it tears the
// stream down, flushes the open utterance as a forced final, re-feeds a
// short audio tail to the replacement stream, and tags the first final
// that re-covers that text as a recovery read.
type asrBridge struct {
	ctx        context.Context
	newAdapter AdapterFactory
	clk        clock.Clock
	gen        *segment.Generator
	emit       func(segment.Segment)
	fail       func(error)
	logger     zerolog.Logger
	sessionID  string
	provider   string

	restartInterval time.Duration
	maxStreamBytes  int64
	tailBytes       int

	mu          sync.Mutex
	adapter     stt.Adapter
	lifecycle   *segment.Lifecycle
	streamStart time.Time
	bytesSent   int64
	tail        []byte
	lastPartial string
	recovering  bool
	generation  int
	strikes     int
	lastErrorAt time.Time
	closed      bool
}

func newASRBridge(
	ctx context.Context,
	sessionID string,
	provider string,
	newAdapter AdapterFactory,
	clk clock.Clock,
	emit func(segment.Segment),
	fail func(error),
	restartInterval time.Duration,
	maxStreamBytes int64,
	tailBytes int,
) *asrBridge {
	return &asrBridge{
		ctx:             ctx,
		newAdapter:      newAdapter,
		clk:             clk,
		gen:             segment.NewGenerator(),
		emit:            emit,
		fail:            fail,
		logger:          logging.WithSession(sessionID),
		sessionID:       sessionID,
		provider:        provider,
		restartInterval: restartInterval,
		maxStreamBytes:  maxStreamBytes,
		tailBytes:       tailBytes,
	}
}

// start opens the first recognizer stream.
func (b *asrBridge) start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	adapter, err := b.newAdapter(b.ctx)
	if err != nil {
		return fmt.Errorf("open recognizer stream: %w", err)
	}
	if err := adapter.Start(b.ctx, b); err != nil {
		return fmt.Errorf("start recognizer stream: %w", err)
	}
	b.adapter = adapter
	b.generation = 1
	b.streamStart = b.clk.Now()
	b.lifecycle = segment.NewLifecycle(b.gen.NextUtteranceID(b.sessionID))
	b.logger = logging.WithStream(b.sessionID, b.provider, b.generation)
	return nil
}

// sendAudio forwards one audio frame, rotating the stream first when it
// is close to the provider's duration or byte limits.
func (b *asrBridge) sendAudio(data []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrSessionClosed
	}

	var reason string
	switch {
	case b.restartInterval > 0 && b.clk.Now().Sub(b.streamStart) >= b.restartInterval:
		reason = "interval"
	case b.maxStreamBytes > 0 && b.bytesSent+int64(len(data)) > b.maxStreamBytes:
		reason = "max_bytes"
	}
	if reason != "" {
		if err := b.restartLocked(reason); err != nil {
			b.mu.Unlock()
			return err
		}
	}

	adapter := b.adapter
	if adapter == nil {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	b.bytesSent += int64(len(data))
	b.appendTailLocked(data)
	b.mu.Unlock()

	metrics.DefaultMetrics.RecordAudioReceived(len(data))

	sendErr := adapter.SendAudio(b.ctx, data)
	if sendErr == nil {
		return nil
	}
	b.logger.Warn().Err(sendErr).Msg("audio send failed, rotating recognizer stream")

	// The stream died under us. Rotate once and retry the frame so a
	// single broken stream does not end the whole session.
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	if b.adapter == adapter {
		if err := b.restartLocked("send_error"); err != nil {
			b.mu.Unlock()
			return err
		}
	}
	adapter = b.adapter
	if adapter == nil {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	b.bytesSent += int64(len(data))
	b.mu.Unlock()

	return adapter.SendAudio(b.ctx, data)
}

// appendTailLocked keeps the most recent tailBytes of audio for
// re-feeding after a restart. Caller holds b.mu.
func (b *asrBridge) appendTailLocked(data []byte) {
	if b.tailBytes <= 0 {
		return
	}
	b.tail = append(b.tail, data...)
	if overflow := len(b.tail) - b.tailBytes; overflow > 0 {
		b.tail = b.tail[overflow:]
	}
}

// restartLocked replaces the recognizer stream. If an utterance was
// open, its best partial is flushed as a forced final and the next
// final from the new stream is tagged as its recovery read. Caller
// holds b.mu.
func (b *asrBridge) restartLocked(reason string) error {
	if b.adapter != nil {
		if err := b.adapter.Close(); err != nil {
			b.logger.Warn().Err(err).Msg("closing recognizer stream")
		}
		b.adapter = nil
	}

	if b.lifecycle.Interrupt() && b.lastPartial != "" {
		b.emitLocked(segment.KindForcedFinal, b.lastPartial)
		b.recovering = true
	} else {
		b.recovering = false
	}
	b.lastPartial = ""

	adapter, err := b.newAdapter(b.ctx)
	if err != nil {
		return fmt.Errorf("reopen recognizer stream: %w", err)
	}
	if err := adapter.Start(b.ctx, b); err != nil {
		return fmt.Errorf("restart recognizer stream: %w", err)
	}
	b.adapter = adapter
	b.generation++
	b.streamStart = b.clk.Now()
	b.bytesSent = 0
	b.lifecycle.Reset(b.gen.NextUtteranceID(b.sessionID))
	b.logger = logging.WithStream(b.sessionID, b.provider, b.generation)
	metrics.DefaultMetrics.RecordStreamRestart(reason)
	b.logger.Info().Str("reason", reason).Msg("recognizer stream rotated")

	if len(b.tail) > 0 {
		tail := make([]byte, len(b.tail))
		copy(tail, b.tail)
		if err := adapter.SendAudio(b.ctx, tail); err != nil {
			b.logger.Warn().Err(err).Msg("re-feeding audio tail failed")
		} else {
			b.bytesSent += int64(len(tail))
		}
	}
	return nil
}

// emitLocked assigns the next sequence number and hands the segment to
// the session loop. Emission happens under b.mu so sequence order and
// channel order cannot diverge.
func (b *asrBridge) emitLocked(kind segment.Kind, text string) {
	b.emit(segment.Segment{
		Text:      text,
		Kind:      kind,
		SeqID:     b.gen.NextSeq(),
		ArrivedAt: b.clk.Now(),
	})
}

// OnPartial implements stt.Callback.
func (b *asrBridge) OnPartial(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if err := b.lifecycle.RecordPartial(); err != nil {
		b.logger.Debug().Err(err).Msg("partial outside open utterance ignored")
		return
	}
	b.lastPartial = text
	b.emitLocked(segment.KindPartial, text)
}

// OnFinal implements stt.Callback.
func (b *asrBridge) OnFinal(text string, confidence float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if err := b.lifecycle.RecordFinal(); err != nil {
		b.logger.Warn().Err(err).Msg("final outside open utterance, starting a fresh one")
		b.lifecycle.Reset(b.gen.NextUtteranceID(b.sessionID))
		_ = b.lifecycle.RecordFinal()
	}

	kind := segment.KindFinal
	if b.recovering {
		kind = segment.KindRecovery
		b.recovering = false
	}
	b.lastPartial = ""
	b.strikes = 0
	b.logger.Debug().
		Float64("confidence", confidence).
		Str("kind", kind.String()).
		Msg("final transcript received")
	b.emitLocked(kind, text)

	if kind == segment.KindRecovery {
		// A recovery read comes from the torn-down stream; no
		// end-of-utterance will follow it.
		b.lifecycle.Close()
		b.lifecycle.Reset(b.gen.NextUtteranceID(b.sessionID))
	}
}

// OnEndOfUtterance implements stt.Callback.
func (b *asrBridge) OnEndOfUtterance() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if b.lifecycle.Interrupt() && b.lastPartial != "" {
		// The utterance ended without a final read. Promote the best
		// partial so the words are not lost.
		_ = b.lifecycle.RecordFinal()
		b.emitLocked(segment.KindFinal, b.lastPartial)
	}
	b.lastPartial = ""
	b.lifecycle.Close()
	b.lifecycle.Reset(b.gen.NextUtteranceID(b.sessionID))
	metrics.DefaultMetrics.RecordUtterance()
}

// OnError implements stt.Callback. A transient stream error triggers a
// rotation; repeated failures in quick succession fail the session.
func (b *asrBridge) OnError(err error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.logger.Warn().Err(err).Msg("recognizer stream error")

	now := b.clk.Now()
	if now.Sub(b.lastErrorAt) < errorStrikeWindow {
		b.strikes++
	} else {
		b.strikes = 1
	}
	b.lastErrorAt = now

	if b.strikes >= maxErrorStrikes {
		b.mu.Unlock()
		b.fail(fmt.Errorf("recognizer stream failing repeatedly: %w", err))
		return
	}
	if rerr := b.restartLocked("stream_error"); rerr != nil {
		b.mu.Unlock()
		b.fail(rerr)
		return
	}
	b.mu.Unlock()
}

// currentGeneration reports how many streams the bridge has opened.
func (b *asrBridge) currentGeneration() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// close tears the bridge down. An open utterance's best partial is
// promoted to a final first so session shutdown commits it.
func (b *asrBridge) close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	if b.lifecycle != nil && b.lifecycle.Interrupt() && b.lastPartial != "" {
		b.emitLocked(segment.KindFinal, b.lastPartial)
	}
	b.closed = true
	adapter := b.adapter
	b.adapter = nil
	b.mu.Unlock()

	if adapter != nil {
		return adapter.Close()
	}
	return nil
}
