package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/events"
	"sermon-translate-service/internal/models"
	"sermon-translate-service/internal/observability/logging"
	"sermon-translate-service/internal/service/segment"
	"sermon-translate-service/internal/service/transcript"
	"sermon-translate-service/internal/service/translate"
)

// ErrSessionClosed is returned for operations on a session that has
// ended, whether by request or by a fatal pipeline error.
var ErrSessionClosed = errors.New("session closed")

const (
	segmentBuffer  = 64
	outboxBuffer   = 256
	tickInterval   = 200 * time.Millisecond
	drainWindow    = 250 * time.Millisecond
	publishTimeout = 10 * time.Second
)

// Config carries one session's settings.
type Config struct {
	SessionID      string
	STTProvider    string
	SourceLanguage string
	TargetLanguage string
	LivePartials   bool

	RestartInterval time.Duration
	MaxStreamBytes  int64
	TailBytes       int

	Transcript transcript.Config
}

// Session is one speaker's live pipeline: recognizer stream in,
// normalized transcript out to listeners and the event bus. All
// transcript state is owned by a single goroutine; the only other
// workers are the commit queue inside the core, the optional live
// translator, and the publish loop, each fed through channels.
type Session struct {
	id         string
	cfg        Config
	clk        clock.Clock
	logger     zerolog.Logger
	newAdapter AdapterFactory
	startedAt  time.Time

	core      *transcript.Core
	bridge    *asrBridge
	hub       *Hub
	publisher *events.Publisher
	live      *translate.Live

	segCh  chan segment.Segment
	outbox chan outboxItem

	eventSeq atomic.Uint64

	quit       chan struct{}
	done       chan struct{}
	outboxDone chan struct{}
	closeOnce  sync.Once

	mu      sync.Mutex
	failure error
}

// outboxItem is one event bound for the bus; exactly one field is set.
type outboxItem struct {
	live      *models.TranscriptLive
	committed *models.TranscriptCommitted
}

// New assembles a session. Call Start to open the recognizer stream and
// begin processing.
func New(
	cfg Config,
	clk clock.Clock,
	newAdapter AdapterFactory,
	provider translate.Provider,
	publisher *events.Publisher,
) *Session {
	s := &Session{
		id:         cfg.SessionID,
		cfg:        cfg,
		clk:        clk,
		logger:     logging.WithSession(cfg.SessionID),
		newAdapter: newAdapter,
		hub:        NewHub(clk),
		publisher:  publisher,
		segCh:      make(chan segment.Segment, segmentBuffer),
		outbox:     make(chan outboxItem, outboxBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		outboxDone: make(chan struct{}),
	}

	// An interface holding a nil *Bound is not a nil Transformer, so
	// only assign when translation is actually configured.
	bound := translate.Bind(provider, cfg.SourceLanguage, cfg.TargetLanguage)
	var transformer transcript.Transformer
	if bound != nil {
		transformer = bound
	}
	s.core = transcript.New(cfg.Transcript, clk, transformer, s, s.logger)

	if cfg.LivePartials && bound != nil {
		s.live = translate.NewLive(bound, s.onLiveTranslated)
	}

	return s
}

// Start opens the recognizer stream and launches the session loop.
func (s *Session) Start(ctx context.Context) error {
	s.startedAt = s.clk.Now()

	emit := func(seg segment.Segment) {
		select {
		case s.segCh <- seg:
		case <-s.done:
		}
	}
	s.bridge = newASRBridge(
		ctx,
		s.id,
		s.cfg.STTProvider,
		s.newAdapter,
		s.clk,
		emit,
		s.terminate,
		s.cfg.RestartInterval,
		s.cfg.MaxStreamBytes,
		s.cfg.TailBytes,
	)
	if err := s.bridge.start(); err != nil {
		s.hub.Close()
		close(s.done)
		close(s.outboxDone)
		return err
	}

	go s.run()
	go s.publishLoop()

	s.logger.Info().
		Str("sttProvider", s.cfg.STTProvider).
		Str("sourceLanguage", s.cfg.SourceLanguage).
		Str("targetLanguage", s.cfg.TargetLanguage).
		Bool("livePartials", s.live != nil).
		Msg("session started")
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// StartedAt returns when the session began.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Err returns the fatal error that ended the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Done closes when the session has fully shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// PushAudio forwards one audio frame from the speaker.
func (s *Session) PushAudio(data []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	return s.bridge.sendAudio(data)
}

// Subscribe attaches a new listener to the session's transcript stream.
func (s *Session) Subscribe() (*Listener, error) {
	return s.hub.Subscribe()
}

// Unsubscribe detaches a listener.
func (s *Session) Unsubscribe(listenerID string) {
	s.hub.Unsubscribe(listenerID)
}

// Stats is a point-in-time snapshot for the debug endpoints.
type Stats struct {
	ID               string    `json:"id"`
	StartedAt        time.Time `json:"startedAt"`
	Listeners        int       `json:"listeners"`
	QueueDepth       int       `json:"queueDepth"`
	StreamGeneration int       `json:"streamGeneration"`
	SourceLanguage   string    `json:"sourceLanguage"`
	TargetLanguage   string    `json:"targetLanguage"`
	Failed           bool      `json:"failed"`
}

// Stats reports the session's current state.
func (s *Session) Stats() Stats {
	return Stats{
		ID:               s.id,
		StartedAt:        s.startedAt,
		Listeners:        s.hub.Count(),
		QueueDepth:       s.core.QueueDepth(),
		StreamGeneration: s.bridge.currentGeneration(),
		SourceLanguage:   s.cfg.SourceLanguage,
		TargetLanguage:   s.cfg.TargetLanguage,
		Failed:           s.Err() != nil,
	}
}

// Close ends the session, flushing any uncommitted text first. It
// blocks until shutdown completes and is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

// terminate records a fatal error and begins shutdown without waiting
// for it. Used by the bridge when the recognizer cannot be kept alive.
func (s *Session) terminate(err error) {
	s.setFailure(err)
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

func (s *Session) setFailure(err error) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = err
	}
	s.mu.Unlock()
	s.logger.Error().Err(err).Msg("session failed")
}

// run is the session loop. It is the only goroutine that touches the
// transcript core.
func (s *Session) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case seg := <-s.segCh:
			if err := s.core.HandleSegment(seg); err != nil {
				s.setFailure(err)
				s.shutdown()
				return
			}
		case ev := <-s.core.Completions():
			s.core.OnCommitProcessed(ev)
		case <-ticker.C:
			s.core.Tick(s.clk.Now())
		case <-s.quit:
			s.shutdown()
			return
		}
	}
}

// shutdown drains the pipeline in dependency order: stop the audio
// source, absorb late recognizer callbacks, flush and drain the core,
// stop the live translator, drain the publish queue, then drop the
// listeners.
func (s *Session) shutdown() {
	if err := s.bridge.close(); err != nil {
		s.logger.Warn().Err(err).Msg("closing recognizer bridge")
	}

	// The closing stream may still flush trailing results; give them a
	// moment to land.
	lateTimer := time.NewTimer(drainWindow)
drainLate:
	for {
		select {
		case seg := <-s.segCh:
			if err := s.core.HandleSegment(seg); err != nil {
				s.setFailure(err)
				break drainLate
			}
		case ev := <-s.core.Completions():
			s.core.OnCommitProcessed(ev)
		case <-lateTimer.C:
			break drainLate
		}
	}
	lateTimer.Stop()

	s.core.Flush(s.clk.Now())
	s.core.Close()
waitQueue:
	for {
		select {
		case ev := <-s.core.Completions():
			s.core.OnCommitProcessed(ev)
		case <-s.core.Done():
			break waitQueue
		}
	}
flushCompletions:
	for {
		select {
		case ev := <-s.core.Completions():
			s.core.OnCommitProcessed(ev)
		default:
			break flushCompletions
		}
	}

	if s.live != nil {
		s.live.Close()
	}
	close(s.outbox)
	<-s.outboxDone
	s.hub.Close()
	close(s.done)
	s.logger.Info().Msg("session closed")
}

// OnLivePartial implements transcript.Sink. Runs on the session loop.
func (s *Session) OnLivePartial(text string) {
	s.hub.BroadcastLive(text)
	s.enqueue(outboxItem{live: &models.TranscriptLive{
		EventType: models.EventTypeLive,
		SessionID: s.id,
		Seq:       s.eventSeq.Add(1),
		Timestamp: s.clk.Now().UnixMilli(),
		Text:      text,
		Language:  s.cfg.SourceLanguage,
	}})
	if s.live != nil && text != "" {
		s.live.Submit(text)
	}
}

// onLiveTranslated receives translated live snapshots from the live
// translator's worker goroutine.
func (s *Session) onLiveTranslated(source, translated string) {
	s.hub.BroadcastTranslatedLive(source, translated)
	s.enqueue(outboxItem{live: &models.TranscriptLive{
		EventType: models.EventTypeLive,
		SessionID: s.id,
		Seq:       s.eventSeq.Add(1),
		Timestamp: s.clk.Now().UnixMilli(),
		Text:      translated,
		Language:  s.cfg.TargetLanguage,
	}})
}

// OnCommitted implements transcript.Sink. Runs on the session loop.
func (s *Session) OnCommitted(ev transcript.CommittedEvent) {
	s.hub.BroadcastCommitted(ev.Text, ev.Output, ev.Fallback)
	s.enqueue(outboxItem{committed: &models.TranscriptCommitted{
		EventType:      models.EventTypeCommitted,
		SessionID:      s.id,
		Seq:            ev.Seq,
		Timestamp:      s.clk.Now().UnixMilli(),
		SourceText:     ev.Text,
		Text:           ev.Output,
		SourceLanguage: s.cfg.SourceLanguage,
		TargetLanguage: s.cfg.TargetLanguage,
		Fallback:       ev.Fallback,
		Outcome:        ev.Category.String(),
		LatencyMs:      ev.ProcessedIn.Milliseconds(),
	}})
}

// enqueue hands an event to the publish loop without ever blocking the
// caller. The bus is best-effort; listeners already got the message.
func (s *Session) enqueue(item outboxItem) {
	if s.publisher == nil {
		return
	}
	select {
	case s.outbox <- item:
	default:
		s.logger.Warn().Msg("event outbox full, dropping transcript event")
	}
}

func (s *Session) publishLoop() {
	defer close(s.outboxDone)
	for item := range s.outbox {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		var err error
		switch {
		case item.live != nil:
			err = s.publisher.PublishLive(ctx, s.id, *item.live)
		case item.committed != nil:
			err = s.publisher.PublishCommitted(ctx, s.id, *item.committed)
		}
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Msg("transcript event publish failed")
		}
	}
}
