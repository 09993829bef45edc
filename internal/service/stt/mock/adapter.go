// Package mock provides a mock STT adapter for development without cloud
// credentials. It simulates realistic speech-to-text behavior with
// progressive partial transcripts, exactly one final per utterance, and
// utterance boundary detection, cycling through a scripted homily for as
// long as audio keeps arriving.
package mock

import (
	"context"
	"sync"
	"time"

	"sermon-translate-service/internal/service/stt"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string // Progressive partial transcripts
	Final      string   // Final transcript text
	Confidence float64  // Confidence score for final
}

// DefaultUtterances script a short homily for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"turn with me", "turn with me to the book", "turn with me to the book of Psalms"},
		Final:      "Turn with me to the book of Psalms, chapter twenty-three.",
		Confidence: 0.95,
	},
	{
		Partials:   []string{"the Lord is", "the Lord is my shepherd"},
		Final:      "The Lord is my shepherd, I shall not want.",
		Confidence: 0.97,
	},
	{
		Partials:   []string{"he maketh me", "he maketh me to lie down", "he maketh me to lie down in green pastures"},
		Final:      "He maketh me to lie down in green pastures.",
		Confidence: 0.93,
	},
	{
		Partials:   []string{"and this is", "and this is a picture", "and this is a picture of rest"},
		Final:      "And this is a picture of rest for the weary.",
		Confidence: 0.9,
	},
	{
		Partials:   []string{"let us pray"},
		Final:      "Let us pray.",
		Confidence: 0.98,
	},
}

// Adapter implements stt.Adapter with scripted responses. One partial is
// released per audio frame; when an utterance's partials are exhausted the
// final and end-of-utterance signals fire and the script advances to the
// next utterance.
type Adapter struct {
	mu           sync.Mutex
	cb           stt.Callback
	utterances   []SimulatedUtterance
	utteranceIdx int // Current utterance in the script
	partialIndex int // Next partial of the current utterance
	closed       bool
}

// sessionCounter staggers the starting utterance so parallel sessions do
// not speak in unison.
var (
	sessionCounter int
	counterMu      sync.Mutex
)

// New creates a new mock STT adapter playing the default script.
func New() *Adapter {
	counterMu.Lock()
	idx := sessionCounter % len(DefaultUtterances)
	sessionCounter++
	counterMu.Unlock()

	return &Adapter{
		utterances:   DefaultUtterances,
		utteranceIdx: idx,
	}
}

// NewScripted creates a mock STT adapter playing the given utterances.
func NewScripted(utterances []SimulatedUtterance) *Adapter {
	return &Adapter{utterances: utterances}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

// SendAudio consumes one audio frame and releases the next scripted event:
// a partial while the utterance is in progress, or the final plus
// end-of-utterance once its partials are exhausted, mimicking silence
// detection.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil || len(a.utterances) == 0 {
		return nil
	}

	utt := a.utterances[a.utteranceIdx%len(a.utterances)]

	if a.partialIndex < len(utt.Partials) {
		partial := utt.Partials[a.partialIndex]
		a.partialIndex++
		go a.deliver(50*time.Millisecond, func(cb stt.Callback) {
			cb.OnPartial(partial)
		})
		return nil
	}

	a.utteranceIdx++
	a.partialIndex = 0
	go a.deliver(100*time.Millisecond, func(cb stt.Callback) {
		cb.OnFinal(utt.Final, utt.Confidence)
		cb.OnEndOfUtterance()
	})
	return nil
}

// deliver invokes fn after a simulated processing delay, unless the adapter
// closed in the meantime.
func (a *Adapter) deliver(delay time.Duration, fn func(stt.Callback)) {
	time.Sleep(delay)
	a.mu.Lock()
	cb := a.cb
	closed := a.closed
	a.mu.Unlock()
	if !closed && cb != nil {
		fn(cb)
	}
}

// Close ends the mock session. A half-spoken utterance flushes its final,
// mirroring a real recognizer finishing the buffered audio after CloseSend.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	if a.cb != nil && a.partialIndex > 0 && len(a.utterances) > 0 {
		utt := a.utterances[a.utteranceIdx%len(a.utterances)]
		cb := a.cb
		go func() {
			time.Sleep(50 * time.Millisecond)
			cb.OnFinal(utt.Final, utt.Confidence)
		}()
	}
	a.closed = true
	return nil
}
