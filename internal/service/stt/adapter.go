// Package stt defines the interface for Speech-to-Text adapters.
package stt

import "context"

// Callback receives transcript results from the STT provider. Calls arrive
// on the adapter's receive goroutine and must not block.
type Callback interface {
	// OnPartial is called when an interim/partial transcript is received.
	OnPartial(text string)

	// OnFinal is called when a final transcript is received.
	OnFinal(text string, confidence float64)

	// OnEndOfUtterance is called after an utterance's final transcript,
	// when the provider detects the speaker paused.
	OnEndOfUtterance()

	// OnError is called when an error occurs during transcription. The
	// stream is unusable afterwards.
	OnError(err error)
}

// Adapter defines the interface for STT providers (Google, Azure, AWS, etc.).
type Adapter interface {
	// Start begins a streaming transcription session and spawns the
	// receive loop that delivers results to cb.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close half-closes the session. The provider flushes buffered audio
	// into trailing results before the receive loop ends.
	Close() error
}
