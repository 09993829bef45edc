// Package schema checks event payloads before they are published.
package schema

import (
	"errors"
	"fmt"

	"sermon-translate-service/internal/models"
)

var (
	// ErrUnknownEventType is returned for payload types or eventType
	// values the validator does not know.
	ErrUnknownEventType = errors.New("schema: unknown event type")

	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("schema: missing required field")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks an event payload before publish. Unknown payload types
// are rejected so a refactor cannot silently publish an unchecked shape.
func (v *Validator) Validate(event any) error {
	switch e := event.(type) {
	case models.TranscriptLive:
		return validateLive(&e)
	case *models.TranscriptLive:
		return validateLive(e)
	case models.TranscriptCommitted:
		return validateCommitted(&e)
	case *models.TranscriptCommitted:
		return validateCommitted(e)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownEventType, event)
	}
}

// validateLive allows empty Text: an empty live line clears the caption.
func validateLive(e *models.TranscriptLive) error {
	if e.EventType != models.EventTypeLive {
		return fmt.Errorf("%w: eventType %q", ErrUnknownEventType, e.EventType)
	}
	if e.SessionID == "" {
		return fmt.Errorf("%w: sessionId", ErrMissingField)
	}
	if e.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	return nil
}

func validateCommitted(e *models.TranscriptCommitted) error {
	if e.EventType != models.EventTypeCommitted {
		return fmt.Errorf("%w: eventType %q", ErrUnknownEventType, e.EventType)
	}
	if e.SessionID == "" {
		return fmt.Errorf("%w: sessionId", ErrMissingField)
	}
	if e.Text == "" {
		return fmt.Errorf("%w: text", ErrMissingField)
	}
	if e.Seq == 0 {
		return fmt.Errorf("%w: seq", ErrMissingField)
	}
	if e.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp", ErrMissingField)
	}
	return nil
}
