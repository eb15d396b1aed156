package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrEmptyRoomName    = errors.New("room name cannot be empty")
	ErrMissingAudio     = errors.New("audio payload is required")
	ErrUnsupportedMedia = errors.New("unsupported audio mime type")
)

// ProviderError wraps a failed AI provider call. The upstream detail is kept
// for logs and error bodies; credentials never appear in it.
type ProviderError struct {
	Op  string // "transcribe", "embed", "answer", "general answer"
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
