package narration

import (
	"context"
	"errors"
)

var (
	ErrEmptyText       = errors.New("text is required")
	ErrSynthesisFailed = errors.New("voice synthesis failed")
	ErrTimeout         = errors.New("voice synthesis timed out")
)

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*Audio, error)
}

// ArtifactStore archives produced audio.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
