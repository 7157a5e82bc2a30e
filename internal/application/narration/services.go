package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rdflg/rdflg/internal/application"
	domain "github.com/rdflg/rdflg/internal/domain/narration"
	"github.com/rdflg/rdflg/internal/infra/ai/prompt"
)

// DefaultMaxChars is the provider's per-request character budget.
const DefaultMaxChars = 5000

// Service narrates analysis summaries.
type Service struct {
	Synth        domain.Synthesizer
	Archive      domain.ArtifactStore
	DefaultVoice string
	MaxChars     int
	Timeout      time.Duration
	Clock        application.Clock
	Log          *zap.Logger
}

// Narrate synthesizes text with voiceID, or the default voice when empty.
func (s *Service) Narrate(ctx context.Context, text, voiceID string) (*domain.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}
	limit := s.MaxChars
	if limit <= 0 {
		limit = DefaultMaxChars
	}
	text = prompt.Truncate(text, limit)
	if voiceID = strings.TrimSpace(voiceID); voiceID == "" {
		voiceID = s.DefaultVoice
	}

	sctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	audio, err := s.Synth.Synthesize(sctx, text, voiceID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		return nil, err
	}

	if s.Archive != nil {
		key := fmt.Sprintf("narrations/%s/%s.mp3", s.now().Format("2006-01-02"), uuid.NewString())
		url, err := s.Archive.Put(ctx, key, audio.Data, audio.ContentType)
		if err != nil {
			s.logger().Warn("archive narration failed", zap.String("key", key), zap.Error(err))
		} else {
			audio.URL = url
		}
	}
	return audio, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
