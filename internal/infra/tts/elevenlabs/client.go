package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rdflg/rdflg/internal/domain/narration"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
	DefaultModel   = "eleven_multilingual_v2"

	maxAudioBytes = 20 << 20
	maxErrorBody  = 512
)

// APIError is a non-2xx answer from the text-to-speech API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs API returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return narration.ErrSynthesisFailed }

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Client calls the ElevenLabs text-to-speech endpoint.
type Client struct {
	APIKey  string
	BaseURL string
	Model   string
	client  *http.Client
	// maxAudio caps the accepted response size.
	maxAudio int64
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		APIKey:   apiKey,
		BaseURL:  baseURL,
		Model:    DefaultModel,
		client:   &http.Client{Timeout: timeout},
		maxAudio: maxAudioBytes,
	}
}

func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (*narration.Audio, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("%w: ELEVENLABS_API_KEY is missing", narration.ErrSynthesisFailed)
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	data, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       c.Model,
		VoiceSettings: voiceSettings{Stability: 0.35, SimilarityBoost: 0.7},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := c.BaseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", narration.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", narration.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	limit := c.maxAudio
	if limit <= 0 {
		limit = maxAudioBytes
	}
	audio, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading audio: %w", narration.ErrSynthesisFailed, err)
	}
	if int64(len(audio)) > limit {
		return nil, fmt.Errorf("%w: audio exceeds %d bytes", narration.ErrSynthesisFailed, limit)
	}
	return &narration.Audio{
		Data:           audio,
		ContentType:    "audio/mpeg",
		CharacterCount: headerOr(resp.Header, "x-character-count", "0"),
		RequestID:      headerOr(resp.Header, "request-id", "unknown"),
	}, nil
}

func headerOr(h http.Header, key, def string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return def
}
