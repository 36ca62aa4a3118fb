// Package speech synthesizes voice-line audio through the ElevenLabs
// REST API, with failures classified for the playback layer.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/logger"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// Option configures the ElevenLabs client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPTimeout sets the HTTP client timeout for synthesis requests.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Client synthesizes text via the ElevenLabs text-to-speech API. It
// reads credentials and voice parameters through a config snapshot
// function on every call, so settings changes apply immediately.
type Client struct {
	snapshot   func() config.Config
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

var _ domain.Synthesizer = (*Client)(nil)

// NewClient creates an ElevenLabs client. Synthesis requests can take a
// while for long lines, hence the generous default timeout.
func NewClient(snapshot func() config.Config, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		snapshot: snapshot,
		baseURL:  defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize converts text to speech and returns MP3 bytes. Fails
// before touching the network when the API key or voice ID is missing.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	cfg := c.snapshot()
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key", domain.ErrNotConfigured)
	}
	if cfg.Voice.ID == "" {
		return nil, fmt.Errorf("%w: voice ID", domain.ErrNotConfigured)
	}

	payload := synthesisRequest{
		Text:    text,
		ModelID: cfg.Voice.Model,
		VoiceSettings: voiceSettings{
			Stability:       cfg.Voice.Stability,
			SimilarityBoost: cfg.Voice.Similarity,
			Style:           cfg.Voice.Style,
			UseSpeakerBoost: true,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, cfg.Voice.ID)
	c.log.Debug("elevenlabs: synthesizing %d chars with voice %s", len(text), cfg.Voice.ID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			Kind:   classify(resp.StatusCode),
			Status: resp.StatusCode,
			Detail: string(detail),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Detail: err.Error()}
	}

	c.log.Debug("elevenlabs: got %d bytes of audio", len(audio))
	return audio, nil
}
