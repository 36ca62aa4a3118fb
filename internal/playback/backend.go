// Package playback wraps the oto audio library behind the domain's
// Backend and Handle ports. One OS audio context is opened per process;
// oto does not support re-initialization, so the backend is expected to
// be constructed once at startup and shared.
package playback

import (
	"bytes"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/logger"
)

const (
	// SampleRate is the fixed output rate of the audio context.
	SampleRate = 44100
	// ChannelCount is the fixed channel count (stereo).
	ChannelCount = 2
)

// Backend is the oto-based implementation of domain.Backend.
type Backend struct {
	ctx *oto.Context
	log *logger.Logger
}

// NewBackend opens the system audio device. Returns an error if the
// device is unavailable.
func NewBackend(log *logger.Logger) (*Backend, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio backend initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Backend{ctx: ctx, log: log}, nil
}

// NewHandle prepares playback of interleaved s16le PCM at the backend's
// rate and channel count. Playback does not start until Play is called.
func (b *Backend) NewHandle(pcm []byte) (domain.Handle, error) {
	player := b.ctx.NewPlayer(bytes.NewReader(pcm))
	b.log.Debug("audio backend: handle over %d bytes of PCM", len(pcm))
	return &handle{player: player}, nil
}

// handle is one active playback. Safe for concurrent use; the ducker
// adjusts volume from a different goroutine than the one playing.
type handle struct {
	mu     sync.Mutex
	player *oto.Player
	closed bool
}

func (h *handle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.player.Play()
	}
}

func (h *handle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	return h.player.IsPlaying()
}

// SetVolume maps the 0-100 integer scale onto oto's 0.0-1.0 gain.
// Out-of-range values are clamped.
func (h *handle) SetVolume(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.player.SetVolume(float64(percent) / 100.0)
	}
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.player.Pause()
	return h.player.Close()
}

// Wait blocks until the handle finishes rendering or is closed. Helper
// for callers that need synchronous playback.
func Wait(h domain.Handle) {
	for h.Playing() {
		time.Sleep(10 * time.Millisecond)
	}
}
