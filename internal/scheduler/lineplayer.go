// Package scheduler drives the voice-line rotation: a single worker
// that keeps the radio alive, picks random active lines, and plays them
// over a ducked background at the configured interval.
package scheduler

import (
	"fmt"
	"time"

	"github.com/hammamikhairi/tannoy/internal/assets"
	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/dsp"
	"github.com/hammamikhairi/tannoy/internal/logger"
	"github.com/hammamikhairi/tannoy/internal/playback"
)

const (
	// duckDuration is the fade-down before a line starts.
	duckDuration = 500 * time.Millisecond
	// restoreDuration is the fade-up after a line finishes.
	restoreDuration = time.Second
)

// RadioState exposes whether background music is currently playing.
// Satisfied by the radio player.
type RadioState interface {
	Playing() bool
}

// Fader ramps the background volume. Satisfied by the radio ducker;
// Fade blocks for its full duration.
type Fader interface {
	Fade(from, to float64, duration time.Duration)
}

// LinePlayer plays a single voice line end to end: load, process, duck
// the radio, render, restore. Playback is synchronous; Play blocks for
// the full clip duration.
type LinePlayer struct {
	store    *assets.Store
	proc     *dsp.Processor
	backend  domain.Backend
	radio    RadioState
	ducker   Fader
	snapshot func() config.Config
	log      *logger.Logger
}

// NewLinePlayer wires the playback path together.
func NewLinePlayer(
	store *assets.Store,
	proc *dsp.Processor,
	backend domain.Backend,
	radioPlayer RadioState,
	ducker Fader,
	snapshot func() config.Config,
	log *logger.Logger,
) *LinePlayer {
	return &LinePlayer{
		store:    store,
		proc:     proc,
		backend:  backend,
		radio:    radioPlayer,
		ducker:   ducker,
		snapshot: snapshot,
		log:      log,
	}
}

// Play renders one voice line over the (ducked) radio. The radio is
// faded back up on every exit path so a failed line never leaves the
// background stuck quiet.
func (p *LinePlayer) Play(line domain.Line) error {
	if !p.store.Exists(line.Asset) {
		return fmt.Errorf("line %d: %w: %s", line.ID, domain.ErrAssetNotFound, line.Asset)
	}

	buf, err := p.store.Load(line.Asset)
	if err != nil {
		return fmt.Errorf("line %d: %w", line.ID, err)
	}

	cfg := p.snapshot()
	processed := p.proc.Process(buf, cfg.Effects, cfg.Volumes)
	// The degradation chain ends at the backend rate, but with effects
	// off (or a stage failing open) the buffer keeps its native rate.
	if processed.Rate != playback.SampleRate {
		if processed, err = dsp.Resample(processed, playback.SampleRate); err != nil {
			return fmt.Errorf("line %d: resample: %w", line.ID, err)
		}
	}

	if p.radio.Playing() {
		normal := cfg.Volumes.Master * cfg.Volumes.Radio
		ducked := cfg.Volumes.Master * cfg.Volumes.Ducking
		p.ducker.Fade(normal, ducked, duckDuration)
		defer p.ducker.Fade(ducked, normal, restoreDuration)
	}

	handle, err := p.backend.NewHandle(processed.PCM16Stereo())
	if err != nil {
		return fmt.Errorf("line %d: playback: %w", line.ID, err)
	}
	defer handle.Close()

	p.log.Info("playing line %d: %q", line.ID, line.Text)
	handle.SetVolume(100)
	handle.Play()
	playback.Wait(handle)
	return nil
}
