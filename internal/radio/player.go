// Package radio plays background music tracks picked at random from a
// directory, auto-advancing when a track ends, and exposes the volume
// ducking used while voice lines play over it.
package radio

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/tannoy/internal/assets"
	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/dsp"
	"github.com/hammamikhairi/tannoy/internal/logger"
	"github.com/hammamikhairi/tannoy/internal/playback"
)

const (
	// pollInterval is how often the watcher checks for track end.
	pollInterval = 250 * time.Millisecond
	// advanceGrace is the pause before starting the next track.
	advanceGrace = 500 * time.Millisecond
)

// Player streams random tracks from the configured music directory.
// All methods are safe for concurrent use.
type Player struct {
	backend  domain.Backend
	snapshot func() config.Config
	log      *logger.Logger

	mu      sync.Mutex
	handle  domain.Handle
	track   string
	volume  int // remembered 0-100 target for the next start
	current int // volume actually applied to the live handle
	stopCh  chan struct{}
	done    chan struct{}
}

// NewPlayer creates a radio player over the given backend. Config is
// read through the snapshot function at each track start so directory
// and volume changes apply on the next track.
func NewPlayer(backend domain.Backend, snapshot func() config.Config, log *logger.Logger) *Player {
	return &Player{backend: backend, snapshot: snapshot, log: log}
}

// Start begins playback of a random track. A no-op success when already
// playing. Fails when the music directory holds no tracks or the
// backend rejects the stream; in that case no handle is retained.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil && p.handle.Playing() {
		return nil
	}

	if err := p.startTrackLocked(); err != nil {
		return err
	}

	if p.stopCh == nil {
		p.stopCh = make(chan struct{})
		p.done = make(chan struct{})
		go p.watch(p.stopCh, p.done)
	}
	return nil
}

// Stop halts playback and releases the handle. Idempotent; a handle
// release error is logged, never returned, and the handle is cleared
// regardless.
func (p *Player) Stop() {
	p.mu.Lock()
	stopCh, done := p.stopCh, p.done
	p.stopCh, p.done = nil, nil
	p.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle != nil {
		if err := p.handle.Close(); err != nil {
			p.log.Warn("radio: releasing handle: %v", err)
		}
		p.handle = nil
		p.track = ""
		p.log.Info("radio: stopped")
	}
}

// Playing reports whether a track is currently being rendered.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil && p.handle.Playing()
}

// Track returns the file name of the current track, empty when idle.
func (p *Player) Track() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track
}

// SetVolume sets the playback volume on the 0-100 scale. Applied
// immediately to a live handle, otherwise remembered for the next
// track start.
func (p *Player) SetVolume(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clampPercent(percent)
	if p.handle != nil {
		p.handle.SetVolume(p.volume)
		p.current = p.volume
	}
}

// adjust applies a transient volume to the live handle without touching
// the remembered target. Reports false when no handle is live, which
// the ducker treats as a silent abort.
func (p *Player) adjust(percent int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return false
	}
	p.current = clampPercent(percent)
	p.handle.SetVolume(p.current)
	return true
}

// startTrackLocked releases any previous handle, picks a random track,
// and begins playing it at master*radio volume. Caller holds the mutex.
func (p *Player) startTrackLocked() error {
	if p.handle != nil {
		if err := p.handle.Close(); err != nil {
			p.log.Warn("radio: releasing finished handle: %v", err)
		}
		p.handle = nil
		p.track = ""
	}

	cfg := p.snapshot()
	tracks, err := scanTracks(cfg.Radio.MusicDir)
	if err != nil {
		return err
	}

	path := tracks[rand.Intn(len(tracks))]
	buf, err := assets.DecodeFile(path)
	if err != nil {
		return fmt.Errorf("radio track %s: %w", filepath.Base(path), err)
	}
	if buf.Rate != playback.SampleRate {
		if buf, err = dsp.Resample(buf, playback.SampleRate); err != nil {
			return fmt.Errorf("radio track %s: %w", filepath.Base(path), err)
		}
	}

	handle, err := p.backend.NewHandle(buf.PCM16Stereo())
	if err != nil {
		return fmt.Errorf("radio playback: %w", err)
	}

	p.volume = clampPercent(int(cfg.Volumes.Master * cfg.Volumes.Radio * 100))
	p.current = p.volume
	handle.SetVolume(p.volume)
	handle.Play()

	p.handle = handle
	p.track = filepath.Base(path)
	p.log.Info("radio: playing %s at volume %d", p.track, p.volume)
	return nil
}

// watch polls the live handle and advances to a new random track when
// it ends. Exits when the stop channel closes.
func (p *Player) watch(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		ended := p.handle != nil && !p.handle.Playing()
		p.mu.Unlock()
		if !ended {
			continue
		}

		select {
		case <-stopCh:
			return
		case <-time.After(advanceGrace):
		}

		p.mu.Lock()
		// A ducked level outlives the track it was applied to, so an
		// advance under a live announcement stays quiet until the
		// restore fade brings it back up.
		held, target := p.current, p.volume
		if err := p.startTrackLocked(); err != nil {
			p.log.Warn("radio: advancing track: %v", err)
		} else if held != target {
			p.current = clampPercent(held)
			p.handle.SetVolume(p.current)
		}
		p.mu.Unlock()
	}
}

// scanTracks lists the playable audio files under dir.
func scanTracks(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: music directory", domain.ErrNotConfigured)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("music directory %s: %w", dir, err)
	}

	var tracks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".mp3", ".wav":
			tracks = append(tracks, filepath.Join(dir, e.Name()))
		}
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoTracks, dir)
	}
	return tracks, nil
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
