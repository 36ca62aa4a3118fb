// Package assets manages the on-disk audio files backing voice lines
// and decodes them into sample buffers for processing.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"

	"github.com/hammamikhairi/tannoy/internal/domain"
	"github.com/hammamikhairi/tannoy/internal/dsp"
	"github.com/hammamikhairi/tannoy/internal/logger"
)

// Store persists audio assets in a flat directory. File names are owned
// by the registry; the store only maps names to bytes and buffers.
type Store struct {
	dir string
	log *logger.Logger
}

// NewStore creates the asset directory if needed and returns a store
// over it.
func NewStore(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the directory the store manages.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path of a named asset without checking that
// it exists.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Exists reports whether the named asset is present on disk.
func (s *Store) Exists(name string) bool {
	if name == "" {
		return false
	}
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// Save writes encoded audio bytes under the given name, replacing any
// previous content.
func (s *Store) Save(name string, data []byte) error {
	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return fmt.Errorf("save asset %s: %w", name, err)
	}
	s.log.Debug("asset store: saved %s (%d bytes)", name, len(data))
	return nil
}

// Delete removes the named asset. Deleting a missing asset is not an
// error; the registry may reference files that were cleaned up manually.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete asset %s: %w", name, err)
	}
	return nil
}

// Rename moves an asset to a new name. Used when line IDs are
// compacted after a removal.
func (s *Store) Rename(oldName, newName string) error {
	if err := os.Rename(s.Path(oldName), s.Path(newName)); err != nil {
		return fmt.Errorf("rename asset %s -> %s: %w", oldName, newName, err)
	}
	s.log.Debug("asset store: renamed %s -> %s", oldName, newName)
	return nil
}

// Load reads and decodes the named asset into a sample buffer. The
// decoder is picked by file extension (.mp3 or .wav).
func (s *Store) Load(name string) (dsp.Buffer, error) {
	if !s.Exists(name) {
		return dsp.Buffer{}, fmt.Errorf("%w: %s", domain.ErrAssetNotFound, name)
	}

	buf, err := DecodeFile(s.Path(name))
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("%s: %w", name, err)
	}
	s.log.Debug("asset store: decoded %s (%d frames at %d Hz)", name, buf.Frames(), buf.Rate)
	return buf, nil
}

// DecodeFile decodes an MP3 or WAV file into a sample buffer. The
// decoder is picked by file extension.
func DecodeFile(path string) (dsp.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("open audio file: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		f.Close()
		return dsp.Buffer{}, fmt.Errorf("%w: unsupported extension %q", domain.ErrDecode, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return dsp.Buffer{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	defer streamer.Close()

	buf, err := drain(streamer, format)
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return buf, nil
}

// DecodeBytes decodes in-memory MP3 data, as returned by the speech
// synthesizer, into a sample buffer.
func DecodeBytes(data []byte) (dsp.Buffer, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	defer streamer.Close()

	buf, err := drain(streamer, format)
	if err != nil {
		return dsp.Buffer{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return buf, nil
}

// drain pulls every frame out of a beep streamer and converts the
// normalized float samples to interleaved stereo in 16-bit amplitude
// units.
func drain(streamer beep.Streamer, format beep.Format) (dsp.Buffer, error) {
	rate := int(format.SampleRate)
	if rate <= 0 {
		return dsp.Buffer{}, fmt.Errorf("invalid sample rate %d", rate)
	}

	var samples []float64
	frame := make([][2]float64, 512)
	for {
		n, ok := streamer.Stream(frame)
		for _, fr := range frame[:n] {
			samples = append(samples, fr[0]*dsp.MaxAmplitude, fr[1]*dsp.MaxAmplitude)
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return dsp.Buffer{}, err
	}
	if len(samples) == 0 {
		return dsp.Buffer{}, errors.New("no audio frames")
	}

	return dsp.Buffer{Samples: samples, Rate: rate, Channels: 2}, nil
}
