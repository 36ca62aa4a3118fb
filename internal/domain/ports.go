package domain

import "context"

// Synthesizer renders speech audio for a piece of text. Implementations
// can be API-backed (ElevenLabs) or canned fixtures for tests.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Backend is the process-wide audio output device. It hands out playback
// handles over raw PCM data (interleaved s16le at the backend's fixed
// rate and channel count). The real implementation wraps oto; tests use
// fakes with clocked handles.
type Backend interface {
	// NewHandle prepares (but does not start) playback of the given PCM data.
	NewHandle(pcm []byte) (Handle, error)
}

// Handle is one active playback of a buffer. A handle is single-use:
// once playback ends or Close is called it cannot be restarted.
type Handle interface {
	// Play starts or resumes playback. Non-blocking.
	Play()
	// Playing reports whether audio is still being rendered.
	Playing() bool
	// SetVolume sets the playback volume on a 0-100 integer scale.
	SetVolume(percent int)
	// Close halts playback and releases the handle.
	Close() error
}

// LineSource is the scheduler's read-mostly view of the line registry.
// Active returns a point-in-time copy; the scheduler never holds registry
// locks across playback.
type LineSource interface {
	Active() []Line
	// Deactivate switches a line off, used by the optional
	// deactivate-after-repeated-failures policy.
	Deactivate(ctx context.Context, id int) error
}
