package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrAlreadyRunning = errors.New("already running")
	ErrStopTimeout    = errors.New("worker did not stop within the timeout")
	ErrAssetNotFound  = errors.New("audio asset not found")
	ErrDecode         = errors.New("audio asset could not be decoded")
	ErrNoTracks       = errors.New("no audio tracks found in the music directory")
	ErrNotConfigured  = errors.New("not configured")
)
