// Package dsp implements the signal-processing pipeline applied to every
// voice line before playback: the lo-fi degradation chain, dynamic-range
// compression, and the final gain stage. All processing happens on raw
// sample slices; decoding and playback live elsewhere.
package dsp

import "time"

// MaxAmplitude is the positive full-scale value of the 16-bit working
// sample width. Samples are held as float64 in this amplitude range so
// intermediate stages can overshoot before clipping.
const MaxAmplitude = 32767.0

// CanonicalRate is the fixed output sample rate every processed buffer
// ends up at, regardless of any intermediate downsampling.
const CanonicalRate = 44100

// Buffer is a decoded audio clip: interleaved samples in 16-bit amplitude
// units at a given rate and channel count.
type Buffer struct {
	Samples  []float64
	Rate     int
	Channels int
}

// Clone returns a deep copy of the buffer.
func (b Buffer) Clone() Buffer {
	out := b
	out.Samples = make([]float64, len(b.Samples))
	copy(out.Samples, b.Samples)
	return out
}

// Frames returns the number of per-channel sample frames.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.Rate) * float64(time.Second))
}

// PCM16Stereo renders the buffer as interleaved little-endian s16
// stereo bytes, the format the playback backend consumes. Mono buffers
// are duplicated onto both channels; samples are clipped to range.
func (b Buffer) PCM16Stereo() []byte {
	frames := b.Frames()
	out := make([]byte, frames*4)

	for i := 0; i < frames; i++ {
		var l, r float64
		switch b.Channels {
		case 1:
			l = b.Samples[i]
			r = l
		default:
			l = b.Samples[i*b.Channels]
			r = b.Samples[i*b.Channels+1]
		}
		putSample(out[i*4:], l)
		putSample(out[i*4+2:], r)
	}
	return out
}

func putSample(dst []byte, s float64) {
	v := int(clip(s, -MaxAmplitude-1, MaxAmplitude))
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
