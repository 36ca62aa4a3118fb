package dsp

import (
	"fmt"
	"math"

	"github.com/hammamikhairi/tannoy/internal/config"
)

// Compress applies feed-forward dynamic-range compression. Sample level
// over the threshold is smoothed with attack/release time constants and
// attenuated by 1-1/ratio, the classic downward-compressor law. A ratio
// of 1.0 is an exact no-op.
func Compress(b Buffer, cfg config.CompressionConfig) (Buffer, error) {
	if cfg.Ratio < 1.0 || math.IsNaN(cfg.Ratio) {
		return b, fmt.Errorf("compress: ratio must be >= 1.0, got %g", cfg.Ratio)
	}
	if cfg.AttackMs < 0 || cfg.ReleaseMs < 0 {
		return b, fmt.Errorf("compress: negative attack/release")
	}
	if cfg.Ratio == 1.0 || len(b.Samples) == 0 {
		return b, nil
	}

	attack := envelopeCoef(cfg.AttackMs, b.Rate)
	release := envelopeCoef(cfg.ReleaseMs, b.Rate)
	slope := 1.0 - 1.0/cfg.Ratio

	out := b
	out.Samples = make([]float64, len(b.Samples))

	// env tracks the smoothed dB-over-threshold.
	env := 0.0
	for i, s := range b.Samples {
		level := 20 * math.Log10(math.Abs(s)/MaxAmplitude+1e-10)
		over := level - cfg.ThresholdDB
		if over < 0 {
			over = 0
		}

		if over > env {
			env = attack*env + (1-attack)*over
		} else {
			env = release*env + (1-release)*over
		}

		reduction := -env * slope
		out.Samples[i] = s * math.Pow(10, reduction/20)
	}
	return out, nil
}

// envelopeCoef converts a time constant in milliseconds to a one-pole
// smoothing coefficient at the given sample rate.
func envelopeCoef(ms float64, rate int) float64 {
	if ms <= 0 || rate <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (float64(rate) * ms / 1000.0))
}

// GainDB scales every sample by the given decibel amount, clipping to
// the working range. The input buffer is left untouched.
func GainDB(b Buffer, db float64) Buffer {
	factor := math.Pow(10, db/20)
	out := b
	out.Samples = make([]float64, len(b.Samples))
	for i, s := range b.Samples {
		out.Samples[i] = clip(s*factor, -MaxAmplitude-1, MaxAmplitude)
	}
	return out
}
