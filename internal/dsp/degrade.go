package dsp

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/hammamikhairi/tannoy/internal/config"
)

// The degradation chain simulates a lo-fi transmission. Stages run in a
// fixed order and each one is a no-op at its neutral parameter value:
//
//	mono -> downsample -> distortion -> band-pass -> breathing noise
//	     -> bit-crush -> crackle -> canonical 44.1 kHz
//
// Every stage either returns a transformed buffer or an error; the
// caller substitutes the original buffer on any error (fail-open).

type degradeStage struct {
	name string
	fn   func(Buffer, config.EffectConfig) (Buffer, error)
}

var degradeStages = []degradeStage{
	{"mono", stageMono},
	{"downsample", stageDownsample},
	{"distortion", stageDistortion},
	{"band-pass", stageBandPass},
	{"noise", stageNoise},
	{"bit-crush", stageBitCrush},
	{"crackle", stageCrackle},
	{"canonical-rate", stageCanonicalRate},
}

// Degrade runs the full chain. The Enabled flag is the caller's concern.
// On a stage error the partially processed buffer is NOT returned; the
// error carries the stage name and the caller falls back to its
// original input.
func Degrade(b Buffer, cfg config.EffectConfig) (Buffer, error) {
	// Stages mutate samples in place, so work on a copy to keep the
	// fail-open fallback pristine.
	out := b.Clone()
	var err error
	for _, st := range degradeStages {
		out, err = st.fn(out, cfg)
		if err != nil {
			return b, fmt.Errorf("degrade stage %s: %w", st.name, err)
		}
	}
	return out, nil
}

// stageMono downmixes to a single channel so later stages can index
// samples deterministically.
func stageMono(b Buffer, _ config.EffectConfig) (Buffer, error) {
	if b.Channels < 1 {
		return b, fmt.Errorf("buffer has %d channels", b.Channels)
	}
	if b.Channels == 1 {
		return b, nil
	}

	frames := b.Frames()
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < b.Channels; c++ {
			sum += b.Samples[i*b.Channels+c]
		}
		out[i] = sum / float64(b.Channels)
	}
	return Buffer{Samples: out, Rate: b.Rate, Channels: 1}, nil
}

// stageDownsample resamples down to cfg.SampleRate. Upsampling is left
// to the final canonical-rate stage.
func stageDownsample(b Buffer, cfg config.EffectConfig) (Buffer, error) {
	if cfg.SampleRate <= 0 || cfg.SampleRate >= b.Rate {
		return b, nil
	}
	return resample(b, cfg.SampleRate)
}

// stageDistortion drives the signal by (1 + distortion*5) and hard-clips
// to the 16-bit range.
func stageDistortion(b Buffer, cfg config.EffectConfig) (Buffer, error) {
	if cfg.Distortion == 0 {
		return b, nil
	}
	if cfg.Distortion < 0 || math.IsNaN(cfg.Distortion) {
		return b, fmt.Errorf("invalid distortion amount %g", cfg.Distortion)
	}

	drive := 1.0 + cfg.Distortion*5
	for i, s := range b.Samples {
		b.Samples[i] = clip(s*drive, -MaxAmplitude, MaxAmplitude)
	}
	return b, nil
}

// stageBandPass applies a high-pass at FilterLow and a low-pass at
// FilterHigh. A FilterHigh at or above Nyquist is skipped silently.
func stageBandPass(b Buffer, cfg config.EffectConfig) (Buffer, error) {
	var err error
	if cfg.FilterLow > 0 {
		b, err = highPass(b, cfg.FilterLow)
		if err != nil {
			return b, err
		}
	}
	if cfg.FilterHigh > 0 && cfg.FilterHigh < b.Rate/2 {
		b, err = lowPass(b, cfg.FilterHigh)
		if err != nil {
			return b, err
		}
	}
	return b, nil
}

// stageNoise adds gaussian noise scaled by NoiseLevel and modulated by a
// slow sine envelope so the hiss breathes instead of being constant.
func stageNoise(b Buffer, cfg config.EffectConfig) (Buffer, error) {
	if cfg.NoiseLevel == 0 {
		return b, nil
	}
	if cfg.NoiseLevel < 0 || math.IsNaN(cfg.NoiseLevel) {
		return b, fmt.Errorf("invalid noise level %g", cfg.NoiseLevel)
	}

	amp := cfg.NoiseLevel * MaxAmplitude
	n := len(b.Samples)
	for i := range b.Samples {
		envelope := math.Sin(20*math.Pi*float64(i)/float64(n))*0.5 + 0.5
		b.Samples[i] += rand.NormFloat64() * amp * envelope
	}
	return b, nil
}

// stageBitCrush quantizes normalized samples to 2^BitDepth levels.
// Only active when the target depth is below the 16-bit working depth.
func stageBitCrush(b Buffer, cfg config.EffectConfig) (Buffer, error) {
	if cfg.BitDepth <= 0 || cfg.BitDepth >= 16 {
		return b, nil
	}

	halfLevels := math.Pow(2, float64(cfg.BitDepth))/2 - 1
	if halfLevels < 1 {
		return b, fmt.Errorf("bit depth %d leaves no quantization levels", cfg.BitDepth)
	}

	for i, s := range b.Samples {
		q := math.Round(s / MaxAmplitude * halfLevels)
		b.Samples[i] = q / halfLevels * MaxAmplitude
	}
	return b, nil
}

// stageCrackle injects short high-amplitude impulses, roughly 50 per
// second scaled by intensity, at random positions with random polarity.
func stageCrackle(b Buffer, cfg config.EffectConfig) (Buffer, error) {
	if cfg.Crackle == 0 {
		return b, nil
	}
	if cfg.Crackle < 0 || math.IsNaN(cfg.Crackle) {
		return b, fmt.Errorf("invalid crackle intensity %g", cfg.Crackle)
	}
	if len(b.Samples) == 0 || b.Rate <= 0 {
		return b, nil
	}

	seconds := float64(len(b.Samples)) / float64(b.Rate)
	count := int(seconds * 50 * cfg.Crackle)
	for i := 0; i < count; i++ {
		pos := rand.Intn(len(b.Samples))
		amp := (0.5 + rand.Float64()*0.5) * MaxAmplitude
		if rand.Intn(2) == 0 {
			amp = -amp
		}
		length := 1 + rand.Intn(3)
		for j := pos; j < pos+length && j < len(b.Samples); j++ {
			b.Samples[j] += amp
		}
	}
	return b, nil
}

// stageCanonicalRate brings the buffer back to the fixed 44.1 kHz output
// rate for consistent downstream mixing.
func stageCanonicalRate(b Buffer, _ config.EffectConfig) (Buffer, error) {
	if b.Rate == CanonicalRate {
		return b, nil
	}
	return resample(b, CanonicalRate)
}
