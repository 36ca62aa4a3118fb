// Package config defines the strongly-typed application configuration,
// its on-disk YAML form, and a mutex-guarded store that supports live
// partial updates. Components read a fresh snapshot on every operation
// so volume and effect tuning takes hold without a restart.
package config

import (
	"fmt"
	"math"
)

// VoiceConfig selects the ElevenLabs voice and its synthesis parameters.
type VoiceConfig struct {
	ID         string  `yaml:"id" json:"id"`
	Model      string  `yaml:"model" json:"model"`
	Stability  float64 `yaml:"stability" json:"stability"`
	Similarity float64 `yaml:"similarity" json:"similarity"`
	Style      float64 `yaml:"style" json:"style"`
	Speed      float64 `yaml:"speed" json:"speed"`
}

// CompressionConfig tunes the dynamic-range compressor applied to every
// voice line before playback.
type CompressionConfig struct {
	ThresholdDB float64 `yaml:"threshold" json:"threshold"`
	Ratio       float64 `yaml:"ratio" json:"ratio"`
	AttackMs    float64 `yaml:"attack" json:"attack"`
	ReleaseMs   float64 `yaml:"release" json:"release"`
}

// MixConfig holds the master/radio/ducking/voice volume multipliers plus
// compressor settings. Multipliers are normalized: 0.0-2.0 for master,
// typically 0.0-1.0 for the rest.
type MixConfig struct {
	Master      float64           `yaml:"master" json:"master"`
	Radio       float64           `yaml:"radio" json:"radio"`
	Ducking     float64           `yaml:"ducking" json:"ducking"`
	Voice       float64           `yaml:"voice" json:"voice"`
	Compression CompressionConfig `yaml:"compression" json:"compression"`
}

// RadioConfig controls the background music source and the scheduler.
type RadioConfig struct {
	// MusicDir is the directory scanned for background tracks.
	MusicDir string `yaml:"playlist" json:"playlist"`
	// IntervalSeconds is the pause between scheduled voice lines.
	IntervalSeconds int `yaml:"interval" json:"interval"`
	// DeactivateAfter switches a line off after this many consecutive
	// playback failures. 0 disables the policy.
	DeactivateAfter int `yaml:"deactivate_after_failures" json:"deactivate_after_failures"`
}

// EffectConfig tunes the lo-fi degradation chain. Each stage is a no-op
// at its neutral parameter value.
type EffectConfig struct {
	Enabled    bool    `yaml:"enabled" json:"enabled"`
	SampleRate int     `yaml:"sample_rate" json:"sample_rate"`
	Distortion float64 `yaml:"distortion" json:"distortion"`
	FilterLow  int     `yaml:"filter_low" json:"filter_low"`
	FilterHigh int     `yaml:"filter_high" json:"filter_high"`
	NoiseLevel float64 `yaml:"noise_level" json:"noise_level"`
	BitDepth   int     `yaml:"bit_depth" json:"bit_depth"`
	Crackle    float64 `yaml:"crackle" json:"crackle"`
}

// Config is the full application configuration.
type Config struct {
	APIKey  string       `yaml:"api_key" json:"api_key"`
	Voice   VoiceConfig  `yaml:"voice" json:"voice"`
	Volumes MixConfig    `yaml:"volumes" json:"volumes"`
	Radio   RadioConfig  `yaml:"radio" json:"radio"`
	Effects EffectConfig `yaml:"distortion_simulation" json:"distortion_simulation"`
}

// Default returns the baseline configuration written on first run.
func Default() Config {
	return Config{
		Voice: VoiceConfig{
			Model:      "eleven_multilingual_v2",
			Stability:  0.7,
			Similarity: 0.95,
			Style:      0.3,
			Speed:      1.0,
		},
		Volumes: MixConfig{
			Master:  1.0,
			Radio:   0.5,
			Ducking: 0.1,
			Voice:   1.0,
			Compression: CompressionConfig{
				ThresholdDB: -20.0,
				Ratio:       4.0,
				AttackMs:    5.0,
				ReleaseMs:   50.0,
			},
		},
		Radio: RadioConfig{
			IntervalSeconds: 300,
		},
		Effects: EffectConfig{
			Enabled:    false,
			SampleRate: 32000,
			Distortion: 0.0002,
			FilterLow:  200,
			FilterHigh: 4000,
			NoiseLevel: 0.0001,
			BitDepth:   16,
			Crackle:    0.0002,
		},
	}
}

// Validate checks the configuration once at the boundary so the rest of
// the code can trust its values.
func (c *Config) Validate() error {
	if err := validateVolume("volumes.master", c.Volumes.Master, 2.0); err != nil {
		return err
	}
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"volumes.radio", c.Volumes.Radio},
		{"volumes.ducking", c.Volumes.Ducking},
		{"volumes.voice", c.Volumes.Voice},
	} {
		if err := validateVolume(v.name, v.val, 2.0); err != nil {
			return err
		}
	}
	if c.Volumes.Compression.Ratio < 1.0 {
		return fmt.Errorf("volumes.compression.ratio must be >= 1.0, got %g", c.Volumes.Compression.Ratio)
	}
	if c.Volumes.Compression.AttackMs < 0 || c.Volumes.Compression.ReleaseMs < 0 {
		return fmt.Errorf("compression attack/release must be non-negative")
	}
	if c.Radio.IntervalSeconds < 0 {
		return fmt.Errorf("radio.interval must be non-negative, got %d", c.Radio.IntervalSeconds)
	}
	if c.Radio.DeactivateAfter < 0 {
		return fmt.Errorf("radio.deactivate_after_failures must be non-negative, got %d", c.Radio.DeactivateAfter)
	}
	if c.Effects.SampleRate < 0 {
		return fmt.Errorf("distortion_simulation.sample_rate must be non-negative, got %d", c.Effects.SampleRate)
	}
	if c.Effects.BitDepth < 0 || c.Effects.BitDepth > 32 {
		return fmt.Errorf("distortion_simulation.bit_depth must be in 0..32, got %d", c.Effects.BitDepth)
	}
	if c.Effects.FilterLow < 0 || c.Effects.FilterHigh < 0 {
		return fmt.Errorf("distortion_simulation filter cutoffs must be non-negative")
	}
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"distortion_simulation.distortion", c.Effects.Distortion},
		{"distortion_simulation.noise_level", c.Effects.NoiseLevel},
		{"distortion_simulation.crackle", c.Effects.Crackle},
	} {
		if v.val < 0 || math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%s must be a non-negative number, got %g", v.name, v.val)
		}
	}
	return nil
}

func validateVolume(name string, v, max float64) error {
	if v < 0 || v > max || math.IsNaN(v) {
		return fmt.Errorf("%s must be in 0.0..%.1f, got %g", name, max, v)
	}
	return nil
}
