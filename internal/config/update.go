package config

// Update is a typed partial configuration change. Nil fields are left
// untouched; set fields replace the current value. Applying an update
// never bypasses validation.
type Update struct {
	APIKey  *string       `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Voice   *VoiceUpdate  `json:"voice,omitempty" yaml:"voice,omitempty"`
	Volumes *MixUpdate    `json:"volumes,omitempty" yaml:"volumes,omitempty"`
	Radio   *RadioUpdate  `json:"radio,omitempty" yaml:"radio,omitempty"`
	Effects *EffectUpdate `json:"distortion_simulation,omitempty" yaml:"distortion_simulation,omitempty"`
}

// VoiceUpdate is a partial VoiceConfig.
type VoiceUpdate struct {
	ID         *string  `json:"id,omitempty" yaml:"id,omitempty"`
	Model      *string  `json:"model,omitempty" yaml:"model,omitempty"`
	Stability  *float64 `json:"stability,omitempty" yaml:"stability,omitempty"`
	Similarity *float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`
	Style      *float64 `json:"style,omitempty" yaml:"style,omitempty"`
	Speed      *float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
}

// MixUpdate is a partial MixConfig.
type MixUpdate struct {
	Master      *float64           `json:"master,omitempty" yaml:"master,omitempty"`
	Radio       *float64           `json:"radio,omitempty" yaml:"radio,omitempty"`
	Ducking     *float64           `json:"ducking,omitempty" yaml:"ducking,omitempty"`
	Voice       *float64           `json:"voice,omitempty" yaml:"voice,omitempty"`
	Compression *CompressionUpdate `json:"compression,omitempty" yaml:"compression,omitempty"`
}

// CompressionUpdate is a partial CompressionConfig.
type CompressionUpdate struct {
	ThresholdDB *float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Ratio       *float64 `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	AttackMs    *float64 `json:"attack,omitempty" yaml:"attack,omitempty"`
	ReleaseMs   *float64 `json:"release,omitempty" yaml:"release,omitempty"`
}

// RadioUpdate is a partial RadioConfig.
type RadioUpdate struct {
	MusicDir        *string `json:"playlist,omitempty" yaml:"playlist,omitempty"`
	IntervalSeconds *int    `json:"interval,omitempty" yaml:"interval,omitempty"`
	DeactivateAfter *int    `json:"deactivate_after_failures,omitempty" yaml:"deactivate_after_failures,omitempty"`
}

// EffectUpdate is a partial EffectConfig.
type EffectUpdate struct {
	Enabled    *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	SampleRate *int     `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	Distortion *float64 `json:"distortion,omitempty" yaml:"distortion,omitempty"`
	FilterLow  *int     `json:"filter_low,omitempty" yaml:"filter_low,omitempty"`
	FilterHigh *int     `json:"filter_high,omitempty" yaml:"filter_high,omitempty"`
	NoiseLevel *float64 `json:"noise_level,omitempty" yaml:"noise_level,omitempty"`
	BitDepth   *int     `json:"bit_depth,omitempty" yaml:"bit_depth,omitempty"`
	Crackle    *float64 `json:"crackle,omitempty" yaml:"crackle,omitempty"`
}

// Empty reports whether the update contains no changes at all.
func (u Update) Empty() bool {
	return u.APIKey == nil && u.Voice == nil && u.Volumes == nil && u.Radio == nil && u.Effects == nil
}

// applyTo writes the update's set fields onto cfg.
func (u Update) applyTo(cfg *Config) {
	setStr(&cfg.APIKey, u.APIKey)

	if v := u.Voice; v != nil {
		setStr(&cfg.Voice.ID, v.ID)
		setStr(&cfg.Voice.Model, v.Model)
		setF64(&cfg.Voice.Stability, v.Stability)
		setF64(&cfg.Voice.Similarity, v.Similarity)
		setF64(&cfg.Voice.Style, v.Style)
		setF64(&cfg.Voice.Speed, v.Speed)
	}

	if m := u.Volumes; m != nil {
		setF64(&cfg.Volumes.Master, m.Master)
		setF64(&cfg.Volumes.Radio, m.Radio)
		setF64(&cfg.Volumes.Ducking, m.Ducking)
		setF64(&cfg.Volumes.Voice, m.Voice)
		if c := m.Compression; c != nil {
			setF64(&cfg.Volumes.Compression.ThresholdDB, c.ThresholdDB)
			setF64(&cfg.Volumes.Compression.Ratio, c.Ratio)
			setF64(&cfg.Volumes.Compression.AttackMs, c.AttackMs)
			setF64(&cfg.Volumes.Compression.ReleaseMs, c.ReleaseMs)
		}
	}

	if r := u.Radio; r != nil {
		setStr(&cfg.Radio.MusicDir, r.MusicDir)
		setInt(&cfg.Radio.IntervalSeconds, r.IntervalSeconds)
		setInt(&cfg.Radio.DeactivateAfter, r.DeactivateAfter)
	}

	if e := u.Effects; e != nil {
		if e.Enabled != nil {
			cfg.Effects.Enabled = *e.Enabled
		}
		setInt(&cfg.Effects.SampleRate, e.SampleRate)
		setF64(&cfg.Effects.Distortion, e.Distortion)
		setInt(&cfg.Effects.FilterLow, e.FilterLow)
		setInt(&cfg.Effects.FilterHigh, e.FilterHigh)
		setF64(&cfg.Effects.NoiseLevel, e.NoiseLevel)
		setInt(&cfg.Effects.BitDepth, e.BitDepth)
		setF64(&cfg.Effects.Crackle, e.Crackle)
	}
}

func setStr(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setF64(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
