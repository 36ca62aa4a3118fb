package dsp

import (
	"math"

	"github.com/hammamikhairi/tannoy/internal/config"
	"github.com/hammamikhairi/tannoy/internal/logger"
)

// epsilon guards the gain computation against log10(0) when the volume
// multipliers are zeroed out.
const epsilon = 1e-6

// Processor runs the full play-time effect chain: optional degradation,
// then compression, then the voice/master gain. It never returns an
// error to the caller: any internal failure is logged and the
// offending step's input is passed through unchanged, so a bad effect
// configuration can never block playback.
type Processor struct {
	log *logger.Logger
}

// NewProcessor creates an effect processor.
func NewProcessor(log *logger.Logger) *Processor {
	return &Processor{log: log}
}

// Process transforms a decoded voice-line buffer according to the
// current effect and mix settings.
func (p *Processor) Process(b Buffer, eff config.EffectConfig, mix config.MixConfig) Buffer {
	out := b

	if eff.Enabled {
		degraded, err := Degrade(out, eff)
		if err != nil {
			p.log.Error("effects: %v (playing line unprocessed)", err)
		} else {
			out = degraded
		}
	}

	compressed, err := Compress(out, mix.Compression)
	if err != nil {
		p.log.Error("effects: %v (skipping compression)", err)
	} else {
		out = compressed
	}

	db := 20 * math.Log10(math.Max(mix.Voice*mix.Master, epsilon))
	out = GainDB(out, db)

	p.log.Debug("effects: processed %d samples (degrade=%v, gain=%+.1fdB)",
		len(out.Samples), eff.Enabled, db)
	return out
}
