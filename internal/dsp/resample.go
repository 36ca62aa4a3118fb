package dsp

import "fmt"

// Resample converts a buffer of any channel count to the target rate,
// deinterleaving and resampling each channel independently. Mono
// buffers take the direct path.
func Resample(b Buffer, rate int) (Buffer, error) {
	if b.Channels <= 1 {
		return resample(b, rate)
	}

	frames := b.Frames()
	channels := make([]Buffer, b.Channels)
	for c := 0; c < b.Channels; c++ {
		mono := Buffer{Samples: make([]float64, frames), Rate: b.Rate, Channels: 1}
		for i := 0; i < frames; i++ {
			mono.Samples[i] = b.Samples[i*b.Channels+c]
		}
		out, err := resample(mono, rate)
		if err != nil {
			return b, err
		}
		channels[c] = out
	}

	outFrames := len(channels[0].Samples)
	out := Buffer{Samples: make([]float64, outFrames*b.Channels), Rate: rate, Channels: b.Channels}
	for c, ch := range channels {
		for i := 0; i < outFrames && i < len(ch.Samples); i++ {
			out.Samples[i*b.Channels+c] = ch.Samples[i]
		}
	}
	return out, nil
}

// resample converts a mono buffer to the target rate using linear
// interpolation. Quality is deliberately modest: the chain is emulating
// a narrow-band transmission, not mastering audio.
func resample(b Buffer, rate int) (Buffer, error) {
	if rate <= 0 {
		return b, fmt.Errorf("resample: invalid target rate %d", rate)
	}
	if b.Rate <= 0 {
		return b, fmt.Errorf("resample: buffer has invalid rate %d", b.Rate)
	}
	if b.Channels != 1 {
		return b, fmt.Errorf("resample: expected mono buffer, got %d channels", b.Channels)
	}
	if rate == b.Rate || len(b.Samples) == 0 {
		b.Rate = rate
		return b, nil
	}

	ratio := float64(b.Rate) / float64(rate)
	n := int(float64(len(b.Samples)) / ratio)
	if n < 1 {
		n = 1
	}

	out := make([]float64, n)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(b.Samples)-1 {
			out[i] = b.Samples[len(b.Samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = b.Samples[j]*(1-frac) + b.Samples[j+1]*frac
	}

	return Buffer{Samples: out, Rate: rate, Channels: 1}, nil
}
