package dsp

import (
	"fmt"
	"math"
)

// highPass applies a first-order high-pass filter at cutoff Hz.
func highPass(b Buffer, cutoff int) (Buffer, error) {
	if cutoff <= 0 {
		return b, fmt.Errorf("high-pass: invalid cutoff %d Hz", cutoff)
	}
	if len(b.Samples) == 0 {
		return b, nil
	}

	rc := 1.0 / (2 * math.Pi * float64(cutoff))
	dt := 1.0 / float64(b.Rate)
	alpha := rc / (rc + dt)

	out := make([]float64, len(b.Samples))
	out[0] = b.Samples[0]
	for i := 1; i < len(b.Samples); i++ {
		out[i] = alpha * (out[i-1] + b.Samples[i] - b.Samples[i-1])
	}

	b.Samples = out
	return b, nil
}

// lowPass applies a first-order low-pass filter at cutoff Hz.
func lowPass(b Buffer, cutoff int) (Buffer, error) {
	if cutoff <= 0 {
		return b, fmt.Errorf("low-pass: invalid cutoff %d Hz", cutoff)
	}
	if len(b.Samples) == 0 {
		return b, nil
	}

	rc := 1.0 / (2 * math.Pi * float64(cutoff))
	dt := 1.0 / float64(b.Rate)
	alpha := dt / (rc + dt)

	out := make([]float64, len(b.Samples))
	out[0] = b.Samples[0] * alpha
	for i := 1; i < len(b.Samples); i++ {
		out[i] = out[i-1] + alpha*(b.Samples[i]-out[i-1])
	}

	b.Samples = out
	return b, nil
}
