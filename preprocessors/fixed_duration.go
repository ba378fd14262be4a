package preprocessors

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FixedDuration normalizes a signal to a fixed duration. Signals longer than
// the target keep their most recent samples; shorter signals are padded on
// the left so that the original samples stay right-aligned.
type FixedDuration struct {
	// DurationSeconds is the target signal length, in seconds.
	DurationSeconds int

	// SampleRate is the signal sample rate, in Hz.
	SampleRate int

	// PaddingValue fills the left padding of short signals. If nil, each
	// channel is padded with its own mean value.
	PaddingValue *float64
}

// NewFixedDurationChain wraps a FixedDuration transform in a chain node
// padding short signals with the per-channel mean.
func NewFixedDurationChain(durationSeconds, sampleRate int, opts ...ChainOption) *Chain {
	return NewChain(&FixedDuration{
		DurationSeconds: durationSeconds,
		SampleRate:      sampleRate,
	}, opts...)
}

// Name implements Transform.
func (f *FixedDuration) Name() string { return "FixedDuration" }

// Apply implements Transform. The signal is an NxM matrix of N channels and
// M samples; the result always has exactly DurationSeconds*SampleRate
// samples per channel.
func (f *FixedDuration) Apply(signal *mat.Dense, _ Context) (*mat.Dense, error) {
	if signal == nil {
		return nil, fmt.Errorf("preprocessors: fixed duration applied to nil signal")
	}

	rows, cols := signal.Dims()
	target := f.DurationSeconds * f.SampleRate
	if target <= 0 {
		return nil, fmt.Errorf("preprocessors: invalid fixed duration target %d samples", target)
	}

	if cols >= target {
		out := mat.NewDense(rows, target, nil)
		out.Copy(signal.Slice(0, rows, cols-target, cols))
		return out, nil
	}

	pad := target - cols
	out := mat.NewDense(rows, target, nil)
	for r := 0; r < rows; r++ {
		fill := 0.0
		if f.PaddingValue != nil {
			fill = *f.PaddingValue
		} else if cols > 0 {
			sum := 0.0
			for c := 0; c < cols; c++ {
				sum += signal.At(r, c)
			}
			fill = sum / float64(cols)
		}
		for c := 0; c < pad; c++ {
			out.Set(r, c, fill)
		}
		for c := 0; c < cols; c++ {
			out.Set(r, pad+c, signal.At(r, c))
		}
	}
	return out, nil
}
