package preprocessors

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MinMaxScaler rescales each column of the signal into a target feature
// range. A column with zero spread maps to the low end of the range.
type MinMaxScaler struct {
	// Min and Max bound the output feature range. A zero-valued scaler
	// rescales into [0, 1].
	Min float64
	Max float64
}

// NewMinMaxScalerChain wraps a MinMaxScaler in a chain node targeting the
// [min, max] feature range.
func NewMinMaxScalerChain(min, max float64, opts ...ChainOption) *Chain {
	return NewChain(&MinMaxScaler{Min: min, Max: max}, opts...)
}

// Name implements Transform.
func (s *MinMaxScaler) Name() string { return "MinMaxScaler" }

// Apply implements Transform.
func (s *MinMaxScaler) Apply(signal *mat.Dense, _ Context) (*mat.Dense, error) {
	if signal == nil {
		return nil, fmt.Errorf("preprocessors: min-max scaler applied to nil signal")
	}

	lo, hi := s.Min, s.Max
	if lo == 0 && hi == 0 {
		hi = 1
	}
	if hi <= lo {
		return nil, fmt.Errorf("preprocessors: invalid feature range [%v, %v]", lo, hi)
	}

	rows, cols := signal.Dims()
	out := mat.NewDense(rows, cols, nil)
	for c := 0; c < cols; c++ {
		colMin, colMax := signal.At(0, c), signal.At(0, c)
		for r := 1; r < rows; r++ {
			v := signal.At(r, c)
			if v < colMin {
				colMin = v
			}
			if v > colMax {
				colMax = v
			}
		}

		span := colMax - colMin
		for r := 0; r < rows; r++ {
			if span == 0 {
				out.Set(r, c, lo)
				continue
			}
			std := (signal.At(r, c) - colMin) / span
			out.Set(r, c, std*(hi-lo)+lo)
		}
	}
	return out, nil
}
