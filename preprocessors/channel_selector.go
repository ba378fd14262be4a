package preprocessors

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ChannelSelector keeps a subset of a signal's channels. It is commonly used
// at the head of a chain to strip the timestamp row before numeric
// transforms run.
type ChannelSelector struct {
	// Retain lists the row indices to keep, in output order. If nil, every
	// row except row 0 (the timestamp row) is retained.
	Retain []int
}

// NewChannelSelectorChain wraps a ChannelSelector in a chain node. With no
// retained channels given it drops the timestamp row.
func NewChannelSelectorChain(retain []int, opts ...ChainOption) *Chain {
	return NewChain(&ChannelSelector{Retain: retain}, opts...)
}

// Name implements Transform.
func (s *ChannelSelector) Name() string { return "ChannelSelector" }

// Apply implements Transform.
func (s *ChannelSelector) Apply(signal *mat.Dense, _ Context) (*mat.Dense, error) {
	if signal == nil {
		return nil, fmt.Errorf("preprocessors: channel selector applied to nil signal")
	}

	rows, cols := signal.Dims()
	retain := s.Retain
	if retain == nil {
		retain = make([]int, 0, rows-1)
		for r := 1; r < rows; r++ {
			retain = append(retain, r)
		}
	}

	out := mat.NewDense(len(retain), cols, nil)
	for i, r := range retain {
		if r < 0 || r >= rows {
			return nil, fmt.Errorf("preprocessors: channel %d out of range for %d-channel signal", r, rows)
		}
		out.SetRow(i, signal.RawRowView(r))
	}
	return out, nil
}
