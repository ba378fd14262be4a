package datasets

import (
	"fmt"
	"math"
)

// splitTolerance bounds how far split proportions may drift from 1.0.
const splitTolerance = 1e-4

// TrialSplits partitions the loaded trials into participant-stratified
// groups. Proportions must be positive and sum to 1.0 within 1e-4 or the
// call fails with ErrInvalidSplit. Each proportion is converted to a participant count by
// flooring proportion*participants, with the rounding remainder added to the
// first split so the counts sum exactly; participants are then drawn without
// replacement from the remaining pool for each split in sequence, using the
// dataset's random source.
//
// A single proportion (or none) returns all trials as one group. With more,
// the returned groups partition the participant space exactly: every
// participant lands in exactly one group, the groups' trial lists are
// disjoint, and their union is the full trial list.
func (b *Base) TrialSplits(proportions []float64) ([][]Trial, error) {
	if len(proportions) == 0 {
		proportions = []float64{1}
	}

	sum := 0.0
	for _, p := range proportions {
		if p <= 0 {
			return nil, fmt.Errorf("%w: proportion %v is not positive", ErrInvalidSplit, p)
		}
		sum += p
	}
	if math.Abs(1.0-sum) > splitTolerance {
		return nil, fmt.Errorf("%w: got %v (sum %v)", ErrInvalidSplit, proportions, sum)
	}

	if len(proportions) == 1 {
		return [][]Trial{append([]Trial(nil), b.trials...)}, nil
	}

	pids := b.ParticipantIDs()
	n := len(pids)

	counts := make([]int, len(proportions))
	total := 0
	for i, p := range proportions {
		counts[i] = int(p * float64(n))
		total += counts[i]
	}
	counts[0] += n - total

	// Draw each split's participants without replacement from the pool.
	pool := append([]int(nil), pids...)
	splitOf := make(map[int]int, n)
	for i, k := range counts {
		b.rng.Shuffle(len(pool), func(x, y int) { pool[x], pool[y] = pool[y], pool[x] })
		for _, pid := range pool[:k] {
			splitOf[pid] = i
		}
		pool = pool[k:]
	}

	out := make([][]Trial, len(counts))
	for i := range out {
		out[i] = []Trial{}
	}
	for _, t := range b.trials {
		i := splitOf[t.ParticipantID()]
		out[i] = append(out[i], t)
	}
	return out, nil
}

// DatasetSplits runs TrialSplits and wraps each group as a read-only
// dataset-shaped view. The views satisfy the full Dataset contract and may
// themselves be split again.
func (b *Base) DatasetSplits(proportions []float64) ([]Dataset, error) {
	splits, err := b.TrialSplits(proportions)
	if err != nil {
		return nil, err
	}

	out := make([]Dataset, len(splits))
	for i, trials := range splits {
		out[i] = newSplitView(b, trials)
	}
	return out, nil
}

// splitDataset is the read-only view produced by DatasetSplits. It shares
// the parent's offsets, metadata, preprocessor registry, and expected
// responses, over a snapshot of the parent's trials. Preload and LoadTrials
// are no-ops: the trials were supplied at construction.
type splitDataset struct {
	*Base
}

func newSplitView(parent *Base, trials []Trial) *splitDataset {
	return &splitDataset{
		Base: &Base{
			name:              parent.name,
			workingRoot:       parent.workingRoot,
			signals:           parent.signals,
			participantOffset: parent.participantOffset,
			mediaOffset:       parent.mediaOffset,
			trials:            trials,
			prep:              parent.prep,
			metadata:          parent.metadata,
			expected:          parent.expected,
			mediaNames:        parent.mediaNames,
			rng:               parent.rng,
			log:               parent.log,
		},
	}
}

// Preload implements Dataset as a no-op.
func (s *splitDataset) Preload() error { return nil }

// LoadTrials implements Dataset as a no-op.
func (s *splitDataset) LoadTrials() error { return nil }
