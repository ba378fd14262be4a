// Package ml bridges trial collections into gomlx training loops.
//
// A TrialDataset wraps any datasets.Dataset as a train.Dataset: each yield
// loads a batch of trials lazily, converts the signal matrices into
// time-major float32 tensors and the ground-truth labels into an int32
// vector. Nothing is cached between epochs; every yield re-reads from the
// working directory.
package ml

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"gonum.org/v1/gonum/mat"

	"github.com/affectsai/aardt/datasets"
)

// Config carries the construction parameters for a TrialDataset.
type Config struct {
	// SignalType selects which signal each trial contributes.
	SignalType string

	// BatchSize is the number of trials per yield; it defaults to 1.
	// Trailing trials that do not fill a batch are dropped.
	BatchSize int

	// Shuffle reorders the trials on every Reset.
	Shuffle bool

	// Rand drives shuffling; nil uses a time-based seed.
	Rand *rand.Rand

	// Name overrides the wrapped dataset's name in training logs.
	Name string
}

// TrialDataset presents a trial collection as a gomlx train.Dataset. Use the
// Shuffle option for training epochs and leave it off for evaluation.
type TrialDataset struct {
	source datasets.Dataset
	cfg    Config

	order []int
	next  int
}

var _ train.Dataset = (*TrialDataset)(nil)

// NewTrialDataset wraps source for training on the given signal type.
func NewTrialDataset(source datasets.Dataset, cfg Config) (*TrialDataset, error) {
	if cfg.SignalType == "" {
		return nil, fmt.Errorf("ml: signal type is required")
	}
	found := false
	for _, s := range source.Signals() {
		if s == cfg.SignalType {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("ml: %w: %s", datasets.ErrUnknownSignal, cfg.SignalType)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	d := &TrialDataset{source: source, cfg: cfg}
	d.Reset()
	return d, nil
}

// Len is the number of trials behind this dataset.
func (d *TrialDataset) Len() int {
	return len(d.source.Trials())
}

// Name implements train.Dataset.
func (d *TrialDataset) Name() string {
	if d.cfg.Name != "" {
		return d.cfg.Name
	}
	return d.source.Name()
}

// Reset implements train.Dataset. It starts a new epoch, reshuffling when
// configured to.
func (d *TrialDataset) Reset() {
	trials := d.source.Trials()
	if len(d.order) != len(trials) {
		d.order = make([]int, len(trials))
		for i := range d.order {
			d.order[i] = i
		}
	}
	if d.cfg.Shuffle {
		d.cfg.Rand.Shuffle(len(d.order), func(i, j int) {
			d.order[i], d.order[j] = d.order[j], d.order[i]
		})
	}
	d.next = 0
}

// Yield implements train.Dataset. It returns one batch as a single
// batch x time x channels float32 input tensor and a batch-length int32
// label tensor, and io.EOF once fewer than a full batch remains.
func (d *TrialDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	trials := d.source.Trials()
	if d.next+d.cfg.BatchSize > len(trials) {
		return nil, nil, nil, io.EOF
	}

	batch := make([][][]float32, 0, d.cfg.BatchSize)
	batchLabels := make([]int32, 0, d.cfg.BatchSize)
	for i := 0; i < d.cfg.BatchSize; i++ {
		trial := trials[d.order[d.next]]
		d.next++

		example, err := exampleFromTrial(trial, d.cfg.SignalType)
		if err != nil {
			return nil, nil, nil, err
		}
		label, err := trial.LoadGroundTruth()
		if err != nil {
			// Unlabeled sources still train with a neutral class.
			if !errors.Is(err, datasets.ErrNoGroundTruth) {
				return nil, nil, nil, err
			}
			label = 0
		}
		batch = append(batch, example)
		batchLabels = append(batchLabels, int32(label))
	}

	if err := checkBatchShape(batch); err != nil {
		return nil, nil, nil, err
	}
	inputs = []*tensors.Tensor{tensors.FromAnyValue(batch)}
	labels = []*tensors.Tensor{tensors.FromAnyValue(batchLabels)}
	return nil, inputs, labels, nil
}

// exampleFromTrial loads one trial's signal and transposes it into a
// time x channels float32 matrix, dropping the timestamp row.
func exampleFromTrial(trial datasets.Trial, signalType string) ([][]float32, error) {
	signal, err := trial.LoadSignalData(signalType)
	if err != nil {
		return nil, fmt.Errorf("ml: failed to load trial signal: %w", err)
	}
	return timeMajor(signal), nil
}

func timeMajor(signal *mat.Dense) [][]float32 {
	rows, cols := signal.Dims()
	out := make([][]float32, cols)
	for s := 0; s < cols; s++ {
		sample := make([]float32, rows-1)
		for c := 1; c < rows; c++ {
			sample[c-1] = float32(signal.At(c, s))
		}
		out[s] = sample
	}
	return out
}

// checkBatchShape rejects ragged batches before tensor conversion. Register
// a fixed-duration preprocessor on the source dataset to equalize trial
// lengths.
func checkBatchShape(batch [][][]float32) error {
	if len(batch) == 0 {
		return nil
	}
	steps := len(batch[0])
	channels := 0
	if steps > 0 {
		channels = len(batch[0][0])
	}
	for i, example := range batch {
		if len(example) != steps {
			return fmt.Errorf("ml: ragged batch: example %d has %d samples, want %d", i, len(example), steps)
		}
		for _, sample := range example {
			if len(sample) != channels {
				return fmt.Errorf("ml: ragged batch: example %d has %d channels, want %d", i, len(sample), channels)
			}
		}
	}
	return nil
}
