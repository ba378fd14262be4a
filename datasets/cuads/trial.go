package cuads

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/affectsai/aardt/datasets"
)

// Trial is one participant/stimulus pairing from CUADS. Signal data comes
// from the working-directory matrices written by Preload.
type Trial struct {
	*datasets.TrialBase

	dataset *Dataset
	truth   int
}

var _ datasets.Trial = (*Trial)(nil)

func newTrial(d *Dataset, participant, media, truth int) *Trial {
	t := &Trial{dataset: d, truth: truth}
	t.TrialBase = datasets.NewTrialBase(d, participant, media, t)
	for _, signalType := range d.Signals() {
		t.AddSignalType(signalType)
	}
	return t
}

// LoadRawSignalData reads the preloaded matrix for signalType and records
// its observed duration on the dataset metadata.
func (t *Trial) LoadRawSignalData(signalType string) (*mat.Dense, error) {
	path, ok := t.SignalDataFiles()[signalType]
	if !ok {
		return nil, fmt.Errorf("cuads: %w: %s", datasets.ErrUnknownSignal, signalType)
	}
	signal, err := datasets.LoadSignal(path)
	if err != nil {
		return nil, fmt.Errorf("cuads: failed to load %s: %w", signalType, err)
	}
	_, samples := signal.Dims()
	t.dataset.RecordSignalDuration(signalType, float64(samples)/SampleRate)
	return signal, nil
}

// LoadGroundTruth returns the affect-space quadrant derived from the
// participant's self-reported arousal and valence.
func (t *Trial) LoadGroundTruth() (int, error) {
	return t.truth, nil
}
