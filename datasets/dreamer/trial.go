package dreamer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/affectsai/aardt/datasets"
)

// Trial is one participant/clip pairing from DREAMER. Besides the stimuli
// signal every trial also carries the pre-stimulus baseline recording.
type Trial struct {
	*datasets.TrialBase

	dataset       *Dataset
	baselineFiles map[string]string
}

var _ datasets.Trial = (*Trial)(nil)

func newTrial(d *Dataset, participant, media int) *Trial {
	t := &Trial{dataset: d, baselineFiles: make(map[string]string)}
	t.TrialBase = datasets.NewTrialBase(d, participant, media, t)
	return t
}

// LoadRawSignalData reads the preloaded stimuli matrix for signalType and
// records its observed duration on the dataset metadata.
func (t *Trial) LoadRawSignalData(signalType string) (*mat.Dense, error) {
	path, ok := t.SignalDataFiles()[signalType]
	if !ok {
		return nil, fmt.Errorf("dreamer: %w: %s", datasets.ErrUnknownSignal, signalType)
	}
	signal, err := datasets.LoadSignal(path)
	if err != nil {
		return nil, fmt.Errorf("dreamer: failed to load %s: %w", signalType, err)
	}
	_, samples := signal.Dims()
	t.dataset.RecordSignalDuration(signalType, float64(samples)/sampleRates[signalType])
	return signal, nil
}

// LoadBaselineSignalData reads the pre-stimulus baseline matrix for
// signalType. Baselines bypass the preprocessor chains.
func (t *Trial) LoadBaselineSignalData(signalType string) (*mat.Dense, error) {
	path, ok := t.baselineFiles[signalType]
	if !ok {
		return nil, fmt.Errorf("dreamer: %w: %s", datasets.ErrUnknownSignal, signalType)
	}
	signal, err := datasets.LoadSignal(path)
	if err != nil {
		return nil, fmt.Errorf("dreamer: failed to load %s baseline: %w", signalType, err)
	}
	return signal, nil
}

// LoadGroundTruth derives the affect-space quadrant from the participant's
// preloaded arousal and valence score vectors.
func (t *Trial) LoadGroundTruth() (int, error) {
	arousal, err := t.scoreAt("arousal")
	if err != nil {
		return 0, err
	}
	valence, err := t.scoreAt("valence")
	if err != nil {
		return 0, err
	}
	return toQuadrant(arousal, valence), nil
}

func (t *Trial) scoreAt(name string) (float64, error) {
	path, err := t.dataset.scoreVectorPath(t.RawParticipantID(), name)
	if err != nil {
		return 0, err
	}
	scores, err := datasets.LoadSignal(path)
	if err != nil {
		return 0, fmt.Errorf("dreamer: failed to load %s scores: %w", name, err)
	}
	_, n := scores.Dims()
	if t.RawMediaID() > n {
		return 0, fmt.Errorf("dreamer: no %s score for media %d", name, t.RawMediaID())
	}
	return scores.At(0, t.RawMediaID()-1), nil
}

// toQuadrant maps a 1-5 arousal/valence self-report to its affect-space
// quadrant.
func toQuadrant(arousal, valence float64) int {
	if arousal >= 3 {
		if valence >= 3 {
			return 1
		}
		return 2
	}
	if valence < 3 {
		return 3
	}
	return 4
}
