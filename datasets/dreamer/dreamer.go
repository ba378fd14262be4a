// Package dreamer adapts the DREAMER dataset (ECG and EEG recorded while
// participants watched 18 film clips) to the datasets contract.
//
// The source is a single JSON export holding one entry per participant,
// each with per-clip stimuli and baseline matrices plus self-reported
// arousal and valence scores on a 1-5 scale. Preloading converts every
// matrix to the timestamped row-major signal layout and writes the score
// vectors alongside them, so trials load without touching the export.
package dreamer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/affectsai/aardt/datasets"
)

const (
	// ECGSampleRate and EEGSampleRate are fixed by the recording hardware.
	ECGSampleRate = 256
	EEGSampleRate = 128

	// NumMediaFiles and NumParticipants describe the full corpus.
	NumMediaFiles   = 18
	NumParticipants = 23
)

// AllSignals lists every signal type present in the DREAMER export.
var AllSignals = []string{"ECG", "EEG"}

// expectedClassifications maps each clip id to its expected affect-space
// quadrant, per the dataset's published stimulus selection.
var expectedClassifications = map[string]int{
	"1": 2, "2": 1, "3": 1, "4": 2, "5": 1, "6": 2,
	"7": 1, "8": 2, "9": 2, "10": 2, "11": 4, "12": 4,
	"13": 1, "14": 3, "15": 2, "16": 1, "17": 3, "18": 2,
}

var defaultSignalMetadata = map[string]datasets.SignalMetadata{
	"ECG": {SampleRate: ECGSampleRate, NChannels: 2},
	"EEG": {SampleRate: EEGSampleRate, NChannels: 14},
}

var sampleRates = map[string]float64{
	"ECG": ECGSampleRate,
	"EEG": EEGSampleRate,
}

// Config carries the construction parameters for a DREAMER dataset.
type Config struct {
	// Path is the DREAMER JSON export.
	Path string

	// Signals selects which of AllSignals to serve; nil means all.
	Signals []string

	// WorkingRoot overrides the default working-directory root.
	WorkingRoot string

	ParticipantOffset int
	MediaOffset       int

	// Rand seeds the split random source; nil uses a time-based seed.
	Rand *rand.Rand

	Logger *slog.Logger
}

// Dataset is the DREAMER adapter. Construct it with New, then Preload and
// LoadTrials.
type Dataset struct {
	*datasets.Base

	path string
}

var _ datasets.Dataset = (*Dataset)(nil)

// New constructs a DREAMER dataset over the JSON export at cfg.Path.
func New(cfg Config) (*Dataset, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("dreamer: dataset path is required")
	}
	if info, err := os.Stat(cfg.Path); err != nil || info.IsDir() {
		return nil, fmt.Errorf("dreamer: invalid path to DREAMER dataset: %s", cfg.Path)
	}

	signals := cfg.Signals
	if signals == nil {
		signals = append([]string(nil), AllSignals...)
	}
	for _, s := range signals {
		if !isKnownSignal(s) {
			return nil, fmt.Errorf("dreamer: %w: %s", datasets.ErrUnknownSignal, s)
		}
	}

	d := &Dataset{path: cfg.Path}
	d.Base = datasets.NewBase(datasets.BaseConfig{
		Name:              "DreamerDataset",
		WorkingRoot:       cfg.WorkingRoot,
		Signals:           signals,
		ParticipantOffset: cfg.ParticipantOffset,
		MediaOffset:       cfg.MediaOffset,
		SignalMetadata:    defaultSignalMetadata,
		ExpectedResponses: expectedClassifications,
		Rand:              cfg.Rand,
		Logger:            cfg.Logger,
	})
	d.BindPreloader(d)

	d.Logger().Debug("loading DREAMER", "path", cfg.Path, "signals", signals)
	return d, nil
}

func isKnownSignal(signalType string) bool {
	for _, s := range AllSignals {
		if s == signalType {
			return true
		}
	}
	return false
}

// signalRecord holds one participant's matrices for one signal type. The
// outer index is the clip, inner matrices are samples x channels.
type signalRecord struct {
	Baseline [][][]float64 `json:"baseline"`
	Stimuli  [][][]float64 `json:"stimuli"`
}

// participantRecord mirrors one entry of the JSON export.
type participantRecord struct {
	ECG          *signalRecord `json:"ECG"`
	EEG          *signalRecord `json:"EEG"`
	ScoreArousal []float64     `json:"ScoreArousal"`
	ScoreValence []float64     `json:"ScoreValence"`
}

func (r *participantRecord) signal(signalType string) *signalRecord {
	switch signalType {
	case "ECG":
		return r.ECG
	case "EEG":
		return r.EEG
	}
	return nil
}

// forEachParticipant streams the export, calling fn with 1-based participant
// numbers so a 23-entry file never sits in memory at once.
func (d *Dataset) forEachParticipant(fn func(participant int, rec *participantRecord) error) error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("dreamer: failed to open dataset: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("dreamer: malformed dataset: %w", err)
	}

	participant := 0
	for dec.More() {
		participant++
		var rec participantRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("dreamer: failed to decode participant %d: %w", participant, err)
		}
		if err := fn(participant, &rec); err != nil {
			return err
		}
	}
	return nil
}

// PreloadDataset converts every stimuli and baseline matrix to the
// timestamped layout and writes the per-participant score vectors.
func (d *Dataset) PreloadDataset() error {
	return d.forEachParticipant(func(participant int, rec *participantRecord) error {
		for _, signalType := range d.Signals() {
			sig := rec.signal(signalType)
			if sig == nil {
				return fmt.Errorf("dreamer: participant %d has no %s data", participant, signalType)
			}
			if err := d.preloadSignal(participant, signalType, sig.Stimuli, false); err != nil {
				return err
			}
			if err := d.preloadSignal(participant, signalType, sig.Baseline, true); err != nil {
				return err
			}
		}

		dir, err := d.WorkingPath(datasets.PathQuery{ParticipantID: participant + d.ParticipantOffset()})
		if err != nil {
			return err
		}
		if err := datasets.SaveSignal(filepath.Join(dir, "arousal.dat"), rowVector(rec.ScoreArousal)); err != nil {
			return err
		}
		return datasets.SaveSignal(filepath.Join(dir, "valence.dat"), rowVector(rec.ScoreValence))
	})
}

func (d *Dataset) preloadSignal(participant int, signalType string, clips [][][]float64, baseline bool) error {
	rate := sampleRates[signalType]
	for i, clip := range clips {
		signal, err := toSignalMatrix(clip, rate)
		if err != nil {
			return fmt.Errorf("dreamer: participant %d media %d %s: %w", participant, i+1, signalType, err)
		}
		path, err := d.WorkingPath(datasets.PathQuery{
			ParticipantID: participant + d.ParticipantOffset(),
			MediaID:       i + 1 + d.MediaOffset(),
			SignalType:    signalType,
			Baseline:      baseline,
		})
		if err != nil {
			return err
		}
		if err := datasets.SaveSignal(path, signal); err != nil {
			return err
		}
	}
	return nil
}

// LoadTrials creates one trial per participant and clip. Signal data and
// ground truth come from the working directory, so Preload must have run.
func (d *Dataset) LoadTrials() error {
	return d.forEachParticipant(func(participant int, rec *participantRecord) error {
		for media := 1; media <= len(rec.ScoreArousal); media++ {
			trial := newTrial(d, participant, media)
			for _, signalType := range d.Signals() {
				stimuli, err := d.WorkingPath(datasets.PathQuery{
					ParticipantID: participant + d.ParticipantOffset(),
					MediaID:       media + d.MediaOffset(),
					SignalType:    signalType,
				})
				if err != nil {
					return err
				}
				trial.SetSignalDataFile(signalType, stimuli)

				baseline, err := d.WorkingPath(datasets.PathQuery{
					ParticipantID: participant + d.ParticipantOffset(),
					MediaID:       media + d.MediaOffset(),
					SignalType:    signalType,
					Baseline:      true,
				})
				if err != nil {
					return err
				}
				trial.baselineFiles[signalType] = baseline
			}
			d.AddTrial(trial)
		}
		return nil
	})
}

// scoreVectorPath locates a participant's preloaded score vector.
func (d *Dataset) scoreVectorPath(participant int, name string) (string, error) {
	dir, err := d.WorkingPath(datasets.PathQuery{ParticipantID: participant + d.ParticipantOffset()})
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".dat"), nil
}

// toSignalMatrix transposes a samples x channels matrix into the
// (1+channels) x samples layout, synthesizing a milliseconds-from-zero
// timestamp row at the given sample rate.
func toSignalMatrix(clip [][]float64, sampleRate float64) (*mat.Dense, error) {
	if len(clip) == 0 {
		return nil, fmt.Errorf("clip has no samples")
	}
	channels := len(clip[0])
	signal := mat.NewDense(1+channels, len(clip), nil)
	for s, sample := range clip {
		if len(sample) != channels {
			return nil, fmt.Errorf("ragged clip: sample %d has %d channels, want %d", s, len(sample), channels)
		}
		signal.Set(0, s, float64(s)*1000/sampleRate)
		for c, v := range sample {
			signal.Set(c+1, s, v)
		}
	}
	return signal, nil
}

func rowVector(values []float64) *mat.Dense {
	return mat.NewDense(1, len(values), append([]float64(nil), values...))
}
