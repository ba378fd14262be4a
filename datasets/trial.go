package datasets

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Trial is a single participant/stimulus observation. Trials are created by
// their dataset's LoadTrials and hold a non-owning back-reference to it;
// identity ids are computed at access time from the raw source ids plus the
// dataset's current offsets, so a composite may reassign offsets after
// construction.
type Trial interface {
	// Dataset is the owning dataset.
	Dataset() Dataset

	// ParticipantID and MediaID are the raw ids plus the owning dataset's
	// current offsets.
	ParticipantID() int
	MediaID() int

	// MediaName is the source's name for the stimulus, or the raw media id
	// rendered as a string when the source uses bare numeric ids.
	MediaName() string

	// SignalTypes lists the signal types this trial can serve.
	SignalTypes() []string

	// SignalDataFiles maps signal types to the opaque locators the concrete
	// trial uses to materialize raw data on demand.
	SignalDataFiles() map[string]string

	// LoadSignalData loads the raw signal and runs the dataset's registered
	// preprocessor chain for the signal type, if any. Nothing is memoized:
	// every call may re-read from storage. Unknown signal types fail with
	// ErrUnknownSignal.
	LoadSignalData(signalType string) (*mat.Dense, error)

	// LoadRawSignalData materializes the raw (1+N)xM signal array: row 0 is
	// the per-sample timestamp (epoch seconds, or elapsed milliseconds from
	// zero), rows 1..N are channel samples.
	LoadRawSignalData(signalType string) (*mat.Dense, error)

	// LoadGroundTruth returns the trial's label, or ErrNoGroundTruth when
	// the source provides none.
	LoadGroundTruth() (int, error)

	// ExpectedResponse is the dataset's expected label for this trial's
	// media, failing with ErrNoExpectedResponse when the media is unmapped.
	ExpectedResponse() (int, error)
}

// RawSignalLoader materializes raw signal arrays for one trial. Concrete
// trial types implement it and pass themselves to NewTrialBase.
type RawSignalLoader interface {
	LoadRawSignalData(signalType string) (*mat.Dense, error)
}

// TrialBase carries the trial behavior every format shares. Concrete trials
// embed *TrialBase and add LoadRawSignalData and LoadGroundTruth.
type TrialBase struct {
	ds               Dataset
	rawParticipantID int
	rawMediaID       int
	signalTypes      []string
	signalFiles      map[string]string
	raw              RawSignalLoader
}

// NewTrialBase builds the shared trial state. raw is the concrete trial
// itself, bound here so LoadSignalData can reach the format-specific loader.
func NewTrialBase(ds Dataset, rawParticipantID, rawMediaID int, raw RawSignalLoader) *TrialBase {
	return &TrialBase{
		ds:               ds,
		rawParticipantID: rawParticipantID,
		rawMediaID:       rawMediaID,
		signalFiles:      make(map[string]string),
		raw:              raw,
	}
}

// Dataset returns the owning dataset.
func (t *TrialBase) Dataset() Dataset { return t.ds }

// ParticipantID is the raw participant id plus the dataset's current offset.
func (t *TrialBase) ParticipantID() int { return t.rawParticipantID + t.ds.ParticipantOffset() }

// MediaID is the raw media id plus the dataset's current offset.
func (t *TrialBase) MediaID() int { return t.rawMediaID + t.ds.MediaOffset() }

// RawParticipantID is the participant id local to the underlying source.
func (t *TrialBase) RawParticipantID() int { return t.rawParticipantID }

// RawMediaID is the media id local to the underlying source.
func (t *TrialBase) RawMediaID() int { return t.rawMediaID }

// MediaName resolves the media name through the owning dataset, falling back
// to the raw media id when the source has no names.
func (t *TrialBase) MediaName() string {
	if name := t.ds.MediaNameByID(t.rawMediaID); name != "" {
		return name
	}
	return strconv.Itoa(t.rawMediaID)
}

// SignalTypes lists the signal types this trial can serve.
func (t *TrialBase) SignalTypes() []string { return t.signalTypes }

// AddSignalType registers a signal type this trial can serve.
func (t *TrialBase) AddSignalType(signalType string) {
	if !t.hasSignal(signalType) {
		t.signalTypes = append(t.signalTypes, signalType)
	}
}

// SignalDataFiles maps signal types to raw-data locators.
func (t *TrialBase) SignalDataFiles() map[string]string { return t.signalFiles }

// SetSignalDataFile records the raw-data locator for a signal type, also
// registering the signal type itself.
func (t *TrialBase) SetSignalDataFile(signalType, path string) {
	t.AddSignalType(signalType)
	t.signalFiles[signalType] = path
}

func (t *TrialBase) hasSignal(signalType string) bool {
	for _, s := range t.signalTypes {
		if s == signalType {
			return true
		}
	}
	return false
}

// LoadSignalData loads the raw signal and applies the dataset's registered
// preprocessor chain for the signal type, if one exists.
func (t *TrialBase) LoadSignalData(signalType string) (*mat.Dense, error) {
	if !t.hasSignal(signalType) {
		return nil, fmt.Errorf("%w: signal type %q is not known in this trial", ErrUnknownSignal, signalType)
	}

	signal, err := t.raw.LoadRawSignalData(signalType)
	if err != nil {
		return nil, err
	}

	if chain, ok := t.ds.SignalPreprocessors()[signalType]; ok && chain != nil {
		return chain.Invoke(signal, nil)
	}
	return signal, nil
}

// ExpectedResponse looks up the expected label for this trial's media.
func (t *TrialBase) ExpectedResponse() (int, error) {
	name := t.MediaName()
	label, ok := t.ds.ExpectedMediaResponses()[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoExpectedResponse, name)
	}
	return label, nil
}
