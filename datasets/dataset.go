// Package datasets provides a uniform abstraction over heterogeneous
// physiological-signal emotion-recognition datasets. Every source is
// normalized to a collection of trials (one participant's response to one
// stimulus), behind a single Dataset contract that also covers preloading,
// identifier-namespace management, multi-dataset composition, and
// participant-stratified splitting.
//
// The usual lifecycle is: construct a concrete dataset (see the cuads and
// dreamer subpackages), call Preload once to materialize any derived files,
// call LoadTrials to populate the trial collection, then iterate trials and
// lazily load signal data through the dataset's registered preprocessor
// chains.
package datasets

import (
	"github.com/affectsai/aardt/preprocessors"
)

// SignalMetadata describes one signal type carried by a dataset.
type SignalMetadata struct {
	// SampleRate in samples per second.
	SampleRate int

	// NChannels is the number of channels in the signal, excluding the
	// timestamp row.
	NChannels int

	// DurationSeconds is the realized signal duration. It is advisory:
	// trials record it as signals load, and it is zero until then.
	DurationSeconds float64
}

// Dataset is the contract every dataset-shaped value satisfies: concrete
// format adapters, the composite MultiDataset, and the read-only views
// produced by DatasetSplits.
//
// Identifier invariants: after LoadTrials, participant and media ids are
// dense and sequential starting at 1 plus the respective offset, and every
// trial's ids are its raw source ids plus the dataset's current offsets,
// computed at access time.
type Dataset interface {
	// Name identifies the dataset kind and names its working subdirectory.
	Name() string

	// Preload performs the dataset's one-time, format-specific optimization
	// step. It is idempotent for a fixed signal set: a marker in the working
	// directory records which signal types are already preloaded, and the
	// underlying work is skipped when the requested signals are a subset of
	// it.
	Preload() error

	// LoadTrials populates the trial collection. It must be called exactly
	// once per meaningful use; re-invocation semantics are dataset-specific.
	LoadTrials() error

	// Signals lists the signal types this instance loads, a subset of what
	// the underlying source offers.
	Signals() []string

	// Trials returns all loaded trials. Order is insertion order and carries
	// no semantic meaning.
	Trials() []Trial

	// ParticipantIDs returns the sorted, offset-adjusted participant ids
	// derived from the loaded trials.
	ParticipantIDs() []int

	// MediaIDs returns the sorted, offset-adjusted media ids derived from
	// the loaded trials.
	MediaIDs() []int

	ParticipantOffset() int
	MediaOffset() int

	// SetParticipantOffset and SetMediaOffset reassign the identifier
	// offsets. When a dataset joins a MultiDataset, the composite owns the
	// offsets and assigns them at composition time, before the member's
	// LoadTrials runs.
	SetParticipantOffset(offset int)
	SetMediaOffset(offset int)

	// SignalPreprocessors is the registry of preprocessor chains applied
	// when trials load signal data, keyed by signal type. Register a chain
	// by assigning into the returned map.
	SignalPreprocessors() map[string]*preprocessors.Chain

	// SignalMetadata returns the descriptor for the signal type, failing
	// with ErrNoMetadata if none is registered. Metadata is never inferred.
	SignalMetadata(signalType string) (SignalMetadata, error)

	// ExpectedMediaResponses maps media names to their ground-truth label,
	// dataset-specific domain knowledge. May be empty.
	ExpectedMediaResponses() map[string]int

	// MediaNameByID returns the media name for a raw (un-offset) media id,
	// or the empty string when the dataset uses bare numeric ids.
	MediaNameByID(rawMediaID int) string

	// TrialSplits partitions trials into participant-stratified groups whose
	// sizes approximate the given proportions. See Base.TrialSplits.
	TrialSplits(proportions []float64) ([][]Trial, error)

	// DatasetSplits is TrialSplits with each group wrapped as a read-only
	// dataset-shaped view that satisfies this contract recursively.
	DatasetSplits(proportions []float64) ([]Dataset, error)
}

// Preloader is the hook invoked by Base.Preload when the marker check
// determines work is genuinely needed. Implementations may write arbitrary
// intermediate artifacts into the dataset's working directory and must be
// re-runnable.
type Preloader interface {
	PreloadDataset() error
}
