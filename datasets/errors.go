package datasets

import "errors"

// Sentinel errors returned by the datasets package. Callers should test for
// them with errors.Is; all of them may be wrapped with additional context.
var (
	// ErrUnknownSignal reports a signal type that is not carried by the
	// trial or dataset it was requested from.
	ErrUnknownSignal = errors.New("datasets: unknown signal type")

	// ErrInvalidSplit reports split proportions that do not sum to 1.0
	// within tolerance.
	ErrInvalidSplit = errors.New("datasets: split proportions must sum to 1.0")

	// ErrNoMetadata reports a metadata lookup for a signal type that has no
	// registered descriptor. Metadata is never inferred.
	ErrNoMetadata = errors.New("datasets: no signal metadata registered")

	// ErrNoExpectedResponse reports a trial whose media name is absent from
	// the dataset's expected-response table.
	ErrNoExpectedResponse = errors.New("datasets: no expected response for media")

	// ErrNoGroundTruth reports a trial that carries no ground-truth label.
	ErrNoGroundTruth = errors.New("datasets: trial has no ground truth")

	// ErrInvalidWorkingPath reports a working-path query with an invalid
	// argument combination.
	ErrInvalidWorkingPath = errors.New("datasets: invalid working path query")
)
