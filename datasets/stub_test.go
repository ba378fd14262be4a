package datasets

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// stubDataset is a minimal in-memory dataset used to exercise the shared
// Base behavior: one trial per participant/media pair, 1-based raw ids.
type stubDataset struct {
	*Base
	participants int
	media        int
	labels       map[[2]int]int

	// preloadCalls counts PreloadDataset invocations for idempotence tests.
	preloadCalls int
}

func newStubDataset(t *testing.T, cfg BaseConfig, participants, media int) *stubDataset {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "StubDataset"
	}
	if cfg.WorkingRoot == "" {
		cfg.WorkingRoot = t.TempDir()
	}
	if cfg.Signals == nil {
		cfg.Signals = []string{"ECG"}
	}
	d := &stubDataset{
		Base:         NewBase(cfg),
		participants: participants,
		media:        media,
		labels:       make(map[[2]int]int),
	}
	d.BindPreloader(d)
	return d
}

func (d *stubDataset) PreloadDataset() error {
	d.preloadCalls++
	return nil
}

func (d *stubDataset) LoadTrials() error {
	for p := 1; p <= d.participants; p++ {
		for m := 1; m <= d.media; m++ {
			trial := newStubTrial(d, p, m, d.labels[[2]int{p, m}])
			d.AddTrial(trial)
		}
	}
	return nil
}

// stubTrial serves a synthetic two-channel signal whose sample values encode
// the trial identity, so tests can verify preprocessing end to end.
type stubTrial struct {
	*TrialBase
	label int
}

func newStubTrial(d *stubDataset, rawParticipantID, rawMediaID, label int) *stubTrial {
	t := &stubTrial{label: label}
	t.TrialBase = NewTrialBase(d, rawParticipantID, rawMediaID, t)
	for _, s := range d.Signals() {
		t.AddSignalType(s)
	}
	return t
}

func (t *stubTrial) LoadRawSignalData(signalType string) (*mat.Dense, error) {
	// Row 0: elapsed-millisecond timestamps; row 1: constant channel equal
	// to the raw participant id; row 2: constant channel equal to the raw
	// media id.
	const samples = 8
	signal := mat.NewDense(3, samples, nil)
	for c := 0; c < samples; c++ {
		signal.Set(0, c, float64(c)*1000.0/256.0)
		signal.Set(1, c, float64(t.RawParticipantID()))
		signal.Set(2, c, float64(t.RawMediaID()))
	}
	return signal, nil
}

func (t *stubTrial) LoadGroundTruth() (int, error) {
	return t.label, nil
}

var (
	_ Dataset = (*stubDataset)(nil)
	_ Trial   = (*stubTrial)(nil)
)

func seededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
