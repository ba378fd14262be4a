package dreamer

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/affectsai/aardt/datasets"
)

const (
	testParticipants = 2
	testClips        = 3
	testECGChannels  = 2
	testEEGChannels  = 3
	testSamples      = 6
)

// clipValue is the fixture's deterministic sample value, so tests can check
// layout after the transpose.
func clipValue(participant, clip, channel, sample int, baseline bool) float64 {
	v := float64(participant*10000 + clip*1000 + channel*100 + sample)
	if baseline {
		return -v
	}
	return v
}

func fixtureClips(participant, channels int, baseline bool) [][][]float64 {
	clips := make([][][]float64, testClips)
	for m := range clips {
		clip := make([][]float64, testSamples)
		for s := range clip {
			sample := make([]float64, channels)
			for c := range sample {
				sample[c] = clipValue(participant, m+1, c+1, s, baseline)
			}
			clip[s] = sample
		}
		clips[m] = clip
	}
	return clips
}

// fixtureScores gives participant 1 scores cycling 4,2,4 for arousal and
// 4,4,2 for valence, participant 2 the inverse.
func fixtureScores(participant int) (arousal, valence []float64) {
	if participant == 1 {
		return []float64{4, 2, 4}, []float64{4, 4, 2}
	}
	return []float64{2, 4, 2}, []float64{2, 2, 4}
}

// writeExport writes a two-participant DREAMER JSON export and returns its
// path.
func writeExport(t *testing.T) string {
	t.Helper()
	export := make([]map[string]any, 0, testParticipants)
	for p := 1; p <= testParticipants; p++ {
		arousal, valence := fixtureScores(p)
		export = append(export, map[string]any{
			"ECG": map[string]any{
				"stimuli":  fixtureClips(p, testECGChannels, false),
				"baseline": fixtureClips(p, testECGChannels, true),
			},
			"EEG": map[string]any{
				"stimuli":  fixtureClips(p, testEEGChannels, false),
				"baseline": fixtureClips(p, testEEGChannels, true),
			},
			"ScoreArousal": arousal,
			"ScoreValence": valence,
		})
	}

	data, err := json.Marshal(export)
	if err != nil {
		t.Fatalf("failed to marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dreamer.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func newTestDataset(t *testing.T, cfg Config) *Dataset {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = writeExport(t)
	}
	if cfg.WorkingRoot == "" {
		cfg.WorkingRoot = t.TempDir()
	}
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Preload(); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if err := d.LoadTrials(); err != nil {
		t.Fatalf("LoadTrials failed: %v", err)
	}
	return d
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Path: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Fatal("expected an error for a missing export")
	}
	if _, err := New(Config{Path: writeExport(t), Signals: []string{"GSR"}}); !errors.Is(err, datasets.ErrUnknownSignal) {
		t.Fatal("expected ErrUnknownSignal for a signal DREAMER does not record")
	}
}

func TestLoadTrialsBuildsFullGrid(t *testing.T) {
	d := newTestDataset(t, Config{})

	if got := len(d.Trials()); got != testParticipants*testClips {
		t.Fatalf("got %d trials, want %d", got, testParticipants*testClips)
	}
	if got := d.ParticipantIDs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("ParticipantIDs = %v, want [1 2]", got)
	}
	if got := d.MediaIDs(); len(got) != 3 || got[2] != 3 {
		t.Fatalf("MediaIDs = %v, want [1 2 3]", got)
	}
}

func TestStimuliLayoutAndTimestamps(t *testing.T) {
	d := newTestDataset(t, Config{})

	var trial datasets.Trial
	for _, tr := range d.Trials() {
		if tr.ParticipantID() == 2 && tr.MediaID() == 3 {
			trial = tr
		}
	}
	if trial == nil {
		t.Fatal("missing trial for participant 2, media 3")
	}

	ecg, err := trial.LoadSignalData("ECG")
	if err != nil {
		t.Fatalf("LoadSignalData(ECG) failed: %v", err)
	}
	rows, cols := ecg.Dims()
	if rows != 1+testECGChannels || cols != testSamples {
		t.Fatalf("ECG dims = %dx%d, want %dx%d", rows, cols, 1+testECGChannels, testSamples)
	}
	for s := 0; s < cols; s++ {
		wantTS := float64(s) * 1000 / ECGSampleRate
		if got := ecg.At(0, s); math.Abs(got-wantTS) > 1e-9 {
			t.Fatalf("timestamp[%d] = %v, want %v", s, got, wantTS)
		}
		for c := 1; c < rows; c++ {
			want := clipValue(2, 3, c, s, false)
			if got := ecg.At(c, s); got != want {
				t.Fatalf("ECG[%d,%d] = %v, want %v", c, s, got, want)
			}
		}
	}
}

func TestBaselineSignalData(t *testing.T) {
	d := newTestDataset(t, Config{})

	trial := d.Trials()[0].(*Trial)
	baseline, err := trial.LoadBaselineSignalData("ECG")
	if err != nil {
		t.Fatalf("LoadBaselineSignalData failed: %v", err)
	}
	if got := baseline.At(1, 0); got != clipValue(1, 1, 1, 0, true) {
		t.Fatalf("baseline[1,0] = %v, want %v", got, clipValue(1, 1, 1, 0, true))
	}

	if _, err := trial.LoadBaselineSignalData("GSR"); !errors.Is(err, datasets.ErrUnknownSignal) {
		t.Fatalf("got %v, want ErrUnknownSignal", err)
	}
}

func TestGroundTruthFromScoreVectors(t *testing.T) {
	d := newTestDataset(t, Config{})

	// Participant 1: (arousal, valence) per clip = (4,4) (2,4) (4,2);
	// participant 2 is the inverse. Quadrant threshold is 3.
	want := map[[2]int]int{
		{1, 1}: 1, {1, 2}: 4, {1, 3}: 2,
		{2, 1}: 3, {2, 2}: 2, {2, 3}: 4,
	}
	for _, tr := range d.Trials() {
		truth, err := tr.LoadGroundTruth()
		if err != nil {
			t.Fatalf("LoadGroundTruth failed: %v", err)
		}
		key := [2]int{tr.ParticipantID(), tr.MediaID()}
		if truth != want[key] {
			t.Fatalf("ground truth for %v = %d, want %d", key, truth, want[key])
		}
	}
}

func TestExpectedResponsesByClipNumber(t *testing.T) {
	d := newTestDataset(t, Config{})

	for _, tr := range d.Trials() {
		got, err := tr.ExpectedResponse()
		if err != nil {
			t.Fatalf("ExpectedResponse failed for media %q: %v", tr.MediaName(), err)
		}
		if want := expectedClassifications[tr.MediaName()]; got != want {
			t.Fatalf("expected response for %q = %d, want %d", tr.MediaName(), got, want)
		}
	}
}

func TestSignalSubsetSelection(t *testing.T) {
	d := newTestDataset(t, Config{Signals: []string{"ECG"}})

	if got := d.Signals(); len(got) != 1 || got[0] != "ECG" {
		t.Fatalf("Signals = %v, want [ECG]", got)
	}
	trial := d.Trials()[0]
	if _, err := trial.LoadSignalData("ECG"); err != nil {
		t.Fatalf("LoadSignalData(ECG) failed: %v", err)
	}
	if _, err := trial.LoadSignalData("EEG"); !errors.Is(err, datasets.ErrUnknownSignal) {
		t.Fatalf("got %v, want ErrUnknownSignal for an unselected signal", err)
	}
}

func TestSignalDurationRecorded(t *testing.T) {
	d := newTestDataset(t, Config{})

	if _, err := d.Trials()[0].LoadSignalData("EEG"); err != nil {
		t.Fatalf("LoadSignalData failed: %v", err)
	}
	meta, err := d.SignalMetadata("EEG")
	if err != nil {
		t.Fatalf("SignalMetadata failed: %v", err)
	}
	want := float64(testSamples) / EEGSampleRate
	if math.Abs(meta.DurationSeconds-want) > 1e-9 {
		t.Fatalf("EEG duration = %v, want %v", meta.DurationSeconds, want)
	}
}
