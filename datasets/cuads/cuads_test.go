package cuads

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/affectsai/aardt/datasets"
)

const sessionColumns = 48

// writeCSV writes rows as a comma-separated file, creating parent
// directories as needed.
func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(f, ",")
			}
			fmt.Fprint(f, cell)
		}
		fmt.Fprintln(f)
	}
}

// sessionRows builds a session CSV with nSamples rows where the value at
// column c of sample s is c*1000+s, so extraction is verifiable.
func sessionRows(nSamples int) [][]string {
	rows := make([][]string, 0, nSamples+1)
	header := make([]string, sessionColumns)
	for c := range header {
		header[c] = fmt.Sprintf("col_%d", c)
	}
	rows = append(rows, header)
	for s := 0; s < nSamples; s++ {
		row := make([]string, sessionColumns)
		for c := range row {
			row[c] = strconv.Itoa(c*1000 + s)
		}
		rows = append(rows, row)
	}
	return rows
}

// participantResponse describes one responses.csv row in a fixture.
type participantResponse struct {
	media    string
	valence  float64
	arousal  float64
	segments int // 0 means no segmented session file
}

// writeParticipant lays down one CUADS_%03d folder.
func writeParticipant(t *testing.T, root string, sourceNum int, responses []participantResponse) {
	t.Helper()
	folder := filepath.Join(root, fmt.Sprintf("CUADS_%03d", sourceNum))
	rows := [][]string{{"movie_name", "valence", "arousal"}}
	for _, r := range responses {
		rows = append(rows, []string{
			r.media,
			strconv.FormatFloat(r.valence, 'f', -1, 64),
			strconv.FormatFloat(r.arousal, 'f', -1, 64),
		})
		if r.segments > 0 {
			writeCSV(t, filepath.Join(folder, "segmented", r.media+"_sessiondata.csv"), sessionRows(r.segments))
		}
	}
	writeCSV(t, filepath.Join(folder, "responses.csv"), rows)
}

// newTestDataset builds a two-participant fixture with a gap at CUADS_002
// and returns a preloaded, trial-loaded dataset over it.
func newTestDataset(t *testing.T, cfg Config) *Dataset {
	t.Helper()
	root := t.TempDir()
	responses := []participantResponse{
		{media: "video_55", valence: 3, arousal: 7, segments: 8},
		{media: "video_79", valence: 7, arousal: 7, segments: 8},
	}
	writeParticipant(t, root, 1, responses)
	writeParticipant(t, root, 3, responses)

	cfg.Path = root
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

func TestNewRejectsMissingPath(t *testing.T) {
	if _, err := New(Config{Path: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Fatal("expected an error for a missing dataset path")
	}
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error for an empty dataset path")
	}
}

func TestLoadTrialsCompactsSparseParticipants(t *testing.T) {
	d := newTestDataset(t, Config{})

	if got := d.ParticipantIDs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("ParticipantIDs = %v, want [1 2]", got)
	}
	if got := d.MediaIDs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("MediaIDs = %v, want [1 2]", got)
	}
	if len(d.Trials()) != 4 {
		t.Fatalf("got %d trials, want 4", len(d.Trials()))
	}
	if name := d.MediaNameByID(1); name != "video_55" {
		t.Fatalf("MediaNameByID(1) = %q, want video_55", name)
	}
	if name := d.MediaNameByID(2); name != "video_79" {
		t.Fatalf("MediaNameByID(2) = %q, want video_79", name)
	}
}

func TestLoadTrialsSkipsMissingSessionData(t *testing.T) {
	root := t.TempDir()
	writeParticipant(t, root, 5, []participantResponse{
		{media: "video_55", valence: 3, arousal: 7, segments: 8},
		{media: "video_79", valence: 7, arousal: 7, segments: 0},
	})

	d, err := New(Config{Path: root, WorkingRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Preload(); err != nil {
		t.Fatalf("Preload failed: %v", err)
	}
	if err := d.LoadTrials(); err != nil {
		t.Fatalf("LoadTrials failed: %v", err)
	}

	if len(d.Trials()) != 1 {
		t.Fatalf("got %d trials, want 1", len(d.Trials()))
	}
	if name := d.Trials()[0].MediaName(); name != "video_55" {
		t.Fatalf("trial media = %q, want video_55", name)
	}
}

func TestSignalExtraction(t *testing.T) {
	d := newTestDataset(t, Config{})

	var trial datasets.Trial
	for _, tr := range d.Trials() {
		if tr.ParticipantID() == 1 && tr.MediaName() == "video_55" {
			trial = tr
		}
	}
	if trial == nil {
		t.Fatal("missing trial for participant 1, video_55")
	}

	ecg, err := trial.LoadSignalData("ECG")
	if err != nil {
		t.Fatalf("LoadSignalData(ECG) failed: %v", err)
	}
	rows, cols := ecg.Dims()
	if rows != 4 || cols != 8 {
		t.Fatalf("ECG dims = %dx%d, want 4x8", rows, cols)
	}
	// Sample s of source column c carries c*1000+s.
	for s := 0; s < cols; s++ {
		wantRows := []float64{
			float64(colECGTimestamp*1000 + s),
			float64(colECGLARA*1000 + s),
			float64(colECGLLLA*1000 + s),
			float64(colECGLLRA*1000 + s),
		}
		for r, want := range wantRows {
			if got := ecg.At(r, s); got != want {
				t.Fatalf("ECG[%d,%d] = %v, want %v", r, s, got, want)
			}
		}
	}

	gsr, err := trial.LoadSignalData("GSR")
	if err != nil {
		t.Fatalf("LoadSignalData(GSR) failed: %v", err)
	}
	rows, cols = gsr.Dims()
	if rows != 3 || cols != 8 {
		t.Fatalf("GSR dims = %dx%d, want 3x8", rows, cols)
	}
	if got := gsr.At(0, 0); got != float64(colGSRTimestamp*1000) {
		t.Fatalf("GSR timestamp[0] = %v, want %v", got, float64(colGSRTimestamp*1000))
	}
	if got := gsr.At(1, 3); got != float64(colGSRSC*1000+3) {
		t.Fatalf("GSR SC[3] = %v, want %v", got, float64(colGSRSC*1000+3))
	}

	ppg, err := trial.LoadSignalData("PPG")
	if err != nil {
		t.Fatalf("LoadSignalData(PPG) failed: %v", err)
	}
	if rows, _ := ppg.Dims(); rows != 2 {
		t.Fatalf("PPG has %d rows, want 2", rows)
	}
}

func TestSignalDurationRecorded(t *testing.T) {
	d := newTestDataset(t, Config{})

	if _, err := d.Trials()[0].LoadSignalData("ECG"); err != nil {
		t.Fatalf("LoadSignalData failed: %v", err)
	}
	meta, err := d.SignalMetadata("ECG")
	if err != nil {
		t.Fatalf("SignalMetadata failed: %v", err)
	}
	want := 8.0 / SampleRate
	if math.Abs(meta.DurationSeconds-want) > 1e-9 {
		t.Fatalf("ECG duration = %v, want %v", meta.DurationSeconds, want)
	}
	if meta.SampleRate != SampleRate || meta.NChannels != 3 {
		t.Fatalf("ECG metadata = %+v", meta)
	}
}

func TestGroundTruthQuadrants(t *testing.T) {
	cases := []struct {
		arousal, valence float64
		want             int
	}{
		{7, 7, 1},
		{7, 3, 2},
		{3, 3, 3},
		{3, 7, 4},
		{5, 5, 1}, // boundary goes to the high side
	}
	for _, c := range cases {
		if got := toQuadrant(c.arousal, c.valence); got != c.want {
			t.Fatalf("toQuadrant(%v, %v) = %d, want %d", c.arousal, c.valence, got, c.want)
		}
	}

	d := newTestDataset(t, Config{})
	for _, tr := range d.Trials() {
		truth, err := tr.LoadGroundTruth()
		if err != nil {
			t.Fatalf("LoadGroundTruth failed: %v", err)
		}
		want := 2 // video_55: arousal 7, valence 3
		if tr.MediaName() == "video_79" {
			want = 1
		}
		if truth != want {
			t.Fatalf("ground truth for %s = %d, want %d", tr.MediaName(), truth, want)
		}
	}
}

func TestExpectedResponsesByMediaName(t *testing.T) {
	d := newTestDataset(t, Config{})

	for _, tr := range d.Trials() {
		got, err := tr.ExpectedResponse()
		if err != nil {
			t.Fatalf("ExpectedResponse failed for %s: %v", tr.MediaName(), err)
		}
		want := expectedClassifications[tr.MediaName()]
		if got != want {
			t.Fatalf("expected response for %s = %d, want %d", tr.MediaName(), got, want)
		}
	}
}

func TestOffsetsApplyToTrialIDs(t *testing.T) {
	d := newTestDataset(t, Config{ParticipantOffset: 100, MediaOffset: 200})

	seen := make(map[int]bool)
	for _, tr := range d.Trials() {
		if tr.ParticipantID() <= 100 || tr.ParticipantID() > 102 {
			t.Fatalf("participant id %d outside offset range", tr.ParticipantID())
		}
		if tr.MediaID() <= 200 || tr.MediaID() > 202 {
			t.Fatalf("media id %d outside offset range", tr.MediaID())
		}
		seen[tr.ParticipantID()] = true

		// The preloaded files must still resolve under the offsets.
		if _, err := tr.LoadSignalData("ECG"); err != nil {
			t.Fatalf("LoadSignalData under offsets failed: %v", err)
		}
	}
	if !seen[101] || !seen[102] {
		t.Fatalf("participant ids = %v, want 101 and 102", seen)
	}
}

func TestUnknownSignalType(t *testing.T) {
	d := newTestDataset(t, Config{})

	if _, err := d.Trials()[0].LoadSignalData("EEG"); !errors.Is(err, datasets.ErrUnknownSignal) {
		t.Fatalf("got %v, want ErrUnknownSignal", err)
	}
}
