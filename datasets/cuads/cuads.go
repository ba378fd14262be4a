// Package cuads adapts the CUADS dataset (continuously-annotated ECG, GSR
// and PPG recordings) to the datasets contract.
//
// The source layout is one folder per participant (CUADS_001 through
// CUADS_044, with gaps for dropped participants), each holding a
// responses.csv of self-reported valence/arousal per stimulus plus a
// segmented/ folder of per-stimulus session CSVs. Preloading extracts each
// signal's column group from the session CSVs into working-directory
// matrices so trial loading never re-parses the wide CSVs.
package cuads

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/affectsai/aardt/datasets"
)

const (
	// SampleRate applies to every CUADS signal, in Hz.
	SampleRate = 256

	// NumMediaFiles and NumParticipants describe the full corpus. Source
	// participant folders are numbered 1 through MaxParticipantNum with
	// gaps; ids are compacted to a dense range while loading.
	NumMediaFiles     = 20
	NumParticipants   = 38
	MaxParticipantNum = 44
)

// Signals lists every signal type the CUADS adapter serves.
var Signals = []string{"ECG", "ECGHR", "GSR", "PPG", "PPGHR"}

// expectedClassifications maps each CUADS stimulus to its expected
// affect-space quadrant, per the dataset's published stimulus selection.
var expectedClassifications = map[string]int{
	"video_55":        2,
	"video_79":        1,
	"video_111":       3,
	"video_73":        2,
	"video_52":        4,
	"video_146":       3,
	"video_funny_f":   1,
	"video_80":        1,
	"video_cats_f":    1,
	"video_138":       3,
	"video_69":        2,
	"video_dallas_f":  0,
	"video_detroit_f": 0,
	"video_53":        4,
	"video_58":        4,
	"video_30":        2,
	"video_earworm_f": 2,
	"video_newyork_f": 0,
	"video_90":        1,
	"video_107":       2,
}

var defaultSignalMetadata = map[string]datasets.SignalMetadata{
	"ECG": {SampleRate: SampleRate, NChannels: 3},
	"GSR": {SampleRate: SampleRate, NChannels: 2},
	"PPG": {SampleRate: SampleRate, NChannels: 1},
}

// Column indices within the segmented session CSVs.
const (
	colECGTimestamp = 0
	colGSRTimestamp = 1
	colECGLARA      = 15
	colECGLLLA      = 16
	colECGLLRA      = 17
	colECGHRLARA    = 19
	colECGHRLLLA    = 20
	colECGHRLLRA    = 21
	colGSRSC        = 37
	colGSRSR        = 38
	colPPG          = 45
	colPPGHR        = 47
)

// signalColumns maps each signal type to the session-CSV columns that form
// its rows, timestamp first.
var signalColumns = map[string][]int{
	"ECG":   {colECGTimestamp, colECGLARA, colECGLLLA, colECGLLRA},
	"ECGHR": {colECGTimestamp, colECGHRLARA, colECGHRLLLA, colECGHRLLRA},
	"GSR":   {colGSRTimestamp, colGSRSC, colGSRSR},
	"PPG":   {colGSRTimestamp, colPPG},
	"PPGHR": {colGSRTimestamp, colPPGHR},
}

// Config carries the construction parameters for a CUADS dataset.
type Config struct {
	// Path is the root of the extracted CUADS dataset.
	Path string

	// WorkingRoot overrides the default working-directory root.
	WorkingRoot string

	ParticipantOffset int
	MediaOffset       int

	// Rand seeds the split random source; nil uses a time-based seed.
	Rand *rand.Rand

	Logger *slog.Logger
}

// Dataset is the CUADS adapter. Construct it with New, then Preload and
// LoadTrials.
type Dataset struct {
	*datasets.Base

	path string

	// mediaIndex assigns dense media ids to stimulus names in first-seen
	// order; participantIndex compacts sparse source participant numbers.
	mediaIndex       map[string]int
	participantIndex map[int]int
}

var _ datasets.Dataset = (*Dataset)(nil)

// New constructs a CUADS dataset rooted at cfg.Path.
func New(cfg Config) (*Dataset, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cuads: dataset path is required")
	}
	if info, err := os.Stat(cfg.Path); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("cuads: invalid path to CUADS dataset: %s", cfg.Path)
	}

	d := &Dataset{
		path:             cfg.Path,
		mediaIndex:       make(map[string]int),
		participantIndex: make(map[int]int),
	}
	d.Base = datasets.NewBase(datasets.BaseConfig{
		Name:              "CuadsDataset",
		WorkingRoot:       cfg.WorkingRoot,
		Signals:           append([]string(nil), Signals...),
		ParticipantOffset: cfg.ParticipantOffset,
		MediaOffset:       cfg.MediaOffset,
		SignalMetadata:    defaultSignalMetadata,
		ExpectedResponses: expectedClassifications,
		Rand:              cfg.Rand,
		Logger:            cfg.Logger,
	})
	d.BindPreloader(d)

	d.Logger().Debug("loading CUADS", "path", cfg.Path, "signals", Signals)
	return d, nil
}

// participantNumber compacts a sparse source participant number into the
// dense 1-based range.
func (d *Dataset) participantNumber(sourceNum int) int {
	if _, ok := d.participantIndex[sourceNum]; !ok {
		d.participantIndex[sourceNum] = len(d.participantIndex) + 1
	}
	return d.participantIndex[sourceNum]
}

func (d *Dataset) participantFolder(sourceNum int) string {
	return filepath.Join(d.path, fmt.Sprintf("CUADS_%03d", sourceNum))
}

// response is one row of a participant's responses.csv.
type response struct {
	mediaName string
	valence   float64
	arousal   float64
}

func (d *Dataset) readResponses(folder string) ([]response, error) {
	f, err := os.Open(filepath.Join(folder, "responses.csv"))
	if err != nil {
		return nil, fmt.Errorf("cuads: failed to open responses: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cuads: failed to read responses: %w", err)
	}

	var out []response
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("cuads: malformed response row %d in %s", i, folder)
		}
		valence, err := parseFloat(record[1])
		if err != nil {
			return nil, fmt.Errorf("cuads: failed to parse valence: %w", err)
		}
		arousal, err := parseFloat(record[2])
		if err != nil {
			return nil, fmt.Errorf("cuads: failed to parse arousal: %w", err)
		}
		out = append(out, response{mediaName: record[0], valence: valence, arousal: arousal})
	}
	return out, nil
}

func (d *Dataset) sessionDataPath(folder, mediaName string) string {
	return filepath.Join(folder, "segmented", mediaName+"_sessiondata.csv")
}

// PreloadDataset extracts each signal's column group from every session CSV
// into working-directory matrices, keyed by media name.
func (d *Dataset) PreloadDataset() error {
	for sourceNum := 1; sourceNum <= MaxParticipantNum; sourceNum++ {
		folder := d.participantFolder(sourceNum)
		if _, err := os.Stat(filepath.Join(folder, "responses.csv")); err != nil {
			continue
		}
		participant := d.participantNumber(sourceNum)

		responses, err := d.readResponses(folder)
		if err != nil {
			return err
		}
		for _, resp := range responses {
			segments, err := readSessionData(d.sessionDataPath(folder, resp.mediaName))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return err
			}

			for _, signalType := range d.Signals() {
				signal, err := extractSignal(segments, signalColumns[signalType])
				if err != nil {
					return fmt.Errorf("cuads: participant %d media %s: %w", sourceNum, resp.mediaName, err)
				}
				path, err := d.WorkingPath(datasets.PathQuery{
					ParticipantID: participant + d.ParticipantOffset(),
					MediaName:     resp.mediaName,
					SignalType:    signalType,
				})
				if err != nil {
					return err
				}
				if err := datasets.SaveSignal(path, signal); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// LoadTrials walks the participant folders, compacting participant numbers
// and assigning dense media ids in first-seen order, and creates one trial
// per response with a session recording.
func (d *Dataset) LoadTrials() error {
	for sourceNum := 1; sourceNum <= MaxParticipantNum; sourceNum++ {
		folder := d.participantFolder(sourceNum)
		if _, err := os.Stat(filepath.Join(folder, "responses.csv")); err != nil {
			continue
		}
		participant := d.participantNumber(sourceNum)

		responses, err := d.readResponses(folder)
		if err != nil {
			return err
		}
		for _, resp := range responses {
			if _, err := os.Stat(d.sessionDataPath(folder, resp.mediaName)); err != nil {
				continue
			}

			if _, ok := d.mediaIndex[resp.mediaName]; !ok {
				d.mediaIndex[resp.mediaName] = len(d.mediaIndex) + 1
			}
			mediaID := d.mediaIndex[resp.mediaName]
			d.SetMediaName(mediaID, resp.mediaName)

			trial := newTrial(d, participant, mediaID, toQuadrant(resp.arousal, resp.valence))
			for _, signalType := range d.Signals() {
				path, err := d.WorkingPath(datasets.PathQuery{
					ParticipantID: participant + d.ParticipantOffset(),
					MediaName:     resp.mediaName,
					SignalType:    signalType,
				})
				if err != nil {
					return err
				}
				trial.SetSignalDataFile(signalType, path)
			}
			d.AddTrial(trial)
		}
	}
	return nil
}

// toQuadrant maps a 1-9 arousal/valence self-report to its affect-space
// quadrant.
func toQuadrant(arousal, valence float64) int {
	if arousal >= 5 {
		if valence >= 5 {
			return 1
		}
		return 2
	}
	if valence < 5 {
		return 3
	}
	return 4
}

// readSessionData reads a segmented session CSV into rows of float values,
// skipping the header.
func readSessionData(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cuads: failed to read session data %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("cuads: session data %s has no samples", path)
	}

	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]float64, len(record))
		for i, cell := range record {
			v, err := parseFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("cuads: failed to parse session data %s: %w", path, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// extractSignal builds an len(cols)xM matrix from the selected session-CSV
// columns, one signal row per column, timestamp row first.
func extractSignal(rows [][]float64, cols []int) (*mat.Dense, error) {
	signal := mat.NewDense(len(cols), len(rows), nil)
	for s, row := range rows {
		for r, col := range cols {
			if col >= len(row) {
				return nil, fmt.Errorf("session data row has %d columns, need %d", len(row), col+1)
			}
			signal.Set(r, s, row[col])
		}
	}
	return signal, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}
