package datasets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/affectsai/aardt/preprocessors"
)

// preloadMarker is the working-directory artifact that records which signal
// types have already been preloaded for a dataset.
const preloadMarker = ".preload.json"

// BaseConfig carries the construction parameters shared by every dataset.
type BaseConfig struct {
	// Name identifies the concrete dataset kind and names its working
	// subdirectory. Defaults to "Dataset".
	Name string

	// WorkingRoot is the root directory under which this dataset's private
	// working directory lives. Defaults to <os.TempDir()>/aardt.
	WorkingRoot string

	// Signals lists the signal types this instance loads.
	Signals []string

	// ParticipantOffset and MediaOffset are added to all raw identifiers
	// emitted by the dataset.
	ParticipantOffset int
	MediaOffset       int

	// SignalMetadata seeds the metadata registry. May be nil.
	SignalMetadata map[string]SignalMetadata

	// ExpectedResponses maps media names to ground-truth labels. May be nil.
	ExpectedResponses map[string]int

	// Rand is the random source used by TrialSplits. If nil a time-seeded
	// source is created; inject a seeded source for reproducible splits.
	Rand *rand.Rand

	// Logger receives debug logging. Defaults to slog.Default.
	Logger *slog.Logger
}

// Base implements the dataset behavior shared by every concrete adapter:
// marker-checked preloading, working-path construction, identifier and
// metadata bookkeeping, and the participant-stratified split algorithm.
// Concrete datasets embed *Base and add LoadTrials plus a Preloader hook.
type Base struct {
	name        string
	workingRoot string

	signals           []string
	participantOffset int
	mediaOffset       int

	trials     []Trial
	prep       map[string]*preprocessors.Chain
	metadata   map[string]SignalMetadata
	expected   map[string]int
	mediaNames map[int]string
	rng        *rand.Rand
	log        *slog.Logger
	preloader  Preloader
}

// NewBase constructs the shared dataset state. Concrete datasets call
// BindPreloader afterwards to register their format-specific preload hook.
func NewBase(cfg BaseConfig) *Base {
	if cfg.Name == "" {
		cfg.Name = "Dataset"
	}
	if cfg.WorkingRoot == "" {
		cfg.WorkingRoot = filepath.Join(os.TempDir(), "aardt")
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	md := make(map[string]SignalMetadata, len(cfg.SignalMetadata))
	for k, v := range cfg.SignalMetadata {
		md[k] = v
	}
	exp := make(map[string]int, len(cfg.ExpectedResponses))
	for k, v := range cfg.ExpectedResponses {
		exp[k] = v
	}

	return &Base{
		name:              cfg.Name,
		workingRoot:       cfg.WorkingRoot,
		signals:           append([]string(nil), cfg.Signals...),
		participantOffset: cfg.ParticipantOffset,
		mediaOffset:       cfg.MediaOffset,
		prep:              make(map[string]*preprocessors.Chain),
		metadata:          md,
		expected:          exp,
		mediaNames:        make(map[int]string),
		rng:               cfg.Rand,
		log:               cfg.Logger.With("dataset", cfg.Name),
	}
}

// BindPreloader registers the hook Preload invokes when the marker check
// shows work is needed. A dataset without a hook treats preloading as a pure
// marker update.
func (b *Base) BindPreloader(p Preloader) { b.preloader = p }

// Name returns the dataset's kind name, which also names its working
// subdirectory.
func (b *Base) Name() string { return b.name }

// WorkingDir returns this dataset's private working directory, creating it
// if needed. The preload marker and all preload artifacts live under it.
func (b *Base) WorkingDir() (string, error) {
	dir := filepath.Join(b.workingRoot, b.name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working dir %s: %w", dir, err)
	}
	return dir, nil
}

// PathQuery selects a location inside a dataset's working directory. Ids are
// offset-adjusted (as reported by trials); zero means unset. Exactly one of
// MediaID and MediaName may identify the stimulus.
type PathQuery struct {
	ParticipantID int
	MediaID       int
	MediaName     string
	SignalType    string

	// Baseline selects the baseline artifact instead of the stimulus one.
	Baseline bool
}

// WorkingPath builds the deterministic working-directory path for a query.
// Media selection requires a participant, and a signal type requires media
// selection plus membership in the configured signal list; violations fail
// with ErrInvalidWorkingPath.
func (b *Base) WorkingPath(q PathQuery) (string, error) {
	hasMedia := q.MediaID != 0 || q.MediaName != ""
	if hasMedia && q.ParticipantID == 0 {
		return "", fmt.Errorf("%w: participant id must be given if media is specified", ErrInvalidWorkingPath)
	}
	if q.SignalType != "" && !hasMedia {
		return "", fmt.Errorf("%w: media must be given if signal type is specified", ErrInvalidWorkingPath)
	}
	if q.SignalType != "" && !b.hasSignal(q.SignalType) {
		return "", fmt.Errorf("%w: invalid signal type %q", ErrInvalidWorkingPath, q.SignalType)
	}

	dir, err := b.WorkingDir()
	if err != nil {
		return "", err
	}

	result := dir
	if q.ParticipantID != 0 {
		result = filepath.Join(result, fmt.Sprintf("Participant_%02d", q.ParticipantID-b.participantOffset))
		if hasMedia {
			if q.MediaName != "" {
				result = filepath.Join(result, fmt.Sprintf("Media_%s", q.MediaName))
			} else {
				result = filepath.Join(result, fmt.Sprintf("Media_%02d", q.MediaID-b.mediaOffset))
			}
			if q.SignalType != "" {
				kind := "stimuli"
				if q.Baseline {
					kind = "baseline"
				}
				result = filepath.Join(result, fmt.Sprintf("%s_%s.dat", q.SignalType, kind))
			}
		}
	}
	return result, nil
}

func (b *Base) hasSignal(signalType string) bool {
	for _, s := range b.signals {
		if s == signalType {
			return true
		}
	}
	return false
}

// Preload checks the working-directory marker and runs the bound Preloader
// hook only when the requested signal set is not already covered. After the
// hook returns, the marker is rewritten to record the current signal set.
// Growing the signal set re-triggers the hook; shrinking it does not.
func (b *Base) Preload() error {
	dir, err := b.WorkingDir()
	if err != nil {
		return err
	}

	marker := filepath.Join(dir, preloadMarker)
	done, err := readPreloadMarker(marker)
	if err != nil {
		return err
	}
	if done != nil && isSubset(b.signals, done) {
		b.log.Debug("preload satisfied by marker", "signals", b.signals)
		return nil
	}

	if b.preloader != nil {
		b.log.Debug("running dataset preload", "signals", b.signals)
		if err := b.preloader.PreloadDataset(); err != nil {
			return err
		}
	}
	return writePreloadMarker(marker, b.signals)
}

func readPreloadMarker(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preload marker: %w", err)
	}
	var signals []string
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("corrupt preload marker %s: %w", path, err)
	}
	return signals, nil
}

func writePreloadMarker(path string, signals []string) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("failed to encode preload marker: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preload marker: %w", err)
	}
	return nil
}

func isSubset(subset, of []string) bool {
	have := make(map[string]bool, len(of))
	for _, s := range of {
		have[s] = true
	}
	for _, s := range subset {
		if !have[s] {
			return false
		}
	}
	return true
}

// Signals returns the signal types this instance loads.
func (b *Base) Signals() []string { return b.signals }

// Trials returns all loaded trials in insertion order.
func (b *Base) Trials() []Trial { return b.trials }

// AddTrial appends a trial during LoadTrials.
func (b *Base) AddTrial(t Trial) { b.trials = append(b.trials, t) }

// ParticipantIDs derives the sorted set of offset-adjusted participant ids
// from the loaded trials.
func (b *Base) ParticipantIDs() []int {
	return collectIDs(b.trials, Trial.ParticipantID)
}

// MediaIDs derives the sorted set of offset-adjusted media ids from the
// loaded trials.
func (b *Base) MediaIDs() []int {
	return collectIDs(b.trials, Trial.MediaID)
}

func collectIDs(trials []Trial, id func(Trial) int) []int {
	seen := make(map[int]bool, len(trials))
	for _, t := range trials {
		seen[id(t)] = true
	}
	ids := make([]int, 0, len(seen))
	for v := range seen {
		ids = append(ids, v)
	}
	sort.Ints(ids)
	return ids
}

// ParticipantOffset returns the constant added to raw participant ids.
func (b *Base) ParticipantOffset() int { return b.participantOffset }

// MediaOffset returns the constant added to raw media ids.
func (b *Base) MediaOffset() int { return b.mediaOffset }

// SetParticipantOffset reassigns the participant offset. Trials compute ids
// at access time, so reassignment before LoadTrials (or before ids are read)
// is safe; MultiDataset relies on this during composition.
func (b *Base) SetParticipantOffset(offset int) { b.participantOffset = offset }

// SetMediaOffset reassigns the media offset.
func (b *Base) SetMediaOffset(offset int) { b.mediaOffset = offset }

// SignalPreprocessors is the chain registry applied when trials load signal
// data. Register a chain by assigning into the returned map.
func (b *Base) SignalPreprocessors() map[string]*preprocessors.Chain { return b.prep }

// SignalMetadata returns the registered descriptor for a signal type. It
// fails with ErrNoMetadata when none is registered.
func (b *Base) SignalMetadata(signalType string) (SignalMetadata, error) {
	md, ok := b.metadata[signalType]
	if !ok {
		return SignalMetadata{}, fmt.Errorf("%w: signal metadata not implemented for signal type %q", ErrNoMetadata, signalType)
	}
	return md, nil
}

// SetSignalMetadata registers or replaces the descriptor for a signal type.
func (b *Base) SetSignalMetadata(signalType string, md SignalMetadata) {
	b.metadata[signalType] = md
}

// RecordSignalDuration notes the realized duration of a loaded signal in its
// metadata descriptor. This is advisory: it only updates an existing entry.
func (b *Base) RecordSignalDuration(signalType string, seconds float64) {
	if md, ok := b.metadata[signalType]; ok {
		md.DurationSeconds = seconds
		b.metadata[signalType] = md
	}
}

// ExpectedMediaResponses maps media names to ground-truth labels.
func (b *Base) ExpectedMediaResponses() map[string]int { return b.expected }

// MediaNameByID returns the media name for a raw media id, or "" when the
// dataset has no name for it.
func (b *Base) MediaNameByID(rawMediaID int) string { return b.mediaNames[rawMediaID] }

// SetMediaName records the media name for a raw media id during LoadTrials.
func (b *Base) SetMediaName(rawMediaID int, name string) { b.mediaNames[rawMediaID] = name }

// Logger returns the dataset's structured logger.
func (b *Base) Logger() *slog.Logger { return b.log }
