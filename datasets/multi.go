package datasets

import "fmt"

// MultiDataset merges several datasets into one logical dataset. Member
// identifier namespaces are kept disjoint by assigning each member's offsets
// at composition time: when LoadTrials runs, every member receives the
// running participant/media totals of the members processed before it, then
// loads, then its id counts extend the totals. The composite's own id space
// is therefore dense starting at 1.
//
// Once a dataset joins a composite, the composite owns its offsets; member
// offsets must not be read before the composite's LoadTrials has assigned
// them.
type MultiDataset struct {
	*Base
	members []Dataset
}

var (
	_ Dataset = (*MultiDataset)(nil)
	_ Dataset = (*splitDataset)(nil)
)

// NewMultiDataset composes the given datasets. Members are processed in the
// order given, which fixes their identifier ranges.
func NewMultiDataset(members []Dataset, cfg BaseConfig) *MultiDataset {
	if cfg.Name == "" {
		cfg.Name = "MultiDataset"
	}
	if cfg.Signals == nil {
		cfg.Signals = unionSignals(members)
	}
	return &MultiDataset{
		Base:    NewBase(cfg),
		members: members,
	}
}

func unionSignals(members []Dataset) []string {
	var union []string
	seen := make(map[string]bool)
	for _, ds := range members {
		for _, s := range ds.Signals() {
			if !seen[s] {
				seen[s] = true
				union = append(union, s)
			}
		}
	}
	return union
}

// Members returns the composed datasets in processing order.
func (m *MultiDataset) Members() []Dataset { return m.members }

// Preload preloads every member in sequence. The composite keeps no marker
// of its own; each member's marker governs its own preload.
func (m *MultiDataset) Preload() error {
	for _, ds := range m.members {
		if err := ds.Preload(); err != nil {
			return fmt.Errorf("failed to preload composite member: %w", err)
		}
	}
	return nil
}

// LoadTrials assigns each member's offsets from the running totals, loads
// the member, and merges its trials and media names into the composite.
func (m *MultiDataset) LoadTrials() error {
	numParticipants := 0
	numMedia := 0
	for _, ds := range m.members {
		ds.SetParticipantOffset(numParticipants)
		ds.SetMediaOffset(numMedia)
		if err := ds.LoadTrials(); err != nil {
			return fmt.Errorf("failed to load composite member trials: %w", err)
		}

		numParticipants += len(ds.ParticipantIDs())
		numMedia += len(ds.MediaIDs())
		for _, t := range ds.Trials() {
			m.AddTrial(t)
		}
		for _, id := range ds.MediaIDs() {
			if name := ds.MediaNameByID(id - ds.MediaOffset()); name != "" {
				m.SetMediaName(id-m.MediaOffset(), name)
			}
		}
	}
	return nil
}
