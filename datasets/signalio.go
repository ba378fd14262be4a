package datasets

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// SaveSignal writes a signal matrix to path in gonum's binary matrix
// encoding, creating parent directories as needed. Preload hooks use this to
// materialize working-directory artifacts.
func SaveSignal(path string, signal *mat.Dense) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create signal dir for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create signal file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := signal.MarshalBinaryTo(f); err != nil {
		return fmt.Errorf("failed to write signal %s: %w", path, err)
	}
	return nil
}

// LoadSignal reads a signal matrix written by SaveSignal. Storage errors
// propagate unchanged; there is no retry or fallback.
func LoadSignal(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open signal file %s: %w", path, err)
	}
	defer f.Close()

	var signal mat.Dense
	if _, err := signal.UnmarshalBinaryFrom(f); err != nil {
		return nil, fmt.Errorf("failed to read signal %s: %w", path, err)
	}
	return &signal, nil
}
