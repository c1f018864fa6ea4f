package index

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// checkpointFile is the on-disk shape of a checkpoint: gzip-compressed JSON
// wrapping the term map under an "index" key.
type checkpointFile struct {
	Index map[string]map[string]int `json:"index"`
}

// SaveCheckpoint writes the current index to path as gzip-compressed JSON,
// creating the containing directory if missing.
func (ix *Index) SaveCheckpoint(path string) error {
	snapshot := ix.Snapshot()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(checkpointFile{Index: snapshot}); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint: %w", err)
	}

	ix.logger.Info().
		Str("path", path).
		Int("terms", len(snapshot)).
		Msg("Checkpoint saved")
	return nil
}

// LoadCheckpoint replaces the index with the checkpoint at path and clears
// the pending set. A missing file, a gzip error, or a JSON error all leave
// an empty index behind a warning; load never fails the caller. Returns the
// number of terms loaded.
func (ix *Index) LoadCheckpoint(path string) int {
	terms := readCheckpoint(path, ix)
	ix.Replace(terms)
	return len(terms)
}

func readCheckpoint(path string, ix *Index) map[string]map[string]int {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			ix.logger.Info().Str("path", path).Msg("No checkpoint file, starting with an empty index")
		} else {
			ix.logger.Warn().Err(err).Str("path", path).Msg("Cannot open checkpoint, starting with an empty index")
		}
		return nil
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		ix.logger.Warn().Err(err).Str("path", path).Msg("Checkpoint is not valid gzip, starting with an empty index")
		return nil
	}
	defer gz.Close()

	var cp checkpointFile
	if err := json.NewDecoder(gz).Decode(&cp); err != nil {
		ix.logger.Warn().Err(err).Str("path", path).Msg("Cannot decode checkpoint JSON, starting with an empty index")
		return nil
	}

	ix.logger.Info().
		Str("path", path).
		Int("terms", len(cp.Index)).
		Msg("Checkpoint loaded")
	return cp.Index
}
