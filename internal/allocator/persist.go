package allocator

import (
	"encoding/json"
	"os"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"

	"github.com/davelindo/galleryofbabel/internal/errs"
)

// Snapshot serializes the current state to path via temp+rename so a
// reader never observes a partially written file. I/O failures are
// logged and returned as IOTransient; callers retry on the next tick
// rather than treating this as fatal.
func (a *Allocator) Snapshot(path string) error {
	data, err := json.MarshalIndent(a.State(), "", "  ")
	if err != nil {
		return errs.New("allocator", errs.IOTransient, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("allocator snapshot write failed")
		return errs.New("allocator", errs.IOTransient, err)
	}
	return nil
}

// Load reads a previously snapshotted state from path. A missing file
// is reported via os.IsNotExist on the returned error; a malformed
// file is reported as DataCorruption so the caller can fall back to a
// fresh permutation without aborting the run.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, errs.New("allocator", errs.DataCorruption, err)
	}
	return s, nil
}
