// Package tuninghint persists per-device GPU batch/inflight hints so
// a new run can warm-start its Autotuner instead of re-discovering a
// good batch size from scratch.
package tuninghint

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"

	"github.com/davelindo/galleryofbabel/internal/errs"
)

// Hint is one device's persisted tuning state.
type Hint struct {
	Batch     int       `json:"batch"`
	Inflight  int       `json:"inflight"`
	UpdatedAt time.Time `json:"updated_at"`
}

// File is the on-disk shape: per-device-id hints in one JSON file.
type File struct {
	Devices map[string]Hint `json:"devices"`
}

// Load reads hints from path. A missing or corrupt file yields an
// empty File rather than an error, since a tuning hint is a warm-start
// optimization, never required for correctness.
func Load(path string) File {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{Devices: map[string]Hint{}}
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("tuning hint file corrupt, ignoring")
		return File{Devices: map[string]Hint{}}
	}
	if f.Devices == nil {
		f.Devices = map[string]Hint{}
	}
	return f
}

// Save writes hint for deviceID into path's hint file, preserving
// other devices' entries.
func Save(path, deviceID string, hint Hint, now time.Time) error {
	f := Load(path)
	hint.UpdatedAt = now
	f.Devices[deviceID] = hint

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errs.New("tuninghint", errs.IOTransient, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("tuning hint write failed")
		return errs.New("tuninghint", errs.IOTransient, err)
	}
	return nil
}

// Get returns the hint for deviceID, or false if none is recorded.
func (f File) Get(deviceID string) (Hint, bool) {
	h, ok := f.Devices[deviceID]
	return h, ok
}
