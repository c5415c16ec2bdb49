package submission

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"

	"github.com/davelindo/galleryofbabel/internal/errs"
	"github.com/davelindo/galleryofbabel/internal/seed"
)

const journalVersion = 1

// journalEntry is one row of the persisted journal file.
type journalEntry struct {
	Seed   uint64  `json:"seed"`
	Score  float64 `json:"score"`
	Source *string `json:"source,omitempty"`
	Seq    uint64  `json:"seq"`
}

func sourceName(s Source) string {
	switch s {
	case SourceVerifier:
		return "verifier"
	case SourceCPUWorker:
		return "cpu-worker"
	case SourceManual:
		return "manual"
	default:
		return "unknown"
	}
}

func sourceFromName(name string) Source {
	switch name {
	case "cpu-worker":
		return SourceCPUWorker
	case "manual":
		return SourceManual
	default:
		return SourceVerifier
	}
}

// journalFile is the on-disk shape of the journal.
type journalFile struct {
	Version   int            `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
	Entries   []journalEntry `json:"entries"`
}

// Journal coalesces pending-queue writes to path with a debounce so a
// burst of enqueues does not hit the disk on every call; Flush forces
// an immediate write regardless of the debounce window.
type Journal struct {
	path    string
	queue   *Queue
	debounce time.Duration

	mu      sync.Mutex
	dirty   bool
	lastAt  time.Time
}

func NewJournal(path string, queue *Queue, debounce time.Duration) *Journal {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Journal{path: path, queue: queue, debounce: debounce}
}

// MarkDirty records that the queue changed since the last write.
func (j *Journal) MarkDirty() {
	j.mu.Lock()
	j.dirty = true
	j.mu.Unlock()
}

// Tick writes the journal if it is dirty and the debounce window has
// elapsed since the last write; callers invoke this periodically (or
// call Flush to bypass debouncing entirely, e.g. on shutdown).
func (j *Journal) Tick(now time.Time) error {
	j.mu.Lock()
	if !j.dirty || now.Sub(j.lastAt) < j.debounce {
		j.mu.Unlock()
		return nil
	}
	j.mu.Unlock()
	return j.Flush(now)
}

// Flush writes the current queue snapshot to disk unconditionally.
func (j *Journal) Flush(now time.Time) error {
	entries := j.queue.Snapshot()
	file := journalFile{Version: journalVersion, UpdatedAt: now}
	for _, t := range entries {
		src := sourceName(t.Source)
		file.Entries = append(file.Entries, journalEntry{
			Seed:   uint64(t.Seed),
			Score:  t.Score,
			Source: &src,
			Seq:    t.Seq,
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errs.New("submission-journal", errs.IOTransient, err)
	}
	if err := renameio.WriteFile(j.path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", j.path).Msg("submission journal write failed")
		return errs.New("submission-journal", errs.IOTransient, err)
	}

	j.mu.Lock()
	j.dirty = false
	j.lastAt = now
	j.mu.Unlock()
	return nil
}

// LoadJournal reads a previously flushed journal from path. A missing
// file returns (nil, os.ErrNotExist)-wrapped error for the caller to
// check with os.IsNotExist. An unreadable/unknown-version file is
// reported as DataCorruption so startup can log and continue with an
// empty queue rather than aborting.
func LoadJournal(path string) ([]Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file journalFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errs.New("submission-journal", errs.DataCorruption, err)
	}
	if file.Version != journalVersion {
		return nil, errs.New("submission-journal", errs.DataCorruption, nil)
	}

	// Dedup by seed, keeping the best score, then the earliest seq.
	bestBySeed := make(map[seed.Seed]journalEntry, len(file.Entries))
	for _, e := range file.Entries {
		sd := seed.Seed(e.Seed)
		cur, ok := bestBySeed[sd]
		if !ok || e.Score > cur.Score || (e.Score == cur.Score && e.Seq < cur.Seq) {
			bestBySeed[sd] = e
		}
	}

	tasks := make([]Task, 0, len(bestBySeed))
	for sd, e := range bestBySeed {
		src := SourceVerifier
		if e.Source != nil {
			src = sourceFromName(*e.Source)
		}
		tasks = append(tasks, Task{Seed: sd, Score: e.Score, Source: src, Seq: e.Seq})
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Less(tasks[j]) })
	return tasks, nil
}

// Reload re-eligibility-checks and re-enqueues journal survivors into
// state/queue, used at startup once a finite top500Threshold is known.
func Reload(path string, state *State, queue *Queue) (int, error) {
	tasks, err := LoadJournal(path)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, t := range tasks {
		if state.MarkAttemptIfEligible(t.Seed, t.Score) {
			queue.Push(t)
			restored++
		}
	}
	return restored, nil
}
