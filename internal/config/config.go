// Package config loads the run configuration from a YAML file with
// environment-variable overrides, and watches the file for a bounded
// set of hot-reloadable fields. It generalizes the teacher's
// env/.env "last write wins" loader into a structured document.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/davelindo/galleryofbabel/internal/errs"
)

// GPUConfig selects and sizes the GPU approximate scorer backend.
type GPUConfig struct {
	PreferredOrder []string `yaml:"preferred_order"`
	Mandatory      bool     `yaml:"mandatory"`
	BatchSize      int      `yaml:"batch_size"`
	Inflight       int      `yaml:"inflight"`
}

// SubmissionConfig configures the leaderboard client and its
// rate-limit/retry posture.
type SubmissionConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	UserMinScore  float64 `yaml:"user_min_score"`
	MaxRetries    int     `yaml:"max_retries"`
	RefreshPeriod string  `yaml:"refresh_period"`
}

// MemoryGuardConfig bounds resident memory before the runner requests
// a stop.
type MemoryGuardConfig struct {
	LimitGiB      float64 `yaml:"limit_gib"`
	FractionOfRAM float64 `yaml:"fraction_of_ram"`
}

// PersistenceConfig names the on-disk state/journal/archive paths.
type PersistenceConfig struct {
	SeedStatePath  string `yaml:"seed_state_path"`
	JournalPath    string `yaml:"journal_path"`
	TuningHintPath string `yaml:"tuning_hint_path"`
	ArchiveDBPath  string `yaml:"archive_db_path"`
}

// Config is the full run configuration.
type Config struct {
	SeedSpaceMin  uint64 `yaml:"seed_space_min"`
	SeedSpaceSize uint64 `yaml:"seed_space_size"`
	ImageSize     int    `yaml:"image_size"`
	CPUWorkers    int    `yaml:"cpu_workers"`
	LogLevel      string `yaml:"log_level"`

	GPU        GPUConfig         `yaml:"gpu"`
	Submission SubmissionConfig  `yaml:"submission"`
	Memory     MemoryGuardConfig `yaml:"memory_guard"`
	Persist    PersistenceConfig `yaml:"persistence"`

	StatusAddr string `yaml:"status_addr"`
}

// Default returns the zero-config baseline: CPU-only, no submission
// endpoint, default local paths. Load layers YAML/env results on top
// of this.
func Default() Config {
	return Config{
		SeedSpaceMin:  0,
		SeedSpaceSize: 1 << 48,
		ImageSize:     128,
		CPUWorkers:    0, // 0 means "logical cores" at wire-up time
		LogLevel:      "info",
		GPU: GPUConfig{
			PreferredOrder: []string{"cuda", "ubpf", "software"},
			BatchSize:      4096,
			Inflight:       4,
		},
		Submission: SubmissionConfig{
			UserMinScore:  0,
			MaxRetries:    8,
			RefreshPeriod: "3m",
		},
		Memory: MemoryGuardConfig{FractionOfRAM: 0.8},
		Persist: PersistenceConfig{
			SeedStatePath:  "seed_state.json",
			JournalPath:    "submission_journal.json",
			TuningHintPath: "tuning_hint.json",
			ArchiveDBPath:  "archive.db",
		},
		StatusAddr: "127.0.0.1:9090",
	}
}

// Load reads path as YAML over Default(), applies GALLERY_* env
// overrides, and validates the result. A missing file is not an
// error: Default() plus env overrides is a legal configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errs.New("config", errs.IOTransient, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errs.New("config", errs.Usage, fmt.Errorf("parsing %s: %w", path, err))
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that can't possibly run, per the
// Usage error kind's "fail before work begins" contract.
func (c *Config) Validate() error {
	if c.SeedSpaceSize == 0 {
		return errs.New("config", errs.Usage, fmt.Errorf("seed_space_size must be > 0"))
	}
	if c.ImageSize <= 0 {
		return errs.New("config", errs.Usage, fmt.Errorf("image_size must be > 0"))
	}
	if c.ImageSize&(c.ImageSize-1) != 0 {
		return errs.New("config", errs.Usage, fmt.Errorf("image_size must be a power of two, got %d", c.ImageSize))
	}
	if c.Submission.MaxRetries < 0 {
		return errs.New("config", errs.Usage, fmt.Errorf("submission.max_retries must be >= 0"))
	}
	if c.Memory.FractionOfRAM < 0 || c.Memory.FractionOfRAM > 1 {
		return errs.New("config", errs.Usage, fmt.Errorf("memory_guard.fraction_of_ram must be in [0,1]"))
	}
	if _, err := c.RefreshInterval(); err != nil {
		return errs.New("config", errs.Usage, err)
	}
	return nil
}

// RefreshInterval parses Submission.RefreshPeriod, defaulting to 3m
// and clamping below 10s per spec §4.8's "min 10s".
func (c *Config) RefreshInterval() (time.Duration, error) {
	s := c.Submission.RefreshPeriod
	if s == "" {
		return 3 * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("submission.refresh_period: %w", err)
	}
	if d < 10*time.Second {
		d = 10 * time.Second
	}
	return d, nil
}

// envOverride is one GALLERY_* -> field wiring; the setter receives
// the raw env value and mutates cfg.
type envOverride struct {
	name   string
	setter func(cfg *Config, v string)
}

var envOverrides = []envOverride{
	{"GALLERY_LOG_LEVEL", func(c *Config, v string) { c.LogLevel = v }},
	{"GALLERY_CPU_WORKERS", func(c *Config, v string) { setInt(&c.CPUWorkers, v) }},
	{"GALLERY_IMAGE_SIZE", func(c *Config, v string) { setInt(&c.ImageSize, v) }},
	{"GALLERY_GPU_BATCH_SIZE", func(c *Config, v string) { setInt(&c.GPU.BatchSize, v) }},
	{"GALLERY_GPU_MANDATORY", func(c *Config, v string) { setBool(&c.GPU.Mandatory, v) }},
	{"GALLERY_SUBMISSION_ENDPOINT", func(c *Config, v string) { c.Submission.Endpoint = v }},
	{"GALLERY_SUBMISSION_API_KEY", func(c *Config, v string) { c.Submission.APIKey = v }},
	{"GALLERY_SUBMISSION_USER_MIN_SCORE", func(c *Config, v string) { setFloat(&c.Submission.UserMinScore, v) }},
	{"GALLERY_MEMORY_LIMIT_GIB", func(c *Config, v string) { setFloat(&c.Memory.LimitGiB, v) }},
	{"GALLERY_STATUS_ADDR", func(c *Config, v string) { c.StatusAddr = v }},
}

// applyEnvOverrides applies every GALLERY_* variable that is set; env
// always beats whatever YAML set, mirroring the teacher's "last write
// wins" env-over-file precedence.
func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && strings.TrimSpace(v) != "" {
			o.setter(cfg, v)
		}
	}
}

func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setFloat(dst *float64, v string) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

func setBool(dst *bool, v string) {
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// NoUpdateCheck reports whether GALLERY_NO_UPDATE_CHECK=1 is set, per
// spec §6's single update-check-disabling env var.
func NoUpdateCheck() bool {
	return os.Getenv("GALLERY_NO_UPDATE_CHECK") == "1"
}
