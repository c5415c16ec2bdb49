// Package factory selects a concrete approx.Backend, following a
// preferred order with fallback to the cpu-only null backend.
package factory

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/davelindo/galleryofbabel/internal/approx"
	"github.com/davelindo/galleryofbabel/internal/approx/cuda"
	"github.com/davelindo/galleryofbabel/internal/approx/software"
	"github.com/davelindo/galleryofbabel/internal/approx/ubpf"
	"github.com/davelindo/galleryofbabel/internal/errs"
)

// Config controls backend selection.
type Config struct {
	// PreferredOrder names backends to try, in order, e.g.
	// {"cuda", "ubpf", "software"}. Unless Mandatory is set, "software"
	// is implicitly appended if not already present, since it is always
	// available.
	PreferredOrder []string
	BatchSize      int
	Inflight       int
	ImageSize      int
	// Mandatory, when true, makes a failure to initialize any
	// non-software backend in PreferredOrder fatal instead of falling
	// back.
	Mandatory bool
}

// DefaultConfig prefers the GPU backends, falling back to software.
func DefaultConfig(batchSize, inflight, imageSize int) Config {
	return Config{
		PreferredOrder: []string{"cuda", "ubpf", "software"},
		BatchSize:      batchSize,
		Inflight:       inflight,
		ImageSize:      imageSize,
	}
}

func build(name string, cfg Config) approx.Backend {
	switch name {
	case "cuda":
		return cuda.New(cfg.BatchSize, cfg.Inflight, cfg.ImageSize)
	case "ubpf":
		return ubpf.New(cfg.BatchSize, cfg.Inflight, cfg.ImageSize)
	case "software":
		return software.New(cfg.BatchSize, cfg.Inflight, cfg.ImageSize)
	default:
		return nil
	}
}

// Select walks cfg.PreferredOrder, returning the first backend that
// is available and initializes successfully. If none of the preferred
// non-software backends succeed and cfg.Mandatory is set, the last
// error is returned wrapped as a fatal BackendInit error; otherwise
// the software backend is returned.
func Select(cfg Config) (approx.Backend, error) {
	order := cfg.PreferredOrder
	hasSoftware := false
	for _, n := range order {
		if n == "software" {
			hasSoftware = true
		}
	}
	if !hasSoftware && !cfg.Mandatory {
		order = append(append([]string{}, order...), "software")
	}

	var lastErr error
	for _, name := range order {
		b := build(name, cfg)
		if b == nil {
			continue
		}
		if !b.IsAvailable() {
			continue
		}
		if err := b.Initialize(); err != nil {
			log.Warn().Str("backend", name).Err(err).Msg("backend initialize failed")
			lastErr = err
			continue
		}
		return b, nil
	}

	if cfg.Mandatory && lastErr != nil {
		return nil, errs.WithFatal(errs.New("approx-factory", errs.BackendInit, lastErr))
	}
	if cfg.Mandatory {
		return nil, errs.WithFatal(errs.New("approx-factory", errs.BackendInit, errNoneAvailable))
	}

	// software is always available and always last in order, so we
	// should never reach here in practice; guard anyway.
	b := software.New(cfg.BatchSize, cfg.Inflight, cfg.ImageSize)
	_ = b.Initialize()
	return b, nil
}

var errNoneAvailable = errors.New("no backend in preferred order was available")
