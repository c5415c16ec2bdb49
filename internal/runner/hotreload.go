package runner

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/davelindo/galleryofbabel/internal/config"
)

// startConfigWatch watches r.configPath, if set, and applies each
// config.HotReload as it arrives: the global log level, the memory
// guard limit, and the submission user-min-score floor. Every other
// field needs a process restart.
func (r *Runner) startConfigWatch(ctx context.Context) {
	if r.configPath == "" {
		return
	}

	ch, stop, err := config.Watch(r.configPath)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.configPath).Msg("config hot-reload disabled")
		return
	}

	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case hr, ok := <-ch:
				if !ok {
					return
				}
				r.applyHotReload(hr)
			}
		}
	}()
}

func (r *Runner) applyHotReload(hr config.HotReload) {
	if lvl, err := zerolog.ParseLevel(hr.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	r.cfgMu.Lock()
	r.cfg.Memory.LimitGiB = hr.MemoryLimitGiB
	r.cfg.Memory.FractionOfRAM = hr.MemoryFractionOfRAM
	r.cfgMu.Unlock()

	if r.subState != nil {
		r.subState.SetUserMinScore(hr.SubmissionUserMinScore)
	}

	r.logger.Info().Msg("config hot-reload applied")
}
