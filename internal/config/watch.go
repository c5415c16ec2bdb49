package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// HotReload is the bounded subset of Config the watcher republishes
// on change: log level, memory guard limit, submission min score.
// Everything else needs a process restart.
type HotReload struct {
	LogLevel             string
	MemoryLimitGiB       float64
	MemoryFractionOfRAM  float64
	SubmissionUserMinScore float64
}

func (c *Config) hotReload() HotReload {
	return HotReload{
		LogLevel:               c.LogLevel,
		MemoryLimitGiB:         c.Memory.LimitGiB,
		MemoryFractionOfRAM:    c.Memory.FractionOfRAM,
		SubmissionUserMinScore: c.Submission.UserMinScore,
	}
}

// Watch watches path for writes and re-Loads it on each one,
// publishing the hot-reloadable subset to the returned channel.
// Parse/validation failures are logged and skipped rather than
// crashing the watcher, mirroring the runner's "recoverable errors
// stay inside their component" policy.
func Watch(path string) (<-chan HotReload, func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, nil, err
	}

	out := make(chan HotReload, 1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.Warn().Err(err).Str("path", path).Msg("config hot-reload: reload failed, keeping previous config")
					continue
				}
				select {
				case out <- cfg.hotReload():
				default:
					// drop if nobody's listening yet; the channel always
					// carries the latest value once drained.
					select {
					case <-out:
					default:
					}
					out <- cfg.hotReload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		close(done)
		watcher.Close()
	}
	return out, stop, nil
}
