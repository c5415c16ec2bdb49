package runner

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// memoryGuardPoll is the sampling interval for the memory guard; spec
// §8 Testable Property #11 requires the stop-flag to be set within
// one sampling interval of exceeding the limit.
const memoryGuardPoll = time.Second

// startMemoryGuard samples this process's resident memory and raises
// the stop-flag when it crosses the configured limit: an explicit
// GiB, a fraction of total system RAM, or the 80%-of-RAM default.
func (r *Runner) startMemoryGuard(ctx context.Context) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		r.logger.Warn().Err(err).Msg("memory guard disabled: could not open self process handle")
		return
	}

	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		ticker := time.NewTicker(memoryGuardPoll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if r.stop.Load() {
					return
				}
				// resolved every tick, not once at startup, so a
				// config hot-reload of the memory limit takes effect
				// within one poll interval.
				limitBytes, ok := r.memoryLimitBytes()
				if !ok {
					continue
				}
				if r.residentBytesExceeds(proc, limitBytes) {
					r.logger.Warn().Msg("memory guard limit exceeded, stopping")
					r.Stop()
					return
				}
			}
		}
	}()
}

func (r *Runner) residentBytesExceeds(proc *process.Process, limitBytes uint64) bool {
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return false
	}
	return info.RSS >= limitBytes
}

// memoryLimitBytes resolves the configured limit to an absolute byte
// count. ok is false when no backend-driven default applies and no
// explicit limit was configured (CPU-only runs with no fraction set).
func (r *Runner) memoryLimitBytes() (uint64, bool) {
	r.cfgMu.Lock()
	cfg := r.cfg.Memory
	r.cfgMu.Unlock()
	if cfg.LimitGiB > 0 {
		return uint64(cfg.LimitGiB * (1 << 30)), true
	}

	fraction := cfg.FractionOfRAM
	if fraction <= 0 {
		if r.backend == nil {
			return 0, false
		}
		fraction = 0.8
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		r.logger.Warn().Err(err).Msg("memory guard disabled: could not read system RAM total")
		return 0, false
	}
	return uint64(fraction * float64(vm.Total)), true
}
