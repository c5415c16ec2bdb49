// Package stats holds the thread-safe counters, running score
// statistics, best-so-far trackers, and the bounded event log shared
// across the exploration pipeline. Each tracker guards itself with its
// own mutex (or atomics); there is no global registry.
package stats

import "sync/atomic"

// Counters are monotonic wrapping u64 counters snapshotted
// independently; readers tolerate slight cross-counter skew.
type Counters struct {
	cpuScored   atomic.Uint64
	gpuScored   atomic.Uint64
	candidates  atomic.Uint64
	samples     atomic.Uint64
	verified    atomic.Uint64
	submitted   atomic.Uint64
	accepted    atomic.Uint64
	rejected    atomic.Uint64
}

func (c *Counters) AddCPUScored(n uint64)  { c.cpuScored.Add(n) }
func (c *Counters) AddGPUScored(n uint64)  { c.gpuScored.Add(n) }
func (c *Counters) AddCandidates(n uint64) { c.candidates.Add(n) }
func (c *Counters) AddSamples(n uint64)    { c.samples.Add(n) }
func (c *Counters) AddVerified(n uint64)   { c.verified.Add(n) }
func (c *Counters) AddSubmitted(n uint64)  { c.submitted.Add(n) }
func (c *Counters) AddAccepted(n uint64)   { c.accepted.Add(n) }
func (c *Counters) AddRejected(n uint64)   { c.rejected.Add(n) }

// CountersSnapshot is a point-in-time read of Counters.
type CountersSnapshot struct {
	CPUScored  uint64
	GPUScored  uint64
	Candidates uint64
	Samples    uint64
	Verified   uint64
	Submitted  uint64
	Accepted   uint64
	Rejected   uint64
}

func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		CPUScored:  c.cpuScored.Load(),
		GPUScored:  c.gpuScored.Load(),
		Candidates: c.candidates.Load(),
		Samples:    c.samples.Load(),
		Verified:   c.verified.Load(),
		Submitted:  c.submitted.Load(),
		Accepted:   c.accepted.Load(),
		Rejected:   c.rejected.Load(),
	}
}
