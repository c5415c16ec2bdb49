package explore

import (
	"sync"
	"sync/atomic"

	"github.com/davelindo/galleryofbabel/internal/allocator"
	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/stats"
)

// stopPollInterval is how many scored seeds a CPU worker processes
// between polls of the shared stop-flag.
const stopPollInterval = 1024

// SubmitFunc is called with every scored seed; a nil func disables
// direct CPU-path submission.
type SubmitFunc func(scorer.ScoreResult)

// CPUWorkerPool runs T worker goroutines, each pulling claims from a
// shared Allocator, exact-scoring every seed, and batch-publishing
// running statistics.
type CPUWorkerPool struct {
	alloc     *allocator.Allocator
	best      *stats.BestTracker
	running   *stats.Running
	counters  *stats.Counters
	submit    SubmitFunc
	imageSize int
	claimSize uint64
	batchSize int

	stop atomic.Bool
	wg   sync.WaitGroup
}

func NewCPUWorkerPool(alloc *allocator.Allocator, best *stats.BestTracker, running *stats.Running, counters *stats.Counters, imageSize int, claimSize uint64, batchSize int, submit SubmitFunc) *CPUWorkerPool {
	return &CPUWorkerPool{
		alloc:     alloc,
		best:      best,
		running:   running,
		counters:  counters,
		submit:    submit,
		imageSize: imageSize,
		claimSize: claimSize,
		batchSize: batchSize,
	}
}

// Start launches n worker goroutines.
func (p *CPUWorkerPool) Start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run()
	}
}

// Stop sets the shared stop-flag; workers check it between claims once
// at least stopPollInterval seeds have been scored since the last
// check, so they exit within stopPollInterval plus one claim.
func (p *CPUWorkerPool) Stop() { p.stop.Store(true) }

// Wait blocks until every worker has exited.
func (p *CPUWorkerPool) Wait() { p.wg.Wait() }

func (p *CPUWorkerPool) run() {
	defer p.wg.Done()

	batch := stats.NewBatchAccumulator(p.running, p.batchSize)
	iterations := 0
	nextPoll := 0

	for {
		if iterations >= nextPoll {
			nextPoll = iterations + stopPollInterval
			if p.stop.Load() {
				batch.Flush()
				return
			}
		}

		claim, ok := p.alloc.Claim(p.claimSize)
		if !ok {
			batch.Flush()
			return
		}

		seeds := p.alloc.SeedsForClaim(claim)
		for _, s := range seeds {
			result := scorer.Exact(s, p.imageSize)
			p.best.Offer(result)
			batch.Add(result.TotalScore)
			if p.submit != nil {
				p.submit(result)
			}
			iterations++
		}
		if p.counters != nil {
			p.counters.AddCPUScored(uint64(len(seeds)))
		}
	}
}
