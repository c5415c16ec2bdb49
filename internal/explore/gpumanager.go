package explore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/davelindo/galleryofbabel/internal/allocator"
	"github.com/davelindo/galleryofbabel/internal/approx"
	"github.com/davelindo/galleryofbabel/internal/seed"
	"github.com/davelindo/galleryofbabel/internal/stats"
)

// candidatesPerBatch is K in "top-K per batch, K=4, by score
// descending" for promoting GPU results to verifier candidates.
const candidatesPerBatch = 4

// GateFunc returns the current admission gate: submission.threshold -
// margin.current().
type GateFunc func() float64

// SampleBudget gates how many low-priority verification samples the
// manager may emit per second.
type SampleBudget struct {
	mu        sync.Mutex
	perSecond int
	count     int
	windowEnd time.Time
}

func NewSampleBudget(perSecond int) *SampleBudget {
	return &SampleBudget{perSecond: perSecond, windowEnd: time.Now().Add(time.Second)}
}

// Allow reports whether one more sample may be emitted in the current
// 1s window, consuming budget if so.
func (s *SampleBudget) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if now.After(s.windowEnd) {
		s.count = 0
		s.windowEnd = now.Add(time.Second)
	}
	if s.count >= s.perSecond {
		return false
	}
	s.count++
	return true
}

// GPUManagerConfig configures a GPUManager's batching and gating.
type GPUManagerConfig struct {
	ImageSize          int
	Gate               GateFunc
	SamplingEnabled    bool
	SubmissionEnabled  bool
	SampleSlack        float64
}

// GPUManager pulls claims from an allocator, batches them through an
// approx.Backend, and routes completions to the verifier as
// candidates or samples.
type GPUManager struct {
	backend  approx.Backend
	alloc    *allocator.Allocator
	verifier *Verifier

	cfg GPUManagerConfig

	running     *stats.Running
	approxBest  *stats.ApproxBest
	counters    *stats.Counters
	sampleStats *stats.Running // running (mu, sigma) of approx scores, for sample_gate
	budget      *SampleBudget

	stop atomic.Bool
	wg   sync.WaitGroup
}

func NewGPUManager(backend approx.Backend, alloc *allocator.Allocator, verifier *Verifier, running *stats.Running, approxBest *stats.ApproxBest, counters *stats.Counters, budget *SampleBudget, cfg GPUManagerConfig) *GPUManager {
	return &GPUManager{
		backend:     backend,
		alloc:       alloc,
		verifier:    verifier,
		cfg:         cfg,
		running:     running,
		approxBest:  approxBest,
		counters:    counters,
		sampleStats: &stats.Running{},
		budget:      budget,
	}
}

// RunBatch claims up to n seeds, scores them via the backend, and
// routes completions. It returns the number of seeds actually
// processed (0 means the allocator is exhausted).
func (m *GPUManager) RunBatch(n int) int {
	claim, ok := m.alloc.Claim(uint64(n))
	if !ok || claim.Count == 0 {
		return 0
	}
	seeds := m.alloc.SeedsForClaim(claim)

	job, err := m.backend.Enqueue(seeds)
	if err != nil {
		return 0
	}
	scores, err := m.backend.Await(job)
	if err != nil {
		return 0
	}

	m.processCompletion(seeds, scores)
	return len(seeds)
}

// Start runs RunBatch in a loop with the given per-call batch size
// until Stop is called or the allocator is exhausted.
func (m *GPUManager) Start(batchSize int) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		polls := 0
		for {
			if polls%128 == 0 && m.stop.Load() {
				return
			}
			polls++
			if m.RunBatch(batchSize) == 0 {
				return
			}
		}
	}()
}

func (m *GPUManager) Stop() { m.stop.Store(true) }
func (m *GPUManager) Wait() { m.wg.Wait() }

// rankedSeed pairs a seed with its approximate score for top-K
// tracking within one completed batch.
type rankedSeed struct {
	seed  seed.Seed
	score float32
}

func (m *GPUManager) processCompletion(seeds []seed.Seed, scores []float32) {
	var sum, sumSq float64
	var top []rankedSeed

	for i, sc := range scores {
		if sc != sc { // NaN: drop this sample
			continue
		}
		sum += float64(sc)
		sumSq += float64(sc) * float64(sc)
		m.approxBest.Offer(seeds[i], sc)
		top = insertTopK(top, rankedSeed{seeds[i], sc}, candidatesPerBatch)
	}
	m.running.Publish(uint64(len(scores)), sum, sumSq)
	m.counters.AddGPUScored(uint64(len(scores)))
	m.sampleStats.Publish(uint64(len(scores)), sum, sumSq)

	gate := float64(0)
	if m.cfg.Gate != nil {
		gate = m.cfg.Gate()
	}
	snap := m.sampleStats.Snapshot()

	for _, r := range top {
		if m.cfg.SubmissionEnabled && float64(r.score) >= gate {
			if m.verifier.Push(VerifyTask{Seed: r.seed, Priority: PriorityCandidate, ApproxScore: r.score}) {
				m.counters.AddCandidates(1)
			}
			continue
		}
		if m.cfg.SamplingEnabled && m.budget.Allow() {
			sampleGate := gate - m.cfg.SampleSlack
			if snap.Count > 0 {
				statGate := snap.Mean + 1.645*snap.StdDev
				if statGate > sampleGate {
					sampleGate = statGate
				}
			}
			if float64(r.score) >= sampleGate {
				if m.verifier.Push(VerifyTask{Seed: r.seed, Priority: PrioritySample, ApproxScore: r.score}) {
					m.counters.AddSamples(1)
				}
			}
		}
	}
}

// insertTopK keeps the K highest-scoring entries seen so far, sorted
// score descending; batches are small so a plain insertion sort over
// at most K+1 entries is simplest.
func insertTopK(top []rankedSeed, item rankedSeed, k int) []rankedSeed {
	top = append(top, item)
	for i := len(top) - 1; i > 0 && top[i-1].score < top[i].score; i-- {
		top[i-1], top[i] = top[i], top[i-1]
	}
	if len(top) > k {
		top = top[:k]
	}
	return top
}
