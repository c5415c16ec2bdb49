package stats

import (
	"math"
	"sync"
)

// Running accumulates count/sum/sum-of-squares for a score stream,
// published in batches from the hot loops (a batch lock dominates cost
// at multi-MHz scoring rates if taken per sample). Mean and variance
// are derived from the three accumulators rather than kept running
// individually, matching how the CPU and GPU producers report in
// (count, score_sum, score_sum_sq) batches.
type Running struct {
	mu     sync.Mutex
	count  uint64
	sum    float64
	sumSq  float64
}

// Publish folds a batch of count/sum/sum-of-squares into the running
// totals. count may be zero (a no-op).
func (r *Running) Publish(count uint64, sum, sumSq float64) {
	if count == 0 {
		return
	}
	r.mu.Lock()
	r.count += count
	r.sum += sum
	r.sumSq += sumSq
	r.mu.Unlock()
}

// RunningSnapshot is a point-in-time read of Running.
type RunningSnapshot struct {
	Count  uint64
	Mean   float64
	StdDev float64
}

func (r *Running) Snapshot() RunningSnapshot {
	r.mu.Lock()
	count, sum, sumSq := r.count, r.sum, r.sumSq
	r.mu.Unlock()

	if count == 0 {
		return RunningSnapshot{}
	}
	n := float64(count)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return RunningSnapshot{Count: count, Mean: mean, StdDev: math.Sqrt(variance)}
}

// BatchAccumulator collects individual samples on a worker's hot path
// and hands them to a Running tracker once it reaches flushSize or
// when Flush is called; there is no time-based flush. It
// is not itself safe for concurrent use; each worker owns one.
type BatchAccumulator struct {
	target     *Running
	flushSize  int
	count      uint64
	sum        float64
	sumSq      float64
}

func NewBatchAccumulator(target *Running, flushSize int) *BatchAccumulator {
	return &BatchAccumulator{target: target, flushSize: flushSize}
}

// Add records one sample and flushes if the batch reached flushSize.
func (b *BatchAccumulator) Add(score float64) {
	b.count++
	b.sum += score
	b.sumSq += score * score
	if int(b.count) >= b.flushSize {
		b.Flush()
	}
}

// Flush publishes any accumulated samples and resets the batch. Safe
// to call on an empty batch (a no-op via Running.Publish).
func (b *BatchAccumulator) Flush() {
	b.target.Publish(b.count, b.sum, b.sumSq)
	b.count, b.sum, b.sumSq = 0, 0, 0
}
