// Package explore implements the exploration pipeline: the CPU worker
// pool, the GPU exploration manager, the adaptive margin/shift
// controllers, and the candidate verifier.
package explore

import (
	"sync"

	"github.com/davelindo/galleryofbabel/internal/stats"
)

// trend is the direction an adaptive controller's published value
// last moved, exposed to UIs as trendSymbol.
type trend int

const (
	trendFlat trend = iota
	trendUp
	trendDown
)

func (t trend) String() string {
	switch t {
	case trendUp:
		return "^"
	case trendDown:
		return "v"
	default:
		return "-"
	}
}

// AdaptiveMargin maintains a target margin so that gpu+margin >= cpu
// for nearly all verified samples: it tracks the empirical quantile of
// per-sample undershoot and moves toward it immediately on increase,
// slowly on decrease.
type AdaptiveMargin struct {
	mu       sync.Mutex
	ring     []float64
	capacity int
	nMin     int
	quantile float64
	decay    float64
	safety   float64
	min, max float64
	current  float64
	last     trend
}

// MarginConfig configures an AdaptiveMargin.
type MarginConfig struct {
	Capacity int     // ring buffer size
	NMin     int     // minimum samples before the quantile is trusted
	Quantile float64 // default 0.995
	Decay    float64 // decrease rate toward target, in (0,1]
	Safety   float64 // additive safety epsilon
	Min, Max float64 // clamp range
}

func NewAdaptiveMargin(cfg MarginConfig) *AdaptiveMargin {
	return &AdaptiveMargin{
		capacity: cfg.Capacity,
		nMin:     cfg.NMin,
		quantile: cfg.Quantile,
		decay:    cfg.Decay,
		safety:   cfg.Safety,
		min:      cfg.Min,
		max:      cfg.Max,
		current:  cfg.Min,
	}
}

// Observe records one (cpu, gpu) score pair and updates current().
func (m *AdaptiveMargin) Observe(cpu, gpu float64) {
	under := cpu - gpu
	if under < 0 {
		under = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ring) >= m.capacity {
		m.ring = m.ring[1:]
	}
	m.ring = append(m.ring, under)

	if len(m.ring) < m.nMin {
		return
	}

	target := stats.Quantile(m.ring, m.quantile) + m.safety
	if target < m.min {
		target = m.min
	}
	if target > m.max {
		target = m.max
	}

	switch {
	case target > m.current:
		m.current = target
		m.last = trendUp
	case target < m.current:
		next := m.current - m.decay*(m.current-target)
		if next != m.current {
			m.last = trendDown
		}
		m.current = next
	default:
		m.last = trendFlat
	}
}

// Current returns the controller's current published margin.
func (m *AdaptiveMargin) Current() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// TrendSymbol reports the direction of the last update.
func (m *AdaptiveMargin) TrendSymbol() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last.String()
}
