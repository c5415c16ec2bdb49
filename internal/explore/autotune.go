package explore

// autotuneStep is one level's grow/shrink factor pair.
type autotuneStep struct {
	grow, shrink float64
}

var autotuneLevels = []autotuneStep{
	{grow: 1.2, shrink: 0.85},
	{grow: 1.1, shrink: 0.9},
	{grow: 1.05, shrink: 0.95},
}

var autotuneAlignments = []int{16, 8, 1}

// Autotuner hill-climbs the GPU batch size against measured
// throughput: it grows (or shrinks) the batch by the current level's
// factor each tick, reverses direction and deepens the level on a
// throughput regression, and settles once it has reversed twice at
// the deepest level.
type Autotuner struct {
	min, max int
	batch    int
	direction int // +1 grow, -1 shrink
	level     int
	reversalsAtDeepest int
	lastRate  float64
	hasRate   bool
}

func NewAutotuner(initialBatch, min, max int) *Autotuner {
	return &Autotuner{batch: initialBatch, min: min, max: max, direction: 1}
}

// Batch returns the current batch size.
func (a *Autotuner) Batch() int { return a.batch }

// Settled reports whether the tuner has stopped exploring.
func (a *Autotuner) Settled() bool {
	return a.level >= len(autotuneLevels)-1 && a.reversalsAtDeepest >= 2
}

// Tick records a newly measured completions-per-second rate and
// returns the (possibly unchanged) batch size to use next, plus
// whether it changed from the previous call.
func (a *Autotuner) Tick(rate float64) (int, bool) {
	if a.Settled() {
		return a.batch, false
	}
	if !a.hasRate {
		a.hasRate = true
		a.lastRate = rate
		return a.batch, false
	}

	if rate < 0.98*a.lastRate {
		a.direction = -a.direction
		if a.level < len(autotuneLevels)-1 {
			a.level++
		} else {
			a.reversalsAtDeepest++
		}
	}

	step := autotuneLevels[a.level]
	factor := step.grow
	if a.direction < 0 {
		factor = step.shrink
	}

	next := align(int(float64(a.batch)*factor), autotuneAlignments[a.level])
	if next < a.min {
		next = a.min
	}
	if next > a.max {
		next = a.max
	}

	changed := next != a.batch
	a.batch = next
	a.lastRate = rate
	return a.batch, changed
}

// align rounds v to the nearest multiple of alignment, falling through
// to the next finer alignment in autotuneAlignments when that would
// round v down to zero: the current level's alignment (16 at level 0,
// 8 at level 1, 1 at level 2) gets finer as exploration narrows.
func align(v, alignment int) int {
	if v < 1 {
		v = 1
	}
	for _, a := range autotuneAlignments {
		if a > alignment {
			continue
		}
		rounded := ((v + a/2) / a) * a
		if rounded > 0 {
			return rounded
		}
	}
	return v
}
