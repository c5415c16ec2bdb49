package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile returns the empirical q-quantile of data (q in [0,1]).
// data is copied and sorted, since gonum/stat.Quantile requires
// ascending input. With stat.Empirical the result is always one of the
// data points (no interpolation between neighbours); the adaptive
// controllers use it as their target margin/shift.
func Quantile(data []float64, q float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}
