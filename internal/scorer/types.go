// Package scorer implements the deterministic CPU exact scorer: seed
// -> grayscale image -> spectral-quality ScoreResult.
package scorer

import "github.com/davelindo/galleryofbabel/internal/seed"

// ScoreResult is produced by the exact CPU scorer for a single seed.
// All penalties are <= 0; total_score sums alpha_score with the three
// penalties.
type ScoreResult struct {
	Seed                seed.Seed
	AlphaEst            float64
	AlphaScore          float64
	Peakiness           float64
	PeakinessPenalty    float64
	Flatness            float64
	FlatnessPenalty     float64
	NeighborCorr        float64
	NeighborCorrPenalty float64
	TotalScore          float64
}
