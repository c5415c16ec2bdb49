package scorer

import (
	"math"

	"github.com/davelindo/galleryofbabel/internal/prng"
	"github.com/davelindo/galleryofbabel/internal/seed"
)

// DefaultImageSize is N in the spec's grayscale rendering (must be a
// power of two).
const DefaultImageSize = 128

const (
	eps               = 1e-12
	alphaTargetSlope  = 3.0
	alphaPenaltyConst = -1000.0
	peakinessWeight   = 0.6
	flatnessWeight    = 8.0
	flatnessFloor     = 0.15
	neighborWeight    = 5.0
	neighborFloor     = 0.4
	annulusLoFrac     = 0.15
	annulusHiFrac     = 0.95
	fitHiFrac         = 0.90
	minFitPoints      = 6
)

// Exact renders s's N×N image and computes its ScoreResult. N must be
// a power of two; callers that don't care pass DefaultImageSize.
func Exact(s seed.Seed, n int) ScoreResult {
	raw, normalized, mean := renderImage(s, n)
	_ = mean

	complexImg := make([][]complex128, n)
	for i := 0; i < n; i++ {
		row := make([]complex128, n)
		for j := 0; j < n; j++ {
			row[j] = complex(normalized[i][j], 0)
		}
		complexImg[i] = row
	}

	transformed := fft2D(complexImg)
	power := make([][]float64, n)
	for i := 0; i < n; i++ {
		power[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			re := real(transformed[i][j])
			im := imag(transformed[i][j])
			power[i][j] = re*re + im*im
		}
	}

	half := n / 2
	shifted := make([][]float64, n)
	for i := 0; i < n; i++ {
		shifted[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			shifted[i][j] = power[(i+half)%n][(j+half)%n]
		}
	}

	rMaxF := math.Sqrt2 * float64(n) / 2
	R := int(math.Floor(rMaxF)) + 1
	rMax := R - 1
	const rMin = 1

	sumPerR := make([]float64, R)
	countPerR := make([]int, R)
	bucket := make([][]float64, R)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dx := float64(i - half)
			dy := float64(j - half)
			r := int(math.Floor(math.Sqrt(dx*dx + dy*dy)))
			if r < R {
				sumPerR[r] += shifted[i][j]
				countPerR[r]++
				bucket[r] = append(bucket[r], shifted[i][j])
			}
		}
	}

	meanPower := make([]float64, R)
	for r := 0; r < R; r++ {
		if countPerR[r] > 0 {
			meanPower[r] = sumPerR[r] / float64(countPerR[r])
		} else {
			meanPower[r] = math.NaN()
		}
	}

	alpha := fitAlpha(meanPower, rMin, rMax)

	var alphaScore float64
	if !math.IsNaN(alpha) && !math.IsInf(alpha, 0) {
		alphaScore = -math.Abs(alpha - alphaTargetSlope)
	} else {
		alphaScore = alphaPenaltyConst
	}

	loR := int(math.Ceil(annulusLoFrac * float64(rMax)))
	hiR := int(math.Floor(annulusHiFrac * float64(rMax)))
	if loR < 0 {
		loR = 0
	}
	if hiR > rMax {
		hiR = rMax
	}

	var annulus []float64
	for r := loR; r <= hiR; r++ {
		annulus = append(annulus, bucket[r]...)
	}

	maxV := annulusMax(annulus)
	medV := quickselectMedian(annulus)
	peakiness := math.Log10((maxV + eps) / (medV + eps))
	peakinessPenalty := -peakinessWeight * peakiness

	geoMean := geometricMean(annulus)
	arithMean := arithmeticMean(annulus)
	flatness := (geoMean + eps) / (arithMean + eps)
	flatnessPenalty := -flatnessWeight * math.Max(0, flatness-flatnessFloor)

	neighborCorr := neighborCorrelation(normalized, n)
	neighborCorrPenalty := -neighborWeight * math.Max(0, neighborFloor-neighborCorr)

	total := alphaScore + peakinessPenalty + flatnessPenalty + neighborCorrPenalty

	_ = raw
	return ScoreResult{
		Seed:                s,
		AlphaEst:            alpha,
		AlphaScore:          alphaScore,
		Peakiness:           peakiness,
		PeakinessPenalty:    peakinessPenalty,
		Flatness:            flatness,
		FlatnessPenalty:     flatnessPenalty,
		NeighborCorr:        neighborCorr,
		NeighborCorrPenalty: neighborCorrPenalty,
		TotalScore:          total,
	}
}

// renderImage draws n*n PRNG samples scaled to [0,255), then returns
// both the raw samples and the mean-centered, 255-divided image used
// for the FFT and neighbor-correlation steps.
func renderImage(s seed.Seed, n int) (raw [][]float64, normalized [][]float64, mean float64) {
	gen := prng.New(uint64(s))
	raw = make([][]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			v := float64(gen.Next()) * 255.0
			row[j] = v
			sum += v
		}
		raw[i] = row
	}
	mean = sum / float64(n*n)

	normalized = make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = (raw[i][j] - mean) / 255.0
		}
		normalized[i] = row
	}
	return raw, normalized, mean
}

// fitAlpha performs an OLS fit of log(meanPower[r]) against -log(r)
// over r in [rMin, floor(fitHiFrac*rMax)], using only finite positive
// power values. Returns NaN if fewer than minFitPoints qualify.
func fitAlpha(meanPower []float64, rMin, rMax int) float64 {
	fitHiR := int(math.Floor(fitHiFrac * float64(rMax)))

	var xs, ys []float64
	for r := rMin; r <= fitHiR && r < len(meanPower); r++ {
		mp := meanPower[r]
		if mp > 0 && !math.IsNaN(mp) && !math.IsInf(mp, 0) {
			xs = append(xs, math.Log(float64(r)))
			ys = append(ys, math.Log(mp))
		}
	}
	if len(xs) < minFitPoints {
		return math.NaN()
	}

	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var cov, varX float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
	}
	slope := cov / varX
	return -slope
}

func annulusMax(v []float64) float64 {
	m := math.Inf(-1)
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}

func arithmeticMean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func geometricMean(v []float64) float64 {
	var logSum float64
	for _, x := range v {
		logSum += math.Log(x + eps)
	}
	return math.Exp(logSum / float64(len(v)))
}

// quickselectMedian returns the median of v via Hoare-style
// quickselect, averaging the two middle order statistics on an even
// count. v is not mutated (a scratch copy is selected over).
func quickselectMedian(v []float64) float64 {
	n := len(v)
	scratch := make([]float64, n)
	copy(scratch, v)

	if n%2 == 1 {
		return quickselect(scratch, n/2)
	}
	lo := quickselect(scratch, n/2-1)
	// second quickselect on the same scratch: after the first call,
	// scratch is partially partitioned around n/2-1, so rerun on a
	// fresh copy to select n/2 cleanly.
	scratch2 := make([]float64, n)
	copy(scratch2, v)
	hi := quickselect(scratch2, n/2)
	return 0.5 * (lo + hi)
}

// quickselect returns the k-th smallest element (0-indexed) of a,
// mutating a in place.
func quickselect(a []float64, k int) float64 {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi)
		switch {
		case k == p:
			return a[k]
		case k < p:
			hi = p - 1
		default:
			lo = p + 1
		}
	}
	return a[lo]
}

func partition(a []float64, lo, hi int) int {
	pivot := a[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if a[j] < pivot {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	return cov / math.Sqrt(varX*varY)
}

// neighborCorrelation averages the Pearson correlation of horizontally
// and vertically adjacent pixel pairs on the normalized image.
func neighborCorrelation(img [][]float64, n int) float64 {
	var hx, hy []float64
	for i := 0; i < n; i++ {
		for j := 0; j < n-1; j++ {
			hx = append(hx, img[i][j])
			hy = append(hy, img[i][j+1])
		}
	}
	var vx, vy []float64
	for i := 0; i < n-1; i++ {
		for j := 0; j < n; j++ {
			vx = append(vx, img[i][j])
			vy = append(vy, img[i+1][j])
		}
	}
	return 0.5 * (pearson(hx, hy) + pearson(vx, vy))
}
