// Package stats holds the small numeric helpers shared by the engine.
package stats

import (
	"math"
	"sort"
)

// Pearson returns the correlation coefficient of x and y. It returns 0 when
// the inputs differ in length, are empty, or either side has zero variance.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}
	fn := float64(n)
	num := fn*sumXY - sumX*sumY
	den := math.Sqrt((fn*sumX2 - sumX*sumX) * (fn*sumY2 - sumY*sumY))
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

// CompetitionRanks ranks values from highest (1) to lowest. Equal values
// share the best rank of their group, so {9, 7, 7, 3} ranks as {1, 2, 2, 4}.
func CompetitionRanks(values []float64) []int {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	first := make(map[float64]int, len(sorted))
	for i, v := range sorted {
		if _, ok := first[v]; !ok {
			first[v] = i + 1
		}
	}

	ranks := make([]int, len(values))
	for i, v := range values {
		ranks[i] = first[v]
	}
	return ranks
}
