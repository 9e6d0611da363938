package stats

import "sort"

// EqualizedCDF returns the histogram-equalization transfer function of
// values: the fraction of values less than or equal to v. Values not in
// the input are ranked by where they would fall.
func EqualizedCDF(values []float64) func(v float64) float64 {
	if len(values) == 0 {
		return func(float64) float64 { return 0 }
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	return func(v float64) float64 {
		// count of elements <= v
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
		return float64(i) / n
	}
}
