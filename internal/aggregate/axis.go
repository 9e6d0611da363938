package aggregate

import (
	"math"
	"sort"
)

// Binner maps a value to a bucket index
type Binner interface {
	Index(v float64) (int, bool)
	Len() int
}

// Axis splits [Lo, Hi] into N equal buckets. Hi belongs to the last bucket.
type Axis struct {
	N  int
	Lo float64
	Hi float64
}

func (a Axis) Len() int { return a.N }

// Index returns the bucket holding v, or false when v is outside the axis.
func (a Axis) Index(v float64) (int, bool) {
	if a.N <= 0 || math.IsNaN(v) || v < a.Lo || v > a.Hi {
		return 0, false
	}
	if a.Hi == a.Lo {
		return 0, true
	}
	i := int(math.Floor((v - a.Lo) / (a.Hi - a.Lo) * float64(a.N)))
	if i >= a.N {
		i = a.N - 1
	}
	return i, true
}

// Centers returns the midpoint of every bucket
func (a Axis) Centers() []float64 {
	centers := make([]float64, a.N)
	width := (a.Hi - a.Lo) / float64(a.N)
	for i := range centers {
		centers[i] = a.Lo + width*(float64(i)+0.5)
	}
	return centers
}

// Edges are ascending bucket boundaries; bucket i is [e[i], e[i+1]) and the
// last bucket also holds the final edge.
type Edges []float64

func (e Edges) Len() int {
	if len(e) < 2 {
		return 0
	}
	return len(e) - 1
}

func (e Edges) Index(v float64) (int, bool) {
	n := e.Len()
	if n == 0 || math.IsNaN(v) || v < e[0] || v > e[n] {
		return 0, false
	}
	i := sort.SearchFloat64s(e, v)
	if i < len(e) && e[i] == v {
		if i == n {
			return n - 1, true
		}
		return i, true
	}
	return i - 1, true
}
