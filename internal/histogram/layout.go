package histogram

import (
	"time"

	"github.com/jengzang/world-cell-towers/internal/aggregate"
	"github.com/jengzang/world-cell-towers/internal/repository"
)

// RangeBins is the number of log10(range) buckets
const RangeBins = 20

// Interval is an inclusive [Lo, Hi] selection. Created intervals are in
// unix seconds.
type Interval struct {
	Lo float64
	Hi float64
}

// Contains reports whether v lies in the interval
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lo && v <= iv.Hi
}

// Layout describes the three axes of the joint histogram
type Layout struct {
	Radios         []string
	Range          aggregate.Axis
	CreatedEdges   []time.Time
	CreatedCenters []time.Time
}

// NewLayout builds a layout over the published log-range limits and
// created buckets.
func NewLayout(radios []string, minLog10Range, maxLog10Range float64, edges, centers []time.Time) Layout {
	return Layout{
		Radios:         radios,
		Range:          aggregate.Axis{N: RangeBins, Lo: minLog10Range, Hi: maxLog10Range},
		CreatedEdges:   edges,
		CreatedCenters: centers,
	}
}

// RangeCenters are the bucket labels of the range axis
func (l Layout) RangeCenters() []float64 {
	return l.Range.Centers()
}

// CreatedAxis bins unix seconds into created buckets
func (l Layout) CreatedAxis() aggregate.Edges {
	edges := make(aggregate.Edges, len(l.CreatedEdges))
	for i, e := range l.CreatedEdges {
		edges[i] = float64(e.Unix())
	}
	return edges
}

// CreatedBuckets is the number of created buckets
func (l Layout) CreatedBuckets() int {
	return l.CreatedAxis().Len()
}

// RangeMask marks range buckets whose center is inside iv. A nil interval
// selects every bucket.
func (l Layout) RangeMask(iv *Interval) []bool {
	centers := l.RangeCenters()
	mask := make([]bool, len(centers))
	for i, c := range centers {
		mask[i] = iv == nil || iv.Contains(c)
	}
	return mask
}

// CreatedMask marks created buckets whose center is inside iv
func (l Layout) CreatedMask(iv *Interval) []bool {
	n := l.CreatedBuckets()
	mask := make([]bool, n)
	for i := 0; i < n; i++ {
		mask[i] = iv == nil || iv.Contains(float64(l.CreatedCenters[i].Unix()))
	}
	return mask
}

// Span converts a contiguous mask into the bucket index span it covers.
// An all-false mask yields an empty span.
func Span(mask []bool) repository.BinSpan {
	span := repository.BinSpan{Lo: 0, Hi: -1}
	first := true
	for i, m := range mask {
		if !m {
			continue
		}
		if first {
			span.Lo = i
			first = false
		}
		span.Hi = i
	}
	return span
}

// CreatedBins returns quarter-aligned bucket edges from startYear to
// endYear, one bucket per quartersPerBin quarters, and the label of each
// bucket. When quartersPerBin does not divide the quarter count the last
// bucket is shorter and still ends on endYear.
func CreatedBins(startYear, endYear, quartersPerBin int) (edges, centers []time.Time) {
	if quartersPerBin <= 0 {
		quartersPerBin = 4
	}
	var quarters []time.Time
	for q := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC); !q.After(time.Date(endYear, time.January, 1, 0, 0, 0, 0, time.UTC)); q = q.AddDate(0, 3, 0) {
		quarters = append(quarters, q)
	}
	if len(quarters) == 0 {
		return nil, nil
	}

	for i := 0; i < len(quarters); i += quartersPerBin {
		edges = append(edges, quarters[i])
	}
	if last := quarters[len(quarters)-1]; !edges[len(edges)-1].Equal(last) {
		edges = append(edges, last)
	}

	for i := 0; i+1 < len(edges); i++ {
		full := i*quartersPerBin+quartersPerBin < len(quarters) && quarters[i*quartersPerBin+quartersPerBin].Equal(edges[i+1])
		if full && quartersPerBin%2 == 0 {
			centers = append(centers, quarters[i*quartersPerBin+quartersPerBin/2])
		} else {
			centers = append(centers, edges[i].Add(edges[i+1].Sub(edges[i])/2))
		}
	}
	return edges, centers
}
