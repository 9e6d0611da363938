package histogram

import (
	"context"
	"fmt"

	"github.com/jengzang/world-cell-towers/internal/repository"
	"gonum.org/v1/gonum/floats"
)

// CountSource produces grouped counts over the whole tower table
type CountSource interface {
	CountJoint(ctx context.Context) ([]repository.JointCount, error)
}

// Joint is the radio x range x created count cube
type Joint struct {
	Layout  Layout
	ranges  int
	created int
	counts  []float64
}

// Build counts the full corpus into a joint histogram
func Build(ctx context.Context, src CountSource, layout Layout) (*Joint, error) {
	rows, err := src.CountJoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build joint histogram: %w", err)
	}

	j := &Joint{
		Layout:  layout,
		ranges:  layout.Range.N,
		created: layout.CreatedBuckets(),
	}
	j.counts = make([]float64, len(layout.Radios)*j.ranges*j.created)

	radioIndex := make(map[string]int, len(layout.Radios))
	for i, r := range layout.Radios {
		radioIndex[r] = i
	}
	for _, row := range rows {
		r, ok := radioIndex[row.Radio]
		if !ok || row.RangeBin < 0 || row.RangeBin >= j.ranges || row.CreatedBin < 0 || row.CreatedBin >= j.created {
			continue
		}
		j.counts[j.index(r, row.RangeBin, row.CreatedBin)] += float64(row.Count)
	}
	return j, nil
}

func (j *Joint) index(radio, rng, created int) int {
	return (radio*j.ranges+rng)*j.created + created
}

// At returns the count of one cell
func (j *Joint) At(radio, rng, created int) float64 {
	return j.counts[j.index(radio, rng, created)]
}

// Total is the number of counted towers
func (j *Joint) Total() float64 {
	return floats.Sum(j.counts)
}

func selected(mask []bool, i int) bool {
	return mask == nil || mask[i]
}

func radioMask(radios []int, n int) []bool {
	if radios == nil {
		return nil
	}
	mask := make([]bool, n)
	for _, r := range radios {
		if r >= 0 && r < n {
			mask[r] = true
		}
	}
	return mask
}

// RadioCounts sums over the selected range and created buckets
func (j *Joint) RadioCounts(rangeMask, createdMask []bool) []float64 {
	out := make([]float64, len(j.Layout.Radios))
	for r := range out {
		for i := 0; i < j.ranges; i++ {
			if !selected(rangeMask, i) {
				continue
			}
			for c := 0; c < j.created; c++ {
				if selected(createdMask, c) {
					out[r] += j.At(r, i, c)
				}
			}
		}
	}
	return out
}

// RangeCounts sums over the selected radios and created buckets. A nil
// radio list selects all radios.
func (j *Joint) RangeCounts(radios []int, createdMask []bool) []float64 {
	rm := radioMask(radios, len(j.Layout.Radios))
	out := make([]float64, j.ranges)
	for r := range j.Layout.Radios {
		if !selected(rm, r) {
			continue
		}
		for i := range out {
			for c := 0; c < j.created; c++ {
				if selected(createdMask, c) {
					out[i] += j.At(r, i, c)
				}
			}
		}
	}
	return out
}

// CreatedCounts sums over the selected radios and range buckets
func (j *Joint) CreatedCounts(radios []int, rangeMask []bool) []float64 {
	rm := radioMask(radios, len(j.Layout.Radios))
	out := make([]float64, j.created)
	for r := range j.Layout.Radios {
		if !selected(rm, r) {
			continue
		}
		for i := 0; i < j.ranges; i++ {
			if !selected(rangeMask, i) {
				continue
			}
			for c := range out {
				out[c] += j.At(r, i, c)
			}
		}
	}
	return out
}
