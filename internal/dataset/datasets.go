package dataset

import (
	"context"
	"time"

	"github.com/golang/geo/r2"
	"github.com/jengzang/world-cell-towers/internal/aggregate"
	"github.com/jengzang/world-cell-towers/internal/histogram"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/jengzang/world-cell-towers/internal/spatial"
)

// Published dataset names
const (
	NameTowers             = "cell_towers_ddf"
	NameExtent3857         = "data_3857"
	NameExtent4326         = "data_4326"
	NameCenter3857         = "data_center_3857"
	NameCenter4326         = "data_center_4326"
	NameCreatedBinEdges    = "created_bin_edges"
	NameCreatedBinCenters  = "created_bin_centers"
	NameMinLog10Range      = "min_log10_range"
	NameMaxLog10Range      = "max_log10_range"
	NameTotalRadioCounts   = "total_radio_counts"
	NameTotalRangeCounts   = "total_range_counts"
	NameTotalCreatedCounts = "total_created_counts"
)

// Names lists every dataset a complete publication contains
var Names = []string{
	NameTowers, NameExtent3857, NameExtent4326, NameCenter3857, NameCenter4326,
	NameCreatedBinEdges, NameCreatedBinCenters, NameMinLog10Range, NameMaxLog10Range,
	NameTotalRadioCounts, NameTotalRangeCounts, NameTotalCreatedCounts,
}

// FrameRef points at the published tower table and how to scan it
type FrameRef struct {
	Table      string `json:"table"`
	Rows       int64  `json:"rows"`
	MinID      int64  `json:"minId"`
	MaxID      int64  `json:"maxId"`
	Partitions int    `json:"partitions"`
}

// Split returns the id ranges to scan in parallel
func (f FrameRef) Split() []repository.Partition {
	if f.Rows == 0 {
		return nil
	}
	return aggregate.SplitPartitions(f.MinID, f.MaxID, f.Partitions)
}

// Series is a labelled count vector
type Series[K any] struct {
	Index  []K       `json:"index"`
	Values []float64 `json:"values"`
}

// Frame returns the tower frame reference
func (a *Accessor) Frame(ctx context.Context) (FrameRef, error) {
	var f FrameRef
	err := a.Get(ctx, NameTowers, &f)
	return f, err
}

func (a *Accessor) extent(ctx context.Context, name string) (r2.Rect, error) {
	var corners [][2]float64
	if err := a.Get(ctx, name, &corners); err != nil {
		return r2.EmptyRect(), err
	}
	return spatial.Rect(corners), nil
}

// Extent3857 is the data bounding box in Web Mercator
func (a *Accessor) Extent3857(ctx context.Context) (r2.Rect, error) {
	return a.extent(ctx, NameExtent3857)
}

// Extent4326 is the data bounding box in lon/lat
func (a *Accessor) Extent4326(ctx context.Context) (r2.Rect, error) {
	return a.extent(ctx, NameExtent4326)
}

// Center4326 is the (lon, lat) center of the data
func (a *Accessor) Center4326(ctx context.Context) (models.LonLat, error) {
	var center [][2]float64
	if err := a.Get(ctx, NameCenter4326, &center); err != nil {
		return models.LonLat{}, err
	}
	if len(center) == 0 {
		return models.LonLat{}, nil
	}
	return models.LonLat{Lon: center[0][0], Lat: center[0][1]}, nil
}

// CreatedBins returns the created bucket edges and centers
func (a *Accessor) CreatedBins(ctx context.Context) (edges, centers []time.Time, err error) {
	if err = a.Get(ctx, NameCreatedBinEdges, &edges); err != nil {
		return nil, nil, err
	}
	if err = a.Get(ctx, NameCreatedBinCenters, &centers); err != nil {
		return nil, nil, err
	}
	return edges, centers, nil
}

// RangeLimits returns the published min and max log10(range)
func (a *Accessor) RangeLimits(ctx context.Context) (lo, hi float64, err error) {
	if err = a.Get(ctx, NameMinLog10Range, &lo); err != nil {
		return 0, 0, err
	}
	if err = a.Get(ctx, NameMaxLog10Range, &hi); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// Layout assembles the joint histogram layout from published datasets
func (a *Accessor) Layout(ctx context.Context) (histogram.Layout, error) {
	lo, hi, err := a.RangeLimits(ctx)
	if err != nil {
		return histogram.Layout{}, err
	}
	edges, centers, err := a.CreatedBins(ctx)
	if err != nil {
		return histogram.Layout{}, err
	}
	return histogram.NewLayout(models.RadioCategories, lo, hi, edges, centers), nil
}

// TotalRadioCounts is the unfiltered radio histogram
func (a *Accessor) TotalRadioCounts(ctx context.Context) (Series[string], error) {
	var s Series[string]
	err := a.Get(ctx, NameTotalRadioCounts, &s)
	return s, err
}

// TotalRangeCounts is the unfiltered log10(range) histogram
func (a *Accessor) TotalRangeCounts(ctx context.Context) (Series[float64], error) {
	var s Series[float64]
	err := a.Get(ctx, NameTotalRangeCounts, &s)
	return s, err
}

// TotalCreatedCounts is the unfiltered created histogram
func (a *Accessor) TotalCreatedCounts(ctx context.Context) (Series[time.Time], error) {
	var s Series[time.Time]
	err := a.Get(ctx, NameTotalCreatedCounts, &s)
	return s, err
}
