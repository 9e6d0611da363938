package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/geo/r2"
	"github.com/jengzang/world-cell-towers/internal/aggregate"
	"github.com/jengzang/world-cell-towers/internal/dashboard"
	"github.com/jengzang/world-cell-towers/internal/dataset"
	"github.com/jengzang/world-cell-towers/internal/figure"
	"github.com/jengzang/world-cell-towers/internal/histogram"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/jengzang/world-cell-towers/internal/shade"
	"github.com/jengzang/world-cell-towers/internal/spatial"
	"github.com/sirupsen/logrus"
)

// Raster sizes of the map overlay
const (
	CanvasWidth  = 700
	CanvasHeight = 400
	ImageWidth   = 1400
	ImageHeight  = 800
	MinAlpha     = 100
)

// CrossfilterConfig tunes the cross-filter update
type CrossfilterConfig struct {
	MapboxToken string
	MarkerLimit int // below this count the map draws individual markers
}

// CrossfilterService recomputes every dashboard output for a selection state
type CrossfilterService struct {
	datasets *dataset.Accessor
	towers   *repository.TowerRepository
	cfg      CrossfilterConfig
	log      *logrus.Entry
}

// NewCrossfilterService creates a new cross-filter service
func NewCrossfilterService(datasets *dataset.Accessor, towers *repository.TowerRepository, cfg CrossfilterConfig, log *logrus.Entry) *CrossfilterService {
	if cfg.MarkerLimit <= 0 {
		cfg.MarkerLimit = 5000
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CrossfilterService{
		datasets: datasets,
		towers:   towers,
		cfg:      cfg,
		log:      log.WithField("component", "crossfilter"),
	}
}

// view is the resolved map viewport
type view struct {
	box3857  r2.Rect
	box4326  r2.Rect
	position figure.Position
	empty    bool
}

func (s *CrossfilterService) resolveView(ctx context.Context, vp *dashboard.Viewport) (view, error) {
	if vp == nil {
		extent3857, err := s.datasets.Extent3857(ctx)
		if err != nil {
			return view{}, err
		}
		extent4326, err := s.datasets.Extent4326(ctx)
		if err != nil {
			return view{}, err
		}
		center, err := s.datasets.Center4326(ctx)
		if err != nil {
			return view{}, err
		}
		return view{
			box3857:  extent3857,
			box4326:  extent4326,
			position: figure.DefaultPosition(center),
		}, nil
	}

	extent3857, err := s.datasets.Extent3857(ctx)
	if err != nil {
		return view{}, err
	}
	extent4326, err := s.datasets.Extent4326(ctx)
	if err != nil {
		return view{}, err
	}
	position := figure.Position{Zoom: vp.Zoom, Center: vp.Center}
	clamped, ok := spatial.Clamp(vp.LonLat, extent4326)
	if !ok {
		return view{position: position, empty: true}, nil
	}
	return view{
		box3857:  spatial.ProjectClamped(clamped, extent4326, extent3857),
		box4326:  clamped,
		position: position,
	}, nil
}

func radioNames(radios []int) []string {
	if radios == nil {
		return nil
	}
	names := make([]string, 0, len(radios))
	for _, k := range radios {
		names = append(names, models.RadioCategories[k])
	}
	return names
}

// Update recomputes the indicator, map and three histograms. Any dataset
// failure aborts the whole update.
func (s *CrossfilterService) Update(ctx context.Context, state dashboard.State) (dashboard.Outputs, error) {
	start := time.Now()

	frame, err := s.datasets.Frame(ctx)
	if err != nil {
		return dashboard.Outputs{}, err
	}
	v, err := s.resolveView(ctx, state.Viewport)
	if err != nil {
		return dashboard.Outputs{}, err
	}
	layout, err := s.datasets.Layout(ctx)
	if err != nil {
		return dashboard.Outputs{}, err
	}

	rangeMask := layout.RangeMask(state.Range)
	createdMask := layout.CreatedMask(state.Created)

	filter := repository.TowerFilter{Box: &v.box3857, Radios: radioNames(state.Radios)}
	if state.Range != nil {
		span := histogram.Span(rangeMask)
		filter.RangeBins = &span
	}
	if state.Created != nil {
		span := histogram.Span(createdMask)
		filter.CreatedBins = &span
	}

	var grid *aggregate.CategoricalGrid
	var count int64
	if !v.empty {
		canvas := aggregate.Canvas{Width: CanvasWidth, Height: CanvasHeight, Bounds: v.box3857}
		scan := func(ctx context.Context, part repository.Partition, fn func(models.TowerPoint)) error {
			return s.towers.ScanPartition(ctx, filter, part, fn)
		}
		grid, err = aggregate.Points(ctx, frame.Split(), scan, canvas, len(models.RadioCategories))
		if err != nil {
			return dashboard.Outputs{}, fmt.Errorf("failed to aggregate towers: %w", err)
		}
		if state.Radios != nil {
			grid.Select(state.Radios)
		}
		count = grid.Total()
	}

	mapView := figure.MapView{Token: s.cfg.MapboxToken, Position: v.position}
	mode := dashboard.RenderNone
	switch {
	case count == 0:
	case count < int64(s.cfg.MarkerLimit):
		mode = dashboard.RenderMarkers
		mapView.Markers, err = s.towers.Find(ctx, filter, s.cfg.MarkerLimit)
		if err != nil {
			return dashboard.Outputs{}, err
		}
	default:
		mode = dashboard.RenderRaster
		img := shade.Resize(shade.Categorical(grid, shade.RadioColors, MinAlpha), ImageWidth, ImageHeight)
		mapView.Image, err = shade.DataURI(img)
		if err != nil {
			return dashboard.Outputs{}, err
		}
		mapView.ImageCorners = spatial.ImageCorners(v.box4326)
	}

	joint, err := histogram.Build(ctx, s.towers, layout)
	if err != nil {
		return dashboard.Outputs{}, err
	}

	totalRadio, err := s.datasets.TotalRadioCounts(ctx)
	if err != nil {
		return dashboard.Outputs{}, err
	}
	totalRange, err := s.datasets.TotalRangeCounts(ctx)
	if err != nil {
		return dashboard.Outputs{}, err
	}
	totalCreated, err := s.datasets.TotalCreatedCounts(ctx)
	if err != nil {
		return dashboard.Outputs{}, err
	}

	out := dashboard.Outputs{
		Indicator: figure.Indicator(count),
		Map:       figure.Map(mapView),
		RadioHistogram: figure.RadioHistogram(totalRadio.Index, totalRadio.Values,
			joint.RadioCounts(rangeMask, createdMask), state.Radios == nil),
		RangeHistogram: figure.RangeHistogram(totalRange.Index, totalRange.Values,
			joint.RangeCounts(state.Radios, createdMask), state.Range == nil),
		CreatedHistogram: figure.CreatedHistogram(totalCreated.Index, totalCreated.Values,
			joint.CreatedCounts(state.Radios, rangeMask), state.Created == nil),
		Count:      count,
		RenderMode: mode,
	}

	s.log.WithFields(logrus.Fields{
		"count":   count,
		"mode":    mode,
		"elapsed": time.Since(start),
	}).Info("update complete")
	return out, nil
}
