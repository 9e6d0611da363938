package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jengzang/world-cell-towers/internal/aggregate"
	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/dataset"
	"github.com/jengzang/world-cell-towers/internal/histogram"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/jengzang/world-cell-towers/internal/spatial"
	"github.com/sirupsen/logrus"
)

// ErrNoTowers is returned when a source has no publishable row
var ErrNoTowers = errors.New("no publishable towers")

// PublishConfig controls bucket layout and table partitioning
type PublishConfig struct {
	StartYear      int
	EndYear        int
	QuartersPerBin int
	Partitions     int
	BatchSize      int
}

// DefaultPublishConfig buckets construction dates yearly from 2003 to 2020
func DefaultPublishConfig() PublishConfig {
	return PublishConfig{
		StartYear:      2003,
		EndYear:        2020,
		QuartersPerBin: 4,
		Partitions:     8,
		BatchSize:      5000,
	}
}

// PublishSummary reports what a publication wrote
type PublishSummary struct {
	Rows          int64
	Skipped       int64
	MinLog10Range float64
	MaxLog10Range float64
	Datasets      []string
}

// PublishService loads towers into the cluster and publishes the derived
// dataset namespace.
type PublishService struct {
	client   *cluster.Client
	towers   *repository.TowerRepository
	datasets *repository.DatasetRepository
	cfg      PublishConfig
	log      *logrus.Entry
}

// NewPublishService creates a new publish service
func NewPublishService(client *cluster.Client, towers *repository.TowerRepository, datasets *repository.DatasetRepository, cfg PublishConfig, log *logrus.Entry) *PublishService {
	def := DefaultPublishConfig()
	if cfg.StartYear == 0 {
		cfg.StartYear = def.StartYear
	}
	if cfg.EndYear == 0 {
		cfg.EndYear = def.EndYear
	}
	if cfg.QuartersPerBin <= 0 {
		cfg.QuartersPerBin = def.QuartersPerBin
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = def.Partitions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PublishService{
		client:   client,
		towers:   towers,
		datasets: datasets,
		cfg:      cfg,
		log:      log.WithField("component", "publisher"),
	}
}

// jointCounter accumulates the joint histogram while rows are written
type jointCounter map[repository.JointCount]int64

func (c jointCounter) CountJoint(context.Context) ([]repository.JointCount, error) {
	out := make([]repository.JointCount, 0, len(c))
	for k, n := range c {
		k.Count = n
		out = append(out, k)
	}
	return out, nil
}

// Publish replaces the tower table and the whole dataset namespace in one
// transaction, then announces the publication.
func (s *PublishService) Publish(ctx context.Context, src TowerSource) (*PublishSummary, error) {
	start := time.Now()
	edges, centers := histogram.CreatedBins(s.cfg.StartYear, s.cfg.EndYear, s.cfg.QuartersPerBin)
	createdAxis := histogram.Layout{CreatedEdges: edges}.CreatedAxis()

	valid := func(t RawTower) bool {
		if models.RadioIndex(t.Radio) < 0 || !(t.Range > 0) {
			return false
		}
		_, ok := createdAxis.Index(float64(t.Created))
		return ok
	}

	// Pass 1: log-range limits.
	summary := &PublishSummary{MinLog10Range: math.Inf(1), MaxLog10Range: math.Inf(-1)}
	err := src.Towers(ctx, func(t RawTower) error {
		if !valid(t) {
			summary.Skipped++
			return nil
		}
		lr := math.Log10(t.Range)
		summary.MinLog10Range = math.Min(summary.MinLog10Range, lr)
		summary.MaxLog10Range = math.Max(summary.MaxLog10Range, lr)
		summary.Rows++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	if summary.Rows == 0 {
		return nil, ErrNoTowers
	}

	layout := histogram.NewLayout(models.RadioCategories, summary.MinLog10Range, summary.MaxLog10Range, edges, centers)
	counts := jointCounter{}
	var xMin, yMin, xMax, yMax = math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)

	err = s.client.Transaction(ctx, func(tx *sql.Tx) error {
		if err := s.datasets.DeleteAll(ctx, tx); err != nil {
			return err
		}
		if err := s.towers.DeleteAll(ctx, tx); err != nil {
			return err
		}

		// Pass 2: project, bin and insert.
		var id int64
		batch := make([]models.Tower, 0, s.cfg.BatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := s.towers.InsertBatch(ctx, tx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			return nil
		}

		err := src.Towers(ctx, func(raw RawTower) error {
			if !valid(raw) {
				return nil
			}
			id++
			t := s.tower(id, raw, layout, createdAxis)
			counts[repository.JointCount{Radio: t.Radio, RangeBin: t.RangeBin, CreatedBin: t.CreatedBin}]++
			xMin, xMax = math.Min(xMin, t.X3857), math.Max(xMax, t.X3857)
			yMin, yMax = math.Min(yMin, t.Y3857), math.Max(yMax, t.Y3857)

			batch = append(batch, t)
			if len(batch) >= s.cfg.BatchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := flush(); err != nil {
			return err
		}
		if id != summary.Rows {
			return fmt.Errorf("source changed between passes: %d rows then %d", summary.Rows, id)
		}
		// the frame reference promises ids 1..Rows
		stored, minID, maxID, err := s.towers.IDRange(ctx, tx)
		if err != nil {
			return err
		}
		if stored != id || minID != 1 || maxID != id {
			return fmt.Errorf("tower table holds %d rows with ids %d..%d, expected 1..%d", stored, minID, maxID, id)
		}

		joint, err := histogram.Build(ctx, counts, layout)
		if err != nil {
			return err
		}
		if joint.Total() != float64(id) {
			return fmt.Errorf("joint histogram counts %v towers, expected %d", joint.Total(), id)
		}

		extent3857 := [][2]float64{{xMin, yMin}, {xMax, yMax}}
		center3857 := [][2]float64{{(xMin + xMax) / 2, (yMin + yMax) / 2}}
		frame := dataset.FrameRef{
			Table:      "cell_towers",
			Rows:       id,
			MinID:      1,
			MaxID:      id,
			Partitions: s.cfg.Partitions,
		}

		payloads := map[string]any{
			dataset.NameTowers:            frame,
			dataset.NameExtent3857:        extent3857,
			dataset.NameExtent4326:        spatial.ToLonLat(extent3857),
			dataset.NameCenter3857:        center3857,
			dataset.NameCenter4326:        spatial.ToLonLat(center3857),
			dataset.NameCreatedBinEdges:   edges,
			dataset.NameCreatedBinCenters: centers,
			dataset.NameMinLog10Range:     summary.MinLog10Range,
			dataset.NameMaxLog10Range:     summary.MaxLog10Range,
			dataset.NameTotalRadioCounts: dataset.Series[string]{
				Index: models.RadioCategories, Values: joint.RadioCounts(nil, nil),
			},
			dataset.NameTotalRangeCounts: dataset.Series[float64]{
				Index: layout.RangeCenters(), Values: joint.RangeCounts(nil, nil),
			},
			dataset.NameTotalCreatedCounts: dataset.Series[time.Time]{
				Index: centers, Values: joint.CreatedCounts(nil, nil),
			},
		}

		now := time.Now().Unix()
		for _, name := range dataset.Names {
			payload, err := json.Marshal(payloads[name])
			if err != nil {
				return fmt.Errorf("failed to encode dataset %s: %w", name, err)
			}
			if err := s.datasets.Put(ctx, tx, name, payload, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish: %w", err)
	}

	if err := s.client.Announce(ctx); err != nil {
		s.log.WithError(err).Warn("publication not announced")
	}

	summary.Datasets = dataset.Names
	s.log.WithFields(logrus.Fields{
		"rows":    summary.Rows,
		"skipped": summary.Skipped,
		"elapsed": time.Since(start),
	}).Info("datasets published")
	return summary, nil
}

func (s *PublishService) tower(id int64, raw RawTower, layout histogram.Layout, createdAxis aggregate.Edges) models.Tower {
	xy := spatial.ToMercator([][2]float64{{raw.Lon, raw.Lat}})[0]
	lr := math.Log10(raw.Range)
	rangeBin, _ := layout.Range.Index(lr)
	createdBin, _ := createdAxis.Index(float64(raw.Created))
	return models.Tower{
		ID:          id,
		Radio:       raw.Radio,
		X3857:       xy[0],
		Y3857:       xy[1],
		Lon:         raw.Lon,
		Lat:         raw.Lat,
		Log10Range:  lr,
		RangeBin:    rangeBin,
		Created:     raw.Created,
		CreatedBin:  createdBin,
		Description: raw.Description,
		Status:      raw.Status,
		MCC:         raw.MCC,
		Net:         raw.Net,
	}
}
