package aggregate

import (
	"context"
	"fmt"

	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Scanner streams the points of one partition
type Scanner func(ctx context.Context, part repository.Partition, fn func(models.TowerPoint)) error

// Points rasterizes every scanned point onto canvas, one goroutine per
// partition, and returns the merged categorical grid. Points outside the
// canvas are dropped.
func Points(ctx context.Context, parts []repository.Partition, scan Scanner, canvas Canvas, categories int) (*CategoricalGrid, error) {
	grids := make([]*CategoricalGrid, len(parts))

	g, ctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			grid := NewCategoricalGrid(canvas.Width, canvas.Height, categories)
			err := scan(ctx, part, func(p models.TowerPoint) {
				if p.Radio < 0 || p.Radio >= categories {
					return
				}
				col, row, ok := canvas.Pixel(p.X, p.Y)
				if !ok {
					return
				}
				grid.Add(col, row, p.Radio)
			})
			if err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
			grids[i] = grid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewCategoricalGrid(canvas.Width, canvas.Height, categories)
	for _, grid := range grids {
		merged.Merge(grid)
	}
	return merged, nil
}

// SplitPartitions divides [minID, maxID] into at most n contiguous ranges.
func SplitPartitions(minID, maxID int64, n int) []repository.Partition {
	if maxID < minID {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	span := maxID - minID + 1
	if int64(n) > span {
		n = int(span)
	}
	size := span / int64(n)
	rem := span % int64(n)

	parts := make([]repository.Partition, 0, n)
	lo := minID
	for i := 0; i < n; i++ {
		hi := lo + size - 1
		if int64(i) < rem {
			hi++
		}
		parts = append(parts, repository.Partition{MinID: lo, MaxID: hi})
		lo = hi + 1
	}
	return parts
}
