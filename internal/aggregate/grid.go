package aggregate

import (
	"github.com/golang/geo/r2"
)

// Canvas is a fixed-size raster laid over a rectangle in data space.
// Row 0 is the bottom of the rectangle.
type Canvas struct {
	Width  int
	Height int
	Bounds r2.Rect
}

func (c Canvas) xAxis() Axis { return Axis{N: c.Width, Lo: c.Bounds.X.Lo, Hi: c.Bounds.X.Hi} }
func (c Canvas) yAxis() Axis { return Axis{N: c.Height, Lo: c.Bounds.Y.Lo, Hi: c.Bounds.Y.Hi} }

// Pixel returns the column and row that hold (x, y)
func (c Canvas) Pixel(x, y float64) (col, row int, ok bool) {
	col, ok = c.xAxis().Index(x)
	if !ok {
		return 0, 0, false
	}
	row, ok = c.yAxis().Index(y)
	return col, row, ok
}

// CategoricalGrid counts points per pixel and category
type CategoricalGrid struct {
	Width      int
	Height     int
	Categories int
	counts     []uint32
}

// NewCategoricalGrid allocates an empty grid
func NewCategoricalGrid(width, height, categories int) *CategoricalGrid {
	return &CategoricalGrid{
		Width:      width,
		Height:     height,
		Categories: categories,
		counts:     make([]uint32, width*height*categories),
	}
}

func (g *CategoricalGrid) offset(col, row int) int {
	return (row*g.Width + col) * g.Categories
}

// Add counts one point of category k at (col, row)
func (g *CategoricalGrid) Add(col, row, k int) {
	g.counts[g.offset(col, row)+k]++
}

// At returns the per-category counts of one pixel. The slice aliases the grid.
func (g *CategoricalGrid) At(col, row int) []uint32 {
	o := g.offset(col, row)
	return g.counts[o : o+g.Categories]
}

// Merge adds other into g. Both grids must share dimensions.
func (g *CategoricalGrid) Merge(other *CategoricalGrid) {
	for i, v := range other.counts {
		g.counts[i] += v
	}
}

// Select zeroes every category not in keep
func (g *CategoricalGrid) Select(keep []int) {
	mask := make([]bool, g.Categories)
	for _, k := range keep {
		if k >= 0 && k < g.Categories {
			mask[k] = true
		}
	}
	for i := range g.counts {
		if !mask[i%g.Categories] {
			g.counts[i] = 0
		}
	}
}

// Total is the number of points in the grid
func (g *CategoricalGrid) Total() int64 {
	var total int64
	for _, v := range g.counts {
		total += int64(v)
	}
	return total
}
