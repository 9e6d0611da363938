package shade

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/jengzang/world-cell-towers/internal/aggregate"
	"github.com/jengzang/world-cell-towers/internal/stats"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
)

// RadioColors maps each radio category to its display color, in
// models.RadioCategories order.
var RadioColors = []color.RGBA{
	colornames.Green,  // UMTS
	colornames.Red,    // LTE
	colornames.Blue,   // GSM
	colornames.Orange, // CDMA
}

// Hex formats c as #rrggbb
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Categorical shades a categorical grid. Each pixel takes the count
// weighted mean of its category colors. Alpha is histogram equalized over
// non-empty pixels into [minAlpha, 255]. Empty pixels stay transparent.
// The image is flipped so that grid row 0 is the bottom line.
func Categorical(g *aggregate.CategoricalGrid, colors []color.RGBA, minAlpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))

	totals := make([]float64, 0, g.Width*g.Height)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if t := pixelTotal(g.At(col, row)); t > 0 {
				totals = append(totals, t)
			}
		}
	}
	if len(totals) == 0 {
		return img
	}

	cdf := stats.EqualizedCDF(totals)
	lo, hi := 1.0, 0.0
	for _, t := range totals {
		v := cdf(t)
		lo = min(lo, v)
		hi = max(hi, v)
	}

	span := 255 - float64(minAlpha)
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			counts := g.At(col, row)
			total := pixelTotal(counts)
			if total == 0 {
				continue
			}

			var r, gr, b float64
			for k, n := range counts {
				if n == 0 || k >= len(colors) {
					continue
				}
				w := float64(n) / total
				r += w * float64(colors[k].R)
				gr += w * float64(colors[k].G)
				b += w * float64(colors[k].B)
			}

			alpha := 255.0
			if hi > lo {
				alpha = float64(minAlpha) + (cdf(total)-lo)/(hi-lo)*span
			}
			img.SetNRGBA(col, g.Height-1-row, color.NRGBA{
				R: uint8(r + 0.5),
				G: uint8(gr + 0.5),
				B: uint8(b + 0.5),
				A: uint8(alpha + 0.5),
			})
		}
	}
	return img
}

func pixelTotal(counts []uint32) float64 {
	var t float64
	for _, n := range counts {
		t += float64(n)
	}
	return t
}

// Resize scales img to width x height with bicubic interpolation
func Resize(img image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// DataURI encodes img as a base64 PNG data URI
func DataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
