package spatial

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ToMercator converts (lon, lat) pairs in EPSG:4326 to (x, y) in EPSG:3857.
// Order is preserved.
func ToMercator(coords [][2]float64) [][2]float64 {
	return transform(coords, project.WGS84.ToMercator)
}

// ToLonLat converts (x, y) pairs in EPSG:3857 to (lon, lat) in EPSG:4326.
func ToLonLat(coords [][2]float64) [][2]float64 {
	return transform(coords, project.Mercator.ToWGS84)
}

func transform(coords [][2]float64, proj orb.Projection) [][2]float64 {
	out := make([][2]float64, len(coords))
	for i, c := range coords {
		p := proj(orb.Point{c[0], c[1]})
		out[i] = [2]float64{p[0], p[1]}
	}
	return out
}

// Rect builds the axis-aligned box spanning the given corners.
func Rect(corners [][2]float64) r2.Rect {
	if len(corners) == 0 {
		return r2.EmptyRect()
	}
	pts := make([]r2.Point, len(corners))
	for i, c := range corners {
		pts[i] = r2.Point{X: c[0], Y: c[1]}
	}
	return r2.RectFromPoints(pts...)
}

// Corners returns the [[xmin, ymin], [xmax, ymax]] form of r.
func Corners(r r2.Rect) [][2]float64 {
	return [][2]float64{{r.X.Lo, r.Y.Lo}, {r.X.Hi, r.Y.Hi}}
}

// Clamp restricts view to extent. ok is false when they do not overlap.
func Clamp(view, extent r2.Rect) (r2.Rect, bool) {
	clamped := r2.Rect{
		X: r1.Interval{Lo: max(view.X.Lo, extent.X.Lo), Hi: min(view.X.Hi, extent.X.Hi)},
		Y: r1.Interval{Lo: max(view.Y.Lo, extent.Y.Lo), Hi: min(view.Y.Hi, extent.Y.Hi)},
	}
	if clamped.X.IsEmpty() || clamped.Y.IsEmpty() {
		return r2.EmptyRect(), false
	}
	return clamped, true
}

// ImageCorners lists the corners of a lon/lat box in the order mapbox
// image layers expect: top-left, top-right, bottom-right, bottom-left.
func ImageCorners(r r2.Rect) [][2]float64 {
	return [][2]float64{
		{r.X.Lo, r.Y.Hi},
		{r.X.Hi, r.Y.Hi},
		{r.X.Hi, r.Y.Lo},
		{r.X.Lo, r.Y.Lo},
	}
}

// ToMercatorRect projects a lon/lat box corner by corner.
func ToMercatorRect(r r2.Rect) r2.Rect {
	return Rect(ToMercator(Corners(r)))
}

// ProjectClamped projects a lon/lat box already clamped to extent4326.
// Sides that were clamped take the matching side of extent3857 as is, since
// extent4326 is itself unprojected from extent3857 and projecting it again
// can land a few ULPs inside the points that define the extent.
func ProjectClamped(clamped, extent4326, extent3857 r2.Rect) r2.Rect {
	box := ToMercatorRect(clamped)
	if clamped.X.Lo <= extent4326.X.Lo {
		box.X.Lo = extent3857.X.Lo
	}
	if clamped.X.Hi >= extent4326.X.Hi {
		box.X.Hi = extent3857.X.Hi
	}
	if clamped.Y.Lo <= extent4326.Y.Lo {
		box.Y.Lo = extent3857.Y.Lo
	}
	if clamped.Y.Hi >= extent4326.Y.Hi {
		box.Y.Hi = extent3857.Y.Hi
	}
	return box
}
