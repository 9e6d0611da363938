package figure

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/shade"
)

const mapHoverTemplate = "<b>%{customdata[2]}</b><br>" +
	"MCC: %{customdata[3]}<br>" +
	"MNC: %{customdata[4]}<br>" +
	"radio: %{customdata[0]}<br>" +
	"range: %{customdata[1]:,} m<br>" +
	"created: %{customdata[5]}<br>" +
	"status: %{customdata[6]}<br>" +
	"longitude: %{lon:.3f}&deg;<br>" +
	"latitude: %{lat:.3f}&deg;<br>" +
	"<extra></extra>"

// Position is the map camera
type Position struct {
	Zoom    *float64
	Pitch   *float64
	Bearing *float64
	Center  *models.LonLat
}

// DefaultPosition frames the whole dataset
func DefaultPosition(center models.LonLat) Position {
	return Position{
		Zoom:    ptr(0.5),
		Pitch:   ptr(0.0),
		Bearing: ptr(0.0),
		Center:  &center,
	}
}

// MapView is everything the map figure shows. At most one of Markers and
// Image is set; with neither the map is empty.
type MapView struct {
	Token        string
	Position     Position
	Markers      []models.Tower
	Image        string       // PNG data URI
	ImageCorners [][2]float64 // lon/lat, clockwise from top-left
}

// Map builds the scattermapbox figure
func Map(view MapView) Figure {
	trace := Trace{
		Type:          "scattermapbox",
		Lat:           []*float64{nil},
		Lon:           []*float64{nil},
		CustomData:    []any{nil},
		Marker:        &Marker{},
		HoverTemplate: mapHoverTemplate,
	}
	layers := []MapboxLayer{}

	switch {
	case len(view.Markers) > 0:
		trace.Lat = make([]*float64, len(view.Markers))
		trace.Lon = make([]*float64, len(view.Markers))
		codes := make([]int, len(view.Markers))
		custom := make([][]any, len(view.Markers))
		for i, t := range view.Markers {
			trace.Lat[i] = ptr(t.Lat)
			trace.Lon[i] = ptr(t.Lon)
			codes[i] = models.RadioIndex(t.Radio)
			custom[i] = markerCustomData(t)
		}
		trace.CustomData = custom
		trace.Marker = &Marker{
			Color:      codes,
			ColorScale: radioColorScale(),
			CMin:       ptr(0.0),
			CMax:       ptr(float64(len(models.RadioCategories) - 1)),
			Size:       5,
			Opacity:    ptr(0.6),
		}
	case view.Image != "":
		layers = append(layers, MapboxLayer{
			SourceType:  "image",
			Source:      view.Image,
			Coordinates: view.ImageCorners,
		})
	}

	return Figure{
		Data: []Trace{trace},
		Layout: Layout{
			Template:   DefaultTemplate(),
			UIRevision: true,
			Mapbox: &Mapbox{
				Style:       "light",
				AccessToken: view.Token,
				Layers:      layers,
				Zoom:        view.Position.Zoom,
				Pitch:       view.Position.Pitch,
				Bearing:     view.Position.Bearing,
				Center:      view.Position.Center,
			},
			Margin: &Margin{},
			Height: MapHeight,
			Shapes: []Shape{{
				Type: "rect",
				XRef: "paper",
				YRef: "paper",
				X0:   0,
				Y0:   0,
				X1:   1,
				Y1:   1,
				Line: ShapeLine{Width: 2, Color: MapBorderColor},
			}},
		},
	}
}

func radioColorScale() [][2]any {
	n := len(models.RadioCategories)
	scale := make([][2]any, n)
	for i := range models.RadioCategories {
		scale[i] = [2]any{float64(i) / float64(n-1), shade.Hex(shade.RadioColors[i])}
	}
	return scale
}

// markerCustomData is the hover payload:
// radio, range in meters, description, MCC, MNC, created date, status.
func markerCustomData(t models.Tower) []any {
	return []any{
		t.Radio,
		int64(math.Pow(10, t.Log10Range)),
		truncate(orUnknown(t.Description), 25),
		t.MCC,
		t.Net,
		time.Unix(t.Created, 0).UTC().Format("01/02/06"),
		orUnknown(t.Status),
	}
}

func orUnknown(s *string) string {
	if s == nil {
		return "Unknown"
	}
	return *s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
