package figure

import (
	"encoding/json"

	"github.com/jengzang/world-cell-towers/internal/models"
)

// Palette
const (
	BgColor              = "#f3f3f1" // mapbox light land color
	BarBgColor           = "#b0bec5"
	BarUnselectedColor   = "#78909c"
	BarColor             = "#546e7a"
	BarSelectedColor     = "#37474f"
	BarUnselectedOpacity = 0.8
	IndicatorFontColor   = "#263238"
	MapBorderColor       = "#B0BEC5"
	IndicatorHeight      = 150
	MapHeight            = 500
	HistogramHeight      = 300
	RadioHistogramHeight = 150
)

var (
	selectionCleared = json.RawMessage("false")
	selectionActive  = json.RawMessage("null")
)

// selectedPoints is false when a panel has no selection, which draws
// every bar as selected, and null otherwise.
func selectedPoints(cleared bool) json.RawMessage {
	if cleared {
		return selectionCleared
	}
	return selectionActive
}

// Figure is a Plotly figure description
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one Plotly trace. Only the attributes the dashboard uses exist.
type Trace struct {
	Type           string          `json:"type"`
	X              any             `json:"x,omitempty"`
	Y              any             `json:"y,omitempty"`
	Lat            []*float64      `json:"lat,omitempty"`
	Lon            []*float64      `json:"lon,omitempty"`
	Value          *int64          `json:"value,omitempty"`
	Number         *Number         `json:"number,omitempty"`
	CustomData     any             `json:"customdata,omitempty"`
	Marker         *Marker         `json:"marker,omitempty"`
	Orientation    string          `json:"orientation,omitempty"`
	SelectedPoints json.RawMessage `json:"selectedpoints,omitempty"`
	Selected       *MarkerStyle    `json:"selected,omitempty"`
	Unselected     *MarkerStyle    `json:"unselected,omitempty"`
	ShowLegend     *bool           `json:"showlegend,omitempty"`
	HoverInfo      string          `json:"hoverinfo,omitempty"`
	HoverTemplate  string          `json:"hovertemplate,omitempty"`
}

// Number styles an indicator value
type Number struct {
	Font Font `json:"font"`
}

// Font is a text style
type Font struct {
	Color string `json:"color,omitempty"`
}

// Marker styles bars and points
type Marker struct {
	Color      any      `json:"color,omitempty"`
	ColorScale [][2]any `json:"colorscale,omitempty"`
	CMin       *float64 `json:"cmin,omitempty"`
	CMax       *float64 `json:"cmax,omitempty"`
	Size       float64  `json:"size,omitempty"`
	Opacity    *float64 `json:"opacity,omitempty"`
}

// MarkerStyle wraps a marker for selected/unselected states
type MarkerStyle struct {
	Marker Marker `json:"marker"`
}

// Layout is a Plotly figure layout
type Layout struct {
	Template          *Template `json:"template,omitempty"`
	Height            int       `json:"height,omitempty"`
	Margin            *Margin   `json:"margin,omitempty"`
	BarMode           string    `json:"barmode,omitempty"`
	DragMode          string    `json:"dragmode,omitempty"`
	SelectDirection   string    `json:"selectdirection,omitempty"`
	ClickMode         string    `json:"clickmode,omitempty"`
	HoverMode         string    `json:"hovermode,omitempty"`
	SelectionRevision bool      `json:"selectionrevision,omitempty"`
	UIRevision        bool      `json:"uirevision,omitempty"`
	XAxis             *Axis     `json:"xaxis,omitempty"`
	YAxis             *Axis     `json:"yaxis,omitempty"`
	Mapbox            *Mapbox   `json:"mapbox,omitempty"`
	Shapes            []Shape   `json:"shapes,omitempty"`
}

// Template carries the shared background colors
type Template struct {
	Layout TemplateLayout `json:"layout"`
}

// TemplateLayout is the layout part of a template
type TemplateLayout struct {
	PaperBgColor string `json:"paper_bgcolor"`
	PlotBgColor  string `json:"plot_bgcolor"`
}

// DefaultTemplate paints the figure with the map land color
func DefaultTemplate() *Template {
	return &Template{Layout: TemplateLayout{PaperBgColor: BgColor, PlotBgColor: BgColor}}
}

// Margin in pixels
type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// Title is an axis title
type Title struct {
	Text string `json:"text"`
}

// Axis is a cartesian axis
type Axis struct {
	Type          string    `json:"type,omitempty"`
	Title         *Title    `json:"title,omitempty"`
	Range         []float64 `json:"range,omitempty"`
	AutoMargin    bool      `json:"automargin,omitempty"`
	Visible       *bool     `json:"visible,omitempty"`
	CategoryOrder string    `json:"categoryorder,omitempty"`
	CategoryArray []string  `json:"categoryarray,omitempty"`
	Side          string    `json:"side,omitempty"`
}

// Mapbox configures the map subplot
type Mapbox struct {
	Style       string         `json:"style"`
	AccessToken string         `json:"accesstoken"`
	Layers      []MapboxLayer  `json:"layers"`
	Zoom        *float64       `json:"zoom"`
	Pitch       *float64       `json:"pitch,omitempty"`
	Bearing     *float64       `json:"bearing,omitempty"`
	Center      *models.LonLat `json:"center"`
}

// MapboxLayer is an image overlay in lon/lat corners
type MapboxLayer struct {
	SourceType  string       `json:"sourcetype"`
	Source      string       `json:"source"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// Shape is a layout shape
type Shape struct {
	Type string    `json:"type"`
	XRef string    `json:"xref"`
	YRef string    `json:"yref"`
	X0   float64   `json:"x0"`
	Y0   float64   `json:"y0"`
	X1   float64   `json:"x1"`
	Y1   float64   `json:"y1"`
	Line ShapeLine `json:"line"`
}

// ShapeLine is a shape border
type ShapeLine struct {
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

func ptr[T any](v T) *T {
	return &v
}
