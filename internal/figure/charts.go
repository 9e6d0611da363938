package figure

import (
	"encoding/json"
	"math"
	"time"

	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/shade"
	"gonum.org/v1/gonum/floats"
)

var histogramMargin = &Margin{L: 10, R: 10, T: 10, B: 10}

// Indicator shows the selected tower count
func Indicator(n int64) Figure {
	return Figure{
		Data: []Trace{{
			Type:   "indicator",
			Value:  ptr(n),
			Number: &Number{Font: Font{Color: IndicatorFontColor}},
		}},
		Layout: Layout{
			Template: DefaultTemplate(),
			Height:   IndicatorHeight,
			Margin:   histogramMargin,
		},
	}
}

// RadioHistogram draws horizontal bars per radio. totals is the published
// unfiltered series; selected holds filtered counts in
// models.RadioCategories order.
func RadioHistogram(totalIndex []string, totalValues, selected []float64, cleared bool) Figure {
	const hover = "%{x:,.0}<extra></extra>"
	sp := selectedPoints(cleared)

	colors := make([]string, len(totalIndex))
	fg := make([]float64, len(totalIndex))
	for i, radio := range totalIndex {
		k := models.RadioIndex(radio)
		if k < 0 {
			colors[i] = BarBgColor
			continue
		}
		colors[i] = shade.Hex(shade.RadioColors[k])
		if k < len(selected) {
			fg[i] = selected[k]
		}
	}

	maxCount := 1.0
	if len(totalValues) > 0 {
		maxCount = math.Max(floats.Max(totalValues), 1)
	}

	return Figure{
		Data: []Trace{
			{
				Type:           "bar",
				X:              totalValues,
				Y:              totalIndex,
				Marker:         &Marker{Color: BarBgColor},
				Orientation:    "h",
				SelectedPoints: sp,
				Selected:       &MarkerStyle{Marker: Marker{Opacity: ptr(1.0), Color: BarBgColor}},
				Unselected:     &MarkerStyle{Marker: Marker{Opacity: ptr(1.0), Color: BarBgColor}},
				ShowLegend:     ptr(false),
				HoverTemplate:  hover,
			},
			{
				Type:           "bar",
				X:              fg,
				Y:              totalIndex,
				Orientation:    "h",
				Marker:         &Marker{Color: colors},
				SelectedPoints: sp,
				Unselected:     &MarkerStyle{Marker: Marker{Opacity: ptr(0.2)}},
				HoverTemplate:  hover,
				ShowLegend:     ptr(false),
			},
		},
		Layout: Layout{
			Template:          DefaultTemplate(),
			BarMode:           "overlay",
			DragMode:          "select",
			SelectDirection:   "v",
			ClickMode:         "event+select",
			SelectionRevision: true,
			Height:            RadioHistogramHeight,
			Margin:            &Margin{L: 10, R: 80, T: 10, B: 10},
			XAxis: &Axis{
				Type:       "log",
				Title:      &Title{Text: "Count"},
				Range:      []float64{-1, math.Log10(maxCount * 2)},
				AutoMargin: true,
			},
			YAxis: &Axis{
				Type:          "category",
				CategoryOrder: "array",
				CategoryArray: models.RadioCategories,
				Side:          "left",
				AutoMargin:    true,
			},
		},
	}
}

func rangeCustomData(centers []float64) []int64 {
	out := make([]int64, len(centers))
	for i, c := range centers {
		out[i] = int64(math.Pow(10, c))
	}
	return out
}

// RangeHistogram draws the log10(range) histogram
func RangeHistogram(centers, totalValues, selected []float64, cleared bool) Figure {
	const hover = "count: %{y:,.0}<br>" +
		"range: %{customdata:,} m<br>" +
		"log<sub>10</sub>(range): %{x:.2f}<br>" +
		"<extra></extra>"
	sp := selectedPoints(cleared)
	custom := rangeCustomData(centers)

	return Figure{
		Data: []Trace{
			{
				Type:           "bar",
				X:              centers,
				Y:              totalValues,
				CustomData:     custom,
				Marker:         &Marker{Color: BarBgColor},
				HoverTemplate:  hover,
				SelectedPoints: sp,
				Unselected:     &MarkerStyle{Marker: Marker{Opacity: ptr(1.0)}},
				HoverInfo:      "y",
				ShowLegend:     ptr(false),
			},
			foregroundBars(centers, selected, custom, hover, sp),
		},
		Layout: Layout{
			Template:          DefaultTemplate(),
			BarMode:           "overlay",
			SelectionRevision: true,
			Height:            HistogramHeight,
			Margin:            histogramMargin,
			XAxis:             &Axis{AutoMargin: true, Title: &Title{Text: "log<sub>10</sub>(range)"}},
			YAxis:             &Axis{Type: "log", AutoMargin: true, Title: &Title{Text: "Count"}},
			SelectDirection:   "h",
			HoverMode:         "closest",
			DragMode:          "select",
		},
	}
}

// CreatedHistogram draws the construction date histogram
func CreatedHistogram(centers []time.Time, totalValues, selected []float64, cleared bool) Figure {
	const hover = "count: %{y:,.0}<br>year: %{x|%Y}<br><extra></extra>"
	sp := selectedPoints(cleared)

	dates := make([]string, len(centers))
	for i, c := range centers {
		dates[i] = c.UTC().Format("2006-01-02")
	}

	return Figure{
		Data: []Trace{
			{
				Type:           "bar",
				X:              dates,
				Y:              totalValues,
				Marker:         &Marker{Color: BarBgColor},
				SelectedPoints: sp,
				HoverTemplate:  hover,
				Unselected:     &MarkerStyle{Marker: Marker{Opacity: ptr(1.0)}},
				HoverInfo:      "y",
				ShowLegend:     ptr(false),
			},
			foregroundBars(dates, selected, nil, hover, sp),
		},
		Layout: Layout{
			Template:          DefaultTemplate(),
			BarMode:           "overlay",
			SelectionRevision: true,
			Height:            HistogramHeight,
			Margin:            histogramMargin,
			XAxis:             &Axis{Title: &Title{Text: "Date"}, AutoMargin: true},
			YAxis:             &Axis{Title: &Title{Text: "Count"}, Type: "log", AutoMargin: true},
			SelectDirection:   "h",
			DragMode:          "select",
			HoverMode:         "closest",
		},
	}
}

func foregroundBars(x any, y []float64, custom any, hover string, sp json.RawMessage) Trace {
	return Trace{
		Type:           "bar",
		X:              x,
		Y:              y,
		CustomData:     custom,
		Marker:         &Marker{Color: BarColor},
		HoverTemplate:  hover,
		Selected:       &MarkerStyle{Marker: Marker{Color: BarSelectedColor, Opacity: ptr(1.0)}},
		Unselected:     &MarkerStyle{Marker: Marker{Color: BarUnselectedColor, Opacity: ptr(BarUnselectedOpacity)}},
		SelectedPoints: sp,
		HoverInfo:      "x+y",
		ShowLegend:     ptr(false),
	}
}
