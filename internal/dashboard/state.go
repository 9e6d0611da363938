package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r2"
	"github.com/jengzang/world-cell-towers/internal/histogram"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/jengzang/world-cell-towers/internal/spatial"
)

// ErrInvalidSelection marks a selection payload with the wrong shape
var ErrInvalidSelection = errors.New("invalid selection")

// Viewport is the visible map area as reported by the client
type Viewport struct {
	LonLat r2.Rect
	Zoom   *float64
	Center *models.LonLat
}

// State is an immutable snapshot of the four filters. Nil fields are unset.
type State struct {
	Viewport *Viewport
	Radios   []int               // indices into models.RadioCategories, ascending
	Range    *histogram.Interval // log10(range)
	Created  *histogram.Interval // unix seconds
}

// ParseState converts raw front-end inputs into a State. Inverted brush
// intervals are swapped.
func ParseState(in models.DashboardInputs) (State, error) {
	var s State

	if rd := in.RelayoutData; rd != nil && rd.Derived != nil && len(rd.Derived.Coordinates) > 0 {
		s.Viewport = &Viewport{
			LonLat: spatial.Rect(rd.Derived.Coordinates),
			Zoom:   rd.Zoom,
			Center: rd.Center,
		}
	}

	if in.RadioSelection != nil {
		radios, err := parseRadios(in.RadioSelection)
		if err != nil {
			return State{}, err
		}
		s.Radios = radios
	}

	if in.RangeSelection != nil {
		iv, err := parseInterval(in.RangeSelection, parseNumber)
		if err != nil {
			return State{}, fmt.Errorf("range: %w", err)
		}
		s.Range = iv
	}

	if in.CreatedSelection != nil {
		iv, err := parseInterval(in.CreatedSelection, parseDate)
		if err != nil {
			return State{}, fmt.Errorf("created: %w", err)
		}
		s.Created = iv
	}

	return s, nil
}

// parseRadios returns the distinct known radios of the selected points.
// A selection with no known radio is treated as unset.
func parseRadios(sel *models.SelectedData) ([]int, error) {
	seen := make(map[int]bool)
	for _, p := range sel.Points {
		if len(p.Y) == 0 {
			continue
		}
		var radio string
		if err := json.Unmarshal(p.Y, &radio); err != nil {
			return nil, fmt.Errorf("radio: %w: %s", ErrInvalidSelection, p.Y)
		}
		if k := models.RadioIndex(radio); k >= 0 {
			seen[k] = true
		}
	}
	if len(seen) == 0 {
		return nil, nil
	}
	radios := make([]int, 0, len(seen))
	for k := range seen {
		radios = append(radios, k)
	}
	sort.Ints(radios)
	return radios, nil
}

// parseInterval reads the brush range, falling back to the extent of the
// selected points when the selection was made by clicking.
func parseInterval(sel *models.SelectedData, parse func(json.RawMessage) (float64, error)) (*histogram.Interval, error) {
	var values []float64
	if sel.Range != nil && len(sel.Range.X) >= 2 {
		for _, raw := range sel.Range.X[:2] {
			v, err := parse(raw)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	} else {
		for _, p := range sel.Points {
			if len(p.X) == 0 {
				continue
			}
			v, err := parse(p.X)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	iv := histogram.Interval{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, v := range values {
		iv.Lo = math.Min(iv.Lo, v)
		iv.Hi = math.Max(iv.Hi, v)
	}
	return &iv, nil
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: not a number: %s", ErrInvalidSelection, raw)
}

var dateLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01",
	"2006",
}

// parseDate reads a date as plotly sends it and returns unix seconds.
// Numbers are milliseconds since the epoch.
func parseDate(raw json.RawMessage) (float64, error) {
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return ms / 1000, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("%w: not a date: %s", ErrInvalidSelection, raw)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return float64(t.UnixNano()) / 1e9, nil
		}
	}
	return 0, fmt.Errorf("%w: not a date: %q", ErrInvalidSelection, s)
}
