package models

import "encoding/json"

// Dashboard input slots and reset buttons
const (
	TriggerRelayout         = "map-graph.relayoutData"
	TriggerRadioSelection   = "radio-histogram.selectedData"
	TriggerRangeSelection   = "range-histogram.selectedData"
	TriggerCreatedSelection = "created-histogram.selectedData"

	TriggerResetMap     = "reset-map"
	TriggerClearAll     = "clear-all"
	TriggerClearRadio   = "clear-radio"
	TriggerClearRange   = "clear-range"
	TriggerClearCreated = "clear-created"
)

// LonLat is a map position as sent by the mapbox front end
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// MapboxDerived carries the corner coordinates of the visible map
type MapboxDerived struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

// RelayoutData is the map's relayout payload
type RelayoutData struct {
	Derived *MapboxDerived `json:"mapbox._derived,omitempty"`
	Zoom    *float64       `json:"mapbox.zoom,omitempty"`
	Center  *LonLat        `json:"mapbox.center,omitempty"`
}

// SelectedPoint is one point of a chart selection. Values stay raw because
// the created chart sends dates and the others send numbers or strings.
type SelectedPoint struct {
	X json.RawMessage `json:"x,omitempty"`
	Y json.RawMessage `json:"y,omitempty"`
}

// SelectionRange is the brush extent of a box selection
type SelectionRange struct {
	X []json.RawMessage `json:"x,omitempty"`
	Y []json.RawMessage `json:"y,omitempty"`
}

// SelectedData is a chart selection payload
type SelectedData struct {
	Points []SelectedPoint `json:"points"`
	Range  *SelectionRange `json:"range,omitempty"`
}

// DashboardInputs is the full input state the front end holds
type DashboardInputs struct {
	RelayoutData     *RelayoutData `json:"relayoutData"`
	RadioSelection   *SelectedData `json:"radioSelectedData"`
	RangeSelection   *SelectedData `json:"rangeSelectedData"`
	CreatedSelection *SelectedData `json:"createdSelectedData"`
}

// DashboardEvent is one UI event plus the inputs at the time it fired
type DashboardEvent struct {
	Trigger string          `json:"trigger"`
	Inputs  DashboardInputs `json:"inputs"`
}
