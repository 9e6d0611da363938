package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jengzang/world-cell-towers/internal/figure"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/sirupsen/logrus"
)

// Render modes of the map
const (
	RenderNone    = "none"
	RenderMarkers = "markers"
	RenderRaster  = "raster"
)

// Outputs are the five figures produced for one state
type Outputs struct {
	Indicator        figure.Figure `json:"indicator"`
	Map              figure.Figure `json:"map"`
	RadioHistogram   figure.Figure `json:"radioHistogram"`
	RangeHistogram   figure.Figure `json:"rangeHistogram"`
	CreatedHistogram figure.Figure `json:"createdHistogram"`
	Count            int64         `json:"count"`
	RenderMode       string        `json:"renderMode"`
}

// Response pairs the effective inputs with the outputs they produced
type Response struct {
	Inputs  models.DashboardInputs `json:"inputs"`
	Outputs Outputs                `json:"outputs"`
}

// Updater recomputes every output from a state
type Updater interface {
	Update(ctx context.Context, state State) (Outputs, error)
}

// Slot is one resettable input
type Slot int

const (
	SlotMap Slot = iota
	SlotRadio
	SlotRange
	SlotCreated
)

// ResetBindings lists the inputs each button clears
var ResetBindings = map[string][]Slot{
	models.TriggerResetMap:     {SlotMap},
	models.TriggerClearRadio:   {SlotRadio},
	models.TriggerClearRange:   {SlotRange},
	models.TriggerClearCreated: {SlotCreated},
	models.TriggerClearAll:     {SlotMap, SlotRadio, SlotRange, SlotCreated},
}

// ErrUnknownTrigger is returned for an event whose trigger no control emits
var ErrUnknownTrigger = errors.New("unknown trigger")

// selectionTriggers are raised by the map and the histograms themselves
var selectionTriggers = map[string]bool{
	models.TriggerRelayout:         true,
	models.TriggerRadioSelection:   true,
	models.TriggerRangeSelection:   true,
	models.TriggerCreatedSelection: true,
}

// CheckTrigger accepts the empty trigger of the initial render, the
// selection triggers and the reset buttons.
func CheckTrigger(trigger string) error {
	if trigger == "" || selectionTriggers[trigger] {
		return nil
	}
	if _, ok := ResetBindings[trigger]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownTrigger, trigger)
}

// ApplyReset clears the inputs bound to trigger
func ApplyReset(trigger string, in models.DashboardInputs) models.DashboardInputs {
	for _, slot := range ResetBindings[trigger] {
		switch slot {
		case SlotMap:
			in.RelayoutData = nil
		case SlotRadio:
			in.RadioSelection = nil
		case SlotRange:
			in.RangeSelection = nil
		case SlotCreated:
			in.CreatedSelection = nil
		}
	}
	return in
}

// Dispatcher runs one update at a time, in arrival order
type Dispatcher struct {
	mu      sync.Mutex
	updater Updater
	log     *logrus.Entry
}

// NewDispatcher creates a dispatcher around updater
func NewDispatcher(updater Updater, log *logrus.Entry) *Dispatcher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Dispatcher{updater: updater, log: log.WithField("component", "dispatcher")}
}

// Dispatch applies the event's reset bindings, parses the resulting inputs
// and recomputes the outputs.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.DashboardEvent) (*Response, error) {
	if err := CheckTrigger(event.Trigger); err != nil {
		return nil, err
	}
	inputs := ApplyReset(event.Trigger, event.Inputs)
	state, err := ParseState(inputs)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.updater.Update(ctx, state)
	if err != nil {
		return nil, err
	}
	d.log.WithFields(logrus.Fields{
		"trigger": event.Trigger,
		"count":   out.Count,
		"mode":    out.RenderMode,
	}).Debug("dashboard updated")

	return &Response{Inputs: inputs, Outputs: out}, nil
}
