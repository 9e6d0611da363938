package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jengzang/world-cell-towers/internal/models"
)

func decodeInputs(t *testing.T, raw string) models.DashboardInputs {
	t.Helper()
	var in models.DashboardInputs
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatal(err)
	}
	return in
}

func TestParseStateEmpty(t *testing.T) {
	s, err := ParseState(models.DashboardInputs{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Viewport != nil || s.Radios != nil || s.Range != nil || s.Created != nil {
		t.Errorf("empty inputs should leave every filter unset: %+v", s)
	}
}

func TestParseStateViewport(t *testing.T) {
	in := decodeInputs(t, `{
		"relayoutData": {
			"mapbox._derived": {"coordinates": [[-10, 50], [20, 50], [20, 30], [-10, 30]]},
			"mapbox.zoom": 3.5,
			"mapbox.center": {"lon": 5, "lat": 40}
		}
	}`)
	s, err := ParseState(in)
	if err != nil {
		t.Fatal(err)
	}
	if s.Viewport == nil {
		t.Fatal("viewport not parsed")
	}
	v := s.Viewport
	if v.LonLat.X.Lo != -10 || v.LonLat.X.Hi != 20 || v.LonLat.Y.Lo != 30 || v.LonLat.Y.Hi != 50 {
		t.Errorf("unexpected box %v", v.LonLat)
	}
	if *v.Zoom != 3.5 || v.Center.Lon != 5 {
		t.Errorf("unexpected position %v %v", *v.Zoom, v.Center)
	}

	// relayout without derived coordinates (e.g. autosize) leaves the map unset
	s, err = ParseState(decodeInputs(t, `{"relayoutData": {"autosize": true}}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Viewport != nil {
		t.Error("relayout without coordinates should not set a viewport")
	}
}

func TestParseStateRadios(t *testing.T) {
	in := decodeInputs(t, `{"radioSelectedData": {"points": [{"y": "GSM"}, {"y": "UMTS"}, {"y": "GSM"}]}}`)
	s, err := ParseState(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Radios) != 2 || s.Radios[0] != 0 || s.Radios[1] != 2 {
		t.Errorf("unexpected radios %v", s.Radios)
	}

	s, err = ParseState(decodeInputs(t, `{"radioSelectedData": {"points": [{"y": "WIFI"}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Radios != nil {
		t.Errorf("unknown radios should leave the filter unset: %v", s.Radios)
	}

	_, err = ParseState(decodeInputs(t, `{"radioSelectedData": {"points": [{"y": 3}]}}`))
	if !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestParseStateInvertedIntervals(t *testing.T) {
	ordered, err := ParseState(decodeInputs(t, `{
		"rangeSelectedData": {"points": [], "range": {"x": [1.5, 3.25]}},
		"createdSelectedData": {"points": [], "range": {"x": ["2008-01-01", "2012-06-30 12:00:00"]}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	inverted, err := ParseState(decodeInputs(t, `{
		"rangeSelectedData": {"points": [], "range": {"x": [3.25, 1.5]}},
		"createdSelectedData": {"points": [], "range": {"x": ["2012-06-30 12:00:00", "2008-01-01"]}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if *ordered.Range != *inverted.Range || *ordered.Created != *inverted.Created {
		t.Errorf("inverted intervals differ: %v %v / %v %v",
			*ordered.Range, *inverted.Range, *ordered.Created, *inverted.Created)
	}
	if ordered.Range.Lo != 1.5 || ordered.Range.Hi != 3.25 {
		t.Errorf("unexpected range %v", *ordered.Range)
	}
	want := float64(time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC).Unix())
	if ordered.Created.Lo != want {
		t.Errorf("%v != %v", ordered.Created.Lo, want)
	}
}

func TestParseStateIntervalFromPoints(t *testing.T) {
	s, err := ParseState(decodeInputs(t, `{"rangeSelectedData": {"points": [{"x": 2.1}, {"x": 1.1}, {"x": 1.6}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Range == nil || s.Range.Lo != 1.1 || s.Range.Hi != 2.1 {
		t.Errorf("unexpected range %v", s.Range)
	}

	s, err = ParseState(decodeInputs(t, `{"createdSelectedData": {"points": []}}`))
	if err != nil {
		t.Fatal(err)
	}
	if s.Created != nil {
		t.Errorf("empty selection should leave the filter unset")
	}

	_, err = ParseState(decodeInputs(t, `{"createdSelectedData": {"points": [], "range": {"x": ["soon", "later"]}}}`))
	if !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestParseDateMilliseconds(t *testing.T) {
	v, err := parseDate(json.RawMessage(`1199145600000`))
	if err != nil {
		t.Fatal(err)
	}
	if v != 1199145600 {
		t.Errorf("%v != 1199145600", v)
	}
}

func TestApplyReset(t *testing.T) {
	full := decodeInputs(t, `{
		"relayoutData": {"mapbox._derived": {"coordinates": [[0, 0], [1, 1]]}},
		"radioSelectedData": {"points": [{"y": "LTE"}]},
		"rangeSelectedData": {"points": [{"x": 1}]},
		"createdSelectedData": {"points": [{"x": "2010-01-01"}]}
	}`)

	tests := []struct {
		trigger                     string
		mapSet, radio, rng, created bool
	}{
		{models.TriggerResetMap, false, true, true, true},
		{models.TriggerClearRadio, true, false, true, true},
		{models.TriggerClearRange, true, true, false, true},
		{models.TriggerClearCreated, true, true, true, false},
		{models.TriggerClearAll, false, false, false, false},
		{models.TriggerRelayout, true, true, true, true},
		{"", true, true, true, true},
	}
	for _, tt := range tests {
		got := ApplyReset(tt.trigger, full)
		if (got.RelayoutData != nil) != tt.mapSet ||
			(got.RadioSelection != nil) != tt.radio ||
			(got.RangeSelection != nil) != tt.rng ||
			(got.CreatedSelection != nil) != tt.created {
			t.Errorf("%q: unexpected inputs %+v", tt.trigger, got)
		}
	}
	if full.RelayoutData == nil {
		t.Error("ApplyReset must not modify its argument")
	}
}

type recordingUpdater struct {
	mu      sync.Mutex
	active  int
	overlap bool
	states  []State
}

func (u *recordingUpdater) Update(_ context.Context, s State) (Outputs, error) {
	u.mu.Lock()
	u.active++
	if u.active > 1 {
		u.overlap = true
	}
	u.states = append(u.states, s)
	u.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	u.mu.Lock()
	u.active--
	u.mu.Unlock()
	return Outputs{Count: 7, RenderMode: RenderMarkers}, nil
}

func TestDispatcherSerializesUpdates(t *testing.T) {
	u := &recordingUpdater{}
	d := NewDispatcher(u, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Dispatch(context.Background(), models.DashboardEvent{}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if u.overlap {
		t.Error("updates overlapped")
	}
	if len(u.states) != 8 {
		t.Errorf("%v != 8", len(u.states))
	}
}

func TestDispatcherClearAll(t *testing.T) {
	u := &recordingUpdater{}
	d := NewDispatcher(u, nil)

	event := models.DashboardEvent{
		Trigger: models.TriggerClearAll,
		Inputs: decodeInputs(t, `{
			"relayoutData": {"mapbox._derived": {"coordinates": [[0, 0], [1, 1]]}},
			"radioSelectedData": {"points": [{"y": "LTE"}]}
		}`),
	}
	resp, err := d.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Inputs.RelayoutData != nil || resp.Inputs.RadioSelection != nil {
		t.Errorf("clear-all should echo cleared inputs: %+v", resp.Inputs)
	}
	s := u.states[0]
	if s.Viewport != nil || s.Radios != nil {
		t.Errorf("clear-all should reach the updater as an empty state: %+v", s)
	}
	if resp.Outputs.Count != 7 {
		t.Errorf("%v != 7", resp.Outputs.Count)
	}
}

func TestDispatcherRejectsMalformedInput(t *testing.T) {
	d := NewDispatcher(&recordingUpdater{}, nil)
	event := models.DashboardEvent{
		Inputs: decodeInputs(t, `{"rangeSelectedData": {"points": [], "range": {"x": [true, false]}}}`),
	}
	if _, err := d.Dispatch(context.Background(), event); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("expected ErrInvalidSelection, got %v", err)
	}
}

func TestCheckTrigger(t *testing.T) {
	for _, trigger := range []string{
		"",
		models.TriggerRelayout,
		models.TriggerRadioSelection,
		models.TriggerRangeSelection,
		models.TriggerCreatedSelection,
		models.TriggerResetMap,
		models.TriggerClearAll,
	} {
		if err := CheckTrigger(trigger); err != nil {
			t.Errorf("%q: %v", trigger, err)
		}
	}
	if err := CheckTrigger("reset-everything"); !errors.Is(err, ErrUnknownTrigger) {
		t.Errorf("expected ErrUnknownTrigger, got %v", err)
	}
}

func TestDispatcherRejectsUnknownTrigger(t *testing.T) {
	u := &recordingUpdater{}
	d := NewDispatcher(u, nil)
	event := models.DashboardEvent{Trigger: "map-graph.clickData"}
	if _, err := d.Dispatch(context.Background(), event); !errors.Is(err, ErrUnknownTrigger) {
		t.Errorf("expected ErrUnknownTrigger, got %v", err)
	}
	if len(u.states) != 0 {
		t.Errorf("%v != 0", len(u.states))
	}
}
