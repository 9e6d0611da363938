package dataset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/sirupsen/logrus"
)

type memStore struct {
	mu    sync.Mutex
	data  map[string]string
	calls int
	err   error
	// onMiss runs after a lookup of an unpublished name
	onMiss func()
}

func (s *memStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	v, ok := s.data[name]
	onMiss := s.onMiss
	s.mu.Unlock()

	if !ok {
		if onMiss != nil {
			onMiss()
		}
		return nil, fmt.Errorf("%s: %w", name, repository.ErrNotPublished)
	}
	return []byte(v), nil
}

func (s *memStore) put(name, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = v
}

func init() {
	logrus.SetLevel(logrus.WarnLevel)
}

func TestGetPublished(t *testing.T) {
	store := &memStore{data: map[string]string{NameMinLog10Range: "0.25"}}
	a := NewAccessor(store, nil, time.Second, nil)

	var v float64
	if err := a.Get(context.Background(), NameMinLog10Range, &v); err != nil {
		t.Fatal(err)
	}
	if v != 0.25 {
		t.Errorf("%v != 0.25", v)
	}
}

func TestGetWaitsForPublication(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	notifier := cluster.NewBroadcaster()
	a := NewAccessor(store, notifier, 6*time.Second, nil)

	go func() {
		time.Sleep(150 * time.Millisecond)
		store.put(NameMaxLog10Range, "4.5")
		notifier.Announce(context.Background())
	}()

	start := time.Now()
	var v float64
	if err := a.Get(context.Background(), NameMaxLog10Range, &v); err != nil {
		t.Fatal(err)
	}
	if v != 4.5 {
		t.Errorf("%v != 4.5", v)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("publication did not wake the accessor: %v", elapsed)
	}
}

func TestGetSeesAnnouncementDuringRead(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	notifier := cluster.NewBroadcaster()
	store.onMiss = func() {
		// publication commits right after the read missed it
		store.onMiss = nil
		store.put(NameMinLog10Range, "1.5")
		notifier.Announce(context.Background())
	}
	a := NewAccessor(store, notifier, 6*time.Second, nil)

	start := time.Now()
	var v float64
	if err := a.Get(context.Background(), NameMinLog10Range, &v); err != nil {
		t.Fatal(err)
	}
	if v != 1.5 {
		t.Errorf("%v != 1.5", v)
	}
	// the first backoff interval is about 100ms
	if elapsed := time.Since(start); elapsed > 60*time.Millisecond {
		t.Errorf("announcement between read and wait was missed: %v", elapsed)
	}
}

func TestNonPositiveTimeoutUsesDefault(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		a := NewAccessor(&memStore{}, nil, timeout, nil)
		if a.timeout != DefaultTimeout {
			t.Errorf("%v: %v != %v", timeout, a.timeout, DefaultTimeout)
		}
		if b := a.newBackOff(); b.MaxElapsedTime != DefaultTimeout {
			t.Errorf("%v: backoff never stops (%v)", timeout, b.MaxElapsedTime)
		}
	}
}

func TestGetGivesUpAfterTimeout(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	a := NewAccessor(store, nil, 500*time.Millisecond, nil)

	start := time.Now()
	err := a.Get(context.Background(), NameTowers, &FrameRef{})
	if !errors.Is(err, repository.ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("retry budget exceeded: %v", elapsed)
	}
	if store.calls < 2 {
		t.Errorf("expected retries, got %d calls", store.calls)
	}
}

func TestGetStoreErrorIsPermanent(t *testing.T) {
	boom := errors.New("connection refused")
	store := &memStore{err: boom}
	a := NewAccessor(store, nil, 5*time.Second, nil)

	if err := a.Get(context.Background(), NameTowers, &FrameRef{}); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if store.calls != 1 {
		t.Errorf("%v != 1", store.calls)
	}
}

func TestGetHonoursContext(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	a := NewAccessor(store, cluster.NewBroadcaster(), 10*time.Second, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := a.Get(ctx, NameTowers, &FrameRef{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestTypedHelpers(t *testing.T) {
	store := &memStore{data: map[string]string{
		NameTowers:             `{"table":"cell_towers","rows":10,"minId":1,"maxId":10,"partitions":3}`,
		NameExtent4326:         `[[-10,-20],[30,40]]`,
		NameCenter4326:         `[[10,10]]`,
		NameMinLog10Range:      `0`,
		NameMaxLog10Range:      `2`,
		NameCreatedBinEdges:    `["2003-01-01T00:00:00Z","2004-01-01T00:00:00Z"]`,
		NameCreatedBinCenters:  `["2003-07-01T00:00:00Z"]`,
		NameTotalRadioCounts:   `{"index":["UMTS","LTE","GSM","CDMA"],"values":[1,2,3,4]}`,
		NameTotalCreatedCounts: `{"index":["2003-07-01T00:00:00Z"],"values":[10]}`,
	}}
	a := NewAccessor(store, nil, time.Second, nil)
	ctx := context.Background()

	frame, err := a.Frame(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if parts := frame.Split(); len(parts) != 3 || parts[2].MaxID != 10 {
		t.Errorf("unexpected partitions %v", parts)
	}

	extent, err := a.Extent4326(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if extent.X.Lo != -10 || extent.Y.Hi != 40 {
		t.Errorf("unexpected extent %v", extent)
	}

	center, err := a.Center4326(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if center.Lon != 10 || center.Lat != 10 {
		t.Errorf("unexpected center %v", center)
	}

	layout, err := a.Layout(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if layout.Range.Hi != 2 || layout.CreatedBuckets() != 1 {
		t.Errorf("unexpected layout %+v", layout)
	}

	radio, err := a.TotalRadioCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if radio.Index[3] != "CDMA" || radio.Values[3] != 4 {
		t.Errorf("unexpected radio totals %v", radio)
	}

	created, err := a.TotalCreatedCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if created.Index[0].Month() != time.July {
		t.Errorf("unexpected created totals %v", created)
	}
}
