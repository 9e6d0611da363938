package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/models"
	"github.com/sirupsen/logrus"
)

func testClient(t *testing.T) *cluster.Client {
	t.Helper()
	logrus.SetLevel(logrus.WarnLevel)
	c, err := cluster.Connect(context.Background(), cluster.Config{
		Driver: cluster.DriverSQLite,
		Addr:   filepath.Join(t.TempDir(), "cluster.db"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func seedTowers(t *testing.T, c *cluster.Client) *TowerRepository {
	t.Helper()
	desc := "Main street"
	towers := []models.Tower{
		{ID: 1, Radio: "LTE", X3857: 0, Y3857: 0, RangeBin: 0, CreatedBin: 0, Description: &desc},
		{ID: 2, Radio: "LTE", X3857: 10, Y3857: 10, RangeBin: 1, CreatedBin: 0},
		{ID: 3, Radio: "GSM", X3857: 20, Y3857: 20, RangeBin: 1, CreatedBin: 1},
		{ID: 4, Radio: "CDMA", X3857: 30, Y3857: 30, RangeBin: 2, CreatedBin: 2},
		{ID: 5, Radio: "UMTS", X3857: 40, Y3857: 40, RangeBin: 2, CreatedBin: 2},
	}
	repo := NewTowerRepository(c)
	err := c.Transaction(context.Background(), func(tx *sql.Tx) error {
		return repo.InsertBatch(context.Background(), tx, towers)
	})
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestTowerFind(t *testing.T) {
	c := testClient(t)
	repo := seedTowers(t, c)
	ctx := context.Background()

	box := r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 20, Y: 20})
	tests := []struct {
		name   string
		filter TowerFilter
		want   []int64
	}{
		{"all", TowerFilter{}, []int64{1, 2, 3, 4, 5}},
		{"box is inclusive", TowerFilter{Box: &box}, []int64{1, 2, 3}},
		{"radios", TowerFilter{Radios: []string{"LTE", "CDMA"}}, []int64{1, 2, 4}},
		{"no radios", TowerFilter{Radios: []string{}}, nil},
		{"range span", TowerFilter{RangeBins: &BinSpan{1, 1}}, []int64{2, 3}},
		{"empty span", TowerFilter{CreatedBins: &BinSpan{2, 1}}, nil},
		{"combined", TowerFilter{Box: &box, Radios: []string{"LTE"}, CreatedBins: &BinSpan{0, 0}}, []int64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			towers, err := repo.Find(ctx, tt.filter, 0)
			if err != nil {
				t.Fatal(err)
			}
			if len(towers) != len(tt.want) {
				t.Fatalf("%v != %v", len(towers), len(tt.want))
			}
			for i, tower := range towers {
				if tower.ID != tt.want[i] {
					t.Errorf("%v != %v", tower.ID, tt.want[i])
				}
			}
		})
	}

	towers, err := repo.Find(ctx, TowerFilter{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(towers) != 2 {
		t.Errorf("limit ignored: %v", len(towers))
	}
	if towers[0].Description == nil || *towers[0].Description != "Main street" {
		t.Errorf("description not scanned: %v", towers[0].Description)
	}
	if towers[1].Description != nil {
		t.Errorf("null description should stay nil")
	}
}

func TestTowerScanPartition(t *testing.T) {
	c := testClient(t)
	repo := seedTowers(t, c)
	ctx := context.Background()

	count, lo, hi, err := repo.IDRange(ctx, c.DB())
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 || lo != 1 || hi != 5 {
		t.Fatalf("unexpected id range: %v %v %v", count, lo, hi)
	}

	var points []models.TowerPoint
	err = repo.ScanPartition(ctx, TowerFilter{Radios: []string{"LTE", "GSM"}}, Partition{MinID: 2, MaxID: 4},
		func(p models.TowerPoint) { points = append(points, p) })
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("%v != 2", len(points))
	}
	if points[0].Radio != models.RadioIndex("LTE") || points[1].Radio != models.RadioIndex("GSM") {
		t.Errorf("unexpected radios: %v", points)
	}
}

func TestTowerCountJoint(t *testing.T) {
	c := testClient(t)
	repo := seedTowers(t, c)

	counts, err := repo.CountJoint(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, jc := range counts {
		total += jc.Count
		if jc.Radio == "LTE" && jc.RangeBin == 0 && jc.Count != 1 {
			t.Errorf("%v != 1", jc.Count)
		}
	}
	if total != 5 {
		t.Errorf("%v != 5", total)
	}
}

func TestDatasetNamespace(t *testing.T) {
	c := testClient(t)
	repo := NewDatasetRepository(c)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "data_3857"); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished, got %v", err)
	}

	if err := repo.Put(ctx, c.DB(), "data_3857", []byte(`[[0,0],[1,1]]`), 100); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, c.DB(), "data_3857", []byte(`[[0,0],[2,2]]`), 200); err != nil {
		t.Fatal(err)
	}
	payload, err := repo.Get(ctx, "data_3857")
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `[[0,0],[2,2]]` {
		t.Errorf("put did not replace: %s", payload)
	}

	if err := repo.Put(ctx, c.DB(), "min_log10_range", []byte(`0.5`), 200); err != nil {
		t.Fatal(err)
	}
	infos, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].Name != "data_3857" || infos[0].PublishedAt != 200 {
		t.Errorf("unexpected listing: %+v", infos)
	}

	if err := repo.DeleteAll(ctx, c.DB()); err != nil {
		t.Fatal(err)
	}
	infos, err = repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 0 {
		t.Errorf("%v != 0", len(infos))
	}
}
