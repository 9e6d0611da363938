package cluster

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sirupsen/logrus"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	logrus.SetLevel(logrus.WarnLevel)
	c, err := Connect(context.Background(), Config{
		Driver: DriverSQLite,
		Addr:   filepath.Join(t.TempDir(), "cluster.db"),
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConnectMigratesOnce(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	if err := c.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var n int
	if err := c.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("%v != 2", n)
	}
	if _, err := c.DB().ExecContext(ctx, "SELECT id, radio, range_bin, created_bin FROM cell_towers"); err != nil {
		t.Errorf("cell_towers missing: %v", err)
	}
}

func TestConnectUnknownDriver(t *testing.T) {
	if _, err := Connect(context.Background(), Config{Driver: "mysql", Addr: "x"}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b IN (?, ?)"
	if got := Rebind(DriverSQLite, q); got != q {
		t.Errorf("sqlite query changed: %v", got)
	}
	want := "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)"
	if got := Rebind(DriverPostgres, q); got != want {
		t.Errorf("%v != %v", got, want)
	}
}

func TestLoadMigrationsOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.sql":  {Data: []byte("SELECT 2")},
		"002_early.sql": {Data: []byte("SELECT 1")},
		"README.md":     {Data: []byte("ignored")},
		"bad_name.sql":  {Data: []byte("ignored")},
	}
	ms, err := LoadMigrations(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Fatalf("%v != 2", len(ms))
	}
	if ms[0].Version != 2 || ms[1].Version != 10 {
		t.Errorf("wrong order: %v, %v", ms[0].Version, ms[1].Version)
	}
	if ms[0].Name != "002_early" {
		t.Errorf("%v != 002_early", ms[0].Name)
	}
}

func TestBroadcasterWakesWaiters(t *testing.T) {
	b := NewBroadcaster()
	ctx := context.Background()

	woke := make(chan bool, 2)
	for i := 0; i < 2; i++ {
		gen := b.Generation()
		go func() { woke <- Wait(ctx, gen, 5*time.Second) }()
	}
	b.Announce(ctx)

	for i := 0; i < 2; i++ {
		if !<-woke {
			t.Error("waiter timed out instead of waking")
		}
	}

	if Wait(ctx, b.Generation(), 10*time.Millisecond) {
		t.Error("wait without announcement should time out")
	}
}

func TestRedact(t *testing.T) {
	got := redact("postgres://user:secret@db:5432/towers")
	if got != "postgres://user:***@db:5432/towers" {
		t.Errorf("unexpected redaction: %v", got)
	}
	if redact("./data/cell_towers.db") != "./data/cell_towers.db" {
		t.Error("file path should be unchanged")
	}
}

func TestSQLiteCommitFromOtherClientWakesWaiters(t *testing.T) {
	logrus.SetLevel(logrus.WarnLevel)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cluster.db")

	reader, err := Connect(ctx, Config{Driver: DriverSQLite, Addr: path, PollInterval: 20 * time.Millisecond}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	writer, err := Connect(ctx, Config{Driver: DriverSQLite, Addr: path}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	gen := reader.Notifier().Generation()
	if _, err := writer.DB().ExecContext(ctx,
		"INSERT INTO datasets (name, payload, published_at) VALUES ('data_3857', '[]', 1)"); err != nil {
		t.Fatal(err)
	}
	if !Wait(ctx, gen, 5*time.Second) {
		t.Error("commit from another client did not wake the reader")
	}
}
