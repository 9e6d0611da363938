package cluster

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

const notifyChannel = "cluster_datasets"

// DefaultPollInterval is how often a SQLite client checks for commits made
// by other processes.
const DefaultPollInterval = 500 * time.Millisecond

// Notifier signals that the published dataset namespace changed.
type Notifier interface {
	// Generation returns a channel closed by the next announcement. Take it
	// before reading the namespace so an announcement that lands between the
	// read and the wait is not lost.
	Generation() <-chan struct{}
	Announce(ctx context.Context) error
	Close()
}

// Wait blocks until gen is closed, the timeout or ctx expiry. It reports
// whether gen was closed. A nil gen only sleeps.
func Wait(ctx context.Context, gen <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-gen:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Broadcaster is an in-process Notifier. Each announcement closes the
// current generation channel, waking every waiter at once.
type Broadcaster struct {
	mu  sync.Mutex
	gen chan struct{}
}

// NewBroadcaster creates a broadcaster with an open generation
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{gen: make(chan struct{})}
}

func (b *Broadcaster) Generation() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

func (b *Broadcaster) Announce(context.Context) error {
	b.mu.Lock()
	close(b.gen)
	b.gen = make(chan struct{})
	b.mu.Unlock()
	return nil
}

func (b *Broadcaster) Close() {}

// pgListener relays LISTEN notifications from PostgreSQL into a local
// Broadcaster.
type pgListener struct {
	*Broadcaster
	cancel context.CancelFunc
	done   chan struct{}
}

func listenPostgres(ctx context.Context, dsn string, log *logrus.Entry) (*pgListener, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	lctx, cancel := context.WithCancel(context.Background())
	l := &pgListener{
		Broadcaster: NewBroadcaster(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go func() {
		defer close(l.done)
		defer conn.Close(context.Background())
		for {
			if _, err := conn.WaitForNotification(lctx); err != nil {
				if lctx.Err() == nil {
					log.WithError(err).Warn("notification listener stopped")
				}
				return
			}
			l.Broadcaster.Announce(lctx)
		}
	}()

	return l, nil
}

func (l *pgListener) Close() {
	l.cancel()
	<-l.done
}

// sqlitePoller watches PRAGMA data_version on a dedicated connection. The
// value changes whenever another connection, in this process or another,
// commits to the database file, so a publication from the publish CLI wakes
// waiting readers too.
type sqlitePoller struct {
	*Broadcaster
	cancel context.CancelFunc
	done   chan struct{}
}

func pollSQLite(ctx context.Context, db *sql.DB, interval time.Duration, log *logrus.Entry) (*sqlitePoller, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open poll connection: %w", err)
	}
	version, err := dataVersion(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	pctx, cancel := context.WithCancel(context.Background())
	p := &sqlitePoller{
		Broadcaster: NewBroadcaster(),
		cancel:      cancel,
		done:        make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		defer conn.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-pctx.Done():
				return
			case <-ticker.C:
			}
			v, err := dataVersion(pctx, conn)
			if err != nil {
				if pctx.Err() == nil {
					log.WithError(err).Warn("data_version poll failed")
				}
				continue
			}
			if v != version {
				version = v
				p.Broadcaster.Announce(pctx)
			}
		}
	}()

	return p, nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read data_version: %w", err)
	}
	return v, nil
}

func (p *sqlitePoller) Close() {
	p.cancel()
	<-p.done
}
