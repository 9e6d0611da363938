package cluster

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config holds cluster connection settings
type Config struct {
	Driver       string
	Addr         string
	MaxOpenConns int
	PollInterval time.Duration // sqlite only, see DefaultPollInterval
}

// Client is a handle to the cluster store. It is created once by the
// entrypoint and shared by every repository.
type Client struct {
	db       *sql.DB
	driver   string
	notifier Notifier
	log      *logrus.Entry
}

// Connect opens the store, verifies it answers and applies pending
// migrations. A store that cannot be reached is an error.
func Connect(ctx context.Context, cfg Config, log *logrus.Entry) (*Client, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "cluster")

	var dsn string
	switch cfg.Driver {
	case DriverSQLite, "":
		cfg.Driver = DriverSQLite
		dsn = sqliteDSN(cfg.Addr)
	case DriverPostgres:
		dsn = cfg.Addr
	default:
		return nil, fmt.Errorf("unsupported cluster driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster store: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	// the sqlite poller pins one connection
	if cfg.Driver == DriverSQLite && maxOpen < 2 {
		maxOpen = 2
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach cluster at %s: %w", redact(cfg.Addr), err)
	}

	c := &Client{db: db, driver: cfg.Driver, log: log}

	if err := c.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.Driver == DriverPostgres {
		n, err := listenPostgres(ctx, cfg.Addr, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		c.notifier = n
	} else {
		n, err := pollSQLite(ctx, db, cfg.PollInterval, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		c.notifier = n
	}

	log.Infof("cluster connected: driver=%s addr=%s", cfg.Driver, redact(cfg.Addr))
	return c, nil
}

// DB returns the underlying connection pool
func (c *Client) DB() *sql.DB {
	return c.db
}

// Notifier returns the readiness channel for dataset publications
func (c *Client) Notifier() Notifier {
	return c.notifier
}

// Announce tells every waiting reader that the dataset namespace changed.
func (c *Client) Announce(ctx context.Context) error {
	if c.driver == DriverPostgres {
		if _, err := c.db.ExecContext(ctx, "SELECT pg_notify($1, '')", notifyChannel); err != nil {
			return fmt.Errorf("failed to announce publication: %w", err)
		}
		return nil
	}
	return c.notifier.Announce(ctx)
}

// Rebind rewrites ? placeholders into the driver's native form.
func (c *Client) Rebind(query string) string {
	return Rebind(c.driver, query)
}

// Rebind rewrites ? placeholders into $n for PostgreSQL.
func Rebind(driver, query string) string {
	if driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Transaction executes a function within a database transaction
func (c *Client) Transaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close releases the pool and stops the notification listener
func (c *Client) Close() error {
	if c.notifier != nil {
		c.notifier.Close()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// redact hides the password part of a postgres URL for logging.
func redact(addr string) string {
	at := strings.LastIndex(addr, "@")
	scheme := strings.Index(addr, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return addr
	}
	userinfo := addr[scheme+3 : at]
	if i := strings.Index(userinfo, ":"); i >= 0 {
		userinfo = userinfo[:i] + ":***"
	}
	return addr[:scheme+3] + userinfo + addr[at:]
}
