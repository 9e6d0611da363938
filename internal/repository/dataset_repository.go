package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/models"
)

// ErrNotPublished is returned when a dataset name is absent from the namespace
var ErrNotPublished = errors.New("dataset not published")

// Execer is satisfied by *sql.DB and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is satisfied by *sql.DB and *sql.Tx
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DatasetRepository handles the published dataset namespace
type DatasetRepository struct {
	client *cluster.Client
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(client *cluster.Client) *DatasetRepository {
	return &DatasetRepository{client: client}
}

// Get returns the raw payload published under name
func (r *DatasetRepository) Get(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := r.client.DB().QueryRowContext(ctx,
		r.client.Rebind("SELECT payload FROM datasets WHERE name = ?"), name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotPublished)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset %s: %w", name, err)
	}
	return []byte(payload), nil
}

// List returns every published dataset, ordered by name
func (r *DatasetRepository) List(ctx context.Context) ([]models.DatasetInfo, error) {
	rows, err := r.client.DB().QueryContext(ctx,
		"SELECT name, published_at, LENGTH(payload) FROM datasets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	infos := []models.DatasetInfo{}
	for rows.Next() {
		var info models.DatasetInfo
		if err := rows.Scan(&info.Name, &info.PublishedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Put publishes payload under name, replacing any previous value
func (r *DatasetRepository) Put(ctx context.Context, ex Execer, name string, payload []byte, publishedAt int64) error {
	if _, err := ex.ExecContext(ctx, r.client.Rebind("DELETE FROM datasets WHERE name = ?"), name); err != nil {
		return fmt.Errorf("failed to unpublish dataset %s: %w", name, err)
	}
	if _, err := ex.ExecContext(ctx,
		r.client.Rebind("INSERT INTO datasets (name, payload, published_at) VALUES (?, ?, ?)"),
		name, string(payload), publishedAt); err != nil {
		return fmt.Errorf("failed to publish dataset %s: %w", name, err)
	}
	return nil
}

// DeleteAll clears the namespace
func (r *DatasetRepository) DeleteAll(ctx context.Context, ex Execer) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM datasets"); err != nil {
		return fmt.Errorf("failed to clear datasets: %w", err)
	}
	return nil
}
