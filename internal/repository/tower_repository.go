package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/models"
)

// BinSpan is an inclusive range of histogram bucket indices. Lo > Hi
// matches nothing.
type BinSpan struct {
	Lo int
	Hi int
}

// Empty reports whether the span matches no bucket
func (s BinSpan) Empty() bool {
	return s.Lo > s.Hi
}

// TowerFilter restricts tower queries. Nil fields do not filter.
type TowerFilter struct {
	Box         *r2.Rect // EPSG:3857, inclusive
	Radios      []string
	RangeBins   *BinSpan
	CreatedBins *BinSpan
}

// JointCount is one cell of the radio/range/created histogram
type JointCount struct {
	Radio      string
	RangeBin   int
	CreatedBin int
	Count      int64
}

// TowerRepository handles database operations for the tower table
type TowerRepository struct {
	client *cluster.Client
}

// NewTowerRepository creates a new tower repository
func NewTowerRepository(client *cluster.Client) *TowerRepository {
	return &TowerRepository{client: client}
}

func (r *TowerRepository) where(filter TowerFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Box != nil {
		conditions = append(conditions, "x_3857 >= ? AND x_3857 <= ? AND y_3857 >= ? AND y_3857 <= ?")
		args = append(args, filter.Box.X.Lo, filter.Box.X.Hi, filter.Box.Y.Lo, filter.Box.Y.Hi)
	}
	if filter.Radios != nil {
		if len(filter.Radios) == 0 {
			conditions = append(conditions, "1 = 0")
		} else {
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.Radios)), ", ")
			conditions = append(conditions, "radio IN ("+placeholders+")")
			for _, radio := range filter.Radios {
				args = append(args, radio)
			}
		}
	}
	if filter.RangeBins != nil {
		conditions = append(conditions, "range_bin >= ? AND range_bin <= ?")
		args = append(args, filter.RangeBins.Lo, filter.RangeBins.Hi)
	}
	if filter.CreatedBins != nil {
		conditions = append(conditions, "created_bin >= ? AND created_bin <= ?")
		args = append(args, filter.CreatedBins.Lo, filter.CreatedBins.Hi)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Partition is a contiguous id range of the tower table
type Partition struct {
	MinID int64
	MaxID int64
}

// IDRange returns the row count and id bounds of the tower table as seen by q
func (r *TowerRepository) IDRange(ctx context.Context, q Querier) (count, minID, maxID int64, err error) {
	var lo, hi sql.NullInt64
	err = q.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(id), MAX(id) FROM cell_towers").Scan(&count, &lo, &hi)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to query tower id range: %w", err)
	}
	return count, lo.Int64, hi.Int64, nil
}

// ScanPartition streams the position and radio of every tower in the
// partition that matches filter.
func (r *TowerRepository) ScanPartition(ctx context.Context, filter TowerFilter, part Partition, fn func(models.TowerPoint)) error {
	where, args := r.where(filter)
	if where == "" {
		where = " WHERE id >= ? AND id <= ?"
	} else {
		where += " AND id >= ? AND id <= ?"
	}
	args = append(args, part.MinID, part.MaxID)

	rows, err := r.client.DB().QueryContext(ctx,
		r.client.Rebind("SELECT x_3857, y_3857, radio FROM cell_towers"+where), args...)
	if err != nil {
		return fmt.Errorf("failed to scan partition [%d, %d]: %w", part.MinID, part.MaxID, err)
	}
	defer rows.Close()

	var radio string
	for rows.Next() {
		var p models.TowerPoint
		if err := rows.Scan(&p.X, &p.Y, &radio); err != nil {
			return fmt.Errorf("failed to scan tower point: %w", err)
		}
		p.Radio = models.RadioIndex(radio)
		if p.Radio < 0 {
			continue
		}
		fn(p)
	}
	return rows.Err()
}

// CountJoint groups the whole table by radio, range bucket and created bucket
func (r *TowerRepository) CountJoint(ctx context.Context) ([]JointCount, error) {
	rows, err := r.client.DB().QueryContext(ctx, `
		SELECT radio, range_bin, created_bin, COUNT(*)
		FROM cell_towers
		GROUP BY radio, range_bin, created_bin`)
	if err != nil {
		return nil, fmt.Errorf("failed to count joint histogram: %w", err)
	}
	defer rows.Close()

	var counts []JointCount
	for rows.Next() {
		var jc JointCount
		if err := rows.Scan(&jc.Radio, &jc.RangeBin, &jc.CreatedBin, &jc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan joint count: %w", err)
		}
		counts = append(counts, jc)
	}
	return counts, rows.Err()
}

// Find returns up to limit matching towers ordered by id
func (r *TowerRepository) Find(ctx context.Context, filter TowerFilter, limit int) ([]models.Tower, error) {
	where, args := r.where(filter)
	query := `SELECT id, radio, x_3857, y_3857, lon, lat, log10_range, range_bin,
		created, created_bin, description, status, mcc, net
		FROM cell_towers` + where + " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.client.DB().QueryContext(ctx, r.client.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query towers: %w", err)
	}
	defer rows.Close()

	towers := []models.Tower{}
	for rows.Next() {
		var t models.Tower
		var description, status sql.NullString
		if err := rows.Scan(&t.ID, &t.Radio, &t.X3857, &t.Y3857, &t.Lon, &t.Lat,
			&t.Log10Range, &t.RangeBin, &t.Created, &t.CreatedBin,
			&description, &status, &t.MCC, &t.Net); err != nil {
			return nil, fmt.Errorf("failed to scan tower: %w", err)
		}
		if description.Valid {
			t.Description = &description.String
		}
		if status.Valid {
			t.Status = &status.String
		}
		towers = append(towers, t)
	}
	return towers, rows.Err()
}

// DeleteAll empties the tower table
func (r *TowerRepository) DeleteAll(ctx context.Context, ex Execer) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM cell_towers"); err != nil {
		return fmt.Errorf("failed to clear towers: %w", err)
	}
	return nil
}

// InsertBatch writes towers inside tx with one prepared statement
func (r *TowerRepository) InsertBatch(ctx context.Context, tx *sql.Tx, towers []models.Tower) error {
	stmt, err := tx.PrepareContext(ctx, r.client.Rebind(`
		INSERT INTO cell_towers (id, radio, x_3857, y_3857, lon, lat, log10_range, range_bin,
			created, created_bin, description, status, mcc, net)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare tower insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range towers {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Radio, t.X3857, t.Y3857, t.Lon, t.Lat,
			t.Log10Range, t.RangeBin, t.Created, t.CreatedBin,
			nullString(t.Description), nullString(t.Status), t.MCC, t.Net); err != nil {
			return fmt.Errorf("failed to insert tower %d: %w", t.ID, err)
		}
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
