package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// RawTower is one input row before projection and binning
type RawTower struct {
	Radio       string
	MCC         int64
	Net         int64
	Lon         float64
	Lat         float64
	Range       float64 // meters
	Created     int64   // unix seconds
	Description *string
	Status      *string
}

// TowerSource yields raw towers. Towers may be called more than once and
// must yield the same rows in the same order each time.
type TowerSource interface {
	Towers(ctx context.Context, fn func(RawTower) error) error
}

// SliceSource serves towers from memory
type SliceSource []RawTower

func (s SliceSource) Towers(ctx context.Context, fn func(RawTower) error) error {
	for _, t := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// CSVSource reads an OpenCelliD style export with a header row. Required
// columns: radio, mcc, net, lon, lat, range, created. Optional:
// description, status.
type CSVSource struct {
	Path string
}

var requiredColumns = []string{"radio", "mcc", "net", "lon", "lat", "range", "created"}

func (s CSVSource) Towers(ctx context.Context, fn func(RawTower) error) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer f.Close()
	return readCSV(ctx, f, fn)
}

func readCSV(ctx context.Context, r io.Reader, fn func(RawTower) error) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return fmt.Errorf("csv is missing column %q", c)
		}
	}

	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read csv line %d: %w", line+1, err)
		}
		line++
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		t, err := parseRecord(record, cols)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(t); err != nil {
			return err
		}
	}
}

func parseRecord(record []string, cols map[string]int) (RawTower, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	optional := func(name string) *string {
		v := field(name)
		if v == "" {
			return nil
		}
		return &v
	}

	var t RawTower
	var err error
	t.Radio = strings.ToUpper(field("radio"))
	if t.MCC, err = strconv.ParseInt(field("mcc"), 10, 64); err != nil {
		return t, fmt.Errorf("invalid mcc: %w", err)
	}
	if t.Net, err = strconv.ParseInt(field("net"), 10, 64); err != nil {
		return t, fmt.Errorf("invalid net: %w", err)
	}
	if t.Lon, err = strconv.ParseFloat(field("lon"), 64); err != nil {
		return t, fmt.Errorf("invalid lon: %w", err)
	}
	if t.Lat, err = strconv.ParseFloat(field("lat"), 64); err != nil {
		return t, fmt.Errorf("invalid lat: %w", err)
	}
	if t.Range, err = strconv.ParseFloat(field("range"), 64); err != nil {
		return t, fmt.Errorf("invalid range: %w", err)
	}
	if t.Created, err = strconv.ParseInt(field("created"), 10, 64); err != nil {
		return t, fmt.Errorf("invalid created: %w", err)
	}
	t.Description = optional("description")
	t.Status = optional("status")
	return t, nil
}
