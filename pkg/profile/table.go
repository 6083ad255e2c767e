package profile

import (
	"context"
	"errors"
	"io"
)

// TableProfile is the result of one table's analysis pass: the sample
// statistics plus the flags derived from schema alone. Stats is nil when
// the sample was empty. Incomplete marks a sample cut short by a retrieval
// failure or cancellation; the statistics then cover only the rows
// consumed before the cut.
type TableProfile struct {
	Keyspace      string    `json:"keyspace"`
	Table         string    `json:"table"`
	Columns       int       `json:"columns"`
	Stats         *Snapshot `json:"stats,omitempty"`
	HasBlob       bool      `json:"has_blob"`
	HasStatic     bool      `json:"has_static"`
	HasDefaultTTL bool      `json:"has_default_ttl"`
	Incomplete    bool      `json:"incomplete,omitempty"`
}

// Name returns the keyspace-qualified table name.
func (p *TableProfile) Name() string {
	return p.Keyspace + "." + p.Table
}

// NewProfile returns the profile skeleton for schema: identity and
// structural flags set, no statistics.
func NewProfile(schema *Schema) *TableProfile {
	return &TableProfile{
		Keyspace:      schema.Keyspace,
		Table:         schema.Table,
		Columns:       len(schema.Columns),
		HasBlob:       schema.HasBlob(),
		HasStatic:     schema.HasStatic(),
		HasDefaultTTL: schema.DefaultTTL,
	}
}

// Table profiles one table: it reads at most limit rows from the source
// (tolerating a shorter sequence), estimates each row's size and folds the
// observations into a fresh aggregator, then combines the snapshot with
// the schema's structural flags. limit <= 0 leaves bounding entirely to
// the source.
//
// A retrieval failure or context cancellation mid-sample does not discard
// progress: the profile keeps the partial statistics, is marked
// Incomplete, and is returned together with the error. The returned
// profile is never nil. The source is closed before returning.
func Table(ctx context.Context, schema *Schema, rows RowSource, limit int) (*TableProfile, error) {
	prof := NewProfile(schema)
	agg := NewAggregator()
	var readErr error
	for limit <= 0 || agg.Count() < int64(limit) {
		if err := ctx.Err(); err != nil {
			readErr = err
			break
		}
		row, err := rows.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		agg.Observe(EstimateRow(row))
	}

	if cerr := rows.Close(); cerr != nil && readErr == nil {
		readErr = cerr
	}

	if s, ok := agg.Snapshot(); ok {
		prof.Stats = &s
	}
	if readErr != nil {
		prof.Incomplete = true
		return prof, readErr
	}
	return prof, nil
}
