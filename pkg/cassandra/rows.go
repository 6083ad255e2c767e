package cassandra

import (
	"context"
	"fmt"
	"io"

	"github.com/gocql/gocql"

	"github.com/tablegauge/tablegauge/pkg/profile"
)

// rowSource adapts a paged gocql iterator to profile.RowSource. Paging keeps
// memory bounded regardless of the sample limit.
type rowSource struct {
	name    string
	iter    *gocql.Iter
	columns []profile.Column
	closed  bool
	err     error
}

// SampleRows starts a bounded SELECT over the table and returns a source
// yielding at most limit rows in schema column order.
func (s *Session) SampleRows(ctx context.Context, schema *profile.Schema, limit int) (profile.RowSource, error) {
	stmt := fmt.Sprintf(`SELECT * FROM %q.%q LIMIT ?`, schema.Keyspace, schema.Table)
	iter := s.session.Query(stmt, limit).
		WithContext(ctx).
		PageSize(s.config.PageSize).
		Iter()

	return &rowSource{
		name:    schema.Name(),
		iter:    iter,
		columns: schema.Columns,
	}, nil
}

func (r *rowSource) Next(ctx context.Context) (profile.Row, error) {
	if r.closed {
		if r.err != nil {
			return nil, r.err
		}
		return nil, io.EOF
	}

	// MapScan needs a fresh map per row; it stores values by column name.
	m := make(map[string]interface{}, len(r.columns))
	if r.iter.MapScan(m) {
		return resolveRow(r.columns, m), nil
	}

	r.closed = true
	if err := r.iter.Close(); err != nil {
		r.err = fmt.Errorf("sample %s: %w", r.name, err)
		return nil, r.err
	}
	return nil, io.EOF
}

func (r *rowSource) Close() error {
	if r.closed {
		return r.err
	}
	r.closed = true
	if err := r.iter.Close(); err != nil {
		r.err = fmt.Errorf("sample %s: %w", r.name, err)
	}
	return r.err
}

// resolveRow builds a Row in schema column order. MapScan yields a zero
// value for null columns; only columns missing from the result map resolve
// to Absent.
func resolveRow(columns []profile.Column, m map[string]interface{}) profile.Row {
	row := make(profile.Row, 0, len(columns))
	for _, col := range columns {
		native, ok := m[col.Name]
		if !ok {
			row = append(row, profile.Cell{Column: col.Name, Value: profile.Absent()})
			continue
		}
		row = append(row, profile.Cell{Column: col.Name, Value: resolveValue(native)})
	}
	return row
}
