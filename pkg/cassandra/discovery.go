package cassandra

import (
	"context"
	"fmt"
	"sort"

	"github.com/tablegauge/tablegauge/pkg/profile"
)

// systemKeyspaces are the store-internal keyspaces excluded from profiling.
var systemKeyspaces = map[string]struct{}{
	"system":             {},
	"system_schema":      {},
	"system_auth":        {},
	"system_distributed": {},
	"system_traces":      {},
	"system_views":       {},
}

// IsSystemKeyspace reports whether name is a store-internal keyspace.
func IsSystemKeyspace(name string) bool {
	_, ok := systemKeyspaces[name]
	return ok
}

// Keyspaces returns the user keyspace names, sorted. System keyspaces are
// filtered out.
func (s *Session) Keyspaces(ctx context.Context) ([]string, error) {
	iter := s.session.Query(`SELECT keyspace_name FROM system_schema.keyspaces`).
		WithContext(ctx).
		Iter()

	var name string
	var keyspaces []string
	for iter.Scan(&name) {
		if IsSystemKeyspace(name) {
			continue
		}
		keyspaces = append(keyspaces, name)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list keyspaces: %w", err)
	}

	sort.Strings(keyspaces)
	return keyspaces, nil
}

// tableColumn is one row of system_schema.columns.
type tableColumn struct {
	table    string
	name     string
	cqlType  string
	kind     string
	position int
}

// Tables reads the schema of every table in the keyspace, sorted by table
// name. Column order follows the canonical DESCRIBE order: partition key
// columns by position, clustering columns by position, then the remaining
// columns by name.
func (s *Session) Tables(ctx context.Context, keyspace string) ([]*profile.Schema, error) {
	iter := s.session.Query(
		`SELECT table_name, default_time_to_live FROM system_schema.tables WHERE keyspace_name = ?`,
		keyspace,
	).WithContext(ctx).Iter()

	defaultTTL := make(map[string]bool)
	var table string
	var ttl int
	for iter.Scan(&table, &ttl) {
		defaultTTL[table] = ttl > 0
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", keyspace, err)
	}

	iter = s.session.Query(
		`SELECT table_name, column_name, type, kind, position FROM system_schema.columns WHERE keyspace_name = ?`,
		keyspace,
	).WithContext(ctx).Iter()

	columns := make(map[string][]tableColumn)
	var col tableColumn
	for iter.Scan(&col.table, &col.name, &col.cqlType, &col.kind, &col.position) {
		columns[col.table] = append(columns[col.table], col)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list columns in %s: %w", keyspace, err)
	}

	schemas := make([]*profile.Schema, 0, len(defaultTTL))
	for table, ttl := range defaultTTL {
		schemas = append(schemas, &profile.Schema{
			Keyspace:   keyspace,
			Table:      table,
			Columns:    orderColumns(columns[table]),
			DefaultTTL: ttl,
		})
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Table < schemas[j].Table })
	return schemas, nil
}

func columnRank(kind string) int {
	switch kind {
	case "partition_key":
		return 0
	case "clustering":
		return 1
	}
	return 2
}

func orderColumns(cols []tableColumn) []profile.Column {
	sorted := make([]tableColumn, len(cols))
	copy(sorted, cols)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := columnRank(sorted[i].kind), columnRank(sorted[j].kind)
		if ri != rj {
			return ri < rj
		}
		if ri < 2 {
			return sorted[i].position < sorted[j].position
		}
		return sorted[i].name < sorted[j].name
	})

	out := make([]profile.Column, len(sorted))
	for i, c := range sorted {
		out[i] = profile.Column{
			Name:    c.name,
			CQLType: c.cqlType,
			Kind:    profile.ParseCQLType(c.cqlType),
			Static:  c.kind == "static",
		}
	}
	return out
}
