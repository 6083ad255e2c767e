package profile

import "strings"

// ColumnKind classifies a column's declared CQL type into the closed set
// of kinds the estimator understands. It is derived once at discovery time
// from the type string in system_schema.columns.
type ColumnKind uint8

const (
	TextColumn ColumnKind = iota
	IntColumn
	FloatColumn
	BoolColumn
	BlobColumn
	ScalarColumn
	CollectionColumn
)

func (k ColumnKind) String() string {
	switch k {
	case TextColumn:
		return "text"
	case IntColumn:
		return "int"
	case FloatColumn:
		return "float"
	case BoolColumn:
		return "bool"
	case BlobColumn:
		return "blob"
	case ScalarColumn:
		return "scalar"
	case CollectionColumn:
		return "collection"
	}
	return "unknown"
}

// ParseCQLType maps a CQL type string to a ColumnKind. frozen<> wrappers
// are unwrapped; unrecognized types classify as scalar, which keeps
// discovery total across store versions and custom types.
func ParseCQLType(cqlType string) ColumnKind {
	t := strings.ToLower(strings.TrimSpace(cqlType))
	for strings.HasPrefix(t, "frozen<") && strings.HasSuffix(t, ">") {
		t = strings.TrimSuffix(strings.TrimPrefix(t, "frozen<"), ">")
	}
	if i := strings.IndexByte(t, '<'); i >= 0 {
		switch t[:i] {
		case "list", "set", "map", "tuple", "vector":
			return CollectionColumn
		}
	}
	switch t {
	case "ascii", "text", "varchar":
		return TextColumn
	case "tinyint", "smallint", "int", "bigint", "varint", "counter":
		return IntColumn
	case "float", "double", "decimal":
		return FloatColumn
	case "boolean":
		return BoolColumn
	case "blob":
		return BlobColumn
	case "list", "set", "map", "tuple":
		return CollectionColumn
	}
	return ScalarColumn
}

// Column describes one column of a table.
type Column struct {
	Name    string     `json:"name"`
	CQLType string     `json:"cql_type"`
	Kind    ColumnKind `json:"-"`
	Static  bool       `json:"static,omitempty"`
}

// Schema is the structural summary of one table: identity, ordered column
// descriptors and the default-expiration flag. It is built once by
// discovery and read-only afterwards.
type Schema struct {
	Keyspace   string   `json:"keyspace"`
	Table      string   `json:"table"`
	Columns    []Column `json:"columns"`
	DefaultTTL bool     `json:"default_ttl"`
}

// Name returns the keyspace-qualified table name.
func (s *Schema) Name() string {
	return s.Keyspace + "." + s.Table
}

// HasBlob reports whether any column is blob-typed.
func (s *Schema) HasBlob() bool {
	for _, c := range s.Columns {
		if c.Kind == BlobColumn {
			return true
		}
	}
	return false
}

// HasStatic reports whether any column is static.
func (s *Schema) HasStatic() bool {
	for _, c := range s.Columns {
		if c.Static {
			return true
		}
	}
	return false
}
