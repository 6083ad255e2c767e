package profile

import "context"

// Cell is one (column, value) pair of a sampled row.
type Cell struct {
	Column string
	Value  Value
}

// Row is an ordered sequence of cells, one per schema column in schema
// order. Columns the store returned no value for carry an Absent value.
type Row []Cell

// RowSource yields sampled rows in the order the store produced them.
// Next returns io.EOF once the sample is exhausted and any other error on
// a retrieval failure; after either, the source yields nothing further.
// Close releases the underlying stream and reports any pending retrieval
// error. It is safe to call Close more than once.
type RowSource interface {
	Next(ctx context.Context) (Row, error)
	Close() error
}
