package profile

import "unicode/utf8"

// EstimateRow converts one sampled row into an approximate byte size. The
// estimate is keyed to display length, not the store's physical encoding:
// it is meant for relative comparison across tables, and the encoding
// rules below define every number the tool reports.
//
//   - absent values contribute 0
//   - binary values contribute 2x their byte length (the cost of a hex
//     rendering, which is how inspection and export paths show blobs)
//   - everything else contributes the length in characters of its
//     canonical textual form
//
// Estimation is total: unknown kinds fall through to the textual rule.
func EstimateRow(row Row) int64 {
	var total int64
	for _, c := range row {
		total += valueSize(c.Value)
	}
	return total
}

func valueSize(v Value) int64 {
	switch v.kind {
	case KindAbsent:
		return 0
	case KindBytes:
		return 2 * int64(len(v.data))
	default:
		return int64(utf8.RuneCountInString(v.Render()))
	}
}
