package profile

import "math"

// Snapshot is the summary of a finished sample.
type Snapshot struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
}

// Aggregator folds size observations into running statistics in O(1)
// memory using Welford's incremental update, so a large sample limit never
// buffers the observations. The final statistics are independent of
// observation order.
//
// An Aggregator is not safe for concurrent use; each sampled table gets
// its own.
type Aggregator struct {
	count int64
	mean  float64
	m2    float64
	min   int64
	max   int64
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.Reset()
	return a
}

// Reset returns the aggregator to its initial empty state.
func (a *Aggregator) Reset() {
	a.count = 0
	a.mean = 0
	a.m2 = 0
	a.min = math.MaxInt64
	a.max = math.MinInt64
}

// Observe folds one observation in O(1) time. The incremental form is
// required: a naive sum-of-squares accumulates catastrophic cancellation
// at large counts.
func (a *Aggregator) Observe(x int64) {
	a.count++
	delta := float64(x) - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (float64(x) - a.mean)
	if x < a.min {
		a.min = x
	}
	if x > a.max {
		a.max = x
	}
}

// Count reports the number of observations folded since the last Reset.
func (a *Aggregator) Count() int64 { return a.count }

// Snapshot finalizes the running state. It reports false when nothing was
// observed: no statistics exist for an empty sample. A single observation
// has stdev 0; otherwise stdev is the Bessel-corrected sample standard
// deviation. Snapshot does not mutate the aggregator.
func (a *Aggregator) Snapshot() (Snapshot, bool) {
	if a.count == 0 {
		return Snapshot{}, false
	}
	s := Snapshot{
		Count: a.count,
		Mean:  a.mean,
		Min:   a.min,
		Max:   a.max,
	}
	if a.count > 1 {
		s.Stdev = math.Sqrt(a.m2 / float64(a.count-1))
	}
	return s, true
}
