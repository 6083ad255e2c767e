package gauge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tablegauge/tablegauge/pkg/profile"
	"github.com/tablegauge/tablegauge/pkg/report"
)

// stubSource replays fixed rows, then finalErr (io.EOF by default).
type stubSource struct {
	rows     []profile.Row
	finalErr error
	next     int
}

func (s *stubSource) Next(ctx context.Context) (profile.Row, error) {
	if s.next < len(s.rows) {
		row := s.rows[s.next]
		s.next++
		return row, nil
	}
	if s.finalErr != nil {
		return nil, s.finalErr
	}
	return nil, io.EOF
}

func (s *stubSource) Close() error { return nil }

// mockStore simulates a cluster catalog.
type mockStore struct {
	mtx       sync.Mutex
	keyspaces []string
	ksErr     error
	schemas   map[string][]*profile.Schema
	tablesErr map[string]error
	rows      map[string][]profile.Row
	streamErr map[string]error
	openErr   map[string]error
	opened    map[string]int
}

func (m *mockStore) Keyspaces(ctx context.Context) ([]string, error) {
	if m.ksErr != nil {
		return nil, m.ksErr
	}
	return m.keyspaces, nil
}

func (m *mockStore) Tables(ctx context.Context, keyspace string) ([]*profile.Schema, error) {
	if err := m.tablesErr[keyspace]; err != nil {
		return nil, err
	}
	return m.schemas[keyspace], nil
}

func (m *mockStore) SampleRows(ctx context.Context, schema *profile.Schema, limit int) (profile.RowSource, error) {
	m.mtx.Lock()
	if m.opened == nil {
		m.opened = make(map[string]int)
	}
	m.opened[schema.Name()]++
	m.mtx.Unlock()

	if err := m.openErr[schema.Name()]; err != nil {
		return nil, err
	}
	return &stubSource{
		rows:     m.rows[schema.Name()],
		finalErr: m.streamErr[schema.Name()],
	}, nil
}

func simpleSchema(keyspace, table string) *profile.Schema {
	return &profile.Schema{
		Keyspace: keyspace,
		Table:    table,
		Columns: []profile.Column{
			{Name: "id", CQLType: "int", Kind: profile.IntColumn},
			{Name: "body", CQLType: "text", Kind: profile.TextColumn},
		},
	}
}

func textRows(bodies ...string) []profile.Row {
	rows := make([]profile.Row, len(bodies))
	for i, b := range bodies {
		rows[i] = profile.Row{
			{Column: "id", Value: profile.Int(int64(i))},
			{Column: "body", Value: profile.Text(b)},
		}
	}
	return rows
}

func newTestRunner(t *testing.T, cfg *Config, store Store) (*Runner, *bytes.Buffer, *Metrics) {
	t.Helper()
	var buf bytes.Buffer
	metrics := NewMetrics(prometheus.NewRegistry())
	runner, err := NewRunner(cfg, store, report.NewWriter(&buf, false), metrics, log.NewNopLogger())
	require.NoError(t, err)
	return runner, &buf, metrics
}

func reportLines(buf *bytes.Buffer) []string {
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func TestRunnerConfigValidate(t *testing.T) {
	cfg := &Config{SampleLimit: 100, Concurrency: 1}
	require.NoError(t, cfg.Validate())

	require.Error(t, (&Config{SampleLimit: 0, Concurrency: 1}).Validate())
	require.Error(t, (&Config{SampleLimit: 100, Concurrency: 0}).Validate())
}

func TestRunner_ProfilesAllTables(t *testing.T) {
	store := &mockStore{
		keyspaces: []string{"alpha", "beta"},
		schemas: map[string][]*profile.Schema{
			"alpha": {simpleSchema("alpha", "t1"), simpleSchema("alpha", "t2")},
			"beta":  {simpleSchema("beta", "t3")},
		},
		rows: map[string][]profile.Row{
			"alpha.t1": textRows("aa", "bbbb"),
			"beta.t3":  textRows("x"),
			// alpha.t2 has no rows
		},
	}
	runner, buf, metrics := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 1}, store)

	require.NoError(t, runner.Run(context.Background()))

	lines := reportLines(buf)
	require.Len(t, lines, 3)
	joined := buf.String()
	require.Contains(t, joined, "alpha.t1: sampled=2")
	require.Contains(t, joined, "alpha.t2: no rows sampled")
	require.Contains(t, joined, "beta.t3: sampled=1")

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.TablesProfiled.WithLabelValues("ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.TablesProfiled.WithLabelValues("empty")))
	require.Equal(t, float64(3), testutil.ToFloat64(metrics.RowsSampled))
}

func TestRunner_TableFailureDoesNotStopRun(t *testing.T) {
	store := &mockStore{
		keyspaces: []string{"alpha"},
		schemas: map[string][]*profile.Schema{
			"alpha": {simpleSchema("alpha", "bad"), simpleSchema("alpha", "good")},
		},
		rows: map[string][]profile.Row{
			"alpha.bad":  textRows("aa"),
			"alpha.good": textRows("bb", "cc"),
		},
		streamErr: map[string]error{"alpha.bad": errors.New("read timeout")},
	}
	runner, buf, metrics := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 1}, store)

	require.NoError(t, runner.Run(context.Background()))

	lines := reportLines(buf)
	require.Len(t, lines, 2)
	joined := buf.String()
	require.Contains(t, joined, "alpha.bad: sampled=1")
	require.Contains(t, joined, "(incomplete)")
	require.Contains(t, joined, "alpha.good: sampled=2")

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.TablesProfiled.WithLabelValues("incomplete")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.TablesProfiled.WithLabelValues("ok")))
}

func TestRunner_SampleOpenFailure(t *testing.T) {
	store := &mockStore{
		keyspaces: []string{"alpha"},
		schemas: map[string][]*profile.Schema{
			"alpha": {simpleSchema("alpha", "locked")},
		},
		openErr: map[string]error{"alpha.locked": errors.New("unauthorized")},
	}
	runner, buf, metrics := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 1}, store)

	require.NoError(t, runner.Run(context.Background()))

	lines := reportLines(buf)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "alpha.locked: no rows sampled")
	require.Contains(t, lines[0], "(incomplete)")
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.TablesProfiled.WithLabelValues("incomplete")))
}

func TestRunner_DiscoveryFailureSkipsKeyspace(t *testing.T) {
	store := &mockStore{
		keyspaces: []string{"alpha", "beta"},
		schemas: map[string][]*profile.Schema{
			"alpha": {simpleSchema("alpha", "t1")},
			"beta":  {simpleSchema("beta", "t2")},
		},
		tablesErr: map[string]error{"alpha": errors.New("schema unavailable")},
		rows:      map[string][]profile.Row{"beta.t2": textRows("yy")},
	}
	runner, buf, _ := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 1}, store)

	require.NoError(t, runner.Run(context.Background()))

	lines := reportLines(buf)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "beta.t2")
}

func TestRunner_KeyspaceDiscoveryFatal(t *testing.T) {
	store := &mockStore{ksErr: errors.New("no hosts available")}
	runner, _, _ := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 1}, store)

	err := runner.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "discover keyspaces")
}

func TestRunner_KeyspaceFilter(t *testing.T) {
	store := &mockStore{
		keyspaces: []string{"alpha", "beta"},
		schemas: map[string][]*profile.Schema{
			"alpha": {simpleSchema("alpha", "t1")},
			"beta":  {simpleSchema("beta", "t2")},
		},
		rows: map[string][]profile.Row{
			"alpha.t1": textRows("aa"),
			"beta.t2":  textRows("bb"),
		},
	}
	runner, buf, _ := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 1, Keyspaces: []string{"beta"}}, store)

	require.NoError(t, runner.Run(context.Background()))

	lines := reportLines(buf)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "beta.t2")
	require.Equal(t, 0, store.opened["alpha.t1"])
}

func TestRunner_SampleLimitApplied(t *testing.T) {
	store := &mockStore{
		keyspaces: []string{"alpha"},
		schemas: map[string][]*profile.Schema{
			"alpha": {simpleSchema("alpha", "wide")},
		},
		rows: map[string][]profile.Row{
			"alpha.wide": textRows("a", "b", "c", "d", "e", "f", "g", "h", "i", "j"),
		},
	}
	runner, buf, metrics := newTestRunner(t, &Config{SampleLimit: 4, Concurrency: 1}, store)

	require.NoError(t, runner.Run(context.Background()))

	require.Contains(t, buf.String(), "alpha.wide: sampled=4")
	require.Equal(t, float64(4), testutil.ToFloat64(metrics.RowsSampled))
}

func TestRunner_ConcurrentRunReportsEachTableOnce(t *testing.T) {
	schemas := make([]*profile.Schema, 0, 8)
	rows := make(map[string][]profile.Row, 8)
	for i := 0; i < 8; i++ {
		s := simpleSchema("alpha", fmt.Sprintf("t%d", i))
		schemas = append(schemas, s)
		rows[s.Name()] = textRows("payload")
	}
	store := &mockStore{
		keyspaces: []string{"alpha"},
		schemas:   map[string][]*profile.Schema{"alpha": schemas},
		rows:      rows,
	}
	runner, buf, metrics := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 4}, store)

	require.NoError(t, runner.Run(context.Background()))

	lines := reportLines(buf)
	require.Len(t, lines, 8)
	for i := 0; i < 8; i++ {
		require.Equal(t, 1, strings.Count(buf.String(), fmt.Sprintf("alpha.t%d:", i)))
	}
	require.Equal(t, float64(8), testutil.ToFloat64(metrics.TablesProfiled.WithLabelValues("ok")))
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &mockStore{
		keyspaces: []string{"alpha"},
		schemas: map[string][]*profile.Schema{
			"alpha": {simpleSchema("alpha", "t1")},
		},
		rows: map[string][]profile.Row{"alpha.t1": textRows("aa")},
	}
	runner, buf, _ := newTestRunner(t, &Config{SampleLimit: 100, Concurrency: 1}, store)

	err := runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// The table is still reported, as incomplete.
	require.Contains(t, buf.String(), "(incomplete)")
}
