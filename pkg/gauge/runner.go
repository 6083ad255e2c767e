package gauge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/tablegauge/tablegauge/pkg/profile"
	"github.com/tablegauge/tablegauge/pkg/report"
)

var tracer = otel.Tracer("tablegauge/gauge")

// Store is the cluster surface a run profiles: catalog discovery plus
// bounded row sampling.
type Store interface {
	Keyspaces(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, keyspace string) ([]*profile.Schema, error)
	SampleRows(ctx context.Context, schema *profile.Schema, limit int) (profile.RowSource, error)
}

// Config holds the run settings.
type Config struct {
	SampleLimit int      `yaml:"sample_limit"`
	Concurrency int      `yaml:"concurrency"`
	Keyspaces   []string `yaml:"keyspaces"`
}

// Validate checks if the run configuration is valid.
func (c *Config) Validate() error {
	if c.SampleLimit <= 0 {
		return fmt.Errorf("sample limit must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	return nil
}

// Runner drives one profiling run across the cluster's tables.
type Runner struct {
	config  *Config
	store   Store
	writer  *report.Writer
	metrics *Metrics
	logger  log.Logger
}

// NewRunner creates a new Runner instance.
func NewRunner(cfg *Config, store Store, writer *report.Writer, metrics *Metrics, logger log.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Runner{
		config:  cfg,
		store:   store,
		writer:  writer,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Run profiles every table of every selected keyspace and writes one report
// entry per table. Per-table failures are logged and counted, never
// escalated: one bad table must not starve the rest of the run. The
// returned error covers run-level failures only (keyspace discovery,
// report flushing, cancellation).
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	defer func() {
		r.metrics.RunDuration.Set(time.Since(start).Seconds())
	}()

	keyspaces, err := r.selectKeyspaces(ctx)
	if err != nil {
		return err
	}

	level.Info(r.logger).Log("msg", "starting run",
		"keyspaces", len(keyspaces),
		"sample_limit", r.config.SampleLimit,
		"concurrency", r.config.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for _, keyspace := range keyspaces {
		schemas, err := r.store.Tables(ctx, keyspace)
		if err != nil {
			level.Error(r.logger).Log("msg", "keyspace discovery failed", "keyspace", keyspace, "err", err)
			continue
		}
		for _, schema := range schemas {
			schema := schema
			g.Go(func() error {
				r.profileTable(gctx, schema)
				return nil
			})
		}
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	if err := r.writer.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	level.Info(r.logger).Log("msg", "run complete", "duration", time.Since(start))
	return ctx.Err()
}

// selectKeyspaces applies the include filter to the discovered keyspaces.
// An empty filter selects everything.
func (r *Runner) selectKeyspaces(ctx context.Context) ([]string, error) {
	keyspaces, err := r.store.Keyspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover keyspaces: %w", err)
	}
	if len(r.config.Keyspaces) == 0 {
		return keyspaces, nil
	}

	include := make(map[string]struct{}, len(r.config.Keyspaces))
	for _, k := range r.config.Keyspaces {
		include[k] = struct{}{}
	}
	var selected []string
	for _, k := range keyspaces {
		if _, ok := include[k]; ok {
			selected = append(selected, k)
		}
	}
	return selected, nil
}

// profileTable samples one table and records the outcome. It always records
// exactly one report entry, whatever happens.
func (r *Runner) profileTable(ctx context.Context, schema *profile.Schema) {
	ctx, span := tracer.Start(ctx, "gauge.profileTable")
	defer span.End()

	rows, err := r.store.SampleRows(ctx, schema, r.config.SampleLimit)
	if err != nil {
		level.Error(r.logger).Log("msg", "sampling failed to start", "table", schema.Name(), "err", err)
		prof := profile.NewProfile(schema)
		prof.Incomplete = true
		r.record(prof)
		return
	}

	prof, err := profile.Table(ctx, schema, rows, r.config.SampleLimit)
	if err != nil {
		span.RecordError(err)
		level.Error(r.logger).Log("msg", "table sample incomplete", "table", schema.Name(), "err", err)
	}
	r.record(prof)
}

func (r *Runner) record(prof *profile.TableProfile) {
	switch {
	case prof.Incomplete:
		r.metrics.TablesProfiled.WithLabelValues("incomplete").Inc()
	case prof.Stats == nil:
		r.metrics.TablesProfiled.WithLabelValues("empty").Inc()
	default:
		r.metrics.TablesProfiled.WithLabelValues("ok").Inc()
	}
	if prof.Stats != nil {
		r.metrics.RowsSampled.Add(float64(prof.Stats.Count))
		r.metrics.EstimatedBytes.Add(prof.Stats.Mean * float64(prof.Stats.Count))
		level.Debug(r.logger).Log("msg", "table profiled",
			"table", prof.Name(),
			"rows", prof.Stats.Count,
			"mean", prof.Stats.Mean)
	}

	if err := r.writer.Add(prof); err != nil {
		level.Error(r.logger).Log("msg", "report write failed", "table", prof.Name(), "err", err)
	}
}
