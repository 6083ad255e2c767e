package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablegauge/tablegauge/pkg/profile"
)

// Line renders one table profile as its fixed report line. The shape is
// stable; downstream tooling greps these lines.
func Line(p *profile.TableProfile) string {
	var line string
	if p.Stats == nil {
		line = fmt.Sprintf("%s: no rows sampled columns=%d blob=%t static=%t ttl=%t",
			p.Name(), p.Columns, p.HasBlob, p.HasStatic, p.HasDefaultTTL)
	} else {
		line = fmt.Sprintf("%s: sampled=%d columns=%d mean=%.2f stdev=%.2f min=%d max=%d blob=%t static=%t ttl=%t",
			p.Name(), p.Stats.Count, p.Columns, p.Stats.Mean, p.Stats.Stdev,
			p.Stats.Min, p.Stats.Max, p.HasBlob, p.HasStatic, p.HasDefaultTTL)
	}
	if p.Incomplete {
		line += " (incomplete)"
	}
	return line
}

// Document is the JSON report envelope.
type Document struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Tables     []*profile.TableProfile `json:"tables"`
}

// Writer serializes report entries onto a single output stream. Add is safe
// for concurrent use; profiling workers share one Writer.
type Writer struct {
	mtx     sync.Mutex
	w       io.Writer
	json    bool
	runID   uuid.UUID
	started time.Time
	tables  []*profile.TableProfile
}

// NewWriter returns a report writer. In JSON mode entries are collected and
// emitted as one document on Flush; in text mode each entry is written as a
// line immediately.
func NewWriter(w io.Writer, asJSON bool) *Writer {
	return &Writer{
		w:       w,
		json:    asJSON,
		runID:   uuid.New(),
		started: time.Now().UTC(),
	}
}

// RunID identifies this report run.
func (w *Writer) RunID() uuid.UUID {
	return w.runID
}

// Add records one table's entry.
func (w *Writer) Add(p *profile.TableProfile) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.json {
		w.tables = append(w.tables, p)
		return nil
	}
	if _, err := fmt.Fprintln(w.w, Line(p)); err != nil {
		return fmt.Errorf("write report line: %w", err)
	}
	return nil
}

// Flush finalizes the report. Text mode has nothing buffered; JSON mode
// writes the whole document, tables sorted by name so concurrent runs
// produce stable output.
func (w *Writer) Flush() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if !w.json {
		return nil
	}

	sort.Slice(w.tables, func(i, j int) bool { return w.tables[i].Name() < w.tables[j].Name() })
	doc := Document{
		RunID:      w.runID.String(),
		StartedAt:  w.started,
		FinishedAt: time.Now().UTC(),
		Tables:     w.tables,
	}

	enc := json.NewEncoder(w.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
