// Package report renders benchmark results as human-readable text.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"

	"github.com/joeycumines/go-wakerbench"
)

const ruleWidth = 60

// Config describes the run, for the banner.
type Config struct {
	Iterations int
	Warmup     int
	Burst      int
}

// Writer writes the sections of the report to an underlying io.Writer.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Banner writes the title and run configuration.
func (x *Writer) Banner(cfg Config) error {
	var b strings.Builder
	b.WriteString(heading("Wakeup Latency Benchmark"))
	fmt.Fprintf(&b, "\nIterations: %d (warmup: %d)\n", cfg.Iterations, cfg.Warmup)
	if cfg.Burst > 0 {
		fmt.Fprintf(&b, "Burst: %d signals\n", cfg.Burst)
	}
	b.WriteString("\nScenario: the scheduler waits, a foreign OS thread sends the notification\n")
	return x.write(b.String(), "writing banner")
}

// Progress writes a single progress line.
func (x *Writer) Progress(format string, args ...any) error {
	return x.write(fmt.Sprintf(format, args...)+"\n", "writing progress")
}

// Results writes the statistics table then the relative summary. The first
// result is the base of the relative summary.
func (x *Writer) Results(results []*wakerbench.BenchmarkResult) error {
	if len(results) == 0 {
		return errors.New("no results")
	}
	if err := x.write("\n"+heading("Results"), "writing results heading"); err != nil {
		return err
	}
	if err := x.write(StatsTable(results)+"\n", "writing statistics"); err != nil {
		return err
	}
	if err := x.write("\n"+heading("Summary"), "writing summary heading"); err != nil {
		return err
	}
	if err := x.write(SummaryTable(results)+"\n", "writing summary"); err != nil {
		return err
	}
	if len(results) >= 2 {
		if err := x.write("\n"+Comparison(results[0], results[1])+"\n", "writing comparison"); err != nil {
			return err
		}
	}
	return nil
}

// Bursts writes the burst throughput table. Nothing is written for no
// results.
func (x *Writer) Bursts(results []*wakerbench.BurstResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := x.write("\n"+heading("Burst throughput"), "writing burst heading"); err != nil {
		return err
	}
	return x.write(BurstTable(results)+"\n", "writing burst throughput")
}

// Lock writes the execution lock's contention counters.
func (x *Writer) Lock(stats wakerbench.LockStats) error {
	return x.write(fmt.Sprintf(
		"\nExecution lock %q: %d acquisitions, %d contended, %.1f µs waiting\n",
		stats.Name,
		stats.Acquisitions,
		stats.Contended,
		float64(stats.Wait)/1e3,
	), "writing lock stats")
}

func (x *Writer) write(s string, what string) error {
	if _, err := io.WriteString(x.w, s); err != nil {
		return errors.Wrap(err, what)
	}
	return nil
}

// StatsTable renders one row of statistics per result, in microseconds.
// The P99 column shows "n/a" for results with fewer than 100 samples.
func StatsTable(results []*wakerbench.BenchmarkResult) string {
	t := newTable()
	t.AppendHeader(table.Row{"Mechanism", "Samples", "Mean (µs)", "Median (µs)", "Stdev (µs)", "Min (µs)", "Max (µs)", "P99 (µs)"})
	for _, r := range results {
		s := r.Stats()
		p99 := "n/a"
		if s.HasP99 {
			p99 = micros(float64(s.P99))
		}
		t.AppendRow(table.Row{
			r.Mechanism,
			s.Count,
			micros(s.Mean),
			micros(s.Median),
			micros(s.Stdev),
			micros(float64(s.Min)),
			micros(float64(s.Max)),
			p99,
		})
	}
	return t.Render()
}

// SummaryTable renders each result's mean relative to the first.
func SummaryTable(results []*wakerbench.BenchmarkResult) string {
	t := newTable()
	t.AppendHeader(table.Row{"Approach", "Mean (µs)", "Relative"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Mechanism,
			micros(r.Stats().Mean),
			fmt.Sprintf("%.1fx", r.Relative(results[0])),
		})
	}
	return t.Render()
}

// Comparison states which of a and b had the lower mean, and by what
// factor.
func Comparison(a, b *wakerbench.BenchmarkResult) string {
	am, bm := a.Stats().Mean, b.Stats().Mean
	switch {
	case am == 0 || bm == 0:
		return fmt.Sprintf("%s and %s are not comparable", a.Mechanism, b.Mechanism)
	case am < bm:
		return fmt.Sprintf("%s is %.1fx faster than %s", a.Mechanism, bm/am, b.Mechanism)
	case bm < am:
		return fmt.Sprintf("%s is %.1fx faster than %s", b.Mechanism, am/bm, a.Mechanism)
	default:
		return fmt.Sprintf("%s and %s have the same mean", a.Mechanism, b.Mechanism)
	}
}

// BurstTable renders one row per burst result.
func BurstTable(results []*wakerbench.BurstResult) string {
	t := newTable()
	t.AppendHeader(table.Row{"Mechanism", "Signals", "Wakeups", "Signals/wakeup", "Elapsed (µs)", "Signals/s"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Mechanism,
			r.Signals,
			r.Wakeups,
			fmt.Sprintf("%.1f", r.Coalescing()),
			micros(float64(r.Elapsed)),
			fmt.Sprintf("%.0f", r.Throughput()),
		})
	}
	return t.Render()
}

func newTable() table.Writer {
	t := table.NewWriter()
	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault
	return t
}

func heading(title string) string {
	rule := strings.Repeat("=", ruleWidth)
	return rule + "\n" + title + "\n" + rule + "\n"
}

func micros(ns float64) string {
	return fmt.Sprintf("%.1f", ns/1e3)
}
