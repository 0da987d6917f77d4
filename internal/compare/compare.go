// Package compare computes statistically grounded differences between two
// benchmark result sets.
package compare

import (
	"math"
	"strings"

	"github.com/matsen/ae/internal/bench"
	"golang.org/x/perf/benchmath"
)

// Confidence is the confidence level of reported ranges.
const Confidence = 0.95

// Stat summarizes one side of a row.
type Stat struct {
	Center float64  `json:"center"`
	Lo     *float64 `json:"lo,omitempty"` // nil when too few samples bound the interval
	Hi     *float64 `json:"hi,omitempty"`
	N      int      `json:"n"`
	Range  string   `json:"range"` // e.g. "2%", or "∞" without bounds
}

// Row compares one benchmark in one unit.
type Row struct {
	bench.Key
	Old         *Stat    `json:"old,omitempty"`
	New         *Stat    `json:"new,omitempty"`
	Delta       string   `json:"delta"`               // "+1.23%", "~", or "" when one side is missing
	DeltaPct    *float64 `json:"delta_pct,omitempty"` // only set when significant
	P           float64  `json:"p,omitempty"`
	Test        string   `json:"test,omitempty"` // "p=0.008 n=5"
	Significant bool     `json:"significant"`
	Status      string   `json:"status"` // "both", "new", or "removed"
	Warnings    []string `json:"warnings,omitempty"`
}

// Geomean is the geometric mean of the row centers in one unit.
type Geomean struct {
	Unit  string  `json:"unit"`
	Old   float64 `json:"old"`
	New   float64 `json:"new"`
	Delta string  `json:"delta"`
}

// Report is the result of Compare.
type Report struct {
	Alpha       float64   `json:"alpha"`
	HasBaseline bool      `json:"has_baseline"`
	Rows        []Row     `json:"rows"`
	Geomeans    []Geomean `json:"geomeans,omitempty"`
}

// Compare summarizes old and new with a distribution-free test at
// significance level alpha. Rows follow first appearance in new, then
// rows that only exist in old.
func Compare(old, new *bench.Set, alpha float64) *Report {
	thresholds := benchmath.DefaultThresholds
	thresholds.CompareAlpha = alpha
	assumption := benchmath.AssumeNothing

	oldKeys, oldVals := old.Series()
	newKeys, newVals := new.Series()

	report := &Report{Alpha: alpha, HasBaseline: old.Len() > 0}

	keys := append([]bench.Key(nil), newKeys...)
	for _, k := range oldKeys {
		if _, ok := newVals[k]; !ok {
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		row := Row{Key: k}
		var oldSample, newSample *benchmath.Sample
		if vs, ok := oldVals[k]; ok {
			oldSample = benchmath.NewSample(append([]float64(nil), vs...), &thresholds)
			row.Old = summarize(assumption, oldSample)
		}
		if vs, ok := newVals[k]; ok {
			newSample = benchmath.NewSample(append([]float64(nil), vs...), &thresholds)
			row.New = summarize(assumption, newSample)
		}

		switch {
		case oldSample != nil && newSample != nil:
			row.Status = "both"
			c := assumption.Compare(oldSample, newSample)
			row.P = c.P
			row.Test = c.String()
			row.Delta = c.FormatDelta(row.Old.Center, row.New.Center)
			row.Significant = c.P < alpha && row.Old.Center != row.New.Center
			if row.Significant && row.Old.Center != 0 {
				pct := (row.New.Center/row.Old.Center - 1) * 100
				row.DeltaPct = &pct
			}
			for _, w := range c.Warnings {
				row.Warnings = append(row.Warnings, w.Error())
			}
		case newSample != nil:
			row.Status = "new"
		default:
			row.Status = "removed"
		}
		report.Rows = append(report.Rows, row)
	}

	report.Geomeans = geomeans(report.Rows)
	return report
}

func summarize(a benchmath.Assumption, s *benchmath.Sample) *Stat {
	sum := a.Summary(s, Confidence)
	return &Stat{
		Center: sum.Center,
		Lo:     Bound(sum.Lo),
		Hi:     Bound(sum.Hi),
		N:      len(s.Values),
		Range:  sum.PctRangeString(),
	}
}

// Bound returns v, or nil when v is infinite or NaN. Confidence bounds are
// unbounded below six samples and cannot be encoded as JSON numbers.
func Bound(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// geomeans computes per-unit geometric means of the row centers. A unit
// is omitted when any of its rows is missing a side or has a non-positive
// center, since the two means would not cover the same benchmarks.
func geomeans(rows []Row) []Geomean {
	type acc struct {
		oldLog, newLog float64
		n              int
		partial        bool
	}
	var units []string
	accs := make(map[string]*acc)
	for _, r := range rows {
		a, ok := accs[r.Unit]
		if !ok {
			a = &acc{}
			accs[r.Unit] = a
			units = append(units, r.Unit)
		}
		if r.Old == nil || r.New == nil || r.Old.Center <= 0 || r.New.Center <= 0 {
			a.partial = true
			continue
		}
		a.oldLog += math.Log(r.Old.Center)
		a.newLog += math.Log(r.New.Center)
		a.n++
	}

	var out []Geomean
	for _, u := range units {
		a := accs[u]
		if a.partial || a.n == 0 {
			continue
		}
		g := Geomean{
			Unit: u,
			Old:  math.Exp(a.oldLog / float64(a.n)),
			New:  math.Exp(a.newLog / float64(a.n)),
		}
		g.Delta = formatPct((g.New/g.Old - 1) * 100)
		out = append(out, g)
	}
	return out
}

// HigherIsBetter reports whether larger values of unit are improvements.
func HigherIsBetter(unit string) bool {
	return strings.HasSuffix(unit, "/s")
}

// Regression is a significant change in the bad direction.
type Regression struct {
	Row
	Pct float64 `json:"pct"` // size of the slowdown, always positive
}

// Regressions returns significant changes worse than thresholdPct percent.
func (r *Report) Regressions(thresholdPct float64) []Regression {
	var out []Regression
	for _, row := range r.Rows {
		if !row.Significant || row.DeltaPct == nil {
			continue
		}
		worse := *row.DeltaPct
		if HigherIsBetter(row.Unit) {
			worse = -worse
		}
		if worse > thresholdPct {
			out = append(out, Regression{Row: row, Pct: worse})
		}
	}
	return out
}

// Significant returns the rows whose change passed the test.
func (r *Report) Significant() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Significant {
			out = append(out, row)
		}
	}
	return out
}
