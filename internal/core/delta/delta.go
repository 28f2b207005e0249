// Package delta turns a chronological sequence of cumulative snapshots into
// per-period differences, detecting billing-cycle rollovers along the way.
//
// Counters tracked here are monotonically non-decreasing within one billing
// cycle and drop at a cycle boundary. Every strict decrease of the primary
// field is treated as a rollover, with no minimum-drop tolerance: the counter
// is re-anchored at zero and the record's raw values become its deltas.
package delta

import (
	"github.com/shopspring/decimal"
)

// Point is one cumulative sample. Points must be supplied in ascending
// chronological order; days need not be contiguous.
type Point struct {
	Label  string
	Fields map[string]decimal.Decimal
}

// Entry is the per-period difference for one point. When Reset is set the
// fields are the point's raw values (baseline re-anchored to zero) rather
// than differences against the predecessor.
type Entry struct {
	Label  string
	Fields map[string]decimal.Decimal
	Reset  bool
}

// Result is the engine output. Resets holds indices into the input sequence,
// so downstream discontinuity markers can be aligned with the source records.
type Result struct {
	Entries []Entry
	Resets  []int
}

// Options controls one computation.
type Options struct {
	// PrimaryField keys reset detection: a decrease in this field re-anchors
	// the baseline for every field. Empty disables reset detection entirely.
	PrimaryField string

	// EmitFirst also emits an entry for the first point, differenced against
	// an explicit zero baseline. Used when the window carries no anchor
	// record: the earliest sample is then assumed to start its cycle.
	EmitFirst bool
}

// Compute walks points in order and produces one entry per point after the
// first (per point including the first with Options.EmitFirst). The baseline
// for each entry is the immediately preceding point's raw values, except
// right after a detected rollover, where it is zero.
func Compute(points []Point, opts Options) Result {
	var res Result
	if len(points) == 0 {
		return res
	}

	if opts.EmitFirst {
		// No predecessor exists; an explicit zero baseline makes the first
		// point's raw values its own period deltas.
		res.Entries = append(res.Entries, Entry{
			Label:  points[0].Label,
			Fields: copyFields(points[0].Fields),
		})
	}

	prev := points[0].Fields
	for i := 1; i < len(points); i++ {
		cur := points[i].Fields

		if isReset(opts.PrimaryField, prev, cur) {
			res.Entries = append(res.Entries, Entry{
				Label:  points[i].Label,
				Fields: copyFields(cur),
				Reset:  true,
			})
			res.Resets = append(res.Resets, i)
		} else {
			res.Entries = append(res.Entries, Entry{
				Label:  points[i].Label,
				Fields: subtract(cur, prev),
			})
		}

		// The rolling previous state always advances, rollover or not, so
		// consecutive rollovers are each judged against their own predecessor.
		prev = cur
	}

	return res
}

// isReset reports whether cur's primary field decreased relative to prev.
func isReset(primary string, prev, cur map[string]decimal.Decimal) bool {
	if primary == "" {
		return false
	}
	curVal, ok := cur[primary]
	if !ok {
		return false
	}
	prevVal, ok := prev[primary]
	if !ok {
		return false
	}
	return curVal.LessThan(prevVal)
}

// subtract differences cur against base per field. Fields absent from the
// base anchor against zero.
func subtract(cur, base map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(cur))
	for name, value := range cur {
		out[name] = value.Sub(base[name])
	}
	return out
}

func copyFields(fields map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(fields))
	for name, value := range fields {
		out[name] = value
	}
	return out
}
