package charts

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/meterdash-lab/project-meterdash/internal/core/delta"
	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// RegionClassReset marks a billing-cycle discontinuity. The rendering layer
// draws a visual break there instead of connecting the two points with a
// misleading steep drop.
const RegionClassReset = "cycle-reset"

// Column is one named value sequence for the rendering surface.
type Column struct {
	Name   string            `json:"name"`
	Values []decimal.Decimal `json:"values"`
}

// Region is a discontinuity marker aligned to a category index.
type Region struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Class string `json:"class"`
}

// ChartData is the column/axis structure consumed by the rendering surface.
type ChartData struct {
	Columns    []Column `json:"columns"`
	Categories []string `json:"categories"`
	Regions    []Region `json:"regions,omitempty"`
}

// cumulativeChart projects raw snapshot values for the given fields, in the
// order the window produced them.
func cumulativeChart(snapshots []series.Snapshot, fields []string) ChartData {
	return ChartData{
		Columns: lo.Map(fields, func(field string, _ int) Column {
			return Column{
				Name: field,
				Values: lo.Map(snapshots, func(snap series.Snapshot, _ int) decimal.Decimal {
					return snap.Fields[field]
				}),
			}
		}),
		Categories: lo.Map(snapshots, func(snap series.Snapshot, _ int) string {
			return snap.DayKey()
		}),
	}
}

// deltaChart projects engine output for the given fields. Entries flagged as
// resets become discontinuity regions at their category index, so the
// alignment survives any leading zero-baseline entry.
func deltaChart(entries []delta.Entry, fields []string) ChartData {
	data := ChartData{
		Columns: lo.Map(fields, func(field string, _ int) Column {
			return Column{
				Name: field,
				Values: lo.Map(entries, func(entry delta.Entry, _ int) decimal.Decimal {
					return entry.Fields[field]
				}),
			}
		}),
		Categories: lo.Map(entries, func(entry delta.Entry, _ int) string {
			return entry.Label
		}),
	}

	for i, entry := range entries {
		if entry.Reset {
			data.Regions = append(data.Regions, Region{
				Index: i,
				Label: entry.Label,
				Class: RegionClassReset,
			})
		}
	}

	return data
}
