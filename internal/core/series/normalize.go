package series

import (
	"time"

	"github.com/shopspring/decimal"
)

var kibi = decimal.NewFromInt(1024)

// FormatDataSize renders a megabyte counter as a human gigabyte string,
// fixed to two decimal places: 12625.92 -> "12.33 GB".
func FormatDataSize(mb decimal.Decimal) string {
	return mb.Div(kibi).StringFixed(2) + " GB"
}

// BroadbandReading is the raw cumulative counter set reported by the portal,
// in megabytes. Total is cycle-cumulative; Balance counts down remaining quota.
type BroadbandReading struct {
	Download decimal.Decimal
	Upload   decimal.Decimal
	Balance  decimal.Decimal
	Total    decimal.Decimal
}

// NormalizeBroadband converts a raw portal reading into the canonical
// day-keyed snapshot. Pure: no state, no clock reads.
func NormalizeBroadband(r BroadbandReading, capturedAt time.Time, loc *time.Location) Snapshot {
	fields := map[string]decimal.Decimal{
		FieldDownload: r.Download,
		FieldUpload:   r.Upload,
		FieldBalance:  r.Balance,
		FieldTotal:    r.Total,
	}

	display := make(map[string]string, len(fields))
	for name, value := range fields {
		display[name] = FormatDataSize(value)
	}

	return Snapshot{
		Series:     Broadband,
		Day:        DayOf(capturedAt, loc),
		CapturedAt: capturedAt,
		Fields:     fields,
		Display:    display,
	}
}

// PackageCounts is the per-package download tuple from the registry point API.
type PackageCounts struct {
	LastDay   int64
	LastWeek  int64
	LastMonth int64
	LastYear  int64
}

// NormalizePackage converts one package's download counts into its snapshot.
func NormalizePackage(name string, c PackageCounts, capturedAt time.Time, loc *time.Location) Snapshot {
	return Snapshot{
		Series:     PackageSeries(name),
		Day:        DayOf(capturedAt, loc),
		CapturedAt: capturedAt,
		Fields: map[string]decimal.Decimal{
			FieldDaily:   decimal.NewFromInt(c.LastDay),
			FieldWeekly:  decimal.NewFromInt(c.LastWeek),
			FieldMonthly: decimal.NewFromInt(c.LastMonth),
			FieldYearly:  decimal.NewFromInt(c.LastYear),
		},
	}
}
