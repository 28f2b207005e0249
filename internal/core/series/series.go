package series

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ID identifies one tracked metric stream.
// Broadband usage is a single stream; each tracked registry package gets its own.
type ID string

const (
	// Broadband is the cumulative broadband-usage stream.
	Broadband ID = "broadband"

	packagePrefix = "npm-downloads/"
)

// PackageSeries returns the stream ID for one tracked registry package.
func PackageSeries(name string) ID {
	return ID(packagePrefix + name)
}

// Broadband field names. Total is the primary field for cycle-reset detection:
// it is cumulative within one billing cycle and drops to (near) zero on rollover.
const (
	FieldDownload = "download"
	FieldUpload   = "upload"
	FieldBalance  = "balance"
	FieldTotal    = "total"
)

// Package download field names. These are point-in-time window counts reported
// by the registry, not cycle-cumulative counters, so no reset semantics apply.
const (
	FieldDaily   = "daily"
	FieldWeekly  = "weekly"
	FieldMonthly = "monthly"
	FieldYearly  = "yearly"
)

// Snapshot is one normalized sample of a stream, keyed by calendar day.
// Later writes for the same (Series, Day) replace the prior record whole;
// a snapshot always carries the complete field set, never a partial merge.
type Snapshot struct {
	Series     ID                         `json:"series"`
	Day        time.Time                  `json:"day"`
	CapturedAt time.Time                  `json:"captured_at"`
	Fields     map[string]decimal.Decimal `json:"fields"`
	Display    map[string]string          `json:"display,omitempty"`
}

// DayKey is the store's natural key for the snapshot's calendar day.
func (s Snapshot) DayKey() string {
	return s.Day.Format("2006-01-02")
}

// CapturedAtMillis is the ingestion timestamp used as the ordering tie-break
// when two captures land on the same day.
func (s Snapshot) CapturedAtMillis() int64 {
	return s.CapturedAt.UnixMilli()
}

// Validate ensures a snapshot is complete enough to persist.
func (s *Snapshot) Validate() error {
	if s.Series == "" {
		return fmt.Errorf("series is required")
	}
	if s.Day.IsZero() {
		return fmt.Errorf("day is required")
	}
	if s.CapturedAt.IsZero() {
		return fmt.Errorf("captured_at is required")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("fields must not be empty")
	}
	return nil
}

// DayOf truncates an instant to its calendar day in the reporting zone.
func DayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
