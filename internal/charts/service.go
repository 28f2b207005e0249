// Package charts serves chart-ready projections of the persisted snapshot
// streams: cumulative usage, day-over-day deltas with cycle-reset markers,
// and per-package download counts.
package charts

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meterdash-lab/project-meterdash/internal/core/delta"
	"github.com/meterdash-lab/project-meterdash/internal/core/series"
	"github.com/meterdash-lab/project-meterdash/internal/core/storage"
)

// broadbandFields fixes the column order of the usage charts.
var broadbandFields = []string{series.FieldTotal, series.FieldDownload, series.FieldUpload}

// downloadFields fixes the column order of the package charts.
var downloadFields = []string{series.FieldDaily, series.FieldWeekly, series.FieldMonthly, series.FieldYearly}

// Refresher triggers an ingestion cycle ahead of a reload. The refresh
// endpoints never inspect its result beyond logging.
type Refresher interface {
	IngestBroadband(ctx context.Context, announce bool) (*series.Snapshot, error)
	IngestDownloads(ctx context.Context, announce bool) ([]series.Snapshot, error)
}

// Config tunes the read side.
type Config struct {
	// DefaultRecords is the display window size when the request carries no
	// records/limit parameter.
	DefaultRecords int

	// IncludeAnchor also plots the anchor record in the cumulative chart.
	IncludeAnchor bool

	// ZeroBaselineFirst emits a delta for the earliest record of a short
	// window (one with no anchor record), differenced against zero. Off by
	// default: a window that starts mid-cycle would otherwise report the
	// whole cycle-to-date as one day's delta.
	ZeroBaselineFirst bool

	// Packages are the tracked registry packages, in display order.
	Packages []string
}

// Service implements the windowed query -> delta engine -> projection read path.
type Service struct {
	store     storage.SnapshotStore
	refresher Refresher
	cfg       Config
	loc       *time.Location
}

// NewService creates the chart read service. refresher may be nil when the
// refresh endpoints are not wanted (read-only deployments).
func NewService(store storage.SnapshotStore, refresher Refresher, cfg Config, loc *time.Location) *Service {
	if store == nil {
		panic("charts: store must not be nil")
	}
	if cfg.DefaultRecords <= 0 {
		cfg.DefaultRecords = 30
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, refresher: refresher, cfg: cfg, loc: loc}
}

// BroadbandCharts is the broadband chart payload: the cumulative counters and
// the per-day deltas with cycle-reset discontinuity markers.
type BroadbandCharts struct {
	TotalUsage  ChartData `json:"total_usage"`
	DailyUsage  ChartData `json:"daily_usage"`
	LastUpdated string    `json:"last_updated,omitempty"`
}

// Broadband runs the read path for the broadband stream over a window of
// records days.
func (s *Service) Broadband(ctx context.Context, records int) (*BroadbandCharts, error) {
	w, err := s.loadWindow(ctx, series.Broadband, records)
	if err != nil {
		return nil, err
	}

	points := toPoints(w.full)
	result := delta.Compute(points, delta.Options{
		PrimaryField: series.FieldTotal,
		EmitFirst:    s.cfg.ZeroBaselineFirst && len(w.full) <= records,
	})

	cumulative := w.display
	if s.cfg.IncludeAnchor {
		cumulative = w.full
	}

	charts := &BroadbandCharts{
		TotalUsage: cumulativeChart(cumulative, broadbandFields),
		DailyUsage: deltaChart(result.Entries, broadbandFields),
	}

	// An empty stream has no "last updated" instant; leave the label blank
	// rather than inventing one.
	if len(w.full) > 0 {
		charts.LastUpdated = w.full[len(w.full)-1].CapturedAt.In(s.loc).Format("02 Jan 2006 15:04")
	}

	return charts, nil
}

// PackageChart is one tracked package's download-count chart.
type PackageChart struct {
	Package string    `json:"package"`
	Chart   ChartData `json:"chart"`
}

// Downloads projects the download-count streams for every tracked package.
// The counts are point-in-time window values from the registry, not
// cycle-cumulative counters, so no deltas or reset markers apply. The
// per-package reads are independent and run concurrently.
func (s *Service) Downloads(ctx context.Context, records int) ([]PackageChart, error) {
	charts := make([]PackageChart, len(s.cfg.Packages))

	g, gctx := errgroup.WithContext(ctx)
	for i, pkg := range s.cfg.Packages {
		g.Go(func() error {
			w, err := s.loadWindow(gctx, series.PackageSeries(pkg), records)
			if err != nil {
				return err
			}
			charts[i] = PackageChart{
				Package: pkg,
				Chart:   cumulativeChart(w.display, downloadFields),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return charts, nil
}

// RefreshBroadband ingests the newest broadband sample and reloads the
// charts. Ingestion failure does not block the reload: the charts simply
// re-display the latest persisted data.
func (s *Service) RefreshBroadband(ctx context.Context, records int) (*BroadbandCharts, error) {
	if s.refresher != nil {
		if _, err := s.refresher.IngestBroadband(ctx, false); err != nil {
			slog.Warn("Broadband refresh ingestion failed, reloading persisted data", "error", err)
		}
	}
	return s.Broadband(ctx, records)
}

// RefreshDownloads ingests fresh download counts and reloads the charts.
func (s *Service) RefreshDownloads(ctx context.Context, records int) ([]PackageChart, error) {
	if s.refresher != nil {
		if _, err := s.refresher.IngestDownloads(ctx, false); err != nil {
			slog.Warn("Downloads refresh ingestion failed, reloading persisted data", "error", err)
		}
	}
	return s.Downloads(ctx, records)
}

func toPoints(snapshots []series.Snapshot) []delta.Point {
	points := make([]delta.Point, 0, len(snapshots))
	for _, snap := range snapshots {
		points = append(points, delta.Point{Label: snap.DayKey(), Fields: snap.Fields})
	}
	return points
}
