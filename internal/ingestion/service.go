package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
	"github.com/meterdash-lab/project-meterdash/internal/core/storage"
	"github.com/meterdash-lab/project-meterdash/internal/notify"
)

// ErrFeedUnavailable marks upstream-fetch failures that should return HTTP 502.
var ErrFeedUnavailable = errors.New("upstream feed unavailable")

// BroadbandFeed is the portal fetch boundary.
// A (nil, nil) return means the portal answered with no usable payload and
// the sample is skipped.
type BroadbandFeed interface {
	Fetch(ctx context.Context) (*series.BroadbandReading, error)
}

// DownloadsFeed is the registry fetch boundary.
type DownloadsFeed interface {
	Fetch(ctx context.Context, pkg string) (series.PackageCounts, error)
}

// Service samples the two upstream feeds and persists normalized snapshots.
type Service struct {
	broadband BroadbandFeed
	registry  DownloadsFeed
	store     storage.SnapshotStore
	notifier  notify.Notifier
	packages  []string
	loc       *time.Location
	nowFn     func() time.Time
}

// NewService wires the ingestion pipeline. The notifier is injected rather
// than shared process-wide so tests can observe or silence it.
func NewService(
	broadband BroadbandFeed,
	registry DownloadsFeed,
	store storage.SnapshotStore,
	notifier notify.Notifier,
	packages []string,
	loc *time.Location,
) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		broadband: broadband,
		registry:  registry,
		store:     store,
		notifier:  notifier,
		packages:  packages,
		loc:       loc,
		nowFn:     time.Now,
	}
}

// IngestBroadband fetches one broadband sample, persists it, and optionally
// announces it. Returns (nil, nil) when the portal produced no usable
// payload; nothing is written or announced in that case.
func (s *Service) IngestBroadband(ctx context.Context, announce bool) (*series.Snapshot, error) {
	runID := uuid.NewString()

	reading, err := s.broadband.Fetch(ctx)
	if err != nil {
		slog.Error("Broadband fetch failed", "run_id", runID, "error", err)
		s.reportError(ctx, "broadbandUsage", err)
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	if reading == nil {
		slog.Warn("Broadband portal returned no usable payload, skipping sample", "run_id", runID)
		return nil, nil
	}

	snap := series.NormalizeBroadband(*reading, s.nowFn(), s.loc)
	if err := s.store.Upsert(ctx, &snap); err != nil {
		return nil, fmt.Errorf("failed to persist broadband snapshot: %w", err)
	}

	slog.Info("Broadband snapshot persisted",
		"run_id", runID,
		"day", snap.DayKey(),
		"total", snap.Display[series.FieldTotal])

	if announce {
		if err := s.notifier.SendBroadbandUsage(ctx, snap); err != nil {
			slog.Error("Broadband notification failed", "run_id", runID, "error", err)
		}
	}

	return &snap, nil
}

// IngestDownloads fetches download counts for every tracked package
// concurrently, persists one snapshot per package, and optionally announces
// the batch.
func (s *Service) IngestDownloads(ctx context.Context, announce bool) ([]series.Snapshot, error) {
	runID := uuid.NewString()
	capturedAt := s.nowFn()

	snapshots := make([]series.Snapshot, len(s.packages))

	g, gctx := errgroup.WithContext(ctx)
	for i, pkg := range s.packages {
		g.Go(func() error {
			counts, err := s.registry.Fetch(gctx, pkg)
			if err != nil {
				return fmt.Errorf("fetch downloads for %s: %w", pkg, err)
			}
			snapshots[i] = series.NormalizePackage(pkg, counts, capturedAt, s.loc)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Downloads fetch failed", "run_id", runID, "error", err)
		s.reportError(ctx, "npmDownloads", err)
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	for i := range snapshots {
		if err := s.store.Upsert(ctx, &snapshots[i]); err != nil {
			return nil, fmt.Errorf("failed to persist downloads snapshot for %s: %w", snapshots[i].Series, err)
		}
	}

	slog.Info("Download snapshots persisted", "run_id", runID, "packages", len(snapshots))

	if announce {
		if err := s.notifier.SendDownloadCounts(ctx, snapshots); err != nil {
			slog.Error("Downloads notification failed", "run_id", runID, "error", err)
		}
	}

	return snapshots, nil
}

// reportError pushes a feed failure to the chat channel. Notification errors
// are logged, never propagated: they must not change ingestion control flow.
func (s *Service) reportError(ctx context.Context, source string, err error) {
	if notifyErr := s.notifier.SendError(ctx, source, err); notifyErr != nil {
		slog.Error("Error notification failed", "source", source, "error", notifyErr)
	}
}
