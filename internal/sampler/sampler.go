// Package sampler triggers scheduled ingestion of both upstream feeds.
package sampler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// Ingestor is the ingestion trigger boundary, satisfied by the ingestion
// service.
type Ingestor interface {
	IngestBroadband(ctx context.Context, announce bool) (*series.Snapshot, error)
	IngestDownloads(ctx context.Context, announce bool) ([]series.Snapshot, error)
}

// Sampler runs both feed ingestions on a periodic interval.
// It is stateless: each tick is an independent fetch-and-persist cycle, and a
// failed tick is simply retried by the next one.
type Sampler struct {
	interval time.Duration
	ingestor Ingestor
	announce bool
}

// New creates a sampler. announce controls whether scheduled samples are
// pushed to the chat channel.
func New(interval time.Duration, ingestor Ingestor, announce bool) *Sampler {
	return &Sampler{
		interval: interval,
		ingestor: ingestor,
		announce: announce,
	}
}

// Start begins periodic sampling. An initial sample runs immediately so a
// fresh deployment has data before the first tick. Runs until the context is
// cancelled.
func (s *Sampler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Sampler] Starting feed sampler",
		"interval", s.interval,
		"announce", s.announce,
	)

	s.sampleAll(ctx)

	for {
		select {
		case <-ticker.C:
			s.sampleAll(ctx)
		case <-ctx.Done():
			slog.Info("[Sampler] Stopping (context cancelled)")
			return nil
		}
	}
}

// sampleAll ingests both feeds concurrently. The two streams are
// independent; one feed failing never blocks the other.
func (s *Sampler) sampleAll(ctx context.Context) {
	var g errgroup.Group

	g.Go(func() error {
		if _, err := s.ingestor.IngestBroadband(ctx, s.announce); err != nil {
			slog.Error("[Sampler] Broadband sample failed", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		if _, err := s.ingestor.IngestDownloads(ctx, s.announce); err != nil {
			slog.Error("[Sampler] Downloads sample failed", "error", err)
		}
		return nil
	})

	g.Wait()
}
