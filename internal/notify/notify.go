// Package notify pushes ingestion results to a chat channel.
// Delivery is fire-and-forget: callers log notifier errors but never let
// them fail ingestion.
package notify

import (
	"context"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// Notifier is the outbound message channel for new samples and feed errors.
type Notifier interface {
	SendBroadbandUsage(ctx context.Context, snap series.Snapshot) error
	SendDownloadCounts(ctx context.Context, snaps []series.Snapshot) error
	SendError(ctx context.Context, source string, err error) error
}

// Nop discards every message. Used when no chat channel is configured.
type Nop struct{}

func (Nop) SendBroadbandUsage(ctx context.Context, snap series.Snapshot) error { return nil }

func (Nop) SendDownloadCounts(ctx context.Context, snaps []series.Snapshot) error { return nil }

func (Nop) SendError(ctx context.Context, source string, err error) error { return nil }
