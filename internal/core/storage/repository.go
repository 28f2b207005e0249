package storage

import (
	"context"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// SnapshotStore defines date-keyed persistence for stream snapshots.
type SnapshotStore interface {
	// Upsert writes a snapshot under its (series, day) key. Writing the same
	// key twice replaces the prior record whole: last write wins, no merge.
	Upsert(ctx context.Context, snap *series.Snapshot) error

	// QueryWindow returns the limit+1 most recent snapshots for a stream in
	// descending day order. The extra record anchors delta computation for
	// the oldest in-window point. A stream with no data yields an empty
	// slice, not an error.
	QueryWindow(ctx context.Context, id series.ID, limit int) ([]series.Snapshot, error)
}
