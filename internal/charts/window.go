package charts

import (
	"context"
	"fmt"
	"sort"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// window is one chronological read of a stream. full carries the anchor
// record (when one exists) and feeds delta computation; display is what the
// charts actually plot.
type window struct {
	full    []series.Snapshot
	display []series.Snapshot
}

// loadWindow fetches records+1 snapshots (the extra one anchors the oldest
// displayed delta), re-sorts them ascending, and splits off the display
// slice. With fewer than records+1 rows the display slice is everything:
// there is no prior cycle data to anchor against.
func (s *Service) loadWindow(ctx context.Context, id series.ID, records int) (window, error) {
	snapshots, err := s.store.QueryWindow(ctx, id, records)
	if err != nil {
		return window{}, fmt.Errorf("failed to load window for %s: %w", id, err)
	}

	sortAscending(snapshots)

	w := window{full: snapshots, display: snapshots}
	if len(snapshots) > records {
		w.display = snapshots[len(snapshots)-records:]
	}
	return w, nil
}

// sortAscending orders snapshots by day, oldest first, with the capture
// timestamp as tie-break so same-day records compare consistently. The sort
// is stable: re-sorting an already-ascending sequence is a no-op.
func sortAscending(snapshots []series.Snapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].Day.Equal(snapshots[j].Day) {
			return snapshots[i].Day.Before(snapshots[j].Day)
		}
		return snapshots[i].CapturedAtMillis() < snapshots[j].CapturedAtMillis()
	})
}
