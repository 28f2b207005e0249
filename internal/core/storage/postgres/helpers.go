package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meterdash-lab/project-meterdash/internal/core/series"
)

// marshalSnapshotJSON marshals a snapshot's fields and display maps to JSON.
//
// Nil display produces nil (SQL NULL) rather than a JSON "null" string.
func marshalSnapshotJSON(snap *series.Snapshot) (fieldsJSON, displayJSON []byte, err error) {
	fieldsJSON, err = json.Marshal(snap.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	if len(snap.Display) > 0 {
		displayJSON, err = json.Marshal(snap.Display)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal display: %w", err)
		}
	}

	return fieldsJSON, displayJSON, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSnapshotRow scans a database row into a Snapshot.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanSnapshotRow(row scanner) (*series.Snapshot, error) {
	var snap series.Snapshot
	var id string
	var day, capturedAt time.Time
	var fieldsJSON, displayJSON []byte

	if err := row.Scan(&id, &day, &capturedAt, &fieldsJSON, &displayJSON); err != nil {
		return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
	}

	snap.Series = series.ID(id)
	snap.Day = day
	snap.CapturedAt = capturedAt

	if err := json.Unmarshal(fieldsJSON, &snap.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}

	if len(displayJSON) > 0 {
		if err := json.Unmarshal(displayJSON, &snap.Display); err != nil {
			return nil, fmt.Errorf("failed to unmarshal display: %w", err)
		}
	}

	return &snap, nil
}
