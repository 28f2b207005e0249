package postgres

// SQL queries for snapshot storage operations.

const (
	// queryUpsertSnapshot writes one snapshot under its (series, day) key.
	// ON CONFLICT DO UPDATE replaces the record whole: the write always
	// carries the complete field set, so last write wins with no merge.
	queryUpsertSnapshot = `
		INSERT INTO snapshots (series, day, captured_at, fields, display)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (series, day) DO UPDATE SET
			captured_at = EXCLUDED.captured_at,
			fields = EXCLUDED.fields,
			display = EXCLUDED.display
	`

	// queryWindow fetches the newest rows for one stream in descending day
	// order. Callers re-sort ascending before computing deltas; captured_at
	// breaks ties when two captures share a day.
	queryWindow = `
		SELECT series, day, captured_at, fields, display
		FROM snapshots
		WHERE series = $1
		ORDER BY day DESC, captured_at DESC
		LIMIT $2
	`
)
