package db

import (
	"context"
	"fmt"

	"github.com/wesm/github-issue-mirror/internal/models"
)

// ItemsUpdatedSince returns the items of org/repo updated at or after since,
// newest first. An empty since returns every item. since may be in either the
// stored or the cursor form.
func (db *DB) ItemsUpdatedSince(ctx context.Context, org, repo, since string) ([]*models.StoredItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE org = ? AND repo = ?`
	args := []interface{}{org, repo}
	if since != "" {
		// Stored values end in +00:00; compare on the shared prefix.
		query += ` AND substr(updated_at, 1, 19) >= substr(?, 1, 19)`
		args = append(args, *NormalizeTimestamp(&since))
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*models.StoredItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
