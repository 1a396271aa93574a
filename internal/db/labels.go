package db

import (
	"context"
	"fmt"

	"github.com/wesm/github-issue-mirror/internal/models"
)

// RelinkLabels rebuilds the label links of each item in one transaction.
func (db *DB) RelinkLabels(ctx context.Context, items []*models.Item) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		return tx.RelinkLabels(ctx, items)
	})
}

// RelinkLabels replaces each item's label links with its current labels. An
// item with no labels ends up with no links.
func (tx *Tx) RelinkLabels(ctx context.Context, items []*models.Item) error {
	for _, item := range items {
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM item_to_label WHERE item_id = ?`, item.ID); err != nil {
			return fmt.Errorf("failed to clear labels of item %d: %w", item.ID, err)
		}

		for _, label := range item.Labels {
			_, err := tx.tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO item_to_label (item_id, url) VALUES (?, ?)`,
				item.ID, label.URL,
			)
			if err != nil {
				return fmt.Errorf("failed to link label %s to item %d: %w", label.URL, item.ID, err)
			}
		}
	}
	return nil
}

// LabelsForItem returns the label URLs linked to an item, sorted
func (db *DB) LabelsForItem(ctx context.Context, itemID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT url FROM item_to_label WHERE item_id = ? ORDER BY url`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}
