package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wesm/github-issue-mirror/internal/models"
)

// UpsertItems stores items for org/repo, replacing any stored row with the
// same id. The batch commits as one transaction.
func (db *DB) UpsertItems(ctx context.Context, items []*models.Item, org, repo string) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		return tx.UpsertItems(ctx, items, org, repo)
	})
}

// UpsertItems replaces each item's row wholesale: the old row is deleted and
// the new one inserted, so fields absent from the new payload end up NULL.
func (tx *Tx) UpsertItems(ctx context.Context, items []*models.Item, org, repo string) error {
	for _, item := range items {
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, item.ID); err != nil {
			return fmt.Errorf("failed to delete item %d: %w", item.ID, err)
		}

		_, err := tx.tx.ExecContext(ctx, `
		INSERT INTO items (
			id, item_number, assignee_login, user_login, state, title, body,
			org, repo, created_at, updated_at, comment_count,
			pull_request_url, merged_at, closed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			item.ID,
			item.Number,
			nullString(item.AssigneeLogin),
			nullString(item.UserLogin),
			item.State,
			item.Title,
			item.Body,
			org,
			repo,
			nullString(FormatTimestamp(item.CreatedAt)),
			nullString(FormatTimestamp(item.UpdatedAt)),
			item.CommentCount,
			nullString(item.PullRequestURL),
			nullString(FormatTimestamp(item.MergedAt)),
			nullString(FormatTimestamp(item.ClosedAt)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item %d: %w", item.ID, err)
		}
	}
	return nil
}

// MergedAt returns the stored merge time of pull request number in org/repo,
// or nil when none is recorded.
func (db *DB) MergedAt(ctx context.Context, org, repo string, number int) (*time.Time, error) {
	var mergedAt sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT merged_at FROM items
		WHERE org = ? AND repo = ? AND item_number = ? AND merged_at IS NOT NULL
		LIMIT 1`,
		org, repo, number,
	).Scan(&mergedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up merged_at for #%d: %w", number, err)
	}

	t, err := time.Parse(time.RFC3339, mergedAt.String)
	if err != nil {
		return nil, fmt.Errorf("stored merged_at %q for #%d: %w", mergedAt.String, number, err)
	}
	return &t, nil
}

// UpdateMergedAt sets merged_at on the stored item without touching its other
// fields.
func (db *DB) UpdateMergedAt(ctx context.Context, org, repo string, number int, mergedAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET merged_at = ? WHERE org = ? AND repo = ? AND item_number = ?`,
		*FormatTimestamp(&mergedAt), org, repo, number,
	)
	if err != nil {
		return fmt.Errorf("failed to update merged_at for #%d: %w", number, err)
	}
	return nil
}

const itemColumns = `
	id, org, repo, item_number, assignee_login, user_login, state, title, body,
	created_at, updated_at, comment_count, pull_request_url, merged_at, closed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.StoredItem, error) {
	var item models.StoredItem
	var assignee, user, state, title, body sql.NullString
	var createdAt, updatedAt, prURL, merged, closed sql.NullString
	var commentCount sql.NullInt64
	err := row.Scan(
		&item.ID, &item.Org, &item.Repo, &item.Number, &assignee, &user, &state, &title, &body,
		&createdAt, &updatedAt, &commentCount, &prURL, &merged, &closed,
	)
	if err != nil {
		return nil, err
	}

	item.AssigneeLogin = stringPtr(assignee)
	item.UserLogin = stringPtr(user)
	item.State = state.String
	item.Title = title.String
	item.Body = body.String
	item.CreatedAt = stringPtr(createdAt)
	item.UpdatedAt = stringPtr(updatedAt)
	item.CommentCount = int(commentCount.Int64)
	item.PullRequestURL = stringPtr(prURL)
	item.MergedAt = stringPtr(merged)
	item.ClosedAt = stringPtr(closed)
	return &item, nil
}

// GetItem returns the stored item with the given id
func (db *DB) GetItem(ctx context.Context, id int64) (*models.StoredItem, error) {
	row := db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return item, nil
}

// CountItems returns the number of stored items in org/repo
func (db *DB) CountItems(ctx context.Context, org, repo string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE org = ? AND repo = ?`, org, repo).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}
