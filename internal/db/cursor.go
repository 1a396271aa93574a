package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Cursor is the latest known update time for a scope, formatted for use as
// a remote since bound ("2015-04-18T14:17:02Z").
type Cursor string

// Time parses the cursor.
func (c Cursor) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, string(c))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cursor %q: %w", string(c), err)
	}
	return t, nil
}

// MaxCommentTimestampForRepo returns the newest comment update in org/repo.
// ok is false when the repository has no stored comments.
func (db *DB) MaxCommentTimestampForRepo(ctx context.Context, org, repo string) (Cursor, bool, error) {
	return db.maxTimestamp(ctx, `SELECT MAX(updated_at) FROM item_comments WHERE org = ? AND repo = ?`, org, repo)
}

// MaxItemTimestampForRepo returns the newest item update in org/repo.
func (db *DB) MaxItemTimestampForRepo(ctx context.Context, org, repo string) (Cursor, bool, error) {
	return db.maxTimestamp(ctx, `SELECT MAX(updated_at) FROM items WHERE org = ? AND repo = ?`, org, repo)
}

// MaxItemTimestampForOrg returns the newest item update across all of org's
// repositories.
func (db *DB) MaxItemTimestampForOrg(ctx context.Context, org string) (Cursor, bool, error) {
	return db.maxTimestamp(ctx, `SELECT MAX(updated_at) FROM items WHERE org = ?`, org)
}

func (db *DB) maxTimestamp(ctx context.Context, query string, args ...interface{}) (Cursor, bool, error) {
	var ts sql.NullString
	if err := db.QueryRowContext(ctx, query, args...).Scan(&ts); err != nil {
		return "", false, fmt.Errorf("failed to read cursor: %w", err)
	}
	if !ts.Valid {
		return "", false, nil
	}
	return Cursor(CursorTimestamp(ts.String)), true, nil
}
