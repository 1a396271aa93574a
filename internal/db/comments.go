package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/wesm/github-issue-mirror/internal/models"
)

// ErrMalformedCommentURL is returned when a comment's html_url does not name
// its parent issue.
var ErrMalformedCommentURL = errors.New("malformed comment url")

// e.g. https://github.com/octo/repo/issues/13#issuecomment-155591520 or, for
// a pull request conversation, .../pull/13#issuecomment-155591520
var commentURLPattern = regexp.MustCompile(`/(?:issues|pull)/([0-9]+)#issuecomment-[0-9]+$`)

// ParseCommentItemNumber extracts the parent issue number from a comment's
// web URL. The comments API has no issue number field, so this is the only
// link between a comment and its item.
func ParseCommentItemNumber(htmlURL string) (int, error) {
	m := commentURLPattern.FindStringSubmatch(htmlURL)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCommentURL, htmlURL)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedCommentURL, htmlURL, err)
	}
	return n, nil
}

// UpsertComments stores comments for org/repo in one transaction, replacing
// rows with the same id.
func (db *DB) UpsertComments(ctx context.Context, comments []*models.Comment, org, repo string) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		return tx.UpsertComments(ctx, comments, org, repo)
	})
}

// UpsertComments deletes and reinserts each comment. A comment whose URL does
// not parse fails the call with ErrMalformedCommentURL.
func (tx *Tx) UpsertComments(ctx context.Context, comments []*models.Comment, org, repo string) error {
	for _, comment := range comments {
		itemNumber, err := ParseCommentItemNumber(comment.HTMLURL)
		if err != nil {
			return fmt.Errorf("comment %d: %w", comment.ID, err)
		}

		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM item_comments WHERE id = ?`, comment.ID); err != nil {
			return fmt.Errorf("failed to delete comment %d: %w", comment.ID, err)
		}

		_, err = tx.tx.ExecContext(ctx, `
		INSERT INTO item_comments (
			id, org, repo, item_number, user_login, body, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			comment.ID,
			org,
			repo,
			itemNumber,
			nullString(comment.UserLogin),
			comment.Body,
			nullString(FormatTimestamp(comment.CreatedAt)),
			nullString(FormatTimestamp(comment.UpdatedAt)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert comment %d: %w", comment.ID, err)
		}
	}
	return nil
}

// GetComment returns the stored comment with the given id
func (db *DB) GetComment(ctx context.Context, id int64) (*models.StoredComment, error) {
	var c models.StoredComment
	var user, body, createdAt, updatedAt sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, org, repo, item_number, user_login, body, created_at, updated_at
		FROM item_comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.Org, &c.Repo, &c.ItemNumber, &user, &body, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment %d: %w", id, err)
	}

	c.UserLogin = stringPtr(user)
	c.Body = body.String
	c.CreatedAt = stringPtr(createdAt)
	c.UpdatedAt = stringPtr(updatedAt)
	return &c, nil
}
