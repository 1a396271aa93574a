package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wesm/github-issue-mirror/internal/models"
)

// ReplacePullRequestFiles stores the file stats of one pull request in a
// single transaction.
func (db *DB) ReplacePullRequestFiles(ctx context.Context, pullRequestID int64, files []*models.PullRequestFile) error {
	return db.WithTx(ctx, func(tx *Tx) error {
		return tx.ReplacePullRequestFiles(ctx, pullRequestID, files)
	})
}

// PullRequestFileStored reports whether a row exists for the pull request and
// filename.
func (tx *Tx) PullRequestFileStored(ctx context.Context, pullRequestID int64, filename string) (bool, error) {
	var one int
	err := tx.tx.QueryRowContext(ctx,
		`SELECT 1 FROM pull_request_files WHERE pull_request_id = ? AND filename = ?`,
		pullRequestID, filename,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check file %s: %w", filename, err)
	}
	return true, nil
}

// ReplacePullRequestFiles writes each file's current stats, replacing the row
// for the same (pull request, filename). Files not in the list are left alone.
func (tx *Tx) ReplacePullRequestFiles(ctx context.Context, pullRequestID int64, files []*models.PullRequestFile) error {
	for _, file := range files {
		stored, err := tx.PullRequestFileStored(ctx, pullRequestID, file.Filename)
		if err != nil {
			return err
		}
		if stored {
			_, err := tx.tx.ExecContext(ctx,
				`DELETE FROM pull_request_files WHERE pull_request_id = ? AND filename = ?`,
				pullRequestID, file.Filename,
			)
			if err != nil {
				return fmt.Errorf("failed to delete file %s: %w", file.Filename, err)
			}
		}

		_, err = tx.tx.ExecContext(ctx, `
		INSERT INTO pull_request_files (pull_request_id, filename, additions, deletions, changes, status)
		VALUES (?, ?, ?, ?, ?, ?)
		`,
			pullRequestID, file.Filename, file.Additions, file.Deletions, file.Changes, string(file.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert file %s: %w", file.Filename, err)
		}
	}
	return nil
}

// PullRequestFiles returns the stored files of a pull request ordered by name
func (db *DB) PullRequestFiles(ctx context.Context, pullRequestID int64) ([]*models.PullRequestFile, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT filename, additions, deletions, changes, status
		FROM pull_request_files WHERE pull_request_id = ? ORDER BY filename`,
		pullRequestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pull request files: %w", err)
	}
	defer rows.Close()

	var files []*models.PullRequestFile
	for rows.Next() {
		var f models.PullRequestFile
		var status string
		if err := rows.Scan(&f.Filename, &f.Additions, &f.Deletions, &f.Changes, &status); err != nil {
			return nil, fmt.Errorf("failed to scan pull request file: %w", err)
		}
		f.Status = models.FileStatus(status)
		files = append(files, &f)
	}
	return files, rows.Err()
}
