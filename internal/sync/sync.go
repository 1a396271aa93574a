package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wesm/github-issue-mirror/internal/db"
	"github.com/wesm/github-issue-mirror/internal/logger"
	"github.com/wesm/github-issue-mirror/internal/models"
)

// Client is the part of the GitHub API a sync pass uses
type Client interface {
	PullRequestSource
	ListIssues(ctx context.Context, owner, name string, since *time.Time) ([]*models.Item, error)
	ListComments(ctx context.Context, owner, name string, since *time.Time) ([]*models.Comment, error)
	ListOrgRepositories(ctx context.Context, org string) ([]string, error)
}

// Result summarises one repository sync
type Result struct {
	Items    int
	Comments int
	MergedAt ReconcileStats
	Files    ReconcileStats
	Duration time.Duration
}

// Syncer mirrors GitHub issues into the local database. A pass runs one
// record at a time; nothing inside it is concurrent.
type Syncer struct {
	db         *db.DB
	client     Client
	reconciler *Reconciler
	fetchFiles bool
}

// New creates a new syncer
func New(store *db.DB, client Client) *Syncer {
	return &Syncer{
		db:         store,
		client:     client,
		reconciler: NewReconciler(store, client),
		fetchFiles: true,
	}
}

// SetFetchFiles turns pull request file stats on or off. They cost one
// request per pull request per pass.
func (s *Syncer) SetFetchFiles(enabled bool) {
	s.fetchFiles = enabled
}

// SyncRepository fetches what changed in owner/name since the stored cursors
// and merges it into the database.
func (s *Syncer) SyncRepository(ctx context.Context, owner, name string) (*Result, error) {
	start := time.Now()
	fullName := fmt.Sprintf("%s/%s", owner, name)
	result := &Result{}

	itemsSince, err := cursorSince(s.db.MaxItemTimestampForRepo(ctx, owner, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read item cursor for %s: %w", fullName, err)
	}
	commentsSince, err := cursorSince(s.db.MaxCommentTimestampForRepo(ctx, owner, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read comment cursor for %s: %w", fullName, err)
	}

	if itemsSince == nil {
		logger.Info("Syncing %s (no previous sync, fetching everything)", fullName)
	} else {
		logger.Info("Syncing %s (items since %s)", fullName, itemsSince.Format(time.RFC3339))
	}

	items, err := s.client.ListIssues(ctx, owner, name, itemsSince)
	if err != nil {
		return nil, fmt.Errorf("failed to get issues for %s: %w", fullName, err)
	}
	comments, err := s.client.ListComments(ctx, owner, name, commentsSince)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments for %s: %w", fullName, err)
	}
	logger.Info("Found %d issues and %d comments updated since last sync", len(items), len(comments))

	if err := s.carryForwardMergedAt(ctx, items, owner, name); err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := tx.UpsertItems(ctx, items, owner, name); err != nil {
			return err
		}
		return tx.RelinkLabels(ctx, items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save issues for %s: %w", fullName, err)
	}
	result.Items = len(items)

	if err := s.db.UpsertComments(ctx, comments, owner, name); err != nil {
		return nil, fmt.Errorf("failed to save comments for %s: %w", fullName, err)
	}
	result.Comments = len(comments)

	result.MergedAt, err = s.reconciler.ReconcileMergedAt(ctx, items, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile merge times for %s: %w", fullName, err)
	}
	logger.Debug("Merge times for %s: %d checked, %d cached, %d updated, %d skipped",
		fullName, result.MergedAt.Checked, result.MergedAt.Cached, result.MergedAt.Updated, result.MergedAt.Skipped)

	if s.fetchFiles {
		result.Files, err = s.reconciler.ReconcileFiles(ctx, items, owner, name)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile pull request files for %s: %w", fullName, err)
		}
	}

	result.Duration = time.Since(start)
	logger.Info("Successfully synced %s (%d issues, %d comments, %d merge times, %d file lists) in %v",
		fullName, result.Items, result.Comments, result.MergedAt.Updated, result.Files.Updated,
		result.Duration.Round(time.Millisecond))
	return result, nil
}

// SyncOrganization syncs every repository of org. A failing repository is
// logged and the rest still run; the returned error counts the failures.
func (s *Syncer) SyncOrganization(ctx context.Context, org string) (map[string]*Result, error) {
	if cursor, ok, err := s.db.MaxItemTimestampForOrg(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to read cursor for %s: %w", org, err)
	} else if ok {
		logger.Info("Latest stored activity in %s: %s", org, cursor)
	}

	repos, err := s.client.ListOrgRepositories(ctx, org)
	if err != nil {
		return nil, err
	}
	logger.Info("Syncing %d repositories in %s", len(repos), org)

	results := make(map[string]*Result, len(repos))
	failed := 0
	for _, name := range repos {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := s.SyncRepository(ctx, org, name)
		if err != nil {
			logger.Error("Failed to sync repository %s/%s: %v", org, name, err)
			failed++
			continue
		}
		results[name] = result
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d repositories in %s failed to sync", failed, len(repos), org)
	}
	return results, nil
}

// carryForwardMergedAt copies stored merge times onto pull requests whose
// payload has none. The issue listing never carries merge times, and a merge
// time never changes once set.
func (s *Syncer) carryForwardMergedAt(ctx context.Context, items []*models.Item, org, repo string) error {
	for _, item := range items {
		if !item.IsPullRequest() || item.MergedAt != nil {
			continue
		}
		mergedAt, err := s.db.MergedAt(ctx, org, repo, item.Number)
		if err != nil {
			return err
		}
		item.MergedAt = mergedAt
	}
	return nil
}

// cursorSince turns a stored cursor into a since bound; no cursor gives nil.
func cursorSince(cursor db.Cursor, ok bool, err error) (*time.Time, error) {
	if err != nil || !ok {
		return nil, err
	}
	t, err := cursor.Time()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseRepositoryString parses a repository string in the format "owner/name"
func ParseRepositoryString(repoStr string) (string, string, error) {
	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}
	return parts[0], parts[1], nil
}
