package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/wesm/github-issue-mirror/internal/api"
	"github.com/wesm/github-issue-mirror/internal/db"
	"github.com/wesm/github-issue-mirror/internal/logger"
	"github.com/wesm/github-issue-mirror/internal/models"
)

// PullRequestSource fetches the pull request data that the issue listing
// lacks. Each call is a separate, comparatively expensive API request.
type PullRequestSource interface {
	GetPullRequest(ctx context.Context, owner, name string, number int) (*models.PullRequest, error)
	ListPullRequestFiles(ctx context.Context, owner, name string, number int) ([]*models.PullRequestFile, error)
}

// ReconcileStats counts what a reconciliation pass did
type ReconcileStats struct {
	Checked int // pull requests considered
	Cached  int // skipped because the store already had the answer
	Fetched int // remote calls made
	Updated int // pull requests whose stored data changed
	Skipped int // soft failures
}

// Reconciler enriches stored pull requests with merge times and file stats
type Reconciler struct {
	db     *db.DB
	client PullRequestSource
}

// NewReconciler creates a reconciler writing to store and reading from client
func NewReconciler(store *db.DB, client PullRequestSource) *Reconciler {
	return &Reconciler{db: store, client: client}
}

// ReconcileMergedAt records the merge time of each pull request in items.
// A stored merge time is final, so those pull requests are not fetched again.
// A server error on one pull request is logged and skipped.
func (r *Reconciler) ReconcileMergedAt(ctx context.Context, items []*models.Item, org, repo string) (ReconcileStats, error) {
	var stats ReconcileStats

	for _, item := range items {
		if !item.IsPullRequest() {
			continue
		}
		stats.Checked++

		// Local reads are far cheaper than GitHub requests.
		stored, err := r.db.MergedAt(ctx, org, repo, item.Number)
		if err != nil {
			return stats, err
		}
		if stored != nil {
			stats.Cached++
			continue
		}

		stats.Fetched++
		pr, err := r.client.GetPullRequest(ctx, org, repo, item.Number)
		if errors.Is(err, api.ErrServerError) {
			logger.Warn("Skipping merge time of %s/%s#%d: %v", org, repo, item.Number, err)
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("pull request #%d: %w", item.Number, err)
		}

		if pr.MergedAt == nil {
			continue
		}
		if err := r.db.UpdateMergedAt(ctx, org, repo, item.Number, *pr.MergedAt); err != nil {
			return stats, err
		}
		item.MergedAt = pr.MergedAt
		stats.Updated++
	}

	return stats, nil
}

// ReconcileFiles stores the changed-file stats of each pull request in items.
// When GitHub cannot produce a diff, or fails with a server error, the pull
// request is skipped and any files stored earlier are left as they are.
func (r *Reconciler) ReconcileFiles(ctx context.Context, items []*models.Item, org, repo string) (ReconcileStats, error) {
	var stats ReconcileStats

	for _, item := range items {
		if !item.IsPullRequest() {
			continue
		}
		stats.Checked++
		stats.Fetched++

		files, err := r.client.ListPullRequestFiles(ctx, org, repo, item.Number)
		if errors.Is(err, api.ErrDiffUnavailable) || errors.Is(err, api.ErrServerError) {
			logger.Warn("Skipping files of %s/%s#%d: %v", org, repo, item.Number, err)
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("files of pull request #%d: %w", item.Number, err)
		}

		if err := r.db.ReplacePullRequestFiles(ctx, item.ID, files); err != nil {
			return stats, fmt.Errorf("files of pull request #%d: %w", item.Number, err)
		}
		stats.Updated++
	}

	return stats, nil
}
