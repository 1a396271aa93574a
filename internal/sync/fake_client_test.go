package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/wesm/github-issue-mirror/internal/api"
	"github.com/wesm/github-issue-mirror/internal/db"
	"github.com/wesm/github-issue-mirror/internal/models"
)

// fakeClient serves canned GitHub data and records what was asked for.
type fakeClient struct {
	items    []*models.Item
	comments []*models.Comment
	prs      map[int]*models.PullRequest
	files    map[int][]*models.PullRequestFile
	prErrs   map[int]error
	fileErrs map[int]error
	repos    map[string][]string

	issueSince   []*time.Time
	commentSince []*time.Time
	prCalls      map[int]int
	fileCalls    map[int]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		prs:       make(map[int]*models.PullRequest),
		files:     make(map[int][]*models.PullRequestFile),
		prErrs:    make(map[int]error),
		fileErrs:  make(map[int]error),
		repos:     make(map[string][]string),
		prCalls:   make(map[int]int),
		fileCalls: make(map[int]int),
	}
}

func (f *fakeClient) ListIssues(ctx context.Context, owner, name string, since *time.Time) ([]*models.Item, error) {
	f.issueSince = append(f.issueSince, since)
	// Hand out copies so the syncer's in-place edits don't leak into the next pass.
	out := make([]*models.Item, len(f.items))
	for i, item := range f.items {
		c := *item
		out[i] = &c
	}
	return out, nil
}

func (f *fakeClient) ListComments(ctx context.Context, owner, name string, since *time.Time) ([]*models.Comment, error) {
	f.commentSince = append(f.commentSince, since)
	return f.comments, nil
}

func (f *fakeClient) GetPullRequest(ctx context.Context, owner, name string, number int) (*models.PullRequest, error) {
	f.prCalls[number]++
	if err := f.prErrs[number]; err != nil {
		return nil, err
	}
	if pr, ok := f.prs[number]; ok {
		return pr, nil
	}
	return &models.PullRequest{Number: number}, nil
}

func (f *fakeClient) ListPullRequestFiles(ctx context.Context, owner, name string, number int) ([]*models.PullRequestFile, error) {
	f.fileCalls[number]++
	if err := f.fileErrs[number]; err != nil {
		return nil, err
	}
	return f.files[number], nil
}

func (f *fakeClient) ListOrgRepositories(ctx context.Context, org string) ([]string, error) {
	repos, ok := f.repos[org]
	if !ok {
		return nil, fmt.Errorf("organization %s not found", org)
	}
	return repos, nil
}

func serverError() error {
	return fmt.Errorf("failed to get pull request: %w", api.ErrServerError)
}

func diffUnavailable() error {
	return fmt.Errorf("failed to list files: %w", api.ErrDiffUnavailable)
}

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := store.Initialize(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func at(t *testing.T, s string) *time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", s, err)
	}
	return &v
}

func pullRequest(id int64, number int, updated *time.Time) *models.Item {
	url := fmt.Sprintf("https://github.com/octo/repo/pull/%d", number)
	return &models.Item{ID: id, Number: number, Title: fmt.Sprintf("PR %d", number), State: "closed", PullRequestURL: &url, UpdatedAt: updated}
}
