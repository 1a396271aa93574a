package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/wesm/github-issue-mirror/internal/logger"
	"github.com/wesm/github-issue-mirror/internal/models"
	"golang.org/x/oauth2"
)

const perPage = 100

// GitHubClient represents a client for the GitHub REST API
type GitHubClient struct {
	client *github.Client
}

func oauthClient(token string) *http.Client {
	if token == "" {
		return nil
	}
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return oauth2.NewClient(context.Background(), ts)
}

// NewGitHubClient creates a new GitHub API client. An empty token gives an
// unauthenticated client.
func NewGitHubClient(token string) *GitHubClient {
	return &GitHubClient{client: github.NewClient(oauthClient(token))}
}

// NewGitHubClientWithBaseURL creates a client against another API root, such
// as GitHub Enterprise or a test server.
func NewGitHubClientWithBaseURL(token, baseURL string) (*GitHubClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	client := github.NewClient(oauthClient(token))
	client.BaseURL = u
	return &GitHubClient{client: client}, nil
}

// ListIssues lists the issues and pull requests of a repository updated at or
// after since, in any state. A nil since lists everything.
func (c *GitHubClient) ListIssues(ctx context.Context, owner, name string, since *time.Time) ([]*models.Item, error) {
	var items []*models.Item
	opts := &github.IssueListByRepoOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "asc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}
	if since != nil {
		opts.Since = *since
	}

	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues for %s/%s: %w", owner, name, classifyError(err))
		}

		for _, issue := range issues {
			items = append(items, ConvertGitHubIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.Debug("Listed %d issues for %s/%s", len(items), owner, name)
	return items, nil
}

// ListComments lists every issue comment in a repository updated at or after
// since.
func (c *GitHubClient) ListComments(ctx context.Context, owner, name string, since *time.Time) ([]*models.Comment, error) {
	var comments []*models.Comment
	opts := &github.IssueListCommentsOptions{
		Sort:      github.String("updated"),
		Direction: github.String("asc"),
		Since:     since,
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	for {
		// Issue number 0 lists comments across the whole repository.
		page, resp, err := c.client.Issues.ListComments(ctx, owner, name, 0, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments for %s/%s: %w", owner, name, classifyError(err))
		}

		for _, comment := range page {
			comments = append(comments, ConvertGitHubComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.Debug("Listed %d comments for %s/%s", len(comments), owner, name)
	return comments, nil
}

// GetPullRequest fetches the detail of a pull request
func (c *GitHubClient) GetPullRequest(ctx context.Context, owner, name string, number int) (*models.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull request %s/%s#%d: %w", owner, name, number, classifyError(err))
	}

	return &models.PullRequest{
		Number:   pr.GetNumber(),
		MergedAt: timePtr(pr.MergedAt),
	}, nil
}

// ListPullRequestFiles lists the files changed by a pull request
func (c *GitHubClient) ListPullRequestFiles(ctx context.Context, owner, name string, number int) ([]*models.PullRequestFile, error) {
	var files []*models.PullRequestFile
	opts := &github.ListOptions{PerPage: perPage}

	for {
		page, resp, err := c.client.PullRequests.ListFiles(ctx, owner, name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list files of %s/%s#%d: %w", owner, name, number, classifyError(err))
		}

		for _, f := range page {
			files = append(files, ConvertGitHubCommitFile(f))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// ListOrgRepositories lists the names of an organization's repositories
func (c *GitHubClient) ListOrgRepositories(ctx context.Context, org string) ([]string, error) {
	var names []string
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	for {
		repos, resp, err := c.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories of %s: %w", org, classifyError(err))
		}

		for _, repo := range repos {
			names = append(names, repo.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}

func loginPtr(user *github.User) *string {
	if user == nil || user.Login == nil {
		return nil
	}
	login := user.GetLogin()
	return &login
}

// ConvertGitHubIssue converts a GitHub issue to our model
func ConvertGitHubIssue(issue *github.Issue) *models.Item {
	var prURL *string
	if issue.PullRequestLinks != nil {
		u := issue.PullRequestLinks.GetHTMLURL()
		prURL = &u
	}

	labels := make([]models.Label, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, models.Label{URL: label.GetURL(), Name: label.GetName()})
	}

	return &models.Item{
		ID:             issue.GetID(),
		Number:         issue.GetNumber(),
		AssigneeLogin:  loginPtr(issue.Assignee),
		UserLogin:      loginPtr(issue.User),
		State:          issue.GetState(),
		Title:          issue.GetTitle(),
		Body:           issue.GetBody(),
		CreatedAt:      timePtr(issue.CreatedAt),
		UpdatedAt:      timePtr(issue.UpdatedAt),
		CommentCount:   issue.GetComments(),
		PullRequestURL: prURL,
		ClosedAt:       timePtr(issue.ClosedAt),
		Labels:         labels,
	}
}

// ConvertGitHubComment converts a GitHub comment to our model
func ConvertGitHubComment(comment *github.IssueComment) *models.Comment {
	return &models.Comment{
		ID:        comment.GetID(),
		HTMLURL:   comment.GetHTMLURL(),
		UserLogin: loginPtr(comment.User),
		Body:      comment.GetBody(),
		CreatedAt: timePtr(comment.CreatedAt),
		UpdatedAt: timePtr(comment.UpdatedAt),
	}
}

// ConvertGitHubCommitFile converts a pull request file entry to our model
func ConvertGitHubCommitFile(f *github.CommitFile) *models.PullRequestFile {
	return &models.PullRequestFile{
		Filename:  f.GetFilename(),
		Additions: f.GetAdditions(),
		Deletions: f.GetDeletions(),
		Changes:   f.GetChanges(),
		Status:    models.FileStatus(f.GetStatus()),
	}
}
