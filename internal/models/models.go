package models

import (
	"time"
)

// FileStatus is the change type GitHub reports for a file in a pull request
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileRemoved  FileStatus = "removed"
	FileRenamed  FileStatus = "renamed"
)

// Label is a label attached to an issue. URL is the label's API URL and is
// what item_to_label stores.
type Label struct {
	URL  string
	Name string
}

// Item represents a GitHub issue or pull request
type Item struct {
	ID             int64
	Number         int
	AssigneeLogin  *string
	UserLogin      *string
	State          string
	Title          string
	Body           string
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
	CommentCount   int
	PullRequestURL *string
	MergedAt       *time.Time
	ClosedAt       *time.Time
	Labels         []Label
}

// IsPullRequest reports whether the item carries a pull request link
func (i *Item) IsPullRequest() bool {
	return i.PullRequestURL != nil
}

// StoredItem is an item row as read back from the store
type StoredItem struct {
	ID             int64
	Org            string
	Repo           string
	Number         int
	AssigneeLogin  *string
	UserLogin      *string
	State          string
	Title          string
	Body           string
	CreatedAt      *string
	UpdatedAt      *string
	CommentCount   int
	PullRequestURL *string
	MergedAt       *string
	ClosedAt       *string
}

// Comment represents a GitHub issue comment. The parent issue number is not
// carried here; it is derived from HTMLURL when the comment is stored.
type Comment struct {
	ID        int64
	HTMLURL   string
	UserLogin *string
	Body      string
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// StoredComment is a comment row as read back from the store
type StoredComment struct {
	ID         int64
	Org        string
	Repo       string
	ItemNumber int
	UserLogin  *string
	Body       string
	CreatedAt  *string
	UpdatedAt  *string
}

// PullRequest holds the pull request detail fields the mirror needs
type PullRequest struct {
	Number   int
	MergedAt *time.Time
}

// PullRequestFile is the change summary of one file in a pull request
type PullRequestFile struct {
	Filename  string
	Additions int
	Deletions int
	Changes   int
	Status    FileStatus
}

// RateLimit is a snapshot of the API budget
type RateLimit struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}
