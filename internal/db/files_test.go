package db

import (
	"context"
	"testing"

	"github.com/wesm/github-issue-mirror/internal/models"
)

func TestReplacePullRequestFiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := []*models.PullRequestFile{
		{Filename: "main.go", Additions: 10, Deletions: 2, Changes: 12, Status: models.FileModified},
		{Filename: "README.md", Additions: 1, Changes: 1, Status: models.FileAdded},
	}
	if err := db.ReplacePullRequestFiles(ctx, 77, first); err != nil {
		t.Fatalf("ReplacePullRequestFiles: %v", err)
	}

	second := []*models.PullRequestFile{
		{Filename: "main.go", Additions: 20, Deletions: 5, Changes: 25, Status: models.FileModified},
	}
	if err := db.ReplacePullRequestFiles(ctx, 77, second); err != nil {
		t.Fatalf("ReplacePullRequestFiles: %v", err)
	}

	got, err := db.PullRequestFiles(ctx, 77)
	if err != nil {
		t.Fatalf("PullRequestFiles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d files, want 2", len(got))
	}
	// ordered by filename: README.md sorts before main.go
	if got[0].Filename != "README.md" || got[0].Status != models.FileAdded {
		t.Errorf("files[0] = %+v", got[0])
	}
	if got[1].Filename != "main.go" || got[1].Additions != 20 || got[1].Changes != 25 {
		t.Errorf("files[1] = %+v, want replaced stats", got[1])
	}
}

func TestPullRequestFileStored(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		stored, err := tx.PullRequestFileStored(ctx, 1, "a.go")
		if err != nil {
			return err
		}
		if stored {
			t.Error("a.go reported stored before insert")
		}

		if err := tx.ReplacePullRequestFiles(ctx, 1, []*models.PullRequestFile{{Filename: "a.go", Status: models.FileAdded}}); err != nil {
			return err
		}

		stored, err = tx.PullRequestFileStored(ctx, 1, "a.go")
		if err != nil {
			return err
		}
		if !stored {
			t.Error("a.go not reported stored after insert")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}
