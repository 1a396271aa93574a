package db

import (
	"context"
	"testing"

	"github.com/wesm/github-issue-mirror/internal/models"
)

func TestItemsUpdatedSince(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	items := []*models.Item{
		{ID: 1, Number: 1, Title: "old", UpdatedAt: ts(t, "2020-01-01T00:00:00Z")},
		{ID: 2, Number: 2, Title: "mid", UpdatedAt: ts(t, "2020-06-01T00:00:00Z")},
		{ID: 3, Number: 3, Title: "new", UpdatedAt: ts(t, "2021-01-01T00:00:00Z")},
	}
	if err := db.UpsertItems(ctx, items, "octo", "repo"); err != nil {
		t.Fatalf("UpsertItems: %v", err)
	}
	if err := db.UpsertItems(ctx, []*models.Item{{ID: 4, Number: 1, UpdatedAt: ts(t, "2022-01-01T00:00:00Z")}}, "octo", "elsewhere"); err != nil {
		t.Fatalf("UpsertItems: %v", err)
	}

	tests := []struct {
		name  string
		since string
		want  []int64
	}{
		{"all", "", []int64{3, 2, 1}},
		{"cursor form", "2020-06-01T00:00:00Z", []int64{3, 2}},
		{"remote form", "2020-06-01 00:00:01 UTC", []int64{3}},
		{"future", "2030-01-01T00:00:00Z", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ItemsUpdatedSince(ctx, "octo", "repo", tt.since)
			if err != nil {
				t.Fatalf("ItemsUpdatedSince: %v", err)
			}
			var ids []int64
			for _, item := range got {
				ids = append(ids, item.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ids = %v, want %v", ids, tt.want)
					break
				}
			}
		})
	}
}
