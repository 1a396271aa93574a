package api

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"
	"github.com/wesm/github-issue-mirror/internal/models"
)

// GraphQLClient represents a client for the GitHub GraphQL API
type GraphQLClient struct {
	client *githubv4.Client
}

// NewGraphQLClient creates a new GraphQL client
func NewGraphQLClient(token string) *GraphQLClient {
	return &GraphQLClient{client: githubv4.NewClient(oauthClient(token))}
}

// NewGraphQLClientWithURL creates a GraphQL client against another endpoint
func NewGraphQLClientWithURL(token, endpoint string) *GraphQLClient {
	return &GraphQLClient{client: githubv4.NewEnterpriseClient(endpoint, oauthClient(token))}
}

// RateLimit reports the caller's remaining API budget. The query itself is
// free.
func (c *GraphQLClient) RateLimit(ctx context.Context) (*models.RateLimit, error) {
	var query struct {
		RateLimit struct {
			Limit     githubv4.Int
			Remaining githubv4.Int
			ResetAt   githubv4.DateTime
		}
	}

	if err := c.client.Query(ctx, &query, nil); err != nil {
		return nil, fmt.Errorf("failed to query rate limit: %w", err)
	}

	return &models.RateLimit{
		Limit:     int(query.RateLimit.Limit),
		Remaining: int(query.RateLimit.Remaining),
		ResetAt:   query.RateLimit.ResetAt.Time,
	}, nil
}
