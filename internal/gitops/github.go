package gitops

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// TokenChecker verifies GitHub credentials before a push.
type TokenChecker struct {
	client *gh.Client
}

// NewTokenChecker creates a checker for token. A non-empty baseURL points
// the client at a GitHub Enterprise or test API.
func NewTokenChecker(ctx context.Context, token, baseURL string) (*TokenChecker, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := gh.NewClient(oauth2.NewClient(ctx, ts))

	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = u
	}
	return &TokenChecker{client: client}, nil
}

// Check confirms the token authenticates as username.
func (c *TokenChecker) Check(ctx context.Context, username string) error {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("github token check failed: %w", err)
	}
	if username != "" && !strings.EqualFold(user.GetLogin(), username) {
		return fmt.Errorf("github token belongs to %s, not %s", user.GetLogin(), username)
	}
	return nil
}
