package gitops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGitHubServer(t *testing.T, login string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"login":"` + login + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenChecker_Check(t *testing.T) {
	srv := newGitHubServer(t, "Octocat")
	ctx := context.Background()

	checker, err := NewTokenChecker(ctx, "good-token", srv.URL)
	require.NoError(t, err)

	assert.NoError(t, checker.Check(ctx, "octocat"), "login comparison ignores case")
	assert.NoError(t, checker.Check(ctx, ""))

	err = checker.Check(ctx, "someone-else")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to Octocat")
}

func TestTokenChecker_BadToken(t *testing.T) {
	srv := newGitHubServer(t, "octocat")
	ctx := context.Background()

	checker, err := NewTokenChecker(ctx, "bad-token", srv.URL)
	require.NoError(t, err)

	err = checker.Check(ctx, "octocat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github token check failed")
}
