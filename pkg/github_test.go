package bumpkit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPullRequestClientCreate(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/octo/widgets/pulls", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"number": 7, "html_url": "https://github.com/octo/widgets/pull/7"}`))
	}))
	defer server.Close()

	client, err := NewPullRequestClient("s3cret", server.URL)
	require.NoError(t, err)
	url, err := client.Create(context.Background(), PullRequestRequest{
		Repository: "octo/widgets",
		Head:       "release/v1.2.0",
		Base:       "main",
		Title:      "chore: bump version to 1.2.0",
		Body:       "## v1.2.0",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/octo/widgets/pull/7", url)
	assert.Equal(t, map[string]string{
		"title": "chore: bump version to 1.2.0",
		"head":  "release/v1.2.0",
		"base":  "main",
		"body":  "## v1.2.0",
	}, got)
}

func TestPullRequestClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed", "errors": [{"message": "A pull request already exists"}]}`))
	}))
	defer server.Close()

	client, err := NewPullRequestClient("t", server.URL+"/")
	require.NoError(t, err)

	_, err = client.Create(context.Background(), PullRequestRequest{Repository: "octo/widgets", Head: "h", Base: "main"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating pull request h -> main in octo/widgets")

	_, err = client.Create(context.Background(), PullRequestRequest{Repository: "widgets"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner/name")
}
