package bumpkit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/pkg/errors"
)

// Transport adds a bearer token and fixed headers to every request.
type Transport struct {
	Base    http.RoundTripper
	Token   string
	Headers map[string]string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.Token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.Token)
	}
	for key, value := range t.Headers {
		clone.Header.Set(key, value)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// NewGitHubHTTPClient returns an http.Client authenticated with token.
func NewGitHubHTTPClient(token string) *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &Transport{
			Base:  http.DefaultTransport,
			Token: token,
			Headers: map[string]string{
				"Accept":               "application/vnd.github+json",
				"X-GitHub-Api-Version": "2022-11-28",
			},
		},
	}
}

// PullRequestRequest describes a release pull request.
type PullRequestRequest struct {
	Repository string // owner/name
	Head       string
	Base       string
	Title      string
	Body       string
}

// PullRequestClient opens pull requests through the GitHub REST API.
type PullRequestClient struct {
	client *github.Client
}

// NewPullRequestClient builds a client for token. A non-empty baseURL points
// it at a GitHub Enterprise or test server.
func NewPullRequestClient(token, baseURL string) (*PullRequestClient, error) {
	client := github.NewClient(NewGitHubHTTPClient(token))
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing GitHub API URL %s", baseURL)
		}
		client.BaseURL = u
	}
	return &PullRequestClient{client: client}, nil
}

// Create opens the pull request and returns its HTML URL.
func (c *PullRequestClient) Create(ctx context.Context, req PullRequestRequest) (string, error) {
	owner, name, ok := strings.Cut(req.Repository, "/")
	if !ok || owner == "" || name == "" {
		return "", fmt.Errorf("repository must be owner/name, got %q", req.Repository)
	}
	pr, _, err := c.client.PullRequests.Create(ctx, owner, name, &github.NewPullRequest{
		Title: github.Ptr(req.Title),
		Head:  github.Ptr(req.Head),
		Base:  github.Ptr(req.Base),
		Body:  github.Ptr(req.Body),
	})
	if err != nil {
		return "", errors.Wrapf(err, "creating pull request %s -> %s in %s", req.Head, req.Base, req.Repository)
	}
	return pr.GetHTMLURL(), nil
}
