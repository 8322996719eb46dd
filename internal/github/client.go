// internal/github/client.go
package github

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"review-ladder/internal/model"
)

// Auth holds the optional credentials for the GitHub API. A token takes
// precedence over basic auth.
type Auth struct {
	Token    string
	User     string
	Password string
}

// NewHTTPClient returns an http.Client that authenticates with auth on top
// of base. base may be nil.
func NewHTTPClient(auth Auth, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	switch {
	case auth.Token != "":
		return &http.Client{Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: auth.Token}),
			Base:   base,
		}}
	case auth.User != "" && auth.Password != "":
		return &http.Client{Transport: &github.BasicAuthTransport{
			Username:  auth.User,
			Password:  auth.Password,
			Transport: base,
		}}
	default:
		return &http.Client{Transport: base}
	}
}

// Client is a wrapper around the go-github client, scoped to one repository.
type Client struct {
	gh     *github.Client
	repo   model.RepoIdentifier
	logger *slog.Logger
}

// NewClient creates a Client for repo talking to apiURL. An empty apiURL
// means the public GitHub API.
func NewClient(httpClient *http.Client, apiURL string, repo model.RepoIdentifier, logger *slog.Logger) (*Client, error) {
	gh := github.NewClient(httpClient)
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		u, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("parse GitHub API URL: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		repo:   repo,
		logger: logger.With("repo", repo.String()),
	}, nil
}

// Repo returns the repository the client is scoped to.
func (c *Client) Repo() model.RepoIdentifier {
	return c.repo
}

// PullRequests lists the pull requests of the repository. With a zero since
// every pull request is listed; otherwise the search endpoint returns the
// pull requests updated at or after since, in abbreviated form. A failed page
// ends the sequence with an error.
func (c *Client) PullRequests(ctx context.Context, since time.Time) iter.Seq2[model.PullRequest, error] {
	if since.IsZero() {
		return c.listPullRequests(ctx)
	}
	return c.searchPullRequests(ctx, since)
}

func (c *Client) listPullRequests(ctx context.Context) iter.Seq2[model.PullRequest, error] {
	logger := c.logger.With("endpoint", "pulls")
	pages := Paginate(ctx, logger, func(ctx context.Context, opts *github.ListOptions) ([]*github.PullRequest, *github.Response, error) {
		return c.gh.PullRequests.List(ctx, c.repo.Owner, c.repo.Name, &github.PullRequestListOptions{
			State:       "all",
			ListOptions: *opts,
		})
	})
	return mapSeq(pages, ToPullRequest)
}

func (c *Client) searchPullRequests(ctx context.Context, since time.Time) iter.Seq2[model.PullRequest, error] {
	query := fmt.Sprintf("repo:%s type:pr updated:>=%s", c.repo, searchDate(since))
	logger := c.logger.With("endpoint", "search", "query", query)
	pages := Paginate(ctx, logger, func(ctx context.Context, opts *github.ListOptions) ([]*github.Issue, *github.Response, error) {
		result, resp, err := c.gh.Search.Issues(ctx, query, &github.SearchOptions{
			Sort:        "updated",
			ListOptions: *opts,
		})
		if err != nil {
			return nil, resp, err
		}
		return result.Issues, resp, nil
	})
	return mapSeq(pages, issueToPullRequest)
}

// PullRequest fetches the full pull request object.
func (c *Client) PullRequest(ctx context.Context, number int) (model.PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.repo.Owner, c.repo.Name, number)
	if err != nil {
		return model.PullRequest{}, err
	}
	return ToPullRequest(pr), nil
}

// TimelineEvents lists the issue events of a pull request in order.
func (c *Client) TimelineEvents(ctx context.Context, number int) iter.Seq2[model.TimelineEvent, error] {
	logger := c.logger.With("endpoint", "issue_events", "pr", number)
	pages := Paginate(ctx, logger, func(ctx context.Context, opts *github.ListOptions) ([]*github.IssueEvent, *github.Response, error) {
		return c.gh.Issues.ListIssueEvents(ctx, c.repo.Owner, c.repo.Name, number, opts)
	})
	return mapSeq(pages, ToTimelineEvent)
}

// Comments lists the review comments of a pull request.
func (c *Client) Comments(ctx context.Context, number int) iter.Seq2[model.Comment, error] {
	logger := c.logger.With("endpoint", "pull_comments", "pr", number)
	pages := Paginate(ctx, logger, func(ctx context.Context, opts *github.ListOptions) ([]*github.PullRequestComment, *github.Response, error) {
		return c.gh.PullRequests.ListComments(ctx, c.repo.Owner, c.repo.Name, number, &github.PullRequestListCommentsOptions{
			ListOptions: *opts,
		})
	})
	return mapSeq(pages, ToComment)
}

// Reviews lists the reviews of a pull request.
func (c *Client) Reviews(ctx context.Context, number int) iter.Seq2[model.Review, error] {
	logger := c.logger.With("endpoint", "pull_reviews", "pr", number)
	pages := Paginate(ctx, logger, func(ctx context.Context, opts *github.ListOptions) ([]*github.PullRequestReview, *github.Response, error) {
		return c.gh.PullRequests.ListReviews(ctx, c.repo.Owner, c.repo.Name, number, opts)
	})
	return mapSeq(pages, ToReview)
}

// Commit fetches a commit by SHA.
func (c *Client) Commit(ctx context.Context, sha string) (model.Commit, error) {
	commit, _, err := c.gh.Repositories.GetCommit(ctx, c.repo.Owner, c.repo.Name, sha, nil)
	if err != nil {
		return model.Commit{}, err
	}
	return ToCommit(commit), nil
}

// HookRanges returns the CIDR ranges webhook deliveries originate from.
func (c *Client) HookRanges(ctx context.Context) ([]string, error) {
	meta, _, err := c.gh.Meta.Get(ctx)
	if err != nil {
		return nil, err
	}
	return meta.Hooks, nil
}
