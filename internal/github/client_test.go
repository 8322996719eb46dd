// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-ladder/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// setupTestClient creates a httptest server and a client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.Client(), server.URL, model.RepoIdentifier{Owner: "test", Name: "repo"}, testLogger())
	require.NoError(t, err)

	return client, server
}

func TestClient_PullRequests_Pagination(t *testing.T) {
	t.Run("follows the last page hint", func(t *testing.T) {
		var requestCount int32
		var server *httptest.Server
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, "/repos/test/repo/pulls", r.URL.Path)
			assert.Equal(t, "all", r.URL.Query().Get("state"))
			page := r.URL.Query().Get("page")
			if page == "1" {
				w.Header().Set("Link", fmt.Sprintf(`<%s/repos/test/repo/pulls?page=2>; rel="next", <%s/repos/test/repo/pulls?page=3>; rel="last"`, server.URL, server.URL))
			}
			fmt.Fprintf(w, `[{"id": %s1, "number": %s1, "state": "open"}, {"id": %s2, "number": %s2, "state": "open"}]`, page, page, page, page)
		})
		client, srv := setupTestClient(t, handler)
		server = srv

		prs, err := Collect(client.PullRequests(context.Background(), time.Time{}))
		require.NoError(t, err)

		assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount))
		var numbers []int
		for _, pr := range prs {
			numbers = append(numbers, pr.Number)
		}
		assert.Equal(t, []int{11, 12, 21, 22, 31, 32}, numbers)
	})

	t.Run("stops on a failed page", func(t *testing.T) {
		var requestCount int32
		var server *httptest.Server
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			switch r.URL.Query().Get("page") {
			case "1":
				w.Header().Set("Link", fmt.Sprintf(`<%s/repos/test/repo/pulls?page=3>; rel="last"`, server.URL))
				fmt.Fprintln(w, `[{"id": 1, "number": 1, "state": "open"}]`)
			default:
				w.WriteHeader(http.StatusInternalServerError)
			}
		})
		client, srv := setupTestClient(t, handler)
		server = srv

		prs, err := Collect(client.PullRequests(context.Background(), time.Time{}))

		assert.Error(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
		require.Len(t, prs, 1)
		assert.Equal(t, 1, prs[0].Number)
	})

	t.Run("uses the search endpoint when a watermark is set", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/issues", r.URL.Path)
			assert.Equal(t, "repo:test/repo type:pr updated:>=2024-01-02T03:04:05Z", r.URL.Query().Get("q"))
			assert.Equal(t, "updated", r.URL.Query().Get("sort"))
			fmt.Fprintln(w, `{"total_count": 1, "items": [{"id": 9, "number": 7, "state": "closed", "user": {"id": 3, "login": "alice"}}]}`)
		})
		client, _ := setupTestClient(t, handler)

		since := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		prs, err := Collect(client.PullRequests(context.Background(), since))
		require.NoError(t, err)

		require.Len(t, prs, 1)
		assert.Equal(t, 7, prs[0].Number)
		assert.Zero(t, prs[0].GithubID, "issue ids are not pull request ids")
		assert.True(t, prs[0].Abbreviated)
		assert.True(t, prs[0].Closed())
		require.NotNil(t, prs[0].Author)
		assert.Equal(t, "alice", prs[0].Author.Name)
	})
}

func TestClient_PullRequest(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/test/repo/pulls/7", r.URL.Path)
		fmt.Fprintln(w, `{"id": 9, "number": 7, "state": "closed", "merged": true,
			"merged_at": "2024-02-01T10:00:00Z", "merge_commit_sha": "abc123",
			"user": {"id": 3, "login": "alice", "avatar_url": "https://avatars/alice"}}`)
	})
	client, _ := setupTestClient(t, handler)

	pr, err := client.PullRequest(context.Background(), 7)

	require.NoError(t, err)
	assert.True(t, pr.Merged)
	assert.True(t, pr.HasMerge())
	assert.Equal(t, "abc123", pr.MergeCommitSHA)
	assert.False(t, pr.Abbreviated)
	assert.Equal(t, &model.User{ID: 3, Name: "alice", AvatarURL: "https://avatars/alice"}, pr.Author)
}

func TestClient_TimelineEvents(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/test/repo/issues/5/events", r.URL.Path)
		fmt.Fprintln(w, `[
			{"id": 1, "event": "assigned", "assignee": {"id": 10, "login": "u1"}},
			{"id": 2, "event": "review_requested", "requested_reviewer": {"id": 11, "login": "u2"}},
			{"id": 3, "event": "labeled"},
			{"id": 4, "event": "unassigned", "assignee": {"id": 10, "login": "u1"}}
		]`)
	})
	client, _ := setupTestClient(t, handler)

	events, err := Collect(client.TimelineEvents(context.Background(), 5))
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, model.TimelineAssigned, events[0].Action)
	assert.Equal(t, int64(10), events[0].User.ID)
	assert.Equal(t, model.TimelineReviewRequested, events[1].Action)
	assert.Equal(t, int64(11), events[1].User.ID)
	assert.Equal(t, model.TimelineUnknown, events[2].Action)
	assert.Nil(t, events[2].User)
	assert.Equal(t, model.TimelineUnassigned, events[3].Action)
}

func TestClient_CommentsAndReviews(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/test/repo/pulls/5/comments":
			fmt.Fprintln(w, `[{"id": 100, "user": {"id": 10, "login": "u1"}, "created_at": "2024-03-01T00:00:00Z"}]`)
		case "/repos/test/repo/pulls/5/reviews":
			fmt.Fprintln(w, `[{"id": 200, "user": {"id": 11, "login": "u2"}, "state": "APPROVED", "submitted_at": "2024-03-02T00:00:00Z"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client, _ := setupTestClient(t, handler)

	comments, err := Collect(client.Comments(context.Background(), 5))
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(100), comments[0].ID)
	assert.Equal(t, model.KindComment, comments[0].Kind)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), comments[0].CreatedAt.UTC())

	reviews, err := Collect(client.Reviews(context.Background(), 5))
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "APPROVED", reviews[0].State)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), reviews[0].SubmittedAt.UTC())
}

func TestClient_Commit(t *testing.T) {
	t.Run("translates author and committer date", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/test/repo/commits/abc", r.URL.Path)
			fmt.Fprintln(w, `{"sha": "abc", "author": {"id": 3, "login": "alice"},
				"commit": {"author": {"date": "2024-01-01T00:00:00Z"}, "committer": {"date": "2024-01-02T00:00:00Z"}}}`)
		})
		client, _ := setupTestClient(t, handler)

		commit, err := client.Commit(context.Background(), "abc")

		require.NoError(t, err)
		assert.Equal(t, "abc", commit.SHA)
		require.NotNil(t, commit.Author)
		assert.Equal(t, int64(3), commit.Author.ID)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), commit.Date.UTC())
	})

	t.Run("tolerates a degraded payload", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{}`)
		})
		client, _ := setupTestClient(t, handler)

		commit, err := client.Commit(context.Background(), "abc")

		require.NoError(t, err)
		assert.Nil(t, commit.Author)
	})

	t.Run("returns the error of a failed request", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.Commit(context.Background(), "abc")

		var ghErr *github.ErrorResponse
		require.ErrorAs(t, err, &ghErr)
		assert.Equal(t, http.StatusNotFound, ghErr.Response.StatusCode)
	})
}

func TestClient_HookRanges(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meta", r.URL.Path)
		fmt.Fprintln(w, `{"hooks": ["192.30.252.0/22", "2a0a:a440::/29"]}`)
	})
	client, _ := setupTestClient(t, handler)

	ranges, err := client.HookRanges(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"192.30.252.0/22", "2a0a:a440::/29"}, ranges)
}

func TestNewHTTPClient_Auth(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		var got string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
		}))
		defer server.Close()

		resp, err := NewHTTPClient(Auth{Token: "secret"}, nil).Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "Bearer secret", got)
	})

	t.Run("basic", func(t *testing.T) {
		var user, pass string
		var ok bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok = r.BasicAuth()
		}))
		defer server.Close()

		resp, err := NewHTTPClient(Auth{User: "bot", Password: "pw"}, nil).Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.True(t, ok)
		assert.Equal(t, "bot", user)
		assert.Equal(t, "pw", pass)
	})
}
