//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"review-ladder/internal/api"
	"review-ladder/internal/database"
	"review-ladder/internal/github"
	"review-ladder/internal/leaderboard"
	"review-ladder/internal/model"
	"review-ladder/internal/reconciler"
	"review-ladder/internal/syncer"
	"review-ladder/internal/webhook"
)

const mergeSHA = "cccccccccccccccccccccccccccccccccccccccc"

var testRepo = model.RepoIdentifier{Owner: "test-owner", Name: "test-repo"}

func setupTestDatabase(ctx context.Context, t *testing.T) (*pgxpool.Pool, func()) {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	// Get the connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	require.NoError(t, runMigrations("file://../../migrations", connStr))

	// Create a connection pool
	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	// Teardown function to be called by the test
	teardown := func() {
		dbpool.Close()
		err := pgContainer.Terminate(ctx)
		require.NoError(t, err)
	}

	return dbpool, teardown
}

// fakeGitHub serves one merged pull request authored by alice, reviewed by
// bob and carol, with alice also commenting on her own pull request.
func fakeGitHub() http.Handler {
	mux := http.NewServeMux()
	pr := fmt.Sprintf(`{"id": 501, "number": 1, "state": "closed", "user": {"id": 1, "login": "alice"},
		"merged": true, "merged_at": "2024-01-03T12:00:00Z", "merge_commit_sha": %q}`, mergeSHA)

	mux.HandleFunc("/repos/test-owner/test-repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "[%s]", pr)
	})
	mux.HandleFunc("/repos/test-owner/test-repo/pulls/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pr)
	})
	mux.HandleFunc("/repos/test-owner/test-repo/issues/1/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"event": "assigned", "assignee": {"id": 2, "login": "bob"}},
			{"event": "review_requested", "requested_reviewer": {"id": 3, "login": "carol"}},
			{"event": "labeled"},
			{"event": "unassigned", "assignee": {"id": 2, "login": "bob"}}
		]`)
	})
	mux.HandleFunc("/repos/test-owner/test-repo/pulls/1/comments", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 10, "user": {"id": 2, "login": "bob"}, "created_at": "2024-01-02T10:00:00Z"},
			{"id": 11, "user": {"id": 1, "login": "alice"}, "created_at": "2024-01-02T11:00:00Z"}
		]`)
	})
	mux.HandleFunc("/repos/test-owner/test-repo/pulls/1/reviews", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": 20, "user": {"id": 3, "login": "carol"}, "state": "APPROVED", "submitted_at": "2024-01-02T12:00:00Z"},
			{"id": 21, "user": {"id": 2, "login": "bob"}, "state": "CHANGES_REQUESTED", "submitted_at": "2024-01-02T13:00:00Z"},
			{"id": 22, "user": {"id": 1, "login": "alice"}, "state": "APPROVED", "submitted_at": "2024-01-02T14:00:00Z"},
			{"id": 23, "user": {"id": 3, "login": "carol"}, "state": "PENDING"}
		]`)
	})
	mux.HandleFunc("/repos/test-owner/test-repo/commits/"+mergeSHA, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"sha": %q, "author": {"id": 2, "login": "bob"},
			"commit": {"committer": {"date": "2024-01-03T12:00:00Z"}}}`, mergeSHA)
	})
	return mux
}

func TestSyncer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool, teardown := setupTestDatabase(ctx, t)
	defer teardown()

	// Setup a mock GitHub API server
	server := httptest.NewServer(fakeGitHub())
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ghClient, err := github.NewClient(server.Client(), server.URL, testRepo, logger)
	require.NoError(t, err)

	store := database.NewStore(dbpool)
	rec := reconciler.New(testRepo, time.Time{}, logger)
	appSyncer := syncer.NewSyncer(ghClient, store, rec, logger, syncer.Options{Interval: time.Hour, FullInterval: 24 * time.Hour})

	// --- ACT ---
	// Two passes over the same data must converge to the same rows.
	for i := 0; i < 2; i++ {
		res := appSyncer.RunPass(ctx, true)
		require.Equal(t, syncer.PassResult{PullRequests: 1}, res)
	}

	// --- ASSERT ---
	q := database.New(dbpool)
	pr, err := q.GetPullRequestByRepoAndNumber(ctx, database.GetPullRequestByRepoAndNumberParams{Repo: "test-owner/test-repo", Number: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(501), pr.GithubID)
	assert.Equal(t, int64(1), pr.AuthorID.Int64)

	assignees, err := q.ListAssignees(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, assignees, 1)
	assert.Equal(t, "carol", assignees[0].Name)

	merge, err := q.GetMergeByPullRequest(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, mergeSHA, merge.Sha)
	assert.Equal(t, int64(2), merge.AuthorID)

	_, err = q.GetComment(ctx, 23)
	assert.Error(t, err, "pending reviews are not stored")

	// alice's own comment and approval are ignored; bob has a comment, a
	// change request and the merge; carol an approval.
	lb := leaderboard.NewService(q)
	entries, err := lb.Top(ctx, leaderboard.Window{}, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].Name)
	assert.Equal(t, model.Stats{ChangeRequests: 1, Comments: 1, Merges: 1}, entries[0].Stats)
	assert.Equal(t, 8.0, entries[0].Score)
	assert.Equal(t, "carol", entries[1].Name)
	assert.Equal(t, 5.0, entries[1].Score)

	alice, err := lb.User(ctx, "alice", leaderboard.Window{})
	require.NoError(t, err)
	assert.Zero(t, alice.Score)

	windowed, err := lb.Top(ctx, leaderboard.Window{Since: time.Date(2024, 1, 2, 12, 30, 0, 0, time.UTC)}, 10)
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, model.Stats{ChangeRequests: 1, Merges: 1}, windowed[0].Stats)
}

func TestWebhook_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool, teardown := setupTestDatabase(ctx, t)
	defer teardown()

	server := httptest.NewServer(fakeGitHub())
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ghClient, err := github.NewClient(server.Client(), server.URL, testRepo, logger)
	require.NoError(t, err)

	store := database.NewStore(dbpool)
	rec := reconciler.New(testRepo, time.Time{}, logger)
	hook := webhook.NewHandler(ghClient, store, rec, webhook.Options{}, logger)
	router := api.NewRouter(leaderboard.NewService(store), hook, time.Time{}, logger)

	post := func(event, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-GitHub-Event", event)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}
	review := func(action string) string {
		return fmt.Sprintf(`{"action": %q, "repository": {"full_name": "test-owner/test-repo"},
			"pull_request": {"id": 502, "number": 2, "state": "open", "user": {"id": 1, "login": "alice"}},
			"review": {"id": 30, "user": {"id": 3, "login": "carol"}, "state": "approved", "submitted_at": "2024-01-05T10:00:00Z"}}`, action)
	}

	require.Equal(t, http.StatusOK, post("pull_request_review", review("submitted")))
	c, err := store.GetComment(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, "approval", c.Kind)

	require.Equal(t, http.StatusOK, post("pull_request_review", review("dismissed")))
	c, err = store.GetComment(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, "comment", c.Kind)
	assert.Equal(t, model.CommentWeight, c.Weight)

	// A rename on GitHub takes the name over from the stale account.
	renamed := `{"action": "created", "repository": {"full_name": "test-owner/test-repo"},
		"pull_request": {"id": 502, "number": 2, "state": "open", "user": {"id": 1, "login": "alice"}},
		"comment": {"id": 31, "user": {"id": 9, "login": "carol"}, "created_at": "2024-01-05T11:00:00Z"}}`
	require.Equal(t, http.StatusOK, post("pull_request_review_comment", renamed))
	entry, err := leaderboard.NewService(store).User(ctx, "carol", leaderboard.Window{})
	require.NoError(t, err)
	assert.Equal(t, int64(9), entry.ID)
}
