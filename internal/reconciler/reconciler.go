// internal/reconciler/reconciler.go

// Package reconciler maps GitHub payloads onto stored rows by idempotent
// upsert. It is shared by the poller and the webhook handler; every method
// takes the Querier of the caller's transaction so that several calls can be
// grouped into one unit of work.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"review-ladder/internal/database"
	"review-ladder/internal/model"
)

// Reconciler upserts users, pull requests, comments and merges of one
// repository.
type Reconciler struct {
	repo   string
	since  time.Time
	logger *slog.Logger
}

// New creates a Reconciler for repo. Comments and merges dated before since
// are never stored; a zero since admits everything.
func New(repo model.RepoIdentifier, since time.Time, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:   repo.String(),
		since:  since,
		logger: logger,
	}
}

// Repo returns the full name of the reconciled repository.
func (r *Reconciler) Repo() string {
	return r.repo
}

func (r *Reconciler) admits(t time.Time) bool {
	return r.since.IsZero() || !t.Before(r.since)
}

// User upserts u by id, refreshing its name and avatar. Another account
// holding the same name gives the name up.
func (r *Reconciler) User(ctx context.Context, q database.Querier, u model.User) (database.User, bool, error) {
	if err := q.ReleaseUserName(ctx, database.ReleaseUserNameParams{ID: u.ID, Name: u.Name}); err != nil {
		return database.User{}, false, fmt.Errorf("release user name %q: %w", u.Name, err)
	}
	row, err := q.UpsertUser(ctx, database.UpsertUserParams{
		ID:        u.ID,
		Name:      u.Name,
		AvatarUrl: u.AvatarURL,
	})
	if err != nil {
		return database.User{}, false, fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return database.User{ID: row.ID, Name: row.Name, AvatarUrl: row.AvatarUrl}, row.Inserted, nil
}

// PullRequest upserts pr by (repository, number) and replays events, in
// order, onto its assignee set. Events of unknown kind or without a user are
// ignored.
func (r *Reconciler) PullRequest(ctx context.Context, q database.Querier, pr model.PullRequest, events []model.TimelineEvent) (database.PullRequest, bool, error) {
	var author pgtype.Int8
	if pr.Author != nil {
		u, _, err := r.User(ctx, q, *pr.Author)
		if err != nil {
			return database.PullRequest{}, false, err
		}
		author = pgtype.Int8{Int64: u.ID, Valid: true}
	}

	row, err := q.UpsertPullRequest(ctx, database.UpsertPullRequestParams{
		GithubID: pr.GithubID,
		Repo:     r.repo,
		Number:   int32(pr.Number),
		AuthorID: author,
		State:    pr.State,
	})
	if err != nil {
		return database.PullRequest{}, false, fmt.Errorf("upsert pull request %s#%d: %w", r.repo, pr.Number, err)
	}
	stored := database.PullRequest{
		ID:       row.ID,
		GithubID: row.GithubID,
		Repo:     row.Repo,
		Number:   row.Number,
		AuthorID: row.AuthorID,
		State:    row.State,
	}

	for _, ev := range events {
		if err := r.apply(ctx, q, stored, ev); err != nil {
			return database.PullRequest{}, false, err
		}
	}
	return stored, row.Inserted, nil
}

func (r *Reconciler) apply(ctx context.Context, q database.Querier, pr database.PullRequest, ev model.TimelineEvent) error {
	if ev.User == nil || !(ev.Action.Adds() || ev.Action.Removes()) {
		return nil
	}
	u, _, err := r.User(ctx, q, *ev.User)
	if err != nil {
		return err
	}
	if ev.Action.Adds() {
		err = q.AddAssignee(ctx, database.AddAssigneeParams{PullRequestID: pr.ID, UserID: u.ID})
	} else {
		err = q.RemoveAssignee(ctx, database.RemoveAssigneeParams{PullRequestID: pr.ID, UserID: u.ID})
	}
	if err != nil {
		return fmt.Errorf("%s %s on pull request %d: %w", ev.Action, u.Name, pr.Number, err)
	}
	return nil
}

// Comment upserts c by id on pr. It returns nil without error when the
// comment is older than the cutoff or has no author.
func (r *Reconciler) Comment(ctx context.Context, q database.Querier, pr database.PullRequest, c model.Comment) (*database.Comment, bool, error) {
	if !r.admits(c.CreatedAt) {
		r.logger.Debug("Comment predates cutoff, skipping", "comment", c.ID, "created_at", c.CreatedAt)
		return nil, false, nil
	}
	if c.User == nil {
		r.logger.Debug("Comment without author, skipping", "comment", c.ID)
		return nil, false, nil
	}

	kind := c.Kind
	if !kind.Valid() {
		kind = model.KindComment
	}

	u, _, err := r.User(ctx, q, *c.User)
	if err != nil {
		return nil, false, err
	}
	row, err := q.UpsertComment(ctx, database.UpsertCommentParams{
		ID:            c.ID,
		PullRequestID: pr.ID,
		UserID:        u.ID,
		Kind:          string(kind),
		Weight:        kind.Weight(),
		CreatedAt:     c.CreatedAt,
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert comment %d: %w", c.ID, err)
	}
	return &database.Comment{
		ID:            row.ID,
		PullRequestID: row.PullRequestID,
		UserID:        row.UserID,
		Kind:          row.Kind,
		Weight:        row.Weight,
		CreatedAt:     row.CreatedAt,
	}, row.Inserted, nil
}

// Review stores a review as a comment classified by its state. Reviews in
// any state other than commented, dismissed, changes_requested or approved
// are skipped.
func (r *Reconciler) Review(ctx context.Context, q database.Querier, pr database.PullRequest, rv model.Review) (*database.Comment, bool, error) {
	kind, ok := model.ReviewKind(rv.State)
	if !ok {
		r.logger.Debug("Review state not scored, skipping", "review", rv.ID, "state", rv.State)
		return nil, false, nil
	}
	return r.Comment(ctx, q, pr, model.Comment{
		ID:        rv.ID,
		User:      rv.User,
		CreatedAt: rv.SubmittedAt,
		Kind:      kind,
	})
}

// Merge upserts the merge of pr by commit SHA. Degraded commits without
// author, and merges older than the cutoff, are skipped.
func (r *Reconciler) Merge(ctx context.Context, q database.Querier, pr database.PullRequest, c model.Commit) (*database.Merge, bool, error) {
	if c.Author == nil || c.SHA == "" {
		r.logger.Warn("Merge commit without author, skipping", "pr", pr.Number, "sha", c.SHA)
		return nil, false, nil
	}
	if !r.admits(c.Date) {
		r.logger.Debug("Merge predates cutoff, skipping", "pr", pr.Number, "sha", c.SHA, "date", c.Date)
		return nil, false, nil
	}

	u, _, err := r.User(ctx, q, *c.Author)
	if err != nil {
		return nil, false, err
	}
	row, err := q.UpsertMerge(ctx, database.UpsertMergeParams{
		Sha:           c.SHA,
		PullRequestID: pr.ID,
		AuthorID:      u.ID,
		MergedAt:      c.Date,
	})
	if err != nil {
		return nil, false, fmt.Errorf("upsert merge %s: %w", c.SHA, err)
	}
	return &database.Merge{
		Sha:           row.Sha,
		PullRequestID: row.PullRequestID,
		AuthorID:      row.AuthorID,
		MergedAt:      row.MergedAt,
	}, row.Inserted, nil
}

// DismissReview downgrades the stored review id to a plain comment in place.
// It reports whether a row was changed.
func (r *Reconciler) DismissReview(ctx context.Context, q database.Querier, id int64) (bool, error) {
	n, err := q.SetCommentKind(ctx, database.SetCommentKindParams{
		ID:     id,
		Kind:   string(model.KindComment),
		Weight: model.KindComment.Weight(),
	})
	if err != nil {
		return false, fmt.Errorf("downgrade review %d: %w", id, err)
	}
	return n > 0, nil
}

// DeleteComment removes the comment id. It reports whether a row was removed.
func (r *Reconciler) DeleteComment(ctx context.Context, q database.Querier, id int64) (bool, error) {
	n, err := q.DeleteComment(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete comment %d: %w", id, err)
	}
	return n > 0, nil
}
