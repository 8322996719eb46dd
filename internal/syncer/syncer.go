// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"review-ladder/internal/database"
	"review-ladder/internal/model"
	"review-ladder/internal/reconciler"
)

// Source is the read side of the GitHub API used by a pass. A sequence that
// ends with a non-nil error is truncated; the next pass picks up what was
// missed.
type Source interface {
	PullRequests(ctx context.Context, since time.Time) iter.Seq2[model.PullRequest, error]
	PullRequest(ctx context.Context, number int) (model.PullRequest, error)
	TimelineEvents(ctx context.Context, number int) iter.Seq2[model.TimelineEvent, error]
	Comments(ctx context.Context, number int) iter.Seq2[model.Comment, error]
	Reviews(ctx context.Context, number int) iter.Seq2[model.Review, error]
	Commit(ctx context.Context, sha string) (model.Commit, error)
}

// errFetch marks a pull request whose child lists could not be read.
var errFetch = errors.New("fetch from GitHub")

// Options configures the pass schedule.
type Options struct {
	// Interval between incremental passes.
	Interval time.Duration
	// FullInterval between full passes.
	FullInterval time.Duration
	// Since is the configured watermark. Zero lists every pull request.
	Since time.Time
}

// PassResult summarizes one pass.
type PassResult struct {
	PullRequests int
	Failed       int
	// Truncated is set when the pull request listing ended on a failed page.
	Truncated bool
}

// Complete reports whether every pull request of the pass was listed and
// reconciled.
func (r PassResult) Complete() bool {
	return r.Failed == 0 && !r.Truncated
}

// Syncer orchestrates the fetching and storing of data.
type Syncer struct {
	source Source
	store  database.TxRunner
	rec    *reconciler.Reconciler
	logger *slog.Logger
	opts   Options

	now func() time.Time

	// lastPass is the start of the last complete pass.
	lastPass time.Time
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(source Source, store database.TxRunner, rec *reconciler.Reconciler, logger *slog.Logger, opts Options) *Syncer {
	return &Syncer{
		source: source,
		store:  store,
		rec:    rec,
		logger: logger.With("repo", rec.Repo()),
		opts:   opts,
		now:    time.Now,
	}
}

// Start runs a full pass, then incremental passes every Interval and full
// passes every FullInterval until ctx is done. Passes never overlap.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.opts.Interval.String(), "full_interval", s.opts.FullInterval.String())
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	fullTicker := time.NewTicker(s.opts.FullInterval)
	defer fullTicker.Stop()

	s.RunPass(ctx, true) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.RunPass(ctx, false)
		case <-fullTicker.C:
			s.RunPass(ctx, true)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

// watermark returns the lower update bound of the next pass.
func (s *Syncer) watermark(full bool) time.Time {
	if full || s.lastPass.Before(s.opts.Since) {
		return s.opts.Since
	}
	return s.lastPass
}

// RunPass reconciles every pull request updated since the watermark. A full
// pass uses only the configured watermark. Failures of a single pull request
// are logged and the pass moves on.
func (s *Syncer) RunPass(ctx context.Context, full bool) PassResult {
	started := s.now()
	since := s.watermark(full)
	logger := s.logger.With("full", full)
	if since.IsZero() {
		logger.Info("Starting new sync cycle")
	} else {
		logger.Info("Starting new sync cycle", "since", since.Format(time.RFC3339))
	}

	var res PassResult
	for pr, err := range s.source.PullRequests(ctx, since) {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			res.Truncated = true
			logger.Warn("Pull request listing truncated, retrying next cycle", "error", err)
			break
		}
		res.PullRequests++
		if err := s.syncPullRequest(ctx, pr); err != nil {
			res.Failed++
			switch {
			case errors.Is(err, context.Canceled):
			case errors.Is(err, errFetch):
				logger.Warn("Could not list pull request activity, retrying next cycle", "pr", pr.Number, "error", err)
			case database.IsTransient(err):
				logger.Warn("Transient store error, pull request skipped until next cycle", "pr", pr.Number, "error", err)
			default:
				logger.Error("Failed to sync pull request", "pr", pr.Number, "error", err)
			}
		}
	}

	if res.Complete() && ctx.Err() == nil {
		s.lastPass = started
	}
	logger.Info("Sync cycle finished", "pull_requests", res.PullRequests, "failed", res.Failed, "truncated", res.Truncated, "took", s.now().Sub(started).String())
	return res
}

// syncPullRequest fetches everything attached to pr and reconciles it in
// one transaction.
func (s *Syncer) syncPullRequest(ctx context.Context, pr model.PullRequest) error {
	logger := s.logger.With("pr", pr.Number)

	var (
		events   []model.TimelineEvent
		comments []model.Comment
		reviews  []model.Review
	)
	// A truncated list would reconcile a partial view, so the pull request
	// is skipped as a whole.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		events, err = collect(s.source.TimelineEvents(gctx, pr.Number), "timeline events")
		return err
	})
	g.Go(func() (err error) {
		comments, err = collect(s.source.Comments(gctx, pr.Number), "comments")
		return err
	})
	g.Go(func() (err error) {
		reviews, err = collect(s.source.Reviews(gctx, pr.Number), "reviews")
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Search results lack the merge fields.
	if pr.Closed() && pr.Abbreviated {
		full, err := s.source.PullRequest(ctx, pr.Number)
		if err != nil {
			logger.Warn("Could not fetch full pull request, merge not reconciled", "error", err)
		} else {
			pr = full
		}
	}

	var merge *model.Commit
	if pr.HasMerge() {
		c, err := s.source.Commit(ctx, pr.MergeCommitSHA)
		if err != nil {
			logger.Warn("Could not fetch merge commit", "sha", pr.MergeCommitSHA, "error", err)
		} else {
			merge = &c
		}
	}

	return s.store.InTx(ctx, func(q database.Querier) error {
		row, _, err := s.rec.PullRequest(ctx, q, pr, events)
		if err != nil {
			return err
		}
		for _, c := range comments {
			if _, _, err := s.rec.Comment(ctx, q, row, c); err != nil {
				return err
			}
		}
		for _, rv := range reviews {
			if _, _, err := s.rec.Review(ctx, q, row, rv); err != nil {
				return err
			}
		}
		if merge != nil {
			if _, _, err := s.rec.Merge(ctx, q, row, *merge); err != nil {
				return err
			}
		}
		logger.Debug("Pull request reconciled", "events", len(events), "comments", len(comments), "reviews", len(reviews), "merged", merge != nil)
		return nil
	})
}

func collect[T any](seq iter.Seq2[T, error], what string) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: list %s: %w", errFetch, what, err)
		}
		out = append(out, v)
	}
	return out, nil
}
