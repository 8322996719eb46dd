// internal/webhook/events.go
package webhook

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/go-github/v62/github"

	"review-ladder/internal/database"
	ghapi "review-ladder/internal/github"
	"review-ladder/internal/model"
)

// eventKind is the closed set of deliveries the handler acts on.
type eventKind int

const (
	eventUnsupported eventKind = iota
	eventPing
	eventPullRequest
	eventPullRequestReview
	eventPullRequestReviewComment
)

func parseEventKind(s string) eventKind {
	switch s {
	case "ping":
		return eventPing
	case "pull_request":
		return eventPullRequest
	case "pull_request_review":
		return eventPullRequestReview
	case "pull_request_review_comment":
		return eventPullRequestReviewComment
	}
	return eventUnsupported
}

const ack = "Done"

func (h *Handler) dispatch(ctx context.Context, logger *slog.Logger, event any) (string, error) {
	switch ev := event.(type) {
	case *github.PingEvent:
		logger.Info("Webhook ping", "hook", ev.GetHookID())
		return "pong", nil
	case *github.PullRequestEvent:
		if !h.ownRepo(ev.GetRepo()) {
			return "", errUnexpectedData
		}
		return ack, h.pullRequestEvent(ctx, logger, ev)
	case *github.PullRequestReviewEvent:
		if !h.ownRepo(ev.GetRepo()) {
			return "", errUnexpectedData
		}
		return ack, h.reviewEvent(ctx, logger, ev)
	case *github.PullRequestReviewCommentEvent:
		if !h.ownRepo(ev.GetRepo()) {
			return "", errUnexpectedData
		}
		return ack, h.reviewCommentEvent(ctx, logger, ev)
	}
	return "", nil
}

func (h *Handler) ownRepo(repo *github.Repository) bool {
	return strings.EqualFold(repo.GetFullName(), h.rec.Repo())
}

func (h *Handler) pullRequestEvent(ctx context.Context, logger *slog.Logger, ev *github.PullRequestEvent) error {
	if ev.PullRequest == nil {
		return errMalformed
	}
	pr := ghapi.ToPullRequest(ev.GetPullRequest())
	action := ev.GetAction()
	logger = logger.With("pr", pr.Number, "action", action)

	switch timeline := model.ParseTimelineAction(action); {
	case action == "opened" || (action == "closed" && pr.Merged):
		var merge *model.Commit
		if action == "closed" && pr.MergeCommitSHA != "" {
			c, err := h.gh.Commit(ctx, pr.MergeCommitSHA)
			if err != nil {
				logger.Warn("Could not fetch merge commit", "sha", pr.MergeCommitSHA, "error", err)
			} else {
				merge = &c
			}
		}
		return storeError(h.store.InTx(ctx, func(q database.Querier) error {
			row, _, err := h.rec.PullRequest(ctx, q, pr, nil)
			if err != nil {
				return err
			}
			if merge != nil {
				_, _, err = h.rec.Merge(ctx, q, row, *merge)
			}
			return err
		}))

	case timeline != model.TimelineUnknown:
		change := model.TimelineEvent{Action: timeline}
		switch timeline {
		case model.TimelineAssigned, model.TimelineUnassigned:
			change.User = ghapi.ToUser(ev.GetAssignee())
		default:
			change.User = ghapi.ToUser(ev.GetRequestedReviewer())
		}
		return storeError(h.store.InTx(ctx, func(q database.Querier) error {
			_, _, err := h.rec.PullRequest(ctx, q, pr, []model.TimelineEvent{change})
			return err
		}))
	}

	logger.Debug("Ignoring pull request action")
	return nil
}

func (h *Handler) reviewEvent(ctx context.Context, logger *slog.Logger, ev *github.PullRequestReviewEvent) error {
	if ev.Review == nil {
		return errMalformed
	}
	review := ghapi.ToReview(ev.GetReview())
	logger = logger.With("review", review.ID, "action", ev.GetAction())

	switch ev.GetAction() {
	case "submitted":
		if ev.PullRequest == nil {
			return errMalformed
		}
		pr := ghapi.ToPullRequest(ev.GetPullRequest())
		return storeError(h.store.InTx(ctx, func(q database.Querier) error {
			row, _, err := h.rec.PullRequest(ctx, q, pr, nil)
			if err != nil {
				return err
			}
			_, _, err = h.rec.Review(ctx, q, row, review)
			return err
		}))
	case "dismissed":
		return storeError(h.store.InTx(ctx, func(q database.Querier) error {
			changed, err := h.rec.DismissReview(ctx, q, review.ID)
			if err == nil && !changed {
				logger.Debug("Dismissed review not stored")
			}
			return err
		}))
	}
	return nil
}

func (h *Handler) reviewCommentEvent(ctx context.Context, logger *slog.Logger, ev *github.PullRequestReviewCommentEvent) error {
	if ev.Comment == nil {
		return errMalformed
	}
	comment := ghapi.ToComment(ev.GetComment())
	logger = logger.With("comment", comment.ID, "action", ev.GetAction())

	switch ev.GetAction() {
	case "created":
		if ev.PullRequest == nil {
			return errMalformed
		}
		pr := ghapi.ToPullRequest(ev.GetPullRequest())
		return storeError(h.store.InTx(ctx, func(q database.Querier) error {
			row, _, err := h.rec.PullRequest(ctx, q, pr, nil)
			if err != nil {
				return err
			}
			_, _, err = h.rec.Comment(ctx, q, row, comment)
			return err
		}))
	case "deleted":
		return storeError(h.store.InTx(ctx, func(q database.Querier) error {
			removed, err := h.rec.DeleteComment(ctx, q, comment.ID)
			if err == nil && !removed {
				logger.Debug("Deleted comment not stored")
			}
			return err
		}))
	}
	return nil
}
