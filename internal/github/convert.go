// internal/github/convert.go
package github

import (
	"time"

	"github.com/google/go-github/v62/github"

	"review-ladder/internal/model"
)

// ToUser translates a github.User. It returns nil for missing or deleted
// accounts.
func ToUser(u *github.User) *model.User {
	if u == nil || u.ID == nil || u.GetLogin() == "" {
		return nil
	}
	return &model.User{
		ID:        u.GetID(),
		Name:      u.GetLogin(),
		AvatarURL: u.GetAvatarURL(),
	}
}

// ToPullRequest translates a full github.PullRequest object.
func ToPullRequest(pr *github.PullRequest) model.PullRequest {
	out := model.PullRequest{
		GithubID:       pr.GetID(),
		Number:         pr.GetNumber(),
		State:          pr.GetState(),
		Author:         ToUser(pr.GetUser()),
		Merged:         pr.GetMerged(),
		MergeCommitSHA: pr.GetMergeCommitSHA(),
	}
	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		out.MergedAt = &t
		out.Merged = true
	}
	return out
}

// issueToPullRequest translates a search result. Search results never carry
// the merge fields, so the pull request is marked abbreviated. The issue id
// is not the pull request id and is left out.
func issueToPullRequest(issue *github.Issue) model.PullRequest {
	return model.PullRequest{
		Number:      issue.GetNumber(),
		State:       issue.GetState(),
		Author:      ToUser(issue.GetUser()),
		Abbreviated: true,
	}
}

// ToComment translates a pull request review comment.
func ToComment(c *github.PullRequestComment) model.Comment {
	return model.Comment{
		ID:        c.GetID(),
		User:      ToUser(c.GetUser()),
		CreatedAt: c.GetCreatedAt().Time,
		Kind:      model.KindComment,
	}
}

// ToReview translates a pull request review.
func ToReview(r *github.PullRequestReview) model.Review {
	return model.Review{
		ID:          r.GetID(),
		User:        ToUser(r.GetUser()),
		State:       r.GetState(),
		SubmittedAt: r.GetSubmittedAt().Time,
	}
}

// ToCommit translates a commit. The committer date is when the merge landed.
func ToCommit(c *github.RepositoryCommit) model.Commit {
	date := c.GetCommit().GetCommitter().GetDate().Time
	if date.IsZero() {
		date = c.GetCommit().GetAuthor().GetDate().Time
	}
	return model.Commit{
		SHA:    c.GetSHA(),
		Author: ToUser(c.GetAuthor()),
		Date:   date,
	}
}

// ToTimelineEvent translates an issue event. Assignment events act on the
// assignee, review request events on the requested reviewer.
func ToTimelineEvent(e *github.IssueEvent) model.TimelineEvent {
	action := model.ParseTimelineAction(e.GetEvent())
	ev := model.TimelineEvent{Action: action}
	switch action {
	case model.TimelineAssigned, model.TimelineUnassigned:
		ev.User = ToUser(e.GetAssignee())
	case model.TimelineReviewRequested, model.TimelineReviewRequestRemoved:
		ev.User = ToUser(e.GetRequestedReviewer())
	}
	return ev
}

func searchDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
