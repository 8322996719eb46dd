// internal/model/models.go
package model

import (
	"strings"
	"time"

	custom_errors "review-ladder/internal/errors"
)

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

// ParseRepoIdentifier parses an "owner/name" string.
func ParseRepoIdentifier(s string) (RepoIdentifier, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RepoIdentifier{}, &custom_errors.ErrInvalidRepoFormat{Repo: s}
	}
	return RepoIdentifier{Owner: parts[0], Name: parts[1]}, nil
}

// String returns the full name of the repository, e.g. "owner/name".
func (r RepoIdentifier) String() string {
	return r.Owner + "/" + r.Name
}

// User is a GitHub account referenced by any payload.
type User struct {
	ID        int64
	Name      string
	AvatarURL string
}

// PullRequest is the subset of a GitHub pull request the ladder cares about.
type PullRequest struct {
	GithubID       int64
	Number         int
	State          string
	Author         *User
	Merged         bool
	MergedAt       *time.Time
	MergeCommitSHA string
	// Abbreviated is set when the pull request came from the search
	// endpoint, which omits the merge fields.
	Abbreviated bool
}

// Closed reports whether the pull request is closed.
func (p PullRequest) Closed() bool {
	return p.State == "closed"
}

// HasMerge reports whether a merge commit should be fetched for the pull request.
func (p PullRequest) HasMerge() bool {
	return (p.Merged || p.MergedAt != nil) && p.MergeCommitSHA != ""
}

// Comment is a pull request review comment.
type Comment struct {
	ID        int64
	User      *User
	CreatedAt time.Time
	Kind      CommentKind
}

// Review is a submitted (or pending) pull request review.
type Review struct {
	ID          int64
	User        *User
	State       string
	SubmittedAt time.Time
}

// Commit is a merge commit. Author is nil when GitHub returned a degraded
// payload or the commit is not linked to an account.
type Commit struct {
	SHA    string
	Author *User
	Date   time.Time
}

// TimelineEvent is a single assignment related event on a pull request.
type TimelineEvent struct {
	Action TimelineAction
	User   *User
}
