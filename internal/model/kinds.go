// internal/model/kinds.go
package model

import "strings"

// Score weights.
const (
	CommentWeight       = 1.0
	ChangeRequestWeight = 4.0
	ApprovalWeight      = 5.0
	MergeWeight         = 3.0
)

// CommentKind classifies a stored comment.
type CommentKind string

const (
	KindComment       CommentKind = "comment"
	KindChangeRequest CommentKind = "change_request"
	KindApproval      CommentKind = "approval"
)

// Weight returns the score weight of the kind. Unknown kinds weigh as a
// plain comment.
func (k CommentKind) Weight() float64 {
	switch k {
	case KindChangeRequest:
		return ChangeRequestWeight
	case KindApproval:
		return ApprovalWeight
	default:
		return CommentWeight
	}
}

// Valid reports whether k is one of the known kinds.
func (k CommentKind) Valid() bool {
	switch k {
	case KindComment, KindChangeRequest, KindApproval:
		return true
	}
	return false
}

// ReviewKind maps a review state onto a comment kind. The second return is
// false for states that must not be stored, such as "pending".
func ReviewKind(state string) (CommentKind, bool) {
	switch strings.ToLower(state) {
	case "commented", "dismissed":
		return KindComment, true
	case "changes_requested":
		return KindChangeRequest, true
	case "approved":
		return KindApproval, true
	}
	return "", false
}

// TimelineAction is the closed set of pull request events that change the
// assignee set.
type TimelineAction int

const (
	TimelineUnknown TimelineAction = iota
	TimelineAssigned
	TimelineUnassigned
	TimelineReviewRequested
	TimelineReviewRequestRemoved
)

// ParseTimelineAction maps an issue event name or webhook action onto a
// TimelineAction. Anything else is TimelineUnknown.
func ParseTimelineAction(s string) TimelineAction {
	switch s {
	case "assigned":
		return TimelineAssigned
	case "unassigned":
		return TimelineUnassigned
	case "review_requested":
		return TimelineReviewRequested
	case "review_request_removed":
		return TimelineReviewRequestRemoved
	}
	return TimelineUnknown
}

func (a TimelineAction) String() string {
	switch a {
	case TimelineAssigned:
		return "assigned"
	case TimelineUnassigned:
		return "unassigned"
	case TimelineReviewRequested:
		return "review_requested"
	case TimelineReviewRequestRemoved:
		return "review_request_removed"
	default:
		return "unknown"
	}
}

// Adds reports whether the action adds its user to the assignee set.
func (a TimelineAction) Adds() bool {
	return a == TimelineAssigned || a == TimelineReviewRequested
}

// Removes reports whether the action removes its user from the assignee set.
func (a TimelineAction) Removes() bool {
	return a == TimelineUnassigned || a == TimelineReviewRequestRemoved
}

// Stats is the per user contribution breakdown.
type Stats struct {
	Approvals      int64 `json:"approvals"`
	ChangeRequests int64 `json:"change_requests"`
	Comments       int64 `json:"comments"`
	Merges         int64 `json:"merges"`
}

// Score computes the weighted score of the breakdown.
func (s Stats) Score() float64 {
	return float64(s.Approvals)*ApprovalWeight +
		float64(s.ChangeRequests)*ChangeRequestWeight +
		float64(s.Comments)*CommentWeight +
		float64(s.Merges)*MergeWeight
}
