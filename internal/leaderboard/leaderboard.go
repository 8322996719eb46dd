// internal/leaderboard/leaderboard.go

// Package leaderboard ranks users by their weighted review contribution.
package leaderboard

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"review-ladder/internal/database"
	custom_errors "review-ladder/internal/errors"
	"review-ladder/internal/model"
)

// Store is the read side of the database used for ranking.
type Store interface {
	ListUserStats(ctx context.Context, arg database.ListUserStatsParams) ([]database.ListUserStatsRow, error)
	GetUserStats(ctx context.Context, arg database.GetUserStatsParams) (database.GetUserStatsRow, error)
	TopAssignees(ctx context.Context, limit int32) ([]database.TopAssigneesRow, error)
}

// Window bounds the counted activity, both ends inclusive. A zero end is
// unbounded.
type Window struct {
	Since time.Time
	Until time.Time
}

var endOfTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

func (w Window) bounds() (time.Time, time.Time) {
	since, until := w.Since, w.Until
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}
	if until.IsZero() {
		until = endOfTime
	}
	return since, until
}

// Entry is one ranked user.
type Entry struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	AvatarURL string      `json:"avatar_url"`
	Score     float64     `json:"score"`
	Stats     model.Stats `json:"stats"`
}

// Assignment counts the pull requests currently assigned to a user.
type Assignment struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	Assignments int64  `json:"assignments"`
}

// Service computes rankings from stored activity.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Top returns at most limit users with a positive score in w, best first.
// Ties are broken by name.
func (s *Service) Top(ctx context.Context, w Window, limit int) ([]Entry, error) {
	since, until := w.bounds()
	rows, err := s.store.ListUserStats(ctx, database.ListUserStatsParams{Since: since, Until: until})
	if err != nil {
		return nil, fmt.Errorf("list user stats: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := newEntry(r.ID, r.Name, r.AvatarUrl, model.Stats{
			Approvals:      r.Approvals,
			ChangeRequests: r.ChangeRequests,
			Comments:       r.Comments,
			Merges:         r.Merges,
		})
		if e.Score > 0 {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// User returns the score and breakdown of the named user in w.
func (s *Service) User(ctx context.Context, name string, w Window) (Entry, error) {
	since, until := w.bounds()
	r, err := s.store.GetUserStats(ctx, database.GetUserStatsParams{Since: since, Until: until, Name: name})
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, custom_errors.ErrUserNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get user stats %q: %w", name, err)
	}
	return newEntry(r.ID, r.Name, r.AvatarUrl, model.Stats{
		Approvals:      r.Approvals,
		ChangeRequests: r.ChangeRequests,
		Comments:       r.Comments,
		Merges:         r.Merges,
	}), nil
}

// Assignments returns the users with the most assigned pull requests.
func (s *Service) Assignments(ctx context.Context, limit int) ([]Assignment, error) {
	rows, err := s.store.TopAssignees(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("top assignees: %w", err)
	}
	out := make([]Assignment, len(rows))
	for i, r := range rows {
		out[i] = Assignment{ID: r.ID, Name: r.Name, AvatarURL: r.AvatarUrl, Assignments: r.Assignments}
	}
	return out, nil
}

func newEntry(id int64, name, avatar string, stats model.Stats) Entry {
	return Entry{ID: id, Name: name, AvatarURL: avatar, Score: stats.Score(), Stats: stats}
}
