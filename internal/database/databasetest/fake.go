// internal/database/databasetest/fake.go

// Package databasetest provides an in-memory database.Querier and
// database.TxRunner for tests. Upserts follow the same unique keys as the
// Postgres schema and InTx rolls back every write made by a failing unit of
// work.
package databasetest

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"review-ladder/internal/database"
)

type prKey struct {
	repo   string
	number int32
}

type assigneeKey struct {
	pr   int64
	user int64
}

type state struct {
	users     map[int64]database.User
	prs       map[int64]database.PullRequest
	prIndex   map[prKey]int64
	nextPR    int64
	assignees map[assigneeKey]bool
	comments  map[int64]database.Comment
	merges    map[string]database.Merge
}

func newState() *state {
	return &state{
		users:     map[int64]database.User{},
		prs:       map[int64]database.PullRequest{},
		prIndex:   map[prKey]int64{},
		assignees: map[assigneeKey]bool{},
		comments:  map[int64]database.Comment{},
		merges:    map[string]database.Merge{},
	}
}

func (s *state) clone() *state {
	return &state{
		users:     maps.Clone(s.users),
		prs:       maps.Clone(s.prs),
		prIndex:   maps.Clone(s.prIndex),
		nextPR:    s.nextPR,
		assignees: maps.Clone(s.assignees),
		comments:  maps.Clone(s.comments),
		merges:    maps.Clone(s.merges),
	}
}

// Fake is an in-memory store. The zero value is not usable, use NewFake.
type Fake struct {
	txMu sync.Mutex
	mu   sync.Mutex
	s    *state

	// Fail, when set, is consulted before every query with the query name.
	// A non-nil return aborts the query with that error.
	Fail func(op string) error

	// Commits and Rollbacks count finished units of work.
	Commits   int
	Rollbacks int
}

// NewFake returns an empty store.
func NewFake() *Fake {
	return &Fake{s: newState()}
}

var (
	_ database.Querier  = (*Fake)(nil)
	_ database.TxRunner = (*Fake)(nil)
)

// InTx serializes units of work and restores the previous state if fn fails.
func (f *Fake) InTx(ctx context.Context, fn func(q database.Querier) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snapshot := f.s.clone()
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.s = snapshot
		f.Rollbacks++
		f.mu.Unlock()
		return err
	}

	f.mu.Lock()
	f.Commits++
	f.mu.Unlock()
	return nil
}

func (f *Fake) fail(op string) error {
	if f.Fail == nil {
		return nil
	}
	return f.Fail(op)
}

func (f *Fake) AddAssignee(ctx context.Context, arg database.AddAssigneeParams) error {
	if err := f.fail("AddAssignee"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.prs[arg.PullRequestID]; !ok {
		return fmt.Errorf("foreign key violation: pull request %d", arg.PullRequestID)
	}
	if _, ok := f.s.users[arg.UserID]; !ok {
		return fmt.Errorf("foreign key violation: user %d", arg.UserID)
	}
	f.s.assignees[assigneeKey{arg.PullRequestID, arg.UserID}] = true
	return nil
}

func (f *Fake) RemoveAssignee(ctx context.Context, arg database.RemoveAssigneeParams) error {
	if err := f.fail("RemoveAssignee"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.s.assignees, assigneeKey{arg.PullRequestID, arg.UserID})
	return nil
}

func (f *Fake) ListAssignees(ctx context.Context, pullRequestID int64) ([]database.User, error) {
	if err := f.fail("ListAssignees"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []database.User
	for k := range f.s.assignees {
		if k.pr == pullRequestID {
			users = append(users, f.s.users[k.user])
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (f *Fake) DeleteComment(ctx context.Context, id int64) (int64, error) {
	if err := f.fail("DeleteComment"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.comments[id]; !ok {
		return 0, nil
	}
	delete(f.s.comments, id)
	return 1, nil
}

func (f *Fake) GetComment(ctx context.Context, id int64) (database.Comment, error) {
	if err := f.fail("GetComment"); err != nil {
		return database.Comment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.s.comments[id]
	if !ok {
		return database.Comment{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *Fake) SetCommentKind(ctx context.Context, arg database.SetCommentKindParams) (int64, error) {
	if err := f.fail("SetCommentKind"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.s.comments[arg.ID]
	if !ok {
		return 0, nil
	}
	c.Kind = arg.Kind
	c.Weight = arg.Weight
	f.s.comments[arg.ID] = c
	return 1, nil
}

func (f *Fake) UpsertComment(ctx context.Context, arg database.UpsertCommentParams) (database.UpsertCommentRow, error) {
	if err := f.fail("UpsertComment"); err != nil {
		return database.UpsertCommentRow{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.prs[arg.PullRequestID]; !ok {
		return database.UpsertCommentRow{}, fmt.Errorf("foreign key violation: pull request %d", arg.PullRequestID)
	}
	if _, ok := f.s.users[arg.UserID]; !ok {
		return database.UpsertCommentRow{}, fmt.Errorf("foreign key violation: user %d", arg.UserID)
	}
	_, exists := f.s.comments[arg.ID]
	c := database.Comment{
		ID:            arg.ID,
		PullRequestID: arg.PullRequestID,
		UserID:        arg.UserID,
		Kind:          arg.Kind,
		Weight:        arg.Weight,
		CreatedAt:     arg.CreatedAt,
	}
	f.s.comments[arg.ID] = c
	return database.UpsertCommentRow{
		ID:            c.ID,
		PullRequestID: c.PullRequestID,
		UserID:        c.UserID,
		Kind:          c.Kind,
		Weight:        c.Weight,
		CreatedAt:     c.CreatedAt,
		Inserted:      !exists,
	}, nil
}

func (f *Fake) GetMergeByPullRequest(ctx context.Context, pullRequestID int64) (database.Merge, error) {
	if err := f.fail("GetMergeByPullRequest"); err != nil {
		return database.Merge{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.s.merges {
		if m.PullRequestID == pullRequestID {
			return m, nil
		}
	}
	return database.Merge{}, pgx.ErrNoRows
}

func (f *Fake) UpsertMerge(ctx context.Context, arg database.UpsertMergeParams) (database.UpsertMergeRow, error) {
	if err := f.fail("UpsertMerge"); err != nil {
		return database.UpsertMergeRow{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.prs[arg.PullRequestID]; !ok {
		return database.UpsertMergeRow{}, fmt.Errorf("foreign key violation: pull request %d", arg.PullRequestID)
	}
	if _, ok := f.s.users[arg.AuthorID]; !ok {
		return database.UpsertMergeRow{}, fmt.Errorf("foreign key violation: user %d", arg.AuthorID)
	}
	for sha, m := range f.s.merges {
		if sha != arg.Sha && m.PullRequestID == arg.PullRequestID {
			return database.UpsertMergeRow{}, fmt.Errorf("unique violation: merge for pull request %d", arg.PullRequestID)
		}
	}
	_, exists := f.s.merges[arg.Sha]
	f.s.merges[arg.Sha] = database.Merge{
		Sha:           arg.Sha,
		PullRequestID: arg.PullRequestID,
		AuthorID:      arg.AuthorID,
		MergedAt:      arg.MergedAt,
	}
	return database.UpsertMergeRow{
		Sha:           arg.Sha,
		PullRequestID: arg.PullRequestID,
		AuthorID:      arg.AuthorID,
		MergedAt:      arg.MergedAt,
		Inserted:      !exists,
	}, nil
}

func (f *Fake) GetPullRequestByRepoAndNumber(ctx context.Context, arg database.GetPullRequestByRepoAndNumberParams) (database.PullRequest, error) {
	if err := f.fail("GetPullRequestByRepoAndNumber"); err != nil {
		return database.PullRequest{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.s.prIndex[prKey{arg.Repo, arg.Number}]
	if !ok {
		return database.PullRequest{}, pgx.ErrNoRows
	}
	return f.s.prs[id], nil
}

func (f *Fake) UpsertPullRequest(ctx context.Context, arg database.UpsertPullRequestParams) (database.UpsertPullRequestRow, error) {
	if err := f.fail("UpsertPullRequest"); err != nil {
		return database.UpsertPullRequestRow{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if arg.AuthorID.Valid {
		if _, ok := f.s.users[arg.AuthorID.Int64]; !ok {
			return database.UpsertPullRequestRow{}, fmt.Errorf("foreign key violation: user %d", arg.AuthorID.Int64)
		}
	}
	key := prKey{arg.Repo, arg.Number}
	id, exists := f.s.prIndex[key]
	if !exists {
		f.s.nextPR++
		id = f.s.nextPR
		f.s.prIndex[key] = id
	}
	githubID := arg.GithubID
	if githubID == 0 {
		githubID = f.s.prs[id].GithubID
	}
	pr := database.PullRequest{
		ID:       id,
		GithubID: githubID,
		Repo:     arg.Repo,
		Number:   arg.Number,
		AuthorID: arg.AuthorID,
		State:    arg.State,
	}
	f.s.prs[id] = pr
	return database.UpsertPullRequestRow{
		ID:       pr.ID,
		GithubID: pr.GithubID,
		Repo:     pr.Repo,
		Number:   pr.Number,
		AuthorID: pr.AuthorID,
		State:    pr.State,
		Inserted: !exists,
	}, nil
}

func (f *Fake) ReleaseUserName(ctx context.Context, arg database.ReleaseUserNameParams) error {
	if err := f.fail("ReleaseUserName"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.s.users {
		if id != arg.ID && u.Name == arg.Name {
			u.Name = u.Name + "#" + strconv.FormatInt(id, 10)
			f.s.users[id] = u
		}
	}
	return nil
}

func (f *Fake) UpsertUser(ctx context.Context, arg database.UpsertUserParams) (database.UpsertUserRow, error) {
	if err := f.fail("UpsertUser"); err != nil {
		return database.UpsertUserRow{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.s.users {
		if id != arg.ID && u.Name == arg.Name {
			return database.UpsertUserRow{}, fmt.Errorf("unique violation: user name %q", arg.Name)
		}
	}
	_, exists := f.s.users[arg.ID]
	f.s.users[arg.ID] = database.User{ID: arg.ID, Name: arg.Name, AvatarUrl: arg.AvatarUrl}
	return database.UpsertUserRow{
		ID:        arg.ID,
		Name:      arg.Name,
		AvatarUrl: arg.AvatarUrl,
		Inserted:  !exists,
	}, nil
}

func (f *Fake) GetUserStats(ctx context.Context, arg database.GetUserStatsParams) (database.GetUserStatsRow, error) {
	if err := f.fail("GetUserStats"); err != nil {
		return database.GetUserStatsRow{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.s.users {
		if u.Name == arg.Name {
			return database.GetUserStatsRow(f.s.stats(u, arg.Since, arg.Until)), nil
		}
	}
	return database.GetUserStatsRow{}, pgx.ErrNoRows
}

func (f *Fake) ListUserStats(ctx context.Context, arg database.ListUserStatsParams) ([]database.ListUserStatsRow, error) {
	if err := f.fail("ListUserStats"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []database.ListUserStatsRow
	for _, u := range f.s.users {
		if !f.s.active(u.ID, arg) {
			continue
		}
		rows = append(rows, f.s.stats(u, arg.Since, arg.Until))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (f *Fake) TopAssignees(ctx context.Context, limit int32) ([]database.TopAssigneesRow, error) {
	if err := f.fail("TopAssignees"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[int64]int64{}
	for k := range f.s.assignees {
		counts[k.user]++
	}
	rows := make([]database.TopAssigneesRow, 0, len(counts))
	for id, n := range counts {
		u := f.s.users[id]
		rows = append(rows, database.TopAssigneesRow{ID: u.ID, Name: u.Name, AvatarUrl: u.AvatarUrl, Assignments: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Assignments != rows[j].Assignments {
			return rows[i].Assignments > rows[j].Assignments
		}
		return rows[i].Name < rows[j].Name
	})
	if int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

// active mirrors the ListUserStats filter: users with a comment on another
// user's pull request or a merge inside the window.
func (s *state) active(userID int64, arg database.ListUserStatsParams) bool {
	r := s.stats(database.User{ID: userID}, arg.Since, arg.Until)
	return r.Approvals+r.ChangeRequests+r.Comments+r.Merges > 0
}

func (s *state) stats(u database.User, since, until time.Time) database.ListUserStatsRow {
	row := database.ListUserStatsRow{ID: u.ID, Name: u.Name, AvatarUrl: u.AvatarUrl}
	for _, c := range s.comments {
		if c.UserID != u.ID || c.CreatedAt.Before(since) || c.CreatedAt.After(until) {
			continue
		}
		if author := s.prs[c.PullRequestID].AuthorID; author.Valid && author.Int64 == u.ID {
			continue
		}
		switch c.Kind {
		case "approval":
			row.Approvals++
		case "change_request":
			row.ChangeRequests++
		case "comment":
			row.Comments++
		}
	}
	for _, m := range s.merges {
		if m.AuthorID == u.ID && !m.MergedAt.Before(since) && !m.MergedAt.After(until) {
			row.Merges++
		}
	}
	return row
}

// Snapshot accessors for assertions.

// Users returns every stored user.
func (f *Fake) Users() []database.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.s.users, func(a, b database.User) bool { return a.ID < b.ID })
}

// PullRequests returns every stored pull request.
func (f *Fake) PullRequests() []database.PullRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.s.prs, func(a, b database.PullRequest) bool { return a.ID < b.ID })
}

// Comments returns every stored comment.
func (f *Fake) Comments() []database.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.s.comments, func(a, b database.Comment) bool { return a.ID < b.ID })
}

// Merges returns every stored merge.
func (f *Fake) Merges() []database.Merge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedValues(f.s.merges, func(a, b database.Merge) bool { return a.Sha < b.Sha })
}

// AssigneeIDs returns the user ids assigned to the pull request, sorted.
func (f *Fake) AssigneeIDs(pullRequestID int64) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for k := range f.s.assignees {
		if k.pr == pullRequestID {
			ids = append(ids, k.user)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AuthorOf returns the author id of a stored pull request.
func (f *Fake) AuthorOf(pullRequestID int64) pgtype.Int8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.prs[pullRequestID].AuthorID
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
