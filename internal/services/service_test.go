package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Proshanto08/Team-management/internal/adapters/jira"
	"github.com/Proshanto08/Team-management/internal/config"
	"github.com/Proshanto08/Team-management/internal/domain"
	"github.com/Proshanto08/Team-management/internal/repo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	mu      sync.Mutex
	a, b    map[domain.Mode][]jira.Issue
	fail    map[string]error
	queries []jira.Query
	detail  domain.AccountDetail
	dErr    error
}

func (f *fakeTracker) FetchIssues(ctx context.Context, q jira.Query) ([]jira.Issue, []jira.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.fail[q.AccountID]; err != nil {
		return nil, nil, err
	}
	return f.a[q.Mode], f.b[q.Mode], nil
}

func (f *fakeTracker) FetchAccountDetail(ctx context.Context, id string) (domain.AccountDetail, error) {
	return f.detail, f.dErr
}

type fakeNotifier struct{ msgs []string }

func (n *fakeNotifier) Broadcast(ctx context.Context, text string) { n.msgs = append(n.msgs, text) }

func mk(id, typ, due string) jira.Issue {
	is := jira.Issue{ID: id, Key: "P-" + id}
	is.Fields.IssueType = &jira.NamedField{Name: typ}
	is.Fields.Status = &jira.NamedField{Name: "In Progress"}
	is.Fields.DueDate = due
	return is
}

func repeat(n int, prefix, typ, due string) []jira.Issue {
	out := make([]jira.Issue, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, mk(fmt.Sprintf("%s%d", prefix, i), typ, due))
	}
	return out
}

func join(lists ...[]jira.Issue) []jira.Issue {
	var out []jira.Issue
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func newTestService(t *testing.T, tr *fakeTracker, accounts ...*domain.Account) (*Service, *repo.Memory, *fakeNotifier) {
	t.Helper()
	store := repo.NewMemory()
	for _, a := range accounts {
		require.NoError(t, store.Put(a))
	}
	n := &fakeNotifier{}
	cfg := config.Config{TZ: "UTC", HistoryWindowDays: 30, JiraDoneStatus: "Done", MaxConcurrency: 4}
	s := New(cfg, zerolog.Nop(), store, store, tr, n)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return s, store, n
}

const day = "2024-05-01"

func TestAggregateThenScore_EndToEnd(t *testing.T) {
	// planned: 4 tasks, 1 bug, 2 stories split across shards; completed: 3 tasks, 1 bug, 1 story
	tr := &fakeTracker{
		a: map[domain.Mode][]jira.Issue{
			domain.ModeNotDone: join(repeat(4, "t", "Task", day), repeat(1, "b", "Bug", day)),
			domain.ModeDone:    join(repeat(3, "t", "Task", day), repeat(1, "b", "Bug", day)),
		},
		b: map[domain.Mode][]jira.Issue{
			domain.ModeNotDone: repeat(2, "s", "Story", day),
			domain.ModeDone:    repeat(1, "s", "Story", day),
		},
	}
	s, store, _ := newTestService(t, tr, &domain.Account{ID: "acc", Designation: domain.DesignationSWE})
	ctx := context.Background()

	n, err := s.Aggregate(ctx, "acc", domain.WindowRange, domain.ModeNotDone)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.Aggregate(ctx, "acc", domain.WindowToday, domain.ModeDone)
	require.NoError(t, err)

	acc, err := s.Score(ctx, "acc")
	require.NoError(t, err)
	e := acc.Entry(day)
	require.NotNil(t, e)
	assert.Equal(t, domain.TypeCounts{Task: 4, Bug: 1, Story: 2}, *e.Counts.NotDone)
	assert.Equal(t, domain.TypeCounts{Task: 3, Bug: 1, Story: 1}, *e.Counts.Done)
	assert.InDelta(t, 80, e.TaskCompletionRate, 1e-9)
	assert.InDelta(t, 50, e.UserStoryCompletionRate, 1e-9)
	assert.InDelta(t, 65, e.OverallScore, 1e-9)
	assert.Empty(t, e.Comment)

	stored, err := store.FindAccount(ctx, "acc")
	require.NoError(t, err)
	assert.InDelta(t, 65, stored.CurrentPerformance, 1e-9)

	// query windows: range covers 30 days, today only today
	require.Len(t, tr.queries, 2)
	assert.Equal(t, "2024-04-01", tr.queries[0].From)
	assert.Equal(t, day, tr.queries[1].From)
	assert.Equal(t, day, tr.queries[1].To)
}

func TestAggregate_MissingAccountIsFatal(t *testing.T) {
	tr := &fakeTracker{a: map[domain.Mode][]jira.Issue{domain.ModeDone: repeat(1, "t", "Task", day)}}
	s, store, _ := newTestService(t, tr)

	_, err := s.Aggregate(context.Background(), "ghost", domain.WindowToday, domain.ModeDone)
	require.ErrorIs(t, err, repo.ErrAccountNotFound)
	_, err = store.FindAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, repo.ErrAccountNotFound)
}

func TestAggregate_MissingAccountWithNoIssues(t *testing.T) {
	tr := &fakeTracker{}
	s, _, _ := newTestService(t, tr)

	n, err := s.Aggregate(context.Background(), "ghost", domain.WindowToday, domain.ModeDone)
	require.ErrorIs(t, err, repo.ErrAccountNotFound)
	assert.Zero(t, n)
	assert.Empty(t, tr.queries)

	err = s.RunJobForAccount(context.Background(), JobNotDoneToday, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAggregate_TransportFailureWritesNothing(t *testing.T) {
	boom := errors.New("shard b: connection refused")
	tr := &fakeTracker{fail: map[string]error{"acc": boom}}
	s, store, _ := newTestService(t, tr, &domain.Account{ID: "acc"})

	_, err := s.Aggregate(context.Background(), "acc", domain.WindowRange, domain.ModeNotDone)
	require.ErrorIs(t, err, boom)
	acc, _ := store.FindAccount(context.Background(), "acc")
	assert.Empty(t, acc.History)
}

func TestRunJob_IsolatesFailingAccounts(t *testing.T) {
	tr := &fakeTracker{
		a:    map[domain.Mode][]jira.Issue{domain.ModeNotDone: repeat(2, "t", "Task", day)},
		fail: map[string]error{"bad": errors.New("status=502")},
	}
	s, store, n := newTestService(t, tr,
		&domain.Account{ID: "ok1"},
		&domain.Account{ID: "bad"},
		&domain.Account{ID: "ok2"},
		&domain.Account{ID: "old", Archived: true},
	)
	ctx := context.Background()

	res, err := s.RunJob(ctx, JobNotDoneToday)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Errors, "bad")
	assert.NotEmpty(t, res.RunID)

	for _, id := range []string{"ok1", "ok2"} {
		acc, _ := store.FindAccount(ctx, id)
		require.NotNil(t, acc.Entry(day), id)
		assert.Equal(t, 2, acc.Entry(day).Counts.NotDone.Task)
	}
	archived, _ := store.FindAccount(ctx, "old")
	assert.Empty(t, archived.History)

	lr, err := s.LastRun(ctx, JobNotDoneToday)
	require.NoError(t, err)
	require.NotNil(t, lr)
	assert.False(t, lr.Success)
	assert.Equal(t, 1, lr.AccountsFailed)
	require.Len(t, n.msgs, 1)
	assert.Contains(t, n.msgs[0], "1 failed")
	assert.Contains(t, n.msgs[0], "bad")
}

func TestRunJob_ScoreAll(t *testing.T) {
	acc := &domain.Account{ID: "acc", History: map[string]*domain.IssueHistoryEntry{
		day: {Date: day, Counts: domain.Counts{NotDone: &domain.TypeCounts{Task: 1}, Done: &domain.TypeCounts{Task: 2}}},
	}}
	s, store, _ := newTestService(t, &fakeTracker{}, acc)

	res, err := s.RunJob(context.Background(), JobScore)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Failed)
	got, _ := store.FindAccount(context.Background(), "acc")
	assert.Equal(t, 100.0, got.Entry(day).TaskCompletionRate)
	assert.Equal(t, "Your target was 1, but you completed 2.", got.Entry(day).Comment)
	assert.Equal(t, 100.0, got.CurrentPerformance)
}

func TestRunJob_Unknown(t *testing.T) {
	s, _, _ := newTestService(t, &fakeTracker{})
	_, err := s.RunJob(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownJob)
	require.ErrorIs(t, s.RunJobForAccount(context.Background(), "nope", "acc"), ErrUnknownJob)
}

func TestRunJobForAccount_MapsMissingAccount(t *testing.T) {
	s, _, _ := newTestService(t, &fakeTracker{})
	err := s.RunJobForAccount(context.Background(), JobScore, "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAccountDetail_MapsErrors(t *testing.T) {
	tr := &fakeTracker{dErr: fmt.Errorf("shard b: %w", jira.ErrNotFound)}
	s, _, _ := newTestService(t, tr)
	_, err := s.AccountDetail(context.Background(), "acc")
	require.ErrorIs(t, err, ErrNotFound)

	tr.dErr = fmt.Errorf("shard a: %w", jira.ErrInvalidID)
	_, err = s.AccountDetail(context.Background(), "acc")
	require.ErrorIs(t, err, ErrBadRequest)

	tr.dErr = nil
	tr.detail = domain.AccountDetail{AccountID: "acc", Shard: "b"}
	d, err := s.AccountDetail(context.Background(), "acc")
	require.NoError(t, err)
	assert.Equal(t, "b", d.Shard)
}

func TestHistory_SortedEntries(t *testing.T) {
	acc := &domain.Account{ID: "acc", CurrentPerformance: 70, History: map[string]*domain.IssueHistoryEntry{
		"2024-05-03": {Date: "2024-05-03"},
		"2024-04-29": {Date: "2024-04-29"},
		"2024-05-01": {Date: "2024-05-01"},
	}}
	s, _, _ := newTestService(t, &fakeTracker{}, acc)

	h, err := s.History(context.Background(), "acc")
	require.NoError(t, err)
	require.Len(t, h.Entries, 3)
	assert.Equal(t, "2024-04-29", h.Entries[0].Date)
	assert.Equal(t, "2024-05-03", h.Entries[2].Date)
	assert.Equal(t, 70.0, h.CurrentPerformance)

	_, err = s.History(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupJob(t *testing.T) {
	for _, j := range Jobs {
		got, ok := LookupJob(j.Name)
		require.True(t, ok)
		assert.Equal(t, j, got)
		if !j.Score {
			assert.Equal(t, j.Name, jobFor(j.Window, j.Mode))
		}
	}
}
