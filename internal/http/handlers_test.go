package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Proshanto08/Team-management/internal/config"
	"github.com/Proshanto08/Team-management/internal/domain"
	"github.com/Proshanto08/Team-management/internal/jobs"
	"github.com/Proshanto08/Team-management/internal/repo"
	"github.com/Proshanto08/Team-management/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	runErr  error
	hist    *services.AccountHistory
	histErr error
	detErr  error
	last    *repo.LastRun
}

func (f *fakeService) RunJobForAccount(ctx context.Context, name, id string) error { return f.runErr }

func (f *fakeService) History(ctx context.Context, id string) (*services.AccountHistory, error) {
	return f.hist, f.histErr
}

func (f *fakeService) AccountDetail(ctx context.Context, id string) (domain.AccountDetail, error) {
	if f.detErr != nil {
		return domain.AccountDetail{}, f.detErr
	}
	return domain.AccountDetail{AccountID: id, DisplayName: "Rina", Shard: "a"}, nil
}

func (f *fakeService) LastRun(ctx context.Context, job string) (*repo.LastRun, error) {
	return f.last, nil
}

type fakeTrigger struct {
	names []string
	err   error
}

func (f *fakeTrigger) Trigger(name string) error {
	if f.err != nil {
		return f.err
	}
	f.names = append(f.names, name)
	return nil
}

func do(t *testing.T, svc service, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return doWith(t, svc, &fakeTrigger{}, method, path)
}

func doWith(t *testing.T, svc service, trig trigger, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := NewRouter(config.Config{AppEnv: "test"}, zerolog.Nop(), svc, trig)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHealthz(t *testing.T) {
	rec, body := do(t, &fakeService{}, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
}

func TestRunJob_QueuesThroughScheduler(t *testing.T) {
	trig := &fakeTrigger{}
	rec, body := doWith(t, &fakeService{}, trig, http.MethodPost, "/admin/jobs/"+services.JobDoneToday)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, []string{services.JobDoneToday}, trig.names)
}

func TestRunJob_SchedulerStopped(t *testing.T) {
	trig := &fakeTrigger{err: jobs.ErrStopped}
	rec, _ := doWith(t, &fakeService{}, trig, http.MethodPost, "/admin/jobs/"+services.JobScore)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunJob_UnknownIs404(t *testing.T) {
	trig := &fakeTrigger{}
	rec, _ := doWith(t, &fakeService{}, trig, http.MethodPost, "/admin/jobs/weekly-digest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, trig.names)
}

func TestRunJobForAccount_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: acc", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: blank", services.ErrBadRequest), http.StatusBadRequest},
		{errors.New("pool closed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec, body := do(t, &fakeService{runErr: tc.err}, http.MethodPost, "/admin/jobs/score/accounts/acc")
		assert.Equal(t, tc.code, rec.Code, "%v", tc.err)
		if tc.code == http.StatusInternalServerError {
			assert.Equal(t, "internal error", body["error"])
		}
	}
}

func TestHistory(t *testing.T) {
	svc := &fakeService{hist: &services.AccountHistory{
		AccountID:          "acc",
		CurrentPerformance: 65,
		Entries:            []*domain.IssueHistoryEntry{{Date: "2024-05-01", OverallScore: 65}},
	}}
	rec, body := do(t, svc, http.MethodGet, "/accounts/acc/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc", body["accountId"])
	assert.Equal(t, 65.0, body["currentPerformance"])
	require.Len(t, body["entries"], 1)

	rec, _ = do(t, &fakeService{histErr: services.ErrNotFound}, http.MethodGet, "/accounts/ghost/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountDetail(t *testing.T) {
	rec, _ := do(t, &fakeService{}, http.MethodGet, "/accounts/acc/detail")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, &fakeService{detErr: fmt.Errorf("%w: x", services.ErrNotFound)}, http.MethodGet, "/accounts/x/detail")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastRun(t *testing.T) {
	rec, _ := do(t, &fakeService{}, http.MethodGet, "/admin/last-run?job=score")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	now := time.Now().UTC()
	svc := &fakeService{last: &repo.LastRun{Job: "score", RunID: "r1", StartedAt: now, FinishedAt: &now, AccountsTotal: 4, Success: true}}
	rec, _ = do(t, svc, http.MethodGet, "/admin/last-run?job=score")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "r1")
}
