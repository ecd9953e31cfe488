/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Proshanto08/Team-management/internal/adapters/jira"
	"github.com/Proshanto08/Team-management/internal/config"
	"github.com/Proshanto08/Team-management/internal/domain"
	"github.com/Proshanto08/Team-management/internal/history"
	"github.com/Proshanto08/Team-management/internal/metrics"
	"github.com/Proshanto08/Team-management/internal/repo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrUnknownJob = errors.New("unknown job")
)

type Store interface {
	FindAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	Update(ctx context.Context, id string, fn repo.UpdateFunc) (*domain.Account, error)
}

type JobRecorder interface {
	StartJobRun(ctx context.Context, job, runID string) (int64, error)
	FinishJobRun(ctx context.Context, id int64, total, failed int, success bool, errStr string) error
	GetLastRun(ctx context.Context, job string) (*repo.LastRun, error)
}

type Tracker interface {
	FetchIssues(ctx context.Context, q jira.Query) ([]jira.Issue, []jira.Issue, error)
	FetchAccountDetail(ctx context.Context, accountID string) (domain.AccountDetail, error)
}

type Notifier interface {
	Broadcast(ctx context.Context, text string)
}

type Service struct {
	cfg     config.Config
	log     zerolog.Logger
	store   Store
	runs    JobRecorder
	tracker Tracker
	notify  Notifier
	loc     *time.Location
	now     func() time.Time
}

func New(cfg config.Config, log zerolog.Logger, store Store, runs JobRecorder, tracker Tracker, notify Notifier) *Service {
	return &Service{
		cfg:     cfg,
		log:     log,
		store:   store,
		runs:    runs,
		tracker: tracker,
		notify:  notify,
		loc:     cfg.Location(),
		now:     time.Now,
	}
}

// RunResult summarizes one batch pass. Errors is keyed by account id.
type RunResult struct {
	Job    string            `json:"job"`
	RunID  string            `json:"run_id"`
	Total  int               `json:"total"`
	Failed int               `json:"failed"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Aggregate runs fetch, merge, classify and upsert for one account and
// returns the number of dates written.
func (s *Service) Aggregate(ctx context.Context, accountID string, window domain.Window, mode domain.Mode) (int, error) {
	// history writes never create accounts, so an unknown id fails before
	// the tracker is asked
	if _, err := s.store.FindAccount(ctx, accountID); err != nil {
		return 0, fmt.Errorf("load account: %w", err)
	}
	q := jira.NewQuery(accountID, mode, window, s.now().In(s.loc), s.cfg.HistoryWindowDays, s.cfg.JiraDoneStatus)
	listA, listB, err := s.tracker.FetchIssues(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("fetch issues: %w", err)
	}
	issues := jira.Merge(listA, listB)

	var ratios map[string]float64
	if mode == domain.ModeDone {
		ratios = history.BugRatios(window, issues)
	}
	updates := history.Classify(mode, issues).Updates(ratios)
	if len(updates) == 0 {
		return 0, nil
	}
	if _, err := repo.UpsertHistory(ctx, s.store, accountID, updates...); err != nil {
		return 0, fmt.Errorf("upsert history: %w", err)
	}
	s.log.Debug().Str("account", accountID).Str("mode", string(mode)).Str("window", string(window)).
		Int("issues", len(issues)).Int("dates", len(updates)).Msg("history upserted")
	return len(updates), nil
}

// Score recomputes every entry's derived fields and the account's running
// performance.
func (s *Service) Score(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, err := s.store.Update(ctx, accountID, func(acc *domain.Account) error {
		metrics.ScoreAccount(acc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	return acc, nil
}

// forEachAccount runs fn for every non-archived account with bounded
// parallelism. A failing account is logged and counted; the rest continue.
func (s *Service) forEachAccount(ctx context.Context, job string, fn func(ctx context.Context, id string) error) (RunResult, error) {
	res := RunResult{Job: job}
	accs, err := s.store.ListAccounts(ctx)
	if err != nil {
		return res, fmt.Errorf("list accounts: %w", err)
	}
	var mu sync.Mutex
	g := new(errgroup.Group)
	if s.cfg.MaxConcurrency > 0 {
		g.SetLimit(s.cfg.MaxConcurrency)
	}
	for _, acc := range accs {
		if acc.Archived {
			continue
		}
		res.Total++
		id := acc.ID
		g.Go(func() error {
			if err := fn(ctx, id); err != nil {
				s.log.Error().Err(err).Str("job", job).Str("account", id).Msg("account failed, continuing")
				mu.Lock()
				res.Failed++
				if res.Errors == nil {
					res.Errors = map[string]string{}
				}
				res.Errors[id] = err.Error()
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return res, ctx.Err()
}

func (s *Service) AggregateAll(ctx context.Context, window domain.Window, mode domain.Mode) (RunResult, error) {
	job := jobFor(window, mode)
	return s.forEachAccount(ctx, job, func(ctx context.Context, id string) error {
		_, err := s.Aggregate(ctx, id, window, mode)
		return err
	})
}

func (s *Service) ScoreAll(ctx context.Context) (RunResult, error) {
	return s.forEachAccount(ctx, JobScore, func(ctx context.Context, id string) error {
		_, err := s.Score(ctx, id)
		return err
	})
}

// RunJob runs a named job across all accounts and records it.
func (s *Service) RunJob(ctx context.Context, name string) (RunResult, error) {
	job, ok := LookupJob(name)
	if !ok {
		return RunResult{Job: name}, fmt.Errorf("%s: %w", name, ErrUnknownJob)
	}
	runID := uuid.NewString()
	log := s.log.With().Str("job", name).Str("run", runID).Logger()
	recID, err := s.runs.StartJobRun(ctx, name, runID)
	if err != nil {
		log.Error().Err(err).Msg("start job run failed")
	}
	log.Info().Msg("job: start")
	started := time.Now()

	var res RunResult
	if job.Score {
		res, err = s.ScoreAll(ctx)
	} else {
		res, err = s.AggregateAll(ctx, job.Window, job.Mode)
	}
	res.RunID = runID

	errStr := ""
	if err != nil {
		errStr = err.Error()
	} else if res.Failed > 0 {
		errStr = fmt.Sprintf("%d account(s) failed", res.Failed)
	}
	if recID != 0 {
		if ferr := s.runs.FinishJobRun(context.WithoutCancel(ctx), recID, res.Total, res.Failed, errStr == "", errStr); ferr != nil {
			log.Error().Err(ferr).Msg("finish job run failed")
		}
	}
	log.Info().Int("accounts", res.Total).Int("failed", res.Failed).Dur("took", time.Since(started)).Msg("job: done")
	if s.notify != nil {
		s.notify.Broadcast(ctx, summary(res, err))
	}
	return res, err
}

// RunJobForAccount is the on-demand single-account form of RunJob.
func (s *Service) RunJobForAccount(ctx context.Context, name, accountID string) error {
	job, ok := LookupJob(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownJob)
	}
	var err error
	if job.Score {
		_, err = s.Score(ctx, accountID)
	} else {
		_, err = s.Aggregate(ctx, accountID, job.Window, job.Mode)
	}
	return mapErr(err)
}

func (s *Service) AccountDetail(ctx context.Context, accountID string) (domain.AccountDetail, error) {
	d, err := s.tracker.FetchAccountDetail(ctx, accountID)
	return d, mapErr(err)
}

// AccountHistory is the read model of one account.
type AccountHistory struct {
	AccountID          string                      `json:"accountId"`
	Designation        domain.Designation          `json:"designation"`
	Archived           bool                        `json:"archived"`
	CurrentPerformance float64                     `json:"currentPerformance"`
	Entries            []*domain.IssueHistoryEntry `json:"entries"`
}

func (s *Service) History(ctx context.Context, accountID string) (*AccountHistory, error) {
	acc, err := s.store.FindAccount(ctx, accountID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &AccountHistory{
		AccountID:          acc.ID,
		Designation:        acc.Designation,
		Archived:           acc.Archived,
		CurrentPerformance: acc.CurrentPerformance,
		Entries:            acc.Entries(),
	}, nil
}

func (s *Service) LastRun(ctx context.Context, job string) (*repo.LastRun, error) {
	return s.runs.GetLastRun(ctx, job)
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jira.ErrNotFound), errors.Is(err, repo.ErrAccountNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, jira.ErrInvalidID):
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return err
}

func summary(res RunResult, err error) string {
	if err != nil {
		return fmt.Sprintf("Team Pulse: %s aborted after %d account(s): %v", res.Job, res.Total, err)
	}
	msg := fmt.Sprintf("Team Pulse: %s finished for %d account(s), %d failed.", res.Job, res.Total, res.Failed)
	if res.Failed > 0 {
		ids := make([]string, 0, len(res.Errors))
		for id := range res.Errors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		msg += fmt.Sprintf(" Failed: %v", ids)
	}
	return msg
}
