/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Proshanto08/Team-management/internal/domain"
	"github.com/Proshanto08/Team-management/internal/history"
	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrAccountNotFound means the local account document does not exist.
	// History writes never create accounts.
	ErrAccountNotFound = errors.New("repo: account not found")
	// ErrConflict means the document changed since it was read.
	ErrConflict = errors.New("repo: version conflict")
)

// UpdateFunc mutates a freshly loaded account. Returning an error aborts the
// update without saving.
type UpdateFunc func(acc *domain.Account) error

// Unlock releases an advisory lock on the session that took it.
type Unlock func(ctx context.Context) error

type Updater interface {
	Update(ctx context.Context, id string, fn UpdateFunc) (*domain.Account, error)
}

// UpsertHistory applies a batch of per-date updates to one account in a
// single versioned write. A missing account fails even when updates is empty.
func UpsertHistory(ctx context.Context, store Updater, accountID string, updates ...history.Update) (*domain.Account, error) {
	return store.Update(ctx, accountID, func(acc *domain.Account) error {
		history.ApplyAll(acc, updates)
		return nil
	})
}

type LastRun struct {
	Job            string     `json:"job"`
	RunID          string     `json:"run_id"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	AccountsTotal  int        `json:"accounts_total"`
	AccountsFailed int        `json:"accounts_failed"`
	Success        bool       `json:"success"`
	Error          string     `json:"error"`
}

const defaultMaxRetry = 5 * time.Second

// retryOnConflict reruns op while it reports ErrConflict, up to maxElapsed.
func retryOnConflict(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	if maxElapsed <= 0 {
		maxElapsed = defaultMaxRetry
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = maxElapsed
	return backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}
