/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"errors"

	"github.com/Proshanto08/Team-management/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Searcher is one shard endpoint. *Client implements it.
type Searcher interface {
	Name() string
	Search(ctx context.Context, jql string) ([]Issue, error)
	User(ctx context.Context, accountID string) (*User, error)
}

// Fetcher reads the logical dataset split across shards A and B.
type Fetcher struct {
	a, b Searcher
	log  zerolog.Logger
}

func NewFetcher(a, b Searcher, log zerolog.Logger) *Fetcher {
	return &Fetcher{a: a, b: b, log: log}
}

// FetchIssues runs the same query on both shards concurrently. Either
// failure fails the call; there is no partial result.
func (f *Fetcher) FetchIssues(ctx context.Context, q Query) ([]Issue, []Issue, error) {
	jql := q.JQL()
	var listA, listB []Issue
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listA, err = f.a.Search(gctx, jql)
		return err
	})
	g.Go(func() error {
		var err error
		listB, err = f.b.Search(gctx, jql)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	f.log.Debug().Str("account", q.AccountID).Int(f.a.Name(), len(listA)).Int(f.b.Name(), len(listB)).Msg("shards fetched")
	return listA, listB, nil
}

// Merge concatenates shard results. Shards are disjoint partitions, so
// nothing is deduplicated.
func Merge(a, b []Issue) []Issue {
	out := make([]Issue, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// FetchAccountDetail asks shard A and falls back to B only when A does not
// know the account.
func (f *Fetcher) FetchAccountDetail(ctx context.Context, accountID string) (domain.AccountDetail, error) {
	u, err := f.a.User(ctx, accountID)
	if err == nil {
		return toDetail(u, f.a.Name()), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.AccountDetail{}, err
	}
	f.log.Debug().Str("account", accountID).Msg("account not on shard A, trying B")
	u, err = f.b.User(ctx, accountID)
	if err != nil {
		return domain.AccountDetail{}, err
	}
	return toDetail(u, f.b.Name()), nil
}

func toDetail(u *User, shard string) domain.AccountDetail {
	return domain.AccountDetail{
		AccountID:   u.AccountID,
		DisplayName: u.DisplayName,
		Email:       u.EmailAddress,
		Active:      u.Active,
		Shard:       shard,
	}
}
