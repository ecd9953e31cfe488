/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Proshanto08/Team-management/internal/domain"
)

// Memory is an in-process store with the same document semantics as
// Repository. Documents are kept encoded so callers never share state.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]memDoc
	runs     []LastRun
	locks    map[int64]bool
	maxRetry time.Duration
}

type memDoc struct {
	data    []byte
	version int64
}

func NewMemory() *Memory {
	return &Memory{docs: map[string]memDoc{}, locks: map[int64]bool{}, maxRetry: defaultMaxRetry}
}

// Put creates or replaces an account, standing in for the external account
// lifecycle.
func (m *Memory) Put(acc *domain.Account) error {
	b, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[acc.ID] = memDoc{data: b, version: m.docs[acc.ID].version + 1}
	return nil
}

func (m *Memory) FindAccount(ctx context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	d, ok := m.docs[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrAccountNotFound)
	}
	return decodeDoc(d)
}

func decodeDoc(d memDoc) (*domain.Account, error) {
	var acc domain.Account
	if err := json.Unmarshal(d.data, &acc); err != nil {
		return nil, err
	}
	if acc.History == nil {
		acc.History = map[string]*domain.IssueHistoryEntry{}
	}
	acc.Version = d.version
	return &acc, nil
}

func (m *Memory) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	docs := make([]memDoc, 0, len(ids))
	sort.Strings(ids)
	for _, id := range ids {
		docs = append(docs, m.docs[id])
	}
	m.mu.Unlock()
	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		acc, err := decodeDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

func (m *Memory) SaveAccount(ctx context.Context, acc *domain.Account) error {
	b, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[acc.ID]
	if !ok {
		return fmt.Errorf("%s: %w", acc.ID, ErrAccountNotFound)
	}
	if d.version != acc.Version {
		return fmt.Errorf("%s: %w", acc.ID, ErrConflict)
	}
	m.docs[acc.ID] = memDoc{data: b, version: d.version + 1}
	acc.Version++
	return nil
}

func (m *Memory) Update(ctx context.Context, id string, fn UpdateFunc) (*domain.Account, error) {
	var out *domain.Account
	err := retryOnConflict(ctx, m.maxRetry, func() error {
		acc, err := m.FindAccount(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(acc); err != nil {
			return err
		}
		if err := m.SaveAccount(ctx, acc); err != nil {
			return err
		}
		out = acc
		return nil
	})
	return out, err
}

func (m *Memory) TryAdvisoryLock(ctx context.Context, key int64) (Unlock, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return nil, false, nil
	}
	m.locks[key] = true
	var once sync.Once
	return func(ctx context.Context) error {
		err := errors.New("advisory unlock returned false")
		once.Do(func() {
			m.mu.Lock()
			delete(m.locks, key)
			m.mu.Unlock()
			err = nil
		})
		return err
	}, true, nil
}

func (m *Memory) StartJobRun(ctx context.Context, job, runID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, LastRun{Job: job, RunID: runID, StartedAt: time.Now().UTC()})
	return int64(len(m.runs)), nil
}

func (m *Memory) FinishJobRun(ctx context.Context, id int64, total, failed int, success bool, errStr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id <= 0 || int(id) > len(m.runs) {
		return fmt.Errorf("job run %d not found", id)
	}
	now := time.Now().UTC()
	r := &m.runs[id-1]
	r.FinishedAt = &now
	r.AccountsTotal, r.AccountsFailed = total, failed
	r.Success, r.Error = success, errStr
	return nil
}

func (m *Memory) GetLastRun(ctx context.Context, job string) (*LastRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.runs) - 1; i >= 0; i-- {
		if job == "" || m.runs[i].Job == job {
			lr := m.runs[i]
			return &lr, nil
		}
	}
	return nil, nil
}
