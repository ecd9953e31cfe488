/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Proshanto08/Team-management/internal/config"
	"github.com/Proshanto08/Team-management/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

// EnsureSchema creates the tables if they are missing.
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, schemaSQL)
	return err
}

type Repository struct {
	db       *DB
	log      zerolog.Logger
	maxRetry time.Duration
}

func NewRepository(d *DB, log zerolog.Logger, maxRetry time.Duration) *Repository {
	return &Repository{db: d, log: log, maxRetry: maxRetry}
}

// TryAdvisoryLock takes a session-level advisory lock on a dedicated pooled
// connection. The connection is held until the returned Unlock runs.
func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (Unlock, bool, error) {
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		var released bool
		err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&released)
		if err == nil && released {
			conn.Release()
			return nil
		}
		// drop the session so the lock goes with it
		pc := conn.Hijack()
		_ = pc.Close(context.WithoutCancel(ctx))
		if err != nil {
			return fmt.Errorf("advisory unlock %d: %w", key, err)
		}
		return fmt.Errorf("advisory unlock %d returned false", key)
	}, true, nil
}

const accountColumns = `id, designation, archived, current_performance, history, version`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	var designation string
	var hist []byte
	if err := row.Scan(&acc.ID, &designation, &acc.Archived, &acc.CurrentPerformance, &hist, &acc.Version); err != nil {
		return nil, err
	}
	acc.Designation = domain.Designation(designation)
	if len(hist) > 0 {
		if err := json.Unmarshal(hist, &acc.History); err != nil {
			return nil, fmt.Errorf("decode history of %s: %w", acc.ID, err)
		}
	}
	if acc.History == nil {
		acc.History = map[string]*domain.IssueHistoryEntry{}
	}
	return &acc, nil
}

func (r *Repository) FindAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrAccountNotFound)
	}
	return acc, err
}

func (r *Repository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// SaveAccount writes the whole document if nobody saved it since it was read.
// It never inserts.
func (r *Repository) SaveAccount(ctx context.Context, acc *domain.Account) error {
	hist, err := json.Marshal(acc.History)
	if err != nil {
		return fmt.Errorf("encode history of %s: %w", acc.ID, err)
	}
	const q = `UPDATE accounts SET designation=$2, archived=$3, current_performance=$4, history=$5,
            version=version+1, updated_at=now()
        WHERE id=$1 AND version=$6`
	tag, err := r.db.Pool.Exec(ctx, q, acc.ID, string(acc.Designation), acc.Archived, acc.CurrentPerformance, hist, acc.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		acc.Version++
		return nil
	}
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id=$1)`, acc.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", acc.ID, ErrAccountNotFound)
	}
	return fmt.Errorf("%s: %w", acc.ID, ErrConflict)
}

// Update runs a read-modify-write of one account, retrying on version
// conflicts.
func (r *Repository) Update(ctx context.Context, id string, fn UpdateFunc) (*domain.Account, error) {
	var out *domain.Account
	err := retryOnConflict(ctx, r.maxRetry, func() error {
		acc, err := r.FindAccount(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(acc); err != nil {
			return err
		}
		if err := r.SaveAccount(ctx, acc); err != nil {
			if errors.Is(err, ErrConflict) {
				r.log.Debug().Str("account", id).Msg("account changed concurrently, retrying")
			}
			return err
		}
		out = acc
		return nil
	})
	return out, err
}

// Job runs
func (r *Repository) StartJobRun(ctx context.Context, job, runID string) (int64, error) {
	const q = `INSERT INTO job_runs(job, run_id, started_at, success) VALUES($1, $2, now(), false) RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, job, runID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) FinishJobRun(ctx context.Context, id int64, total, failed int, success bool, errStr string) error {
	const q = `UPDATE job_runs SET finished_at=now(), accounts_total=$2, accounts_failed=$3, success=$4, error=$5 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, total, failed, success, errStr)
	return err
}

// GetLastRun returns the latest run of job, or of any job when job is empty.
func (r *Repository) GetLastRun(ctx context.Context, job string) (*LastRun, error) {
	const q = `SELECT job, run_id, started_at, finished_at,
        coalesce(accounts_total,0), coalesce(accounts_failed,0),
        coalesce(success,false), coalesce(error,'')
        FROM job_runs WHERE ($1 = '' OR job = $1) ORDER BY id DESC LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q, job)
	lr := &LastRun{}
	if err := row.Scan(&lr.Job, &lr.RunID, &lr.StartedAt, &lr.FinishedAt, &lr.AccountsTotal, &lr.AccountsFailed, &lr.Success, &lr.Error); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return lr, nil
}
