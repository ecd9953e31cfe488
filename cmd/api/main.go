/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Proshanto08/Team-management/internal/adapters/jira"
	"github.com/Proshanto08/Team-management/internal/adapters/telegram"
	"github.com/Proshanto08/Team-management/internal/config"
	httpapi "github.com/Proshanto08/Team-management/internal/http"
	"github.com/Proshanto08/Team-management/internal/jobs"
	"github.com/Proshanto08/Team-management/internal/logger"
	"github.com/Proshanto08/Team-management/internal/repo"
	"github.com/Proshanto08/Team-management/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db := repo.MustOpen(ctx, cfg, log)
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("db schema")
	}
	repository := repo.NewRepository(db, log, cfg.StoreMaxRetry)

	// Adapters
	shard := func(name, base string) *jira.Client {
		return jira.NewClient(jira.Shard{
			Name:       name,
			BaseURL:    base,
			Username:   cfg.JiraUsername,
			APIToken:   cfg.JiraAPIToken,
			APIVersion: cfg.JiraAPIVersion,
			PageSize:   cfg.JiraPageSize,
			Timeout:    cfg.HTTPTimeout,
			MaxRetries: uint64(max(cfg.JiraMaxRetries, 0)),
		}, log)
	}
	fetcher := jira.NewFetcher(shard("a", cfg.JiraBaseURLA), shard("b", cfg.JiraBaseURLB), log)
	tg := telegram.NewClient(cfg, log)
	if !tg.Enabled() {
		log.Info().Msg("telegram summaries disabled")
	}

	// Services
	svc := services.New(cfg, log, repository, repository, fetcher, tg)

	// Cron
	cr, err := jobs.NewCron(cfg, log, svc, repository)
	if err != nil {
		log.Fatal().Err(err).Msg("cron setup")
	}
	cr.Start()

	// HTTP server (Gin)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.NewRouter(cfg, log, svc, cr), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cr.Stop()
}
