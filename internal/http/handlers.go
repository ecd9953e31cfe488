/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Proshanto08/Team-management/internal/config"
	"github.com/Proshanto08/Team-management/internal/domain"
	"github.com/Proshanto08/Team-management/internal/jobs"
	"github.com/Proshanto08/Team-management/internal/repo"
	"github.com/Proshanto08/Team-management/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type service interface {
	RunJobForAccount(ctx context.Context, name, accountID string) error
	History(ctx context.Context, accountID string) (*services.AccountHistory, error)
	AccountDetail(ctx context.Context, accountID string) (domain.AccountDetail, error)
	LastRun(ctx context.Context, job string) (*repo.LastRun, error)
}

// trigger starts batch runs in the background under the scheduler's locks.
type trigger interface {
	Trigger(name string) error
}

type Handlers struct {
	cfg  config.Config
	log  zerolog.Logger
	svc  service
	jobs trigger
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service, trig trigger) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, jobs: trig}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.svc.LastRun(c.Request.Context(), c.Query("job"))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	if lr == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}
	c.JSON(http.StatusOK, lr)
}

// RunJob queues a batch run through the scheduler, so it takes the job's
// lock and is waited for on shutdown.
func (h *Handlers) RunJob(c *gin.Context) {
	name := c.Param("job")
	if _, ok := services.LookupJob(name); !ok {
		h.writeErr(c, services.ErrUnknownJob)
		return
	}
	if err := h.jobs.Trigger(name); err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "job": name})
}

func (h *Handlers) RunJobForAccount(c *gin.Context) {
	name, id := c.Param("job"), c.Param("id")
	if err := h.svc.RunJobForAccount(c.Request.Context(), name, id); err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "job": name, "accountId": id})
}

func (h *Handlers) History(c *gin.Context) {
	hist, err := h.svc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, hist)
}

func (h *Handlers) AccountDetail(c *gin.Context) {
	d, err := h.svc.AccountDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// writeErr maps service errors to status codes. Unexpected errors are logged
// and answered with a generic message.
func (h *Handlers) writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, jobs.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
