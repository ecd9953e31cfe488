/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"github.com/Proshanto08/Team-management/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc service, trig trigger) *gin.Engine {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
	})

	h := NewHandlers(cfg, log, svc, trig)

	r.GET("/healthz", h.Healthz)

	admin := r.Group("/admin")
	admin.GET("/last-run", h.LastRun)
	admin.POST("/jobs/:job", h.RunJob)
	admin.POST("/jobs/:job/accounts/:id", h.RunJobForAccount)

	accounts := r.Group("/accounts/:id")
	accounts.GET("/history", h.History)
	accounts.GET("/detail", h.AccountDetail)

	return r
}
