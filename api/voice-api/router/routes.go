// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package voice_routers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	internal_call "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/call"
	internal_telephony "github.com/brysonmccleary/CoveCRM-sub002/api/voice-api/internal/telephony"
	"github.com/brysonmccleary/CoveCRM-sub002/config"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
)

// HealthApi serves liveness and readiness. Readiness stays false until the
// startup canary has passed.
type HealthApi struct {
	ready    atomic.Bool
	registry *internal_call.Registry
}

func NewHealthApi(registry *internal_call.Registry) *HealthApi {
	return &HealthApi{registry: registry}
}

// MarkReady flips readiness on; called once after the startup canary.
func (api *HealthApi) MarkReady() {
	api.ready.Store(true)
}

func (api *HealthApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (api *HealthApi) Readiness(c *gin.Context) {
	if !api.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "activeCalls": api.registry.Len()})
}

// HealthCheckRoutes mounts liveness and readiness.
func HealthCheckRoutes(engine *gin.Engine, logger commons.Logger, hcApi *HealthApi) {
	logger.Info("Internal HealthCheckRoutes added to engine.")
	apiv1 := engine.Group("")
	{
		apiv1.GET("/readiness/", hcApi.Readiness)
		apiv1.GET("/healthz/", hcApi.Healthz)
	}
}

// SessionRoutes mounts the agent-key-guarded dial-session kick endpoints.
func SessionRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, registry *SessionRegistry) {
	logger.Info("Internal SessionRoutes added to engine.")
	api := NewSessionApi(cfg, logger, registry)
	apiv1 := engine.Group("", AgentKeyGuard(cfg))
	{
		apiv1.POST("/start-session", api.StartSession)
		apiv1.POST("/stop-session", api.StopSession)
	}
}

// MediaStreamRoutes mounts the carrier websocket endpoint.
func MediaStreamRoutes(engine *gin.Engine, logger commons.Logger, handler *internal_telephony.Handler) {
	logger.Info("Internal MediaStreamRoutes added to engine.")
	apiv1 := engine.Group("")
	{
		apiv1.GET("/media-stream", handler.MediaStream)
	}
}
