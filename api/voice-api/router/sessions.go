// Copyright (c) 2024-2026 CoveCRM
// Author: Bryson McCleary <bryson@covecrm.com>
//
// Proprietary and confidential. Unauthorized copying is prohibited.

package voice_routers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brysonmccleary/CoveCRM-sub002/config"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/commons"
	"github.com/brysonmccleary/CoveCRM-sub002/pkg/utils"
)

// DialSession is one agent's active dialing run. The voice server only
// tracks these for attribution; scheduling lives in the CRM.
type DialSession struct {
	SessionID string    `json:"sessionId"`
	UserEmail string    `json:"userEmail"`
	FolderID  string    `json:"folderId,omitempty"`
	Total     int       `json:"total,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

// SessionRegistry is the in-process set of active dial sessions.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*DialSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*DialSession)}
}

func (r *SessionRegistry) Start(s *DialSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SessionID] = s
}

func (r *SessionRegistry) Stop(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

func (r *SessionRegistry) Get(sessionID string) (*DialSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// sessionKickRequest is the body of start-session and stop-session.
type sessionKickRequest struct {
	UserEmail string `json:"userEmail" binding:"required,email"`
	SessionID string `json:"sessionId" binding:"required"`
	FolderID  string `json:"folderId"`
	Total     int    `json:"total"`
}

// SessionApi serves the dial-session kick endpoints.
type SessionApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	registry *SessionRegistry
}

func NewSessionApi(cfg *config.AppConfig, logger commons.Logger, registry *SessionRegistry) *SessionApi {
	return &SessionApi{cfg: cfg, logger: logger, registry: registry}
}

// AgentKeyGuard rejects requests without the shared agent secret.
func AgentKeyGuard(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(utils.AgentKeyHeader) != cfg.DialerAgentKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (api *SessionApi) StartSession(c *gin.Context) {
	var req sessionKickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	session := &DialSession{
		SessionID: req.SessionID,
		UserEmail: req.UserEmail,
		FolderID:  req.FolderID,
		Total:     req.Total,
		StartedAt: time.Now(),
	}
	api.registry.Start(session)
	api.logger.Infow("dial session started",
		"session_id", req.SessionID,
		"user_email", req.UserEmail,
		"folder_id", req.FolderID,
		"total", req.Total)

	c.JSON(http.StatusOK, gin.H{"ok": true, "sessionId": req.SessionID})
}

func (api *SessionApi) StopSession(c *gin.Context) {
	var req sessionKickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	known := api.registry.Stop(req.SessionID)
	api.logger.Infow("dial session stopped",
		"session_id", req.SessionID,
		"user_email", req.UserEmail,
		"known", known)

	c.JSON(http.StatusOK, gin.H{"ok": true, "sessionId": req.SessionID, "known": known})
}
