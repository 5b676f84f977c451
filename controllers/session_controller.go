package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readboostid/readboost-server/services"
	"github.com/readboostid/readboost-server/utils"
)

// SessionController tracks individual reading sessions: start on open,
// heartbeat while reading, end on close.
type SessionController struct {
	tracker *services.SessionTracker
}

func NewSessionController(tracker *services.SessionTracker) *SessionController {
	return &SessionController{tracker: tracker}
}

// StartSession opens a reading session for an article.
func (s *SessionController) StartSession(ctx *gin.Context) {
	externalID, ok := getExternalID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		ArticleID uint `json:"article_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	id := s.tracker.Start(ctx.Request.Context(), externalID, req.ArticleID)
	utils.Success(ctx, gin.H{"session_id": id})
}

// Heartbeat accumulates active reading time onto an open session.
func (s *SessionController) Heartbeat(ctx *gin.Context) {
	if _, ok := getExternalID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		SessionID     string `json:"session_id" binding:"required"`
		ActiveSeconds int    `json:"active_seconds"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}

	err := s.tracker.Accumulate(ctx.Request.Context(), req.SessionID, time.Duration(req.ActiveSeconds)*time.Second)
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		utils.Error(ctx, http.StatusNotFound, 40450, "session not found")
	case errors.Is(err, services.ErrSessionClosed):
		utils.Error(ctx, http.StatusConflict, 40950, "session already ended")
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to update session")
	default:
		utils.Success(ctx, gin.H{"session_id": req.SessionID})
	}
}

// EndSession closes a reading session and records the XP earned in it.
func (s *SessionController) EndSession(ctx *gin.Context) {
	if _, ok := getExternalID(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		XPEarned  int    `json:"xp_earned"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid request payload")
		return
	}

	err := s.tracker.End(ctx.Request.Context(), req.SessionID, req.XPEarned)
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		utils.Error(ctx, http.StatusNotFound, 40450, "session not found")
	case errors.Is(err, services.ErrSessionClosed):
		utils.Error(ctx, http.StatusConflict, 40950, "session already ended")
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to end session")
	default:
		utils.Success(ctx, gin.H{"session_id": req.SessionID})
	}
}
