package handler

import (
	"errors"
	"net/http"

	"loan-advisor/internal/logger"
	"loan-advisor/internal/service"
	"loan-advisor/internal/session"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	orch *service.Orchestrator
}

func NewSessionHandler(orch *service.Orchestrator) *SessionHandler {
	return &SessionHandler{orch: orch}
}

func (h *SessionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	snap, err := h.orch.Snapshot(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		logger.Error("session.get failed", "session_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionHandler) Turns(c *gin.Context) {
	id := c.Param("id")
	turns, err := h.orch.Turns(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		logger.Error("session.turns failed", "session_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "turns": turns})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	err := h.orch.Reset(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		logger.Error("session.delete failed", "session_id", id, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "deleted": true})
}
