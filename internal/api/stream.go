package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mr1hm/earthguard/internal/notifier"
)

const keepAliveInterval = 15 * time.Second

// streamEvents attaches the caller to the real-time channel as Server-Sent
// Events. The first event is always "connected", carrying the client id
// needed for /api/mesh/join.
func (h *Handler) streamEvents(c *gin.Context) {
	client := notifier.NewClient(uuid.NewString(), h.clientBuffer)
	if !h.registry.Add(client) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server is shutting down"})
		return
	}
	defer h.notifier.OnClientDisconnect(client.ID())

	if err := h.notifier.OnClientConnect(client.ID()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register client"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-ticker.C:
			_, err := fmt.Fprint(w, ": keepalive\n\n")
			return err == nil
		case ev, ok := <-client.Events():
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		}
	})
}

type joinMeshRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	NodeID   string `json:"node_id" binding:"required"`
}

func (h *Handler) joinMesh(c *gin.Context) {
	var req joinMeshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.notifier.OnJoinMesh(req.ClientID, req.NodeID); err != nil {
		switch {
		case errors.Is(err, notifier.ErrUnknownClient):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, notifier.ErrInvalidNodeID):
			badRequest(c, err)
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join mesh"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "node_id": req.NodeID})
}
