package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peerdrop/signaling/internal/filestore"
	"github.com/peerdrop/signaling/internal/signaling"
)

// Presence is notified as clients come and go so an external mirror can
// track the online set. Implementations must be best-effort.
type Presence interface {
	ClientConnected(ctx context.Context, id string)
	ClientDisconnected(ctx context.Context, id string)
}

// API carries the dependencies shared by all HTTP and websocket handlers.
type API struct {
	Registry  *signaling.Registry
	Presence  Presence
	Files     *filestore.Store
	JWTSecret string
	Log       *zap.Logger
}

// Banner confirms the server is reachable.
func (a *API) Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "P2P file sharing signaling server"})
}

// Health reports liveness and the current registered-client count.
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": a.Registry.Count(),
	})
}

// GenerateID issues a fresh short identifier for a new client. The relay
// treats it as opaque; clients present it back on the websocket path.
func (a *API) GenerateID(c *gin.Context) {
	id := uuid.New().String()[:8]
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// ListPeers returns the ids of all currently connected clients.
func (a *API) ListPeers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"peers": a.Registry.IDs()})
}

// DeregisterPeer force-disconnects a client (admin only). The drop runs
// the same removal-plus-broadcast path as a natural disconnect, then the
// socket itself is closed.
func (a *API) DeregisterPeer(c *gin.Context) {
	peerID := c.Param("peerId")

	sink, ok := a.Registry.Drop(peerID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not connected"})
		return
	}
	if closer, ok := sink.(interface{ Close() }); ok {
		closer.Close()
	}

	a.Log.Info("peer force-deregistered", zap.String("clientId", peerID))
	c.JSON(http.StatusOK, gin.H{"message": "peer " + peerID + " deregistered"})
}
