package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/peerdrop/signaling/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// HandleSignaling upgrades the connection and hands it to a Router. The
// handler goroutine stays parked in Run for the connection's lifetime;
// the socket is hijacked so that is harmless.
func (a *API) HandleSignaling(c *gin.Context) {
	clientID := c.Param("clientId")
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clientId is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.Log.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	client := signaling.NewClient(clientID, conn, a.Log)

	// The register call is the authoritative duplicate check. The close
	// status lets the client tell "id taken" apart from "server gone";
	// the incumbent connection is untouched.
	if err := a.Registry.Register(clientID, client); err != nil {
		a.Log.Warn("rejecting duplicate client id", zap.String("clientId", clientID))
		client.CloseWithStatus(websocket.ClosePolicyViolation, "client id already in use")
		return
	}

	// Request.Context dies with the HTTP handler on some paths, so the
	// mirror calls get their own.
	a.Presence.ClientConnected(context.Background(), clientID)
	defer a.Presence.ClientDisconnected(context.Background(), clientID)

	go client.WritePump()

	router := signaling.NewRouter(clientID, client, a.Registry, a.Log)
	router.Run(client)
}
