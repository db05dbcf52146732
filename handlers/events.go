package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/taskboardhq/taskboard/models"
	"github.com/taskboardhq/taskboard/services"
)

var (
	boardHub *services.BoardHub
	eventBus *nats.Conn
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for now
		},
	}
)

// SetBoardHub sets the board hub for the handlers
func SetBoardHub(hub *services.BoardHub) {
	boardHub = hub
}

// SetEventBus sets the NATS connection task events are published on
func SetEventBus(nc *nats.Conn) {
	eventBus = nc
}

// TaskEvent is the payload published on every task mutation
type TaskEvent struct {
	Type string       `json:"type"`
	Task *models.Task `json:"task"`
}

// publishTaskEvent announces a task mutation on the owner's event subject.
// Best effort: the board state itself lives in the database.
func publishTaskEvent(userID uint, eventType string, task *models.Task) {
	if eventBus == nil {
		return
	}
	payload, err := json.Marshal(TaskEvent{Type: eventType, Task: task})
	if err != nil {
		return
	}
	if err := eventBus.Publish(services.TaskEventSubject(userID), payload); err != nil {
		log.Printf("⚠️ Failed to publish %s event: %v", eventType, err)
	}
}

// HandleBoardWebSocket handles GET /ws/board. Browsers cannot set headers on
// WebSocket dials, so the bearer token travels as a query parameter.
func HandleBoardWebSocket(c *gin.Context) {
	if boardHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Board hub not initialized"})
		return
	}

	userID, ok := ParseToken(c.Query("token"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}

	client := services.NewBoardClient(boardHub, conn, userID, c.ClientIP())
	boardHub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

// GetBoardStats handles GET /api/board/stats
func GetBoardStats(c *gin.Context) {
	if boardHub == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	stats := boardHub.Stats()
	c.JSON(http.StatusOK, gin.H{
		"enabled":       true,
		"clients":       stats.Clients,
		"subscriptions": stats.Subscriptions,
	})
}
