package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MembershipCheck verifies the user holds an active membership in the
// workspace before the connection is admitted.
type MembershipCheck func(ctx context.Context, workspaceID, userID uuid.UUID) error

// Client represents a single WebSocket connection in a workspace.
type Client struct {
	ID          string
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Role        string
	JoinedAt    time.Time
	hub         *Hub
	conn        *websocket.Conn
	send        chan WSMessage
	logger      *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, jwtValidate func(token string) (userID, role string, err error), checkMember MembershipCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceIDStr := c.Query("workspace_id")
		token := c.Query("token")
		if workspaceIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id and token required"})
			return
		}
		workspaceID, err := uuid.Parse(workspaceIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workspace_id"})
			return
		}
		userIDStr, role, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, _ := uuid.Parse(userIDStr)

		if checkMember != nil {
			if err := checkMember(c.Request.Context(), workspaceID, userID); err != nil {
				c.JSON(http.StatusForbidden, gin.H{"error": "not a workspace member"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:          uuid.New().String(),
			WorkspaceID: workspaceID,
			UserID:      userID,
			Role:        role,
			JoinedAt:    time.Now(),
			hub:         hub,
			conn:        conn,
			send:        make(chan WSMessage, 256),
			logger:      logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			c.hub.BroadcastToWorkspaceAndPublish(c.WorkspaceID, "presence_count", map[string]int{
				"count": c.hub.PresenceCount(c.WorkspaceID),
			})
			c.hub.BroadcastToWorkspaceAndPublish(c.WorkspaceID, "join", map[string]string{
				"user_id": c.UserID.String(),
				"role":    c.Role,
			})
		case "typing", "task_focus":
			c.hub.BroadcastToWorkspaceAndPublish(c.WorkspaceID, msg.Event, json.RawMessage(msg.Data))
		default:
			// channel messages go through the HTTP API so they hit the
			// permission checker and are persisted; ignore everything else
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
