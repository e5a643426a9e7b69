package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains workspace_id -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling: local broadcast + publish to Redis.
type Hub struct {
	// workspaceID -> map[clientID]*Client
	workspaces map[uuid.UUID]map[string]*Client
	subs       map[uuid.UUID]func() // cancel Redis subscription per workspace
	mu         sync.RWMutex
	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishWorkspaceEvent(workspaceID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to workspace channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeWorkspace(workspaceID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		workspaces: make(map[uuid.UUID]map[string]*Client),
		subs:       make(map[uuid.UUID]func()),
		logger:     logger,
		redis:      redisPub,
		redisSub:   redisSub,
	}
}

// Register adds a client to a workspace room. Starts Redis subscription for this workspace if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.workspaces[c.WorkspaceID] == nil {
		h.workspaces[c.WorkspaceID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeWorkspace(c.WorkspaceID, func(event string, payload []byte) {
				h.BroadcastToWorkspace(c.WorkspaceID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.WorkspaceID] = cancel
			}
		}
	}
	h.workspaces[c.WorkspaceID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined workspace", zap.String("client_id", c.ID), zap.String("workspace_id", c.WorkspaceID.String()))
}

// Unregister removes a client from a workspace room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.workspaces[c.WorkspaceID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.workspaces, c.WorkspaceID)
			if cancel, ok := h.subs[c.WorkspaceID]; ok {
				cancel()
				delete(h.subs, c.WorkspaceID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left workspace", zap.String("client_id", c.ID), zap.String("workspace_id", c.WorkspaceID.String()))
}

// BroadcastToWorkspace sends a message to all clients in a workspace (local only).
func (h *Hub) BroadcastToWorkspace(workspaceID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.workspaces[workspaceID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToWorkspaceAndPublish sends to local clients and publishes to Redis for other instances.
func (h *Hub) BroadcastToWorkspaceAndPublish(workspaceID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.BroadcastToWorkspace(workspaceID, event, payload)
	if h.redis != nil {
		_ = h.redis.PublishWorkspaceEvent(workspaceID, event, data)
	}
}

// PublishToWorkspaceOnly publishes to Redis only (no local broadcast). Used for events like channel_message
// so that the Redis subscriber callback performs the broadcast once for all instances (including this one),
// avoiding duplicate delivery to local clients.
func (h *Hub) PublishToWorkspaceOnly(workspaceID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishWorkspaceEvent(workspaceID, event, data)
		return
	}
	h.BroadcastToWorkspace(workspaceID, event, payload)
}

// PresenceCount returns the number of connected clients in a workspace.
func (h *Hub) PresenceCount(workspaceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.workspaces[workspaceID])
}
