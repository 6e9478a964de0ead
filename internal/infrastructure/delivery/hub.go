package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/minhvu/order-approval/internal/application/port"
	"github.com/minhvu/order-approval/internal/domain/permission"
)

// Hub implements port.DeliveryChannel over websockets. Delivery is an
// at-most-once live hint: a recipient without a connection is silently
// skipped, and a failed write prunes the connection and moves on. The durable
// notification row is the reliable record.
type Hub struct {
	registry     *Registry
	identity     port.IdentityService
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
	logger       *zap.Logger
}

// NewHub creates the delivery hub
func NewHub(identity port.IdentityService, writeTimeout time.Duration, logger *zap.Logger) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Hub{
		registry:     NewRegistry(),
		identity:     identity,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Registry exposes the connection registry (for tests and diagnostics)
func (h *Hub) Registry() *Registry {
	return h.registry
}

// HandleConnection upgrades an HTTP request into a registered websocket
// session and blocks until the peer disconnects
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) error {
	if _, err := h.identity.RoleOf(r.Context(), userID); err != nil {
		return fmt.Errorf("refusing connection: %w", err)
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	c := &connection{userID: userID, ws: ws}
	h.registry.Add(c)
	h.logger.Info("Live connection opened", zap.String("user_id", userID))

	// read loop only detects close; clients never send payloads
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	h.registry.Remove(c)
	_ = ws.Close()
	h.logger.Info("Live connection closed", zap.String("user_id", userID))
	return nil
}

// SendToUser pushes the event to every live connection of the user
func (h *Hub) SendToUser(ctx context.Context, userID string, push port.Push) error {
	payload, err := json.Marshal(push)
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}

	var lastErr error
	for _, c := range h.registry.Lookup(userID) {
		if err := h.write(c, payload); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// SendToRole pushes the event to every connected member of the role
func (h *Hub) SendToRole(ctx context.Context, role permission.Role, push port.Push, excludeID string) error {
	users, err := h.identity.UsersWithRole(ctx, role)
	if err != nil {
		return fmt.Errorf("resolve role %s: %w", role, err)
	}

	var lastErr error
	for _, userID := range users {
		if userID == excludeID {
			continue
		}
		if err := h.SendToUser(ctx, userID, push); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Broadcast pushes the event to every live connection
func (h *Hub) Broadcast(ctx context.Context, push port.Push, excludeID string) error {
	payload, err := json.Marshal(push)
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}

	var lastErr error
	for _, c := range h.registry.All() {
		if c.userID == excludeID {
			continue
		}
		if err := h.write(c, payload); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// write sends one frame; on failure the connection is pruned
func (h *Hub) write(c *connection, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.registry.Remove(c)
		_ = c.ws.Close()
		h.logger.Error("Push write failed, pruning connection",
			zap.String("user_id", c.userID),
			zap.Error(err))
		return fmt.Errorf("write to %s: %w", c.userID, err)
	}
	return nil
}

// Close tears down every live connection
func (h *Hub) Close() error {
	for _, c := range h.registry.All() {
		h.registry.Remove(c)
		_ = c.ws.Close()
	}
	return nil
}

// Verify interface compliance
var _ port.DeliveryChannel = (*Hub)(nil)
