package notification

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Hub tracks live websocket connections per user so freshly stored
// notifications can be pushed without polling. Delivery is best-effort; a
// user with no open connection just sees the notification on next fetch.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string][]*websocket.Conn
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  map[string][]*websocket.Conn{},
		logger: logger,
	}
}

func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = append(h.conns[userID], conn)
}

func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.conns[userID][:0]
	for _, c := range h.conns[userID] {
		if c != conn {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(h.conns, userID)
	} else {
		h.conns[userID] = kept
	}
}

// Push serializes n to every open connection of the user. Write failures are
// logged and the connection is left for the read loop to reap.
func (h *Hub) Push(userID string, n *Notification) {
	h.mu.RLock()
	conns := h.conns[userID]
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteJSON(n); err != nil {
			h.logger.Warn("websocket push failed",
				zap.String("userID", userID), zap.Error(err))
		}
	}
}
