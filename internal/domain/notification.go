package domain

import (
	"time"

	"github.com/google/uuid"
)

// Real-time event names, shared by the gateway and the dispatcher.
const (
	EventConnected         = "connected"
	EventJoined            = "joined"
	EventLeft              = "left"
	EventError             = "error"
	EventOrderStatusUpdate = "orderStatusUpdate"
	EventCustom            = "customNotification"
	EventBroadcast         = "broadcast"
)

// Message is one server-to-session event.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type OrderStatusPayload struct {
	OrderID      uuid.UUID   `json:"orderId"`
	StorefrontID uuid.UUID   `json:"storefrontId"`
	Status       OrderStatus `json:"status"`
	Message      string      `json:"message"`
	Timestamp    time.Time   `json:"timestamp"`
}

type CustomPayload struct {
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo is a point-in-time view of one connected session.
type SessionInfo struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principalId"`
	Role        string    `json:"role"`
	Channels    []string  `json:"channels"`
	ConnectedAt time.Time `json:"connectedAt"`
}
