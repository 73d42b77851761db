package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderCreated    OrderStatus = "CREATED"
	OrderAccepted   OrderStatus = "ACCEPTED"
	OrderInDelivery OrderStatus = "IN_DELIVERY"
	OrderConcluded  OrderStatus = "CONCLUDED"
)

// orderTransitions is the whole lifecycle: a status may only move to the
// statuses listed for it. CONCLUDED is terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderCreated:    {OrderAccepted, OrderConcluded},
	OrderAccepted:   {OrderInDelivery, OrderConcluded},
	OrderInDelivery: {OrderConcluded},
	OrderConcluded:  {},
}

var orderStatusMessages = map[OrderStatus]string{
	OrderCreated:    "order received and processing",
	OrderAccepted:   "order accepted and being prepared",
	OrderInDelivery: "order out for delivery",
	OrderConcluded:  "order delivered",
}

// ParseOrderStatus accepts only the four defined statuses.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", Validation("status", "must be one of CREATED, ACCEPTED, IN_DELIVERY, CONCLUDED")
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is an edge out of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

// Message is the shopper-facing text sent with status notifications.
func (s OrderStatus) Message() string {
	if msg, ok := orderStatusMessages[s]; ok {
		return msg
	}
	return "order status updated"
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Order struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Address         string      `json:"address"`
	WhatsappContact string      `json:"whatsapp_contact"`
	ClientID        uuid.UUID   `json:"client_id"`
	Status          OrderStatus `json:"status"`
	RequestedAt     time.Time   `json:"requested_at"`
	AcceptedAt      *time.Time  `json:"accepted_at"`
	Location        *Location   `json:"location,omitempty"`
	Lines           []OrderLine `json:"order_products"`
}

// OrderLine is identified by (OrderID, ProductID).
type OrderLine struct {
	OrderID    uuid.UUID       `json:"order_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Transition moves the order to next, stamping AcceptedAt the first time the
// order is accepted. The receiver is left untouched on error.
func (o *Order) Transition(next OrderStatus, now time.Time) error {
	if !next.Valid() {
		return Validation("status", "unknown status "+string(next))
	}
	if !o.Status.CanTransitionTo(next) {
		return InvalidTransition(o.Status, next)
	}
	o.Status = next
	if next == OrderAccepted && o.AcceptedAt == nil {
		at := now
		o.AcceptedAt = &at
	}
	return nil
}

type OrderPage struct {
	Data       []Order `json:"data"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"totalPages"`
}
