package models

import "time"

// Event types
const (
	EventTypeOrderSubmitted = "ORDER_SUBMITTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent is published after the orders API accepts an order.
type OrderSubmittedEvent struct {
	BaseEvent
	OrderID       int64       `json:"order_id"`
	BuyerID       int64       `json:"buyer_id"`
	TotalAmount   Amount      `json:"total_amount"`
	Items         []OrderItem `json:"items"`
	AffiliateCode *string     `json:"affiliate_code,omitempty"`
}
