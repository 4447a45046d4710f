package models

import "time"

// Event types
const (
	EventTypeNewOrder           = "NEW_ORDER"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeStockAlert         = "STOCK_ALERT"
	EventTypeOrderAction        = "ORDER_ACTION"
)

// Order actions consumed from the owner dashboard
const (
	OrderActionAccept   = "accept"
	OrderActionReject   = "reject"
	OrderActionDispatch = "dispatch"
	OrderActionDeliver  = "deliver"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent published to the business dashboard when an order is created
type NewOrderEvent struct {
	BaseEvent
	BusinessID    int64  `json:"business_id"`
	OrderNumber   string `json:"order_number"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name"`
	GrandTotal    int64  `json:"grand_total"`
	ItemCount     int    `json:"item_count"`
}

// OrderStatusChangedEvent published to the customer channel on transitions
type OrderStatusChangedEvent struct {
	BaseEvent
	BusinessID    int64  `json:"business_id"`
	OrderNumber   string `json:"order_number"`
	CustomerPhone string `json:"customer_phone"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// StockAlertEvent published when stock falls to or below the reorder level
type StockAlertEvent struct {
	BaseEvent
	BusinessID   int64  `json:"business_id"`
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	CurrentStock int    `json:"current_stock"`
	ReorderLevel int    `json:"reorder_level"`
}

// OrderActionCommand is an owner action consumed from the actions topic
type OrderActionCommand struct {
	BaseEvent
	BusinessID  int64  `json:"business_id"`
	OrderNumber string `json:"order_number"`
	Action      string `json:"action"`
}
