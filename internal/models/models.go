package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Product represents a sellable item in a business catalog
type Product struct {
	ID           int64          `db:"id" json:"id"`
	BusinessID   int64          `db:"business_id" json:"business_id"`
	Name         string         `db:"name" json:"name"`
	NameLocal    string         `db:"name_local" json:"name_local,omitempty"`
	Aliases      pq.StringArray `db:"aliases" json:"aliases"`
	Unit         string         `db:"unit" json:"unit"`
	Price        int64          `db:"price" json:"price"` // paise per unit
	GSTRate      int            `db:"gst_rate" json:"gst_rate"`
	CurrentStock int            `db:"current_stock" json:"current_stock"`
	ReorderLevel int            `db:"reorder_level" json:"reorder_level"`
	Available    bool           `db:"available" json:"available"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// CatalogEntry is the cached, prompt-friendly view of a product
type CatalogEntry struct {
	ProductID int64    `json:"product_id"`
	Name      string   `json:"name"`
	NameLocal string   `json:"name_local,omitempty"`
	Unit      string   `json:"unit"`
	Price     int64    `json:"price"`
	GSTRate   int      `json:"gst_rate"`
	InStock   bool     `json:"in_stock"`
	Stock     int      `json:"stock"`
	Aliases   []string `json:"aliases"`
}

// AliasTarget maps a catalog alias to its product
type AliasTarget struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
}

// Catalog bundles the sellable-product list with the alias lookup table
type Catalog struct {
	Products []CatalogEntry         `json:"products"`
	Aliases  map[string]AliasTarget `json:"aliases"`
}

// CartItem is a single line in an in-progress cart
type CartItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Unit      string `json:"unit"`
	UnitPrice int64  `json:"unit_price"`
}

// LineTotal returns the item price in paise
func (i CartItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// CartItems is stored as a JSONB column
type CartItems []CartItem

func (c CartItems) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *CartItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into CartItems", src)
	}
}

// Subtotal sums the line totals of a cart
func (c CartItems) Subtotal() int64 {
	var total int64
	for _, item := range c {
		total += item.LineTotal()
	}
	return total
}

// OrderItem is a frozen cart line copied into an order
type OrderItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Unit      string `json:"unit"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

// OrderItems is stored as a JSONB column
type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

func (o *OrderItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("cannot scan %T into OrderItems", src)
	}
}

// StatusChange is one entry in an order's status history
type StatusChange struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// StatusHistory is stored as a JSONB column
type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*h = nil
		return nil
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("cannot scan %T into StatusHistory", src)
	}
}

// Order represents a confirmed customer order
type Order struct {
	ID              int64         `db:"id" json:"id"`
	OrderNumber     string        `db:"order_number" json:"order_number"`
	BusinessID      int64         `db:"business_id" json:"business_id"`
	CustomerPhone   string        `db:"customer_phone" json:"customer_phone"`
	CustomerName    string        `db:"customer_name" json:"customer_name"`
	DeliveryAddress string        `db:"delivery_address" json:"delivery_address"`
	Items           OrderItems    `db:"items" json:"items"`
	Subtotal        int64         `db:"subtotal" json:"subtotal"`
	TaxTotal        int64         `db:"tax_total" json:"tax_total"`
	GrandTotal      int64         `db:"grand_total" json:"grand_total"`
	PaymentMethod   string        `db:"payment_method" json:"payment_method"`
	Source          string        `db:"source" json:"source"`
	Status          string        `db:"status" json:"status"`
	StatusHistory   StatusHistory `db:"status_history" json:"status_history"`
	AcceptedAt      *time.Time    `db:"accepted_at" json:"accepted_at,omitempty"`
	DeliveredAt     *time.Time    `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// AppendStatus records a status transition in the history log
func (o *Order) AppendStatus(status, changedBy string) {
	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    status,
		ChangedBy: changedBy,
		ChangedAt: time.Now(),
	})
}

// Order statuses
const (
	OrderStatusPending        = "pending"
	OrderStatusAccepted       = "accepted"
	OrderStatusPreparing      = "preparing"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// Payment methods
const (
	PaymentMethodCOD    = "cod"
	PaymentMethodCredit = "credit"
)

// Session statuses
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusAbandoned = "abandoned"
)

// Dialogue states. Exactly one applies at a time; the details steps are
// encoded as their own states so confirmation and detail collection can
// never be flagged together.
const (
	StateCollectingOrder      = "collecting_order"
	StateAwaitingConfirmation = "awaiting_confirmation"
	StateCollectingName       = "collecting_name"
	StateCollectingAddress    = "collecting_address"
	StateCollectingPayment    = "collecting_payment"
)

// ChatSession tracks one customer dialogue thread
type ChatSession struct {
	ID              int64      `db:"id" json:"id"`
	BusinessID      int64      `db:"business_id" json:"business_id"`
	CustomerPhone   string     `db:"customer_phone" json:"customer_phone"`
	Status          string     `db:"status" json:"status"`
	DialogueState   string     `db:"dialogue_state" json:"dialogue_state"`
	Cart            CartItems  `db:"cart" json:"cart"`
	CustomerName    string     `db:"customer_name" json:"customer_name,omitempty"`
	DeliveryAddress string     `db:"delivery_address" json:"delivery_address,omitempty"`
	PaymentMethod   string     `db:"payment_method" json:"payment_method,omitempty"`
	PendingOrder    string     `db:"pending_order" json:"pending_order,omitempty"`
	LastMessageAt   time.Time  `db:"last_message_at" json:"last_message_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// AwaitingConfirmation reports whether the session is waiting on a
// confirm/cancel/modify reply.
func (s *ChatSession) AwaitingConfirmation() bool {
	return s.DialogueState == StateAwaitingConfirmation
}

// CollectingDetails reports whether the session is in the details flow.
func (s *ChatSession) CollectingDetails() bool {
	switch s.DialogueState {
	case StateCollectingName, StateCollectingAddress, StateCollectingPayment:
		return true
	}
	return false
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one transcript entry
type ChatMessage struct {
	ID        int64     `db:"id" json:"id"`
	SessionID int64     `db:"session_id" json:"session_id"`
	Role      string    `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Customer aggregates per-customer order stats
type Customer struct {
	ID          int64      `db:"id" json:"id"`
	BusinessID  int64      `db:"business_id" json:"business_id"`
	Phone       string     `db:"phone" json:"phone"`
	Name        string     `db:"name" json:"name"`
	TotalOrders int        `db:"total_orders" json:"total_orders"`
	TotalSpent  int64      `db:"total_spent" json:"total_spent"`
	LastOrderAt *time.Time `db:"last_order_at" json:"last_order_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Transaction types
const (
	TransactionTypeSale    = "sale"
	TransactionTypeExpense = "expense"
)

// Transaction is a ledger entry
type Transaction struct {
	ID            int64      `db:"id" json:"id"`
	BusinessID    int64      `db:"business_id" json:"business_id"`
	Type          string     `db:"type" json:"type"`
	Source        string     `db:"source" json:"source"`
	OrderNumber   string     `db:"order_number" json:"order_number,omitempty"`
	Items         OrderItems `db:"items" json:"items"`
	CustomerName  string     `db:"customer_name" json:"customer_name,omitempty"`
	CustomerPhone string     `db:"customer_phone" json:"customer_phone,omitempty"`
	TotalAmount   int64      `db:"total_amount" json:"total_amount"`
	TaxTotal      int64      `db:"tax_total" json:"tax_total"`
	PaymentMethod string     `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Availability reasons
const (
	AvailabilityOK                = "ok"
	AvailabilityInsufficientStock = "insufficient_stock"
	AvailabilityDiscontinued      = "discontinued"
	AvailabilityNotFound          = "not_found"
)
