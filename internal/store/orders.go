package store

import (
	"context"
	"database/sql"
	"fmt"

	"chat-commerce/internal/models"
)

// NextOrderSequence atomically advances and returns the per-year order
// counter. The sequence restarts at 1 each calendar year.
func (s *Store) NextOrderSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := s.db.GetContext(ctx, &seq,
		`INSERT INTO order_counters (year, seq) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET seq = order_counters.seq + 1
		 RETURNING seq`, year)
	if err != nil {
		return 0, fmt.Errorf("failed to advance order counter: %w", err)
	}
	return seq, nil
}

// CreateOrder persists a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (
			order_number, business_id, customer_phone, customer_name,
			delivery_address, items, subtotal, tax_total, grand_total,
			payment_method, source, status, status_history
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.OrderNumber, order.BusinessID, order.CustomerPhone, order.CustomerName,
		order.DeliveryAddress, order.Items, order.Subtotal, order.TaxTotal, order.GrandTotal,
		order.PaymentMethod, order.Source, order.Status, order.StatusHistory)
}

// GetOrderByNumber retrieves an order by its human-readable number, scoped
// to the business
func (s *Store) GetOrderByNumber(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE business_id = $1 AND order_number = $2", businessID, orderNumber)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "order", Key: orderNumber}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SaveOrderState persists the mutable parts of an order: status, history,
// tax total, and the accepted/delivered timestamps. Items and the other
// totals never change after creation.
func (s *Store) SaveOrderState(ctx context.Context, order *models.Order) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, status_history = $2, tax_total = $3,
		     accepted_at = $4, delivered_at = $5, updated_at = NOW()
		 WHERE id = $6`,
		order.Status, order.StatusHistory, order.TaxTotal,
		order.AcceptedAt, order.DeliveredAt, order.ID)
	return err
}

// ListOrders retrieves orders for a business, optionally filtered by status,
// newest first
func (s *Store) ListOrders(ctx context.Context, businessID int64, status string, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if status != "" {
		err := s.db.SelectContext(ctx, &orders,
			`SELECT * FROM orders WHERE business_id = $1 AND status = $2
			 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
			businessID, status, limit, offset)
		return orders, err
	}
	err := s.db.SelectContext(ctx, &orders,
		`SELECT * FROM orders WHERE business_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		businessID, limit, offset)
	return orders, err
}

// CountOrders counts orders for a business, optionally filtered by status
func (s *Store) CountOrders(ctx context.Context, businessID int64, status string) (int, error) {
	var count int
	if status != "" {
		err := s.db.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM orders WHERE business_id = $1 AND status = $2", businessID, status)
		return count, err
	}
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM orders WHERE business_id = $1", businessID)
	return count, err
}
