package store

import (
	"context"
	"database/sql"

	"chat-commerce/internal/models"
)

// GetCustomer retrieves a customer profile, or nil when unknown
func (s *Store) GetCustomer(ctx context.Context, businessID int64, phone string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer,
		"SELECT * FROM customers WHERE business_id = $1 AND phone = $2", businessID, phone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// RecordCustomerOrder upserts the customer's aggregate order count and spend
func (s *Store) RecordCustomerOrder(ctx context.Context, businessID int64, phone, name string, amount int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (business_id, phone, name, total_orders, total_spent, last_order_at)
		 VALUES ($1, $2, $3, 1, $4, NOW())
		 ON CONFLICT (business_id, phone) DO UPDATE
		 SET total_orders = customers.total_orders + 1,
		     total_spent = customers.total_spent + EXCLUDED.total_spent,
		     name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE customers.name END,
		     last_order_at = NOW(),
		     updated_at = NOW()`,
		businessID, phone, name, amount)
	return err
}
