package store

import (
	"context"

	"chat-commerce/internal/models"
)

// CreateTransaction persists a ledger entry
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			business_id, type, source, order_number, items,
			customer_name, customer_phone, total_amount, tax_total, payment_method
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, tx, query,
		tx.BusinessID, tx.Type, tx.Source, tx.OrderNumber, tx.Items,
		tx.CustomerName, tx.CustomerPhone, tx.TotalAmount, tx.TaxTotal, tx.PaymentMethod)
}

// TransactionsByOrder retrieves ledger entries linked to an order
func (s *Store) TransactionsByOrder(ctx context.Context, businessID int64, orderNumber string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.SelectContext(ctx, &txs,
		`SELECT * FROM transactions
		 WHERE business_id = $1 AND order_number = $2 ORDER BY created_at`,
		businessID, orderNumber)
	return txs, err
}
