package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chat-commerce/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product scoped to a business
func (s *Store) GetProductByID(ctx context.Context, businessID, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE business_id = $1 AND id = $2", businessID, id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "product", Key: fmt.Sprintf("%d", id)}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, businessID int64, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM products WHERE business_id = ? AND id IN (?)", businessID, ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetSellableProducts retrieves the available catalog for a business
func (s *Store) GetSellableProducts(ctx context.Context, businessID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE business_id = $1 AND available = TRUE ORDER BY name", businessID)
	return products, err
}

// DeductStock decrements product stock by quantity, refusing to go below
// zero. The conditional update is atomic per product; it returns false when
// the guard fails or the product does not exist.
func (s *Store) DeductStock(ctx context.Context, businessID, productID int64, quantity int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET current_stock = current_stock - $1, updated_at = NOW()
		 WHERE business_id = $2 AND id = $3 AND current_stock >= $1`,
		quantity, businessID, productID)
	if err != nil {
		return false, fmt.Errorf("failed to deduct stock: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// SetStock overwrites the stock level for a product (manual correction or
// scan-result application)
func (s *Store) SetStock(ctx context.Context, businessID, productID int64, stock int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET current_stock = $1, updated_at = NOW() WHERE business_id = $2 AND id = $3",
		stock, businessID, productID)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.NotFoundError{Resource: "product", Key: fmt.Sprintf("%d", productID)}
	}
	return nil
}
