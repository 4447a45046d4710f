package service

import (
	"context"
	"fmt"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// LedgerStore persists ledger transactions
type LedgerStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
}

// LedgerClient records financial transactions for fulfilled orders
type LedgerClient struct {
	store  LedgerStore
	logger *zap.Logger
}

// NewLedgerClient creates a ledger client
func NewLedgerClient(store LedgerStore) *LedgerClient {
	return &LedgerClient{
		store:  store,
		logger: util.GetLogger(),
	}
}

// RecordSale submits a sale transaction equal to the order's items and total
func (l *LedgerClient) RecordSale(ctx context.Context, order *models.Order) error {
	tx := &models.Transaction{
		BusinessID:    order.BusinessID,
		Type:          models.TransactionTypeSale,
		Source:        order.Source,
		OrderNumber:   order.OrderNumber,
		Items:         order.Items,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		TotalAmount:   order.GrandTotal,
		TaxTotal:      order.TaxTotal,
		PaymentMethod: order.PaymentMethod,
	}

	if err := l.store.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to record sale for %s: %w", order.OrderNumber, err)
	}

	l.logger.Info("Sale recorded",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("amount", tx.TotalAmount))
	return nil
}
