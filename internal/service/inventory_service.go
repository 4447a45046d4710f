package service

import (
	"context"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// StockWriter applies absolute stock corrections
type StockWriter interface {
	GetProductByID(ctx context.Context, businessID, id int64) (*models.Product, error)
	SetStock(ctx context.Context, businessID, productID int64, stock int) error
}

// InventoryService applies external stock mutations: manual corrections and
// shelf-scan results. Every mutation invalidates the catalog cache before
// returning so the next cache read reflects the new truth.
type InventoryService struct {
	store   StockWriter
	catalog CatalogInvalidator
	events  EventSink
	logger  *zap.Logger
}

// NewInventoryService creates the stock-adjustment boundary
func NewInventoryService(store StockWriter, catalog CatalogInvalidator, events EventSink) *InventoryService {
	return &InventoryService{
		store:   store,
		catalog: catalog,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// AdjustStock sets a product's stock level, invalidates the catalog, and
// raises a reorder alert when the new level is at or below the threshold.
func (i *InventoryService) AdjustStock(ctx context.Context, businessID, productID int64, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, &models.ValidationError{Field: "stock", Reason: "stock cannot be negative"}
	}

	if err := i.store.SetStock(ctx, businessID, productID, stock); err != nil {
		return nil, err
	}
	if err := i.catalog.Invalidate(ctx, businessID); err != nil {
		return nil, err
	}

	product, err := i.store.GetProductByID(ctx, businessID, productID)
	if err != nil {
		return nil, err
	}

	i.logger.Info("Stock adjusted",
		zap.Int64("business_id", businessID),
		zap.Int64("product_id", productID),
		zap.Int("stock", stock))

	if product.CurrentStock <= product.ReorderLevel {
		util.StockAlertsTotal.Inc()
		if err := i.events.PublishStockAlert(ctx, &models.StockAlertEvent{
			BaseEvent:    newBaseEvent(models.EventTypeStockAlert),
			BusinessID:   businessID,
			ProductID:    product.ID,
			Name:         product.Name,
			CurrentStock: product.CurrentStock,
			ReorderLevel: product.ReorderLevel,
		}); err != nil {
			i.logger.Error("Failed to publish stock alert", zap.Int64("product_id", product.ID), zap.Error(err))
		}
	}

	return product, nil
}
