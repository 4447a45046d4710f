package service

import (
	"context"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// StockReader reads authoritative product state for availability checks
type StockReader interface {
	GetProductsByIDs(ctx context.Context, businessID int64, ids []int64) ([]models.Product, error)
}

// AvailabilityRequest is one product+quantity pair to check
type AvailabilityRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AvailabilityResult reports per-item availability against current stock
type AvailabilityResult struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name,omitempty"`
	Available    bool   `json:"available"`
	CurrentStock int    `json:"current_stock"`
	Requested    int    `json:"requested"`
	Reason       string `json:"reason"`
}

// AvailabilityChecker reports availability against current stock. An item is
// available iff the product is sellable and current stock covers the
// requested quantity.
type AvailabilityChecker struct {
	store  StockReader
	logger *zap.Logger
}

// NewAvailabilityChecker creates an availability checker
func NewAvailabilityChecker(store StockReader) *AvailabilityChecker {
	return &AvailabilityChecker{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Check evaluates each requested pair
func (a *AvailabilityChecker) Check(ctx context.Context, businessID int64, items []AvailabilityRequest) ([]AvailabilityResult, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	products, err := a.store.GetProductsByIDs(ctx, businessID, ids)
	if err != nil {
		return nil, &models.CollaboratorError{Collaborator: "availability", Err: err}
	}

	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	results := make([]AvailabilityResult, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			results = append(results, AvailabilityResult{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Reason:    models.AvailabilityNotFound,
			})
			continue
		}

		result := AvailabilityResult{
			ProductID:    item.ProductID,
			Name:         product.Name,
			CurrentStock: product.CurrentStock,
			Requested:    item.Quantity,
		}
		switch {
		case !product.Available:
			result.Reason = models.AvailabilityDiscontinued
		case product.CurrentStock < item.Quantity:
			result.Reason = models.AvailabilityInsufficientStock
		default:
			result.Available = true
			result.Reason = models.AvailabilityOK
		}
		results = append(results, result)
	}

	return results, nil
}
