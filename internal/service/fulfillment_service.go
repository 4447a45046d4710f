package service

import (
	"context"
	"fmt"
	"time"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// OrderStore persists orders and the yearly order counter
type OrderStore interface {
	NextOrderSequence(ctx context.Context, year int) (int, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByNumber(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error)
	SaveOrderState(ctx context.Context, order *models.Order) error
	ListOrders(ctx context.Context, businessID int64, status string, limit, offset int) ([]models.Order, error)
	CountOrders(ctx context.Context, businessID int64, status string) (int, error)
}

// InventoryStore reads and deducts authoritative product stock
type InventoryStore interface {
	GetProductsByIDs(ctx context.Context, businessID int64, ids []int64) ([]models.Product, error)
	DeductStock(ctx context.Context, businessID, productID int64, quantity int) (bool, error)
}

// CustomerRecorder maintains per-customer order aggregates
type CustomerRecorder interface {
	RecordCustomerOrder(ctx context.Context, businessID int64, phone, name string, amount int64) error
}

// LedgerRecorder submits sale transactions to the ledger
type LedgerRecorder interface {
	RecordSale(ctx context.Context, order *models.Order) error
}

// CatalogInvalidator drops cached catalog state after stock mutations
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, businessID int64) error
}

// EventSink receives business- and customer-facing events. Delivery
// guarantees are the sink's concern, not the orchestrator's.
type EventSink interface {
	PublishNewOrder(ctx context.Context, event *models.NewOrderEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishStockAlert(ctx context.Context, event *models.StockAlertEvent) error
}

// CreateOrderRequest carries a finalized cart plus collected customer details
type CreateOrderRequest struct {
	BusinessID      int64              `json:"business_id"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerName    string             `json:"customer_name"`
	DeliveryAddress string             `json:"delivery_address"`
	Items           []models.OrderItem `json:"items"`
	Subtotal        int64              `json:"subtotal"`
	GrandTotal      int64              `json:"grand_total"`
	PaymentMethod   string             `json:"payment_method"`
	Source          string             `json:"source"`
}

// FulfillmentService orchestrates order creation and the accept chain. The
// chain's side-effect steps are best-effort and isolated: a failed step is
// logged and counted but never blocks the remaining steps or the final
// transition to preparing.
type FulfillmentService struct {
	orders      OrderStore
	inventory   InventoryStore
	customers   CustomerRecorder
	ledger      LedgerRecorder
	catalog     CatalogInvalidator
	events      EventSink
	orderPrefix string
	logger      *zap.Logger
}

// NewFulfillmentService creates the order-fulfillment orchestrator
func NewFulfillmentService(
	orders OrderStore,
	inventory InventoryStore,
	customers CustomerRecorder,
	ledger LedgerRecorder,
	catalog CatalogInvalidator,
	events EventSink,
	orderPrefix string,
) *FulfillmentService {
	return &FulfillmentService{
		orders:      orders,
		inventory:   inventory,
		customers:   customers,
		ledger:      ledger,
		catalog:     catalog,
		events:      events,
		orderPrefix: orderPrefix,
		logger:      util.GetLogger(),
	}
}

// CreateOrder allocates a yearly-scoped sequential order number, persists
// the order as pending, updates customer aggregates, and announces it to
// the business dashboard.
func (f *FulfillmentService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, &models.ValidationError{Field: "items", Reason: "order must contain at least one item"}
	}

	year := time.Now().Year()
	seq, err := f.orders.NextOrderSequence(ctx, year)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:     fmt.Sprintf("%s-%d-%04d", f.orderPrefix, year, seq),
		BusinessID:      req.BusinessID,
		CustomerPhone:   req.CustomerPhone,
		CustomerName:    req.CustomerName,
		DeliveryAddress: req.DeliveryAddress,
		Items:           req.Items,
		Subtotal:        req.Subtotal,
		GrandTotal:      req.GrandTotal,
		PaymentMethod:   req.PaymentMethod,
		Source:          req.Source,
	}
	order.AppendStatus(models.OrderStatusPending, "system")

	if err := f.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	f.logger.Info("Order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_phone", order.CustomerPhone),
		zap.Int64("grand_total", order.GrandTotal))

	if err := f.customers.RecordCustomerOrder(ctx, req.BusinessID, req.CustomerPhone, req.CustomerName, req.GrandTotal); err != nil {
		f.logger.Warn("Failed to update customer stats",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}

	if err := f.events.PublishNewOrder(ctx, &models.NewOrderEvent{
		BaseEvent:     newBaseEvent(models.EventTypeNewOrder),
		BusinessID:    order.BusinessID,
		OrderNumber:   order.OrderNumber,
		CustomerPhone: order.CustomerPhone,
		CustomerName:  order.CustomerName,
		GrandTotal:    order.GrandTotal,
		ItemCount:     len(order.Items),
	}); err != nil {
		f.logger.Error("Failed to publish new order event", zap.Error(err))
	}

	return order, nil
}

// AcceptChain runs the accept-time side effects for a pending order:
// status to accepted, bookkeeping, inventory deduction, tax recomputation,
// customer notification, then an automatic advance to preparing.
func (f *FulfillmentService) AcceptChain(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "FulfillmentService.AcceptChain")
	defer span.End()

	order, err := f.orders.GetOrderByNumber(ctx, businessID, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, &models.ConflictError{
			Resource: "order", Key: orderNumber, Current: order.Status, Action: "accept",
		}
	}

	now := time.Now()
	order.AcceptedAt = &now
	order.AppendStatus(models.OrderStatusAccepted, "owner")
	if err := f.orders.SaveOrderState(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to accept order: %w", err)
	}
	util.OrdersAcceptedTotal.Inc()
	f.logger.Info("Order accepted, running accept chain", zap.String("order_number", orderNumber))

	f.runBookkeeping(ctx, order)
	f.runInventoryDeduction(ctx, order)
	f.runTaxRecompute(ctx, order)
	f.notifyStatus(ctx, order, "Aapka order accept ho gaya! Taiyaar ho raha hai. 🎉")

	order.AppendStatus(models.OrderStatusPreparing, "system")
	if err := f.orders.SaveOrderState(ctx, order); err != nil {
		f.logger.Error("Failed to persist preparing transition",
			zap.String("order_number", orderNumber),
			zap.Error(err))
	}

	return order, nil
}

// runBookkeeping submits the sale to the ledger, best-effort
func (f *FulfillmentService) runBookkeeping(ctx context.Context, order *models.Order) {
	if err := f.ledger.RecordSale(ctx, order); err != nil {
		util.AcceptChainStepFailures.WithLabelValues("bookkeeping").Inc()
		f.logger.Error("Bookkeeping step failed",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
}

// runInventoryDeduction decrements stock item by item, invalidates the
// catalog cache, and raises reorder alerts. One item failing does not
// block the rest.
func (f *FulfillmentService) runInventoryDeduction(ctx context.Context, order *models.Order) {
	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)

		applied, err := f.inventory.DeductStock(ctx, order.BusinessID, item.ProductID, item.Quantity)
		if err != nil {
			util.StockDeductionsFailed.WithLabelValues("error").Inc()
			util.AcceptChainStepFailures.WithLabelValues("inventory").Inc()
			f.logger.Error("Stock deduction failed",
				zap.String("order_number", order.OrderNumber),
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
			continue
		}
		if !applied {
			util.StockDeductionsFailed.WithLabelValues("floor").Inc()
			util.AcceptChainStepFailures.WithLabelValues("inventory").Inc()
			f.logger.Warn("Stock deduction refused, would go negative",
				zap.String("order_number", order.OrderNumber),
				zap.Int64("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity))
		}
	}

	if err := f.catalog.Invalidate(ctx, order.BusinessID); err != nil {
		f.logger.Error("Catalog invalidation failed",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}

	products, err := f.inventory.GetProductsByIDs(ctx, order.BusinessID, ids)
	if err != nil {
		f.logger.Error("Failed to load products for reorder check",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return
	}
	for _, product := range products {
		if product.CurrentStock > product.ReorderLevel {
			continue
		}
		util.StockAlertsTotal.Inc()
		if err := f.events.PublishStockAlert(ctx, &models.StockAlertEvent{
			BaseEvent:    newBaseEvent(models.EventTypeStockAlert),
			BusinessID:   order.BusinessID,
			ProductID:    product.ID,
			Name:         product.Name,
			CurrentStock: product.CurrentStock,
			ReorderLevel: product.ReorderLevel,
		}); err != nil {
			f.logger.Error("Failed to publish stock alert",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}
}

// runTaxRecompute recomputes the order's tax total from the authoritative
// per-product rates, not the rates captured at cart time. A failure leaves
// the stored tax total unchanged.
func (f *FulfillmentService) runTaxRecompute(ctx context.Context, order *models.Order) {
	ids := make([]int64, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := f.inventory.GetProductsByIDs(ctx, order.BusinessID, ids)
	if err != nil {
		util.AcceptChainStepFailures.WithLabelValues("tax").Inc()
		f.logger.Error("Tax recomputation failed",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return
	}
	rates := make(map[int64]int, len(products))
	for _, product := range products {
		rates[product.ID] = product.GSTRate
	}

	var tax int64
	for _, item := range order.Items {
		tax += models.GSTInclusive(item.LineTotal, rates[item.ProductID])
	}

	order.TaxTotal = tax
	if err := f.orders.SaveOrderState(ctx, order); err != nil {
		util.AcceptChainStepFailures.WithLabelValues("tax").Inc()
		f.logger.Error("Failed to persist recomputed tax",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
}

// notifyStatus emits a customer-facing status-changed event, best-effort
func (f *FulfillmentService) notifyStatus(ctx context.Context, order *models.Order, message string) {
	if err := f.events.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderStatusChanged),
		BusinessID:    order.BusinessID,
		OrderNumber:   order.OrderNumber,
		CustomerPhone: order.CustomerPhone,
		Status:        order.Status,
		Message:       message,
	}); err != nil {
		util.AcceptChainStepFailures.WithLabelValues("notify").Inc()
		f.logger.Error("Failed to publish status change",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
	}
}

// Reject cancels a pending order and tells the customer
func (f *FulfillmentService) Reject(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error) {
	order, err := f.orders.GetOrderByNumber(ctx, businessID, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, &models.ConflictError{
			Resource: "order", Key: orderNumber, Current: order.Status, Action: "reject",
		}
	}

	order.AppendStatus(models.OrderStatusCancelled, "owner")
	if err := f.orders.SaveOrderState(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to reject order: %w", err)
	}
	util.OrdersCancelledTotal.Inc()

	f.notifyStatus(ctx, order, "Maaf kijiye, aapka order abhi process nahi ho sakta. 😔")
	return order, nil
}

// Dispatch moves an accepted or preparing order out for delivery
func (f *FulfillmentService) Dispatch(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error) {
	order, err := f.orders.GetOrderByNumber(ctx, businessID, orderNumber)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.OrderStatusAccepted, models.OrderStatusPreparing, models.OrderStatusOutForDelivery:
	default:
		return nil, &models.ConflictError{
			Resource: "order", Key: orderNumber, Current: order.Status, Action: "dispatch",
		}
	}

	order.AppendStatus(models.OrderStatusOutForDelivery, "owner")
	if err := f.orders.SaveOrderState(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to dispatch order: %w", err)
	}

	f.notifyStatus(ctx, order, "Aapka order delivery ke liye nikal gaya! 🚀")
	return order, nil
}

// Deliver marks an in-flight order delivered and records the timestamp
func (f *FulfillmentService) Deliver(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error) {
	order, err := f.orders.GetOrderByNumber(ctx, businessID, orderNumber)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.OrderStatusDelivered, models.OrderStatusCancelled:
		return nil, &models.ConflictError{
			Resource: "order", Key: orderNumber, Current: order.Status, Action: "deliver",
		}
	}

	now := time.Now()
	order.DeliveredAt = &now
	order.AppendStatus(models.OrderStatusDelivered, "owner")
	if err := f.orders.SaveOrderState(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to deliver order: %w", err)
	}
	util.OrdersDeliveredTotal.Inc()

	f.notifyStatus(ctx, order, "Order deliver ho gaya! Dhanyavaad! 🙏")
	return order, nil
}

// GetOrder retrieves one order for a business
func (f *FulfillmentService) GetOrder(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error) {
	return f.orders.GetOrderByNumber(ctx, businessID, orderNumber)
}

// ListOrders retrieves a page of orders, optionally filtered by status
func (f *FulfillmentService) ListOrders(ctx context.Context, businessID int64, status string, limit, page int) ([]models.Order, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	orders, err := f.orders.ListOrders(ctx, businessID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := f.orders.CountOrders(ctx, businessID, status)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
