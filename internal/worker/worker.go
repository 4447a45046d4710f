package worker

import (
	"context"
	"fmt"

	"chat-commerce/internal/broker"
	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"go.uber.org/zap"
)

// Fulfiller is the orchestrator surface the worker drives
type Fulfiller interface {
	AcceptChain(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error)
	Reject(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error)
	Dispatch(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error)
	Deliver(ctx context.Context, businessID int64, orderNumber string) (*models.Order, error)
}

// OrderActionWorker consumes owner order-action commands from the actions
// topic and runs the corresponding orchestrator operation.
type OrderActionWorker struct {
	consumer    *broker.Consumer
	handler     *broker.ActionHandler
	fulfillment Fulfiller
	logger      *zap.Logger
}

// NewOrderActionWorker creates the action worker
func NewOrderActionWorker(consumer *broker.Consumer, fulfillment Fulfiller) *OrderActionWorker {
	w := &OrderActionWorker{
		consumer:    consumer,
		fulfillment: fulfillment,
		logger:      util.GetLogger(),
	}
	w.handler = broker.NewActionHandler(w.handleAction)
	return w
}

func (w *OrderActionWorker) handleAction(ctx context.Context, cmd *models.OrderActionCommand) error {
	w.logger.Info("Processing order action",
		zap.String("action", cmd.Action),
		zap.String("order_number", cmd.OrderNumber))

	var err error
	switch cmd.Action {
	case models.OrderActionAccept:
		_, err = w.fulfillment.AcceptChain(ctx, cmd.BusinessID, cmd.OrderNumber)
	case models.OrderActionReject:
		_, err = w.fulfillment.Reject(ctx, cmd.BusinessID, cmd.OrderNumber)
	case models.OrderActionDispatch:
		_, err = w.fulfillment.Dispatch(ctx, cmd.BusinessID, cmd.OrderNumber)
	case models.OrderActionDeliver:
		_, err = w.fulfillment.Deliver(ctx, cmd.BusinessID, cmd.OrderNumber)
	default:
		w.logger.Warn("Unknown order action", zap.String("action", cmd.Action))
		return nil
	}

	// Conflicts and unknown orders are terminal for the command; retrying
	// the message cannot fix them.
	if err != nil && (models.IsConflict(err) || models.IsNotFound(err)) {
		w.logger.Warn("Order action rejected",
			zap.String("action", cmd.Action),
			zap.String("order_number", cmd.OrderNumber),
			zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("order action %s on %s failed: %w", cmd.Action, cmd.OrderNumber, err)
	}
	return nil
}

// Start starts the worker
func (w *OrderActionWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order action worker")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *OrderActionWorker) Stop() error {
	w.logger.Info("Stopping order action worker")
	return w.consumer.Close()
}
