package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"chat-commerce/internal/models"
	"chat-commerce/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher is the notification sink: it hands domain events to the
// external channels (owner dashboard, customer chat widget) via Kafka.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishNewOrder announces a freshly created order to the business dashboard
func (ep *EventPublisher) PublishNewOrder(ctx context.Context, event *models.NewOrderEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderNumber, event)
}

// PublishOrderStatusChanged notifies the customer channel of a transition
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderNumber, event)
}

// PublishStockAlert raises a reorder-level alert for the business
func (ep *EventPublisher) PublishStockAlert(ctx context.Context, event *models.StockAlertEvent) error {
	return ep.producer.PublishEvent(ctx, fmt.Sprintf("stock-%d", event.ProductID), event)
}

// ActionHandler routes owner order-action commands from the actions topic
type ActionHandler struct {
	onAction func(context.Context, *models.OrderActionCommand) error
	logger   *zap.Logger
}

// NewActionHandler creates a handler for order-action commands
func NewActionHandler(onAction func(context.Context, *models.OrderActionCommand) error) *ActionHandler {
	return &ActionHandler{onAction: onAction, logger: util.GetLogger()}
}

// HandleMessage decodes and dispatches a single command message
func (ah *ActionHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	if base.EventType != models.EventTypeOrderAction {
		ah.logger.Debug("Ignoring event", zap.String("event_type", base.EventType))
		return nil
	}

	var cmd models.OrderActionCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal order action: %w", err)
	}
	return ah.onAction(ctx, &cmd)
}
