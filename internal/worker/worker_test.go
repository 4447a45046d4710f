package worker

import (
	"context"
	"errors"
	"testing"

	"chat-commerce/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFulfiller struct {
	calls []string
	err   error
}

func (f *fakeFulfiller) call(action, orderNumber string) (*models.Order, error) {
	f.calls = append(f.calls, action+":"+orderNumber)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{OrderNumber: orderNumber}, nil
}

func (f *fakeFulfiller) AcceptChain(_ context.Context, _ int64, orderNumber string) (*models.Order, error) {
	return f.call("accept", orderNumber)
}

func (f *fakeFulfiller) Reject(_ context.Context, _ int64, orderNumber string) (*models.Order, error) {
	return f.call("reject", orderNumber)
}

func (f *fakeFulfiller) Dispatch(_ context.Context, _ int64, orderNumber string) (*models.Order, error) {
	return f.call("dispatch", orderNumber)
}

func (f *fakeFulfiller) Deliver(_ context.Context, _ int64, orderNumber string) (*models.Order, error) {
	return f.call("deliver", orderNumber)
}

func TestHandleActionDispatchesByAction(t *testing.T) {
	fulfiller := &fakeFulfiller{}
	w := NewOrderActionWorker(nil, fulfiller)

	for _, action := range []string{
		models.OrderActionAccept,
		models.OrderActionReject,
		models.OrderActionDispatch,
		models.OrderActionDeliver,
	} {
		err := w.handleAction(context.Background(), &models.OrderActionCommand{
			Action:      action,
			BusinessID:  7,
			OrderNumber: "KRN-2026-0001",
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"accept:KRN-2026-0001",
		"reject:KRN-2026-0001",
		"dispatch:KRN-2026-0001",
		"deliver:KRN-2026-0001",
	}, fulfiller.calls)
}

func TestHandleActionIgnoresUnknownAction(t *testing.T) {
	fulfiller := &fakeFulfiller{}
	w := NewOrderActionWorker(nil, fulfiller)

	err := w.handleAction(context.Background(), &models.OrderActionCommand{
		Action:      "explode",
		OrderNumber: "KRN-2026-0001",
	})
	require.NoError(t, err)
	assert.Empty(t, fulfiller.calls)
}

func TestHandleActionTerminalErrors(t *testing.T) {
	// conflicts and unknown orders must commit the message, not redeliver it
	fulfiller := &fakeFulfiller{err: &models.ConflictError{
		Resource: "order", Key: "KRN-2026-0001", Current: "preparing", Action: "accept",
	}}
	w := NewOrderActionWorker(nil, fulfiller)

	err := w.handleAction(context.Background(), &models.OrderActionCommand{
		Action:      models.OrderActionAccept,
		BusinessID:  7,
		OrderNumber: "KRN-2026-0001",
	})
	assert.NoError(t, err)

	fulfiller.err = &models.NotFoundError{Resource: "order", Key: "KRN-2026-0002"}
	err = w.handleAction(context.Background(), &models.OrderActionCommand{
		Action:      models.OrderActionDeliver,
		BusinessID:  7,
		OrderNumber: "KRN-2026-0002",
	})
	assert.NoError(t, err)
}

func TestHandleActionTransientErrorPropagates(t *testing.T) {
	fulfiller := &fakeFulfiller{err: errors.New("db timeout")}
	w := NewOrderActionWorker(nil, fulfiller)

	err := w.handleAction(context.Background(), &models.OrderActionCommand{
		Action:      models.OrderActionAccept,
		BusinessID:  7,
		OrderNumber: "KRN-2026-0001",
	})
	assert.Error(t, err)
}
