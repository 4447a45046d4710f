package service

import (
	"context"
	"errors"
	"testing"

	"chat-commerce/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityCheck(t *testing.T) {
	store := newFakeProductStore(
		&models.Product{ID: 1, BusinessID: 7, Name: "Basmati Rice", CurrentStock: 50, Available: true},
		&models.Product{ID: 2, BusinessID: 7, Name: "Toor Dal", CurrentStock: 3, Available: true},
		&models.Product{ID: 3, BusinessID: 7, Name: "Old Soap", CurrentStock: 10, Available: false},
	)
	checker := NewAvailabilityChecker(store)

	results, err := checker.Check(context.Background(), 7, []AvailabilityRequest{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 5},
		{ProductID: 3, Quantity: 1},
		{ProductID: 99, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].Available)
	assert.Equal(t, models.AvailabilityOK, results[0].Reason)

	assert.False(t, results[1].Available)
	assert.Equal(t, models.AvailabilityInsufficientStock, results[1].Reason)
	assert.Equal(t, 3, results[1].CurrentStock)

	assert.False(t, results[2].Available)
	assert.Equal(t, models.AvailabilityDiscontinued, results[2].Reason)

	assert.False(t, results[3].Available)
	assert.Equal(t, models.AvailabilityNotFound, results[3].Reason)
}

func TestAvailabilityCheckExactStock(t *testing.T) {
	store := newFakeProductStore(
		&models.Product{ID: 1, BusinessID: 7, Name: "Basmati Rice", CurrentStock: 2, Available: true},
	)
	checker := NewAvailabilityChecker(store)

	results, err := checker.Check(context.Background(), 7, []AvailabilityRequest{
		{ProductID: 1, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Available)
}

func TestAvailabilityCheckStoreFailure(t *testing.T) {
	store := newFakeProductStore()
	store.byIDsErr = errors.New("connection refused")
	checker := NewAvailabilityChecker(store)

	_, err := checker.Check(context.Background(), 7, []AvailabilityRequest{{ProductID: 1, Quantity: 1}})
	require.Error(t, err)

	var ce *models.CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "availability", ce.Collaborator)
}
