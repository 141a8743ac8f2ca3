package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	"github.com/calderonstudio/ranking-backend/pkg/outbox"
)

type capturingEmitter struct {
	events []outbox.DomainEvent
}

func (c *capturingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func sampleCart() *models.Cart {
	productID := uuid.New()
	return &models.Cart{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     enums.CartStatusActive,
		Total:      decimal.RequireFromString("25.50"),
		Items: []models.CartItem{
			{
				ProductID: productID,
				Qty:       3,
				UnitPrice: decimal.RequireFromString("8.50"),
				Product:   &models.Product{ID: productID, Name: "Impresion 20x30"},
			},
		},
	}
}

func TestNewNotifierRequiresEmitter(t *testing.T) {
	_, err := NewNotifier(nil)
	require.Error(t, err)
}

func TestCartUpdatedEmitsSnapshot(t *testing.T) {
	emitter := &capturingEmitter{}
	notifier, err := NewNotifier(emitter)
	require.NoError(t, err)

	cart := sampleCart()
	require.NoError(t, notifier.CartUpdated(context.Background(), &gorm.DB{}, cart))
	require.Len(t, emitter.events, 1)

	event := emitter.events[0]
	assert.Equal(t, enums.EventCartUpdated, event.EventType)
	assert.Equal(t, enums.AggregateCart, event.AggregateType)
	assert.Equal(t, cart.ID, event.AggregateID)
	require.NotNil(t, event.Actor)
	assert.Equal(t, cart.CustomerID, event.Actor.CustomerID)

	snapshot, ok := event.Data.(CartSnapshot)
	require.True(t, ok)
	assert.Equal(t, cart.ID.String(), snapshot.CartID)
	assert.Equal(t, "25.50", snapshot.Total)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "Impresion 20x30", snapshot.Items[0].Name)
	assert.Equal(t, "8.50", snapshot.Items[0].UnitPrice)
	assert.Equal(t, "25.50", snapshot.Items[0].Subtotal)
}

func TestCartCheckedOutEmits(t *testing.T) {
	emitter := &capturingEmitter{}
	notifier, err := NewNotifier(emitter)
	require.NoError(t, err)

	cart := sampleCart()
	cart.Status = enums.CartStatusFinalized
	require.NoError(t, notifier.CartCheckedOut(context.Background(), &gorm.DB{}, cart))
	require.Len(t, emitter.events, 1)
	assert.Equal(t, enums.EventCartCheckedOut, emitter.events[0].EventType)

	snapshot, ok := emitter.events[0].Data.(CartSnapshot)
	require.True(t, ok)
	assert.Equal(t, enums.CartStatusFinalized.String(), snapshot.Status)
}

func TestSnapshotOmitsMissingProductName(t *testing.T) {
	cart := sampleCart()
	cart.Items[0].Product = nil

	snapshot := Snapshot(cart)
	require.Len(t, snapshot.Items, 1)
	assert.Empty(t, snapshot.Items[0].Name)
}
