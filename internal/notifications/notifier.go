package notification

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/calderonstudio/ranking-backend/pkg/db/models"
	"github.com/calderonstudio/ranking-backend/pkg/enums"
	"github.com/calderonstudio/ranking-backend/pkg/outbox"
)

// CartSnapshot is the payload shipped with every cart event.
type CartSnapshot struct {
	CartID     string             `json:"cartId"`
	CustomerID string             `json:"customerId"`
	Status     string             `json:"status"`
	Total      string             `json:"total"`
	Items      []CartSnapshotItem `json:"items"`
}

// CartSnapshotItem is one line of a cart snapshot.
type CartSnapshotItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unitPrice"`
	Subtotal  string `json:"subtotal"`
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier publishes cart state changes through the outbox so downstream
// consumers see every revision of the cart.
type Notifier struct {
	events eventEmitter
}

// NewNotifier constructs a cart notifier.
func NewNotifier(events eventEmitter) (*Notifier, error) {
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &Notifier{events: events}, nil
}

// CartUpdated queues a cart_updated event carrying the full cart snapshot.
func (n *Notifier) CartUpdated(ctx context.Context, tx *gorm.DB, cart *models.Cart) error {
	return n.emit(ctx, tx, enums.EventCartUpdated, cart)
}

// CartCheckedOut queues a cart_checked_out event carrying the final snapshot.
func (n *Notifier) CartCheckedOut(ctx context.Context, tx *gorm.DB, cart *models.Cart) error {
	return n.emit(ctx, tx, enums.EventCartCheckedOut, cart)
}

func (n *Notifier) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, cart *models.Cart) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateCart,
		AggregateID:   cart.ID,
		Actor:         &outbox.ActorRef{CustomerID: cart.CustomerID},
		Data:          Snapshot(cart),
		Version:       1,
	}
	return n.events.Emit(ctx, tx, event)
}

// Snapshot converts a cart into its event payload form.
func Snapshot(cart *models.Cart) CartSnapshot {
	snapshot := CartSnapshot{
		CartID:     cart.ID.String(),
		CustomerID: cart.CustomerID.String(),
		Status:     cart.Status.String(),
		Total:      cart.Total.StringFixed(2),
	}
	for _, item := range cart.Items {
		line := CartSnapshotItem{
			ProductID: item.ProductID.String(),
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal().StringFixed(2),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
		}
		snapshot.Items = append(snapshot.Items, line)
	}
	return snapshot
}
