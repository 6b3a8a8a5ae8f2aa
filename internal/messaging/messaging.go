// internal/messaging/messaging.go
package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bierstube/storefront/internal/models"
)

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
	Close() error
}

// Topics names the destinations for order lifecycle events.
type Topics struct {
	OrderPlaced        string
	OrderStatusChanged string
}

func DefaultTopics() Topics {
	return Topics{
		OrderPlaced:        "orders.placed",
		OrderStatusChanged: "orders.status_changed",
	}
}

type OrderLine struct {
	ProductID uuid.UUID `json:"product_id"`
	VariantID string    `json:"variant_id,omitempty"`
	Quantity  int       `json:"quantity"`
}

type OrderPlaced struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Lines       []OrderLine     `json:"lines"`
	PlacedAt    time.Time       `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID        uuid.UUID          `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	From           models.OrderStatus `json:"from"`
	To             models.OrderStatus `json:"to"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
	Restocked      bool               `json:"restocked"`
	ChangedAt      time.Time          `json:"changed_at"`
}

func NewOrderPlaced(order *models.Order) OrderPlaced {
	lines := make([]OrderLine, len(order.Items))
	for i, item := range order.Items {
		lines[i] = OrderLine{ProductID: item.ProductID, VariantID: item.VariantID, Quantity: item.Quantity}
	}
	return OrderPlaced{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.Total,
		Currency:    order.Currency,
		Lines:       lines,
		PlacedAt:    order.CreatedAt,
	}
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
