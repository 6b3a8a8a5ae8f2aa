// internal/models/order.go
package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	BaseModel
	OrderNumber     string          `json:"order_number" gorm:"uniqueIndex;size:40;not null"`
	UserID          uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	CustomerInfo    CustomerInfo    `json:"customer_info" gorm:"type:jsonb"`
	Items           OrderItems      `json:"items" gorm:"type:jsonb;not null"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
	Tax             decimal.Decimal `json:"tax" gorm:"type:numeric(12,2);not null"`
	Shipping        decimal.Decimal `json:"shipping" gorm:"type:numeric(12,2);not null"`
	Discount        decimal.Decimal `json:"discount" gorm:"type:numeric(12,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	Currency        string          `json:"currency" gorm:"size:3;not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);not null"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"type:jsonb"`
	ShippingAddress Address         `json:"shipping_address" gorm:"type:jsonb"`
	BillingAddress  Address         `json:"billing_address" gorm:"type:jsonb"`
	ShippingMethod  ShippingMethod  `json:"shipping_method" gorm:"type:jsonb"`
	TrackingNumber  string          `json:"tracking_number,omitempty" gorm:"size:100"`
	Notes           string          `json:"notes,omitempty" gorm:"type:text"`
	Refunds         OrderRefunds    `json:"refunds,omitempty" gorm:"type:jsonb"`
}

// OrderItem is a priced copy of a catalog line taken at checkout. It never
// follows later catalog edits.
type OrderItem struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	VariantID    string          `json:"variant_id,omitempty"`
	VariantName  string          `json:"variant_name,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	SKU          string          `json:"sku"`
}

type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error)  { return jsonValue(o) }
func (o *OrderItems) Scan(value interface{}) error { return scanJSON(value, o) }

type CustomerInfo struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone,omitempty" validate:"max=30"`
}

func (c CustomerInfo) Value() (driver.Value, error)  { return jsonValue(c) }
func (c *CustomerInfo) Scan(value interface{}) error { return scanJSON(value, c) }

type PaymentMethodType string

const (
	PaymentCard         PaymentMethodType = "card"
	PaymentPayPal       PaymentMethodType = "paypal"
	PaymentApplePay     PaymentMethodType = "apple_pay"
	PaymentGooglePay    PaymentMethodType = "google_pay"
	PaymentBankTransfer PaymentMethodType = "bank_transfer"
)

type PaymentMethod struct {
	Type  PaymentMethodType `json:"type,omitempty" validate:"omitempty,oneof=card paypal apple_pay google_pay bank_transfer"`
	Last4 string            `json:"last4,omitempty" validate:"omitempty,len=4,numeric"`
	Brand string            `json:"brand,omitempty"`
}

func (p PaymentMethod) Value() (driver.Value, error)  { return jsonValue(p) }
func (p *PaymentMethod) Scan(value interface{}) error { return scanJSON(value, p) }

type ShippingMethod struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	EstimatedDays int             `json:"estimated_days,omitempty"`
}

func (s ShippingMethod) Value() (driver.Value, error)  { return jsonValue(s) }
func (s *ShippingMethod) Scan(value interface{}) error { return scanJSON(value, s) }

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundCompleted RefundStatus = "completed"
	RefundFailed    RefundStatus = "failed"
)

type OrderRefund struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	Status      RefundStatus    `json:"status"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	RefundID    string          `json:"refund_id,omitempty"`
}

type OrderRefunds []OrderRefund

func (r OrderRefunds) Value() (driver.Value, error)  { return jsonValue(r) }
func (r *OrderRefunds) Scan(value interface{}) error { return scanJSON(value, r) }

// Order status machine:
// pending -> confirmed -> processing -> shipped -> delivered,
// cancelled and refunded from any non-terminal state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed},
	OrderStatusConfirmed:  {OrderStatusProcessing},
	OrderStatusProcessing: {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled || next == OrderStatusRefunded {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ReleasesStock reports whether entering s hands the ordered units back to inventory.
func (s OrderStatus) ReleasesStock() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CountsAsSale reports whether an order in this status contributes to sales figures.
func (s OrderStatus) CountsAsSale() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

func SaleStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered}
}

// ComputeTotals derives the line totals, subtotal and total from the items and adjustments.
func (o *Order) ComputeTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		item := &o.Items[i]
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(item.TotalPrice)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)
}

func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return errors.New("order has no items")
	}
	if o.Tax.IsNegative() || o.Shipping.IsNegative() || o.Discount.IsNegative() {
		return errors.New("tax, shipping and discount must not be negative")
	}

	subtotal := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("line %s has quantity %d", item.ProductID, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("line %s has a negative unit price", item.ProductID)
		}
		if !item.TotalPrice.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))) {
			return fmt.Errorf("line %s total does not match unit price times quantity", item.ProductID)
		}
		subtotal = subtotal.Add(item.TotalPrice)
	}
	if !o.Subtotal.Equal(subtotal) {
		return fmt.Errorf("subtotal %s does not match line totals %s", o.Subtotal, subtotal)
	}

	want := o.Subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)
	if !o.Total.Equal(want) {
		return fmt.Errorf("total %s does not equal subtotal + tax + shipping - discount (%s)", o.Total, want)
	}
	if o.Total.IsNegative() {
		return errors.New("order total must not be negative")
	}
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append(OrderItems(nil), o.Items...)
	if o.Refunds != nil {
		c.Refunds = make(OrderRefunds, len(o.Refunds))
		for i, r := range o.Refunds {
			if r.ProcessedAt != nil {
				t := *r.ProcessedAt
				r.ProcessedAt = &t
			}
			c.Refunds[i] = r
		}
	}
	return &c
}
