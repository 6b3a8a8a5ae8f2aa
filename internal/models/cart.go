// internal/models/cart.go
package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// Cart is keyed by its owner; there is at most one per user.
type Cart struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Items     CartItems `json:"items" gorm:"type:jsonb;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

type CartItem struct {
	ProductID  uuid.UUID `json:"product_id"`
	VariantID  string    `json:"variant_id,omitempty"`
	Quantity   int       `json:"quantity"`
	SelectedAt time.Time `json:"selected_at"`
}

func (i CartItem) SameLine(productID uuid.UUID, variantID string) bool {
	return i.ProductID == productID && i.VariantID == variantID
}

type CartItems []CartItem

func (c CartItems) Value() (driver.Value, error)  { return jsonValue(c) }
func (c *CartItems) Scan(value interface{}) error { return scanJSON(value, c) }

func NewCart(userID uuid.UUID, now time.Time) *Cart {
	return &Cart{UserID: userID, Items: CartItems{}, CreatedAt: now, UpdatedAt: now}
}

// Merge adds item to the cart. A line with the same product and variant has
// its quantity increased; otherwise the item is appended.
func (c *Cart) Merge(item CartItem, now time.Time) {
	c.UpdatedAt = now
	for i := range c.Items {
		if c.Items[i].SameLine(item.ProductID, item.VariantID) {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	if item.SelectedAt.IsZero() {
		item.SelectedAt = now
	}
	c.Items = append(c.Items, item)
}

// Remove drops the matching line and reports whether anything was removed.
func (c *Cart) Remove(productID uuid.UUID, variantID string, now time.Time) bool {
	c.UpdatedAt = now
	kept := c.Items[:0]
	removed := false
	for _, item := range c.Items {
		if item.SameLine(productID, variantID) {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return removed
}

func (c *Cart) Line(productID uuid.UUID, variantID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.SameLine(productID, variantID) {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c *Cart) TotalQuantity() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append(CartItems{}, c.Items...)
	return &cp
}
