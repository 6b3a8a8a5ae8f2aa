// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// jsonValue and scanJSON back the jsonb columns of the document-shaped fields
// (variants, images, cart items, order snapshots, addresses).
func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(value interface{}, dst interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// Enums
type ProductCategory string

const (
	ProductCategoryApparel      ProductCategory = "apparel"
	ProductCategoryDrinkware    ProductCategory = "drinkware"
	ProductCategoryAccessories  ProductCategory = "accessories"
	ProductCategoryCollectibles ProductCategory = "collectibles"
	ProductCategoryGiftCards    ProductCategory = "gift-cards"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case ProductCategoryApparel, ProductCategoryDrinkware, ProductCategoryAccessories,
		ProductCategoryCollectibles, ProductCategoryGiftCards:
		return true
	}
	return false
}

type EventCategory string

const (
	EventCategoryLiveMusic EventCategory = "live_music"
	EventCategoryHoliday   EventCategory = "holiday"
	EventCategorySpecial   EventCategory = "special"
	EventCategoryGameDay   EventCategory = "game_day"
	EventCategoryPrivate   EventCategory = "private"
)

func (c EventCategory) Valid() bool {
	switch c {
	case EventCategoryLiveMusic, EventCategoryHoliday, EventCategorySpecial,
		EventCategoryGameDay, EventCategoryPrivate:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)
