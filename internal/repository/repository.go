// internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bierstube/storefront/internal/models"
)

// ErrNotFound is returned by every repository lookup that matches no document.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key (email, order number) is already taken.
var ErrDuplicate = errors.New("duplicate key")

type ProductFilter struct {
	Category        models.ProductCategory
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	InStock         *bool
	Featured        *bool
	Tags            []string
	IncludeInactive bool
	Offset          int
	Limit           int // 0 means no limit
}

type EventFilter struct {
	Category        models.EventCategory
	StartFrom       *time.Time
	StartTo         *time.Time
	Featured        *bool
	HasTickets      *bool
	IncludeInactive bool
	Offset          int
	Limit           int
}

type OrderFilter struct {
	UserID      *uuid.UUID
	Statuses    []models.OrderStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
}

// ProductRepository lists newest first.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
}

// EventRepository lists by start date ascending.
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter EventFilter) ([]models.Event, error)
}

// OrderRepository lists newest first.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	ExistsOrderNumber(ctx context.Context, orderNumber string) (bool, error)
}

type CartRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// GetOrCreate returns the user's cart, inserting an empty one first when
	// none exists. Inside a transaction the returned row is locked.
	GetOrCreate(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
	DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	List(ctx context.Context) ([]models.Cart, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.UserProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	Update(ctx context.Context, user *models.UserProfile) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.UserProfile, error)
}

// Store is the persistent document store. Repositories obtained from the
// Store passed to a Transaction callback read with row locks, and their
// writes are committed together when the callback returns nil and discarded
// otherwise.
type Store interface {
	Products() ProductRepository
	Events() EventRepository
	Orders() OrderRepository
	Carts() CartRepository
	Users() UserRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
