// internal/services/admin_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/cache"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
	"github.com/bierstube/storefront/internal/seed"
	"github.com/bierstube/storefront/internal/utils"
)

// Collections that can be backed up.
const (
	CollectionUsers    = "users"
	CollectionProducts = "products"
	CollectionEvents   = "events"
	CollectionOrders   = "orders"
	CollectionCarts    = "carts"
)

type AdminService struct {
	store   repository.Store
	carts   *CartService
	storage *StorageService
	cache   cache.ProductCache
	now     func() time.Time
}

type DashboardStats struct {
	TotalUsers        int                        `json:"total_users"`
	AdminUsers        int                        `json:"admin_users"`
	NewUsersThisMonth int                        `json:"new_users_this_month"`
	ActiveProducts    int                        `json:"active_products"`
	OutOfStock        int                        `json:"out_of_stock"`
	UpcomingEvents    int                        `json:"upcoming_events"`
	OpenCarts         int                        `json:"open_carts"`
	OrdersByStatus    map[models.OrderStatus]int `json:"orders_by_status"`
	RevenueToDate     decimal.Decimal            `json:"revenue_to_date"`
}

type SampleDataResult struct {
	ProductsCreated int `json:"products_created"`
	EventsCreated   int `json:"events_created"`
}

type UpdateStockRequest struct {
	Stock int `json:"stock" validate:"gte=0"`
}

type PriceUpdate struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	NewPrice  decimal.Decimal `json:"new_price" validate:"gte=0"`
}

type BulkPriceRequest struct {
	Updates []PriceUpdate `json:"updates" validate:"required,min=1,max=500,dive"`
}

type BulkPriceResult struct {
	Updated int `json:"updated"`
}

type CleanupResult struct {
	Deleted int64 `json:"deleted"`
}

// BackupResult either points at the uploaded object or carries the dump inline.
type BackupResult struct {
	Collection string          `json:"collection"`
	Count      int             `json:"count"`
	URL        string          `json:"url,omitempty"`
	Key        string          `json:"key,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func NewAdminService(store repository.Store, carts *CartService, storage *StorageService, productCache cache.ProductCache) *AdminService {
	if productCache == nil {
		productCache = cache.NopProductCache{}
	}
	return &AdminService{
		store:   store,
		carts:   carts,
		storage: storage,
		cache:   productCache,
		now:     time.Now,
	}
}

func (s *AdminService) GetDashboardStats(ctx context.Context, caller models.Caller) (*DashboardStats, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	stats := &DashboardStats{
		OrdersByStatus: make(map[models.OrderStatus]int),
		RevenueToDate:  decimal.Zero,
	}

	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, storeErr(err, "users", "")
	}
	for _, user := range users {
		stats.TotalUsers++
		if user.IsAdmin {
			stats.AdminUsers++
		}
		if !user.CreatedAt.Before(monthStart) {
			stats.NewUsersThisMonth++
		}
	}

	products, err := s.store.Products().List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, storeErr(err, "products", "")
	}
	stats.ActiveProducts = len(products)
	for _, product := range products {
		if product.Stock == 0 {
			stats.OutOfStock++
		}
	}

	events, err := s.store.Events().List(ctx, repository.EventFilter{StartFrom: &now})
	if err != nil {
		return nil, storeErr(err, "events", "")
	}
	stats.UpcomingEvents = len(events)

	carts, err := s.store.Carts().List(ctx)
	if err != nil {
		return nil, storeErr(err, "carts", "")
	}
	stats.OpenCarts = len(carts)

	orders, err := s.store.Orders().List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, storeErr(err, "orders", "")
	}
	for _, order := range orders {
		stats.OrdersByStatus[order.Status]++
		if order.Status.CountsAsSale() {
			stats.RevenueToDate = stats.RevenueToDate.Add(order.Total)
		}
	}

	return stats, nil
}

func (s *AdminService) ListUsers(ctx context.Context, caller models.Caller) ([]models.UserProfile, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, storeErr(err, "users", "")
	}
	return users, nil
}

// DeleteUser removes the user's profile and cart together. Admins cannot
// delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, caller models.Caller, userID uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if caller.UID == userID {
		return invalid("admins cannot delete their own account")
	}

	err := atomically(ctx, s.store, func(tx repository.Store) error {
		if err := tx.Users().Delete(ctx, userID); err != nil {
			return storeErr(err, "user", userID)
		}
		if err := tx.Carts().Delete(ctx, userID); err != nil {
			return storeErr(err, "cart", userID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"deleted_by": caller.UID,
	}).Info("User deleted")
	return nil
}

// InitializeSampleData writes the bundled sample catalog in one batch.
func (s *AdminService) InitializeSampleData(ctx context.Context, caller models.Caller) (*SampleDataResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	catalog, err := seed.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	now := s.now()
	result := &SampleDataResult{}
	err = atomically(ctx, s.store, func(tx repository.Store) error {
		for _, product := range catalog.Products {
			product.CreatedAt = now
			product.UpdatedAt = now
			if err := tx.Products().Create(ctx, product); err != nil {
				return err
			}
			result.ProductsCreated++
		}
		for _, event := range catalog.Events {
			event.CreatedAt = now
			event.UpdatedAt = now
			if err := tx.Events().Create(ctx, event); err != nil {
				return err
			}
			result.EventsCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"products": result.ProductsCreated,
		"events":   result.EventsCreated,
	}).Info("Sample data initialized")
	return result, nil
}

// UpdateProductStock sets the aggregate stock. A product with variants keeps
// its stock equal to the variant total, so a differing value is rejected.
func (s *AdminService) UpdateProductStock(ctx context.Context, caller models.Caller, productID uuid.UUID, req *UpdateStockRequest) (*models.Product, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}

	var updated *models.Product
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		product, err := tx.Products().FindByID(ctx, productID)
		if err != nil {
			return storeErr(err, "product", productID)
		}
		if len(product.Variants) > 0 && product.VariantStockTotal() != req.Stock {
			return invalid("product %s has variants totalling %d; update variant stock instead",
				product.Name, product.VariantStockTotal())
		}

		product.Stock = req.Stock
		product.UpdatedAt = s.now()
		if err := tx.Products().Update(ctx, product); err != nil {
			return storeErr(err, "product", productID)
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, productID)
	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"stock":      req.Stock,
	}).Info("Product stock updated")
	return updated, nil
}

// BulkUpdatePrices applies every price in one batch. An unknown product or a
// negative price aborts the whole batch.
func (s *AdminService) BulkUpdatePrices(ctx context.Context, caller models.Caller, req *BulkPriceRequest) (*BulkPriceResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}
	for _, update := range req.Updates {
		if update.NewPrice.IsNegative() {
			return nil, invalid("price for %s must not be negative", update.ProductID)
		}
	}

	result := &BulkPriceResult{}
	ids := make([]uuid.UUID, 0, len(req.Updates))
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		now := s.now()
		for _, update := range req.Updates {
			product, err := tx.Products().FindByID(ctx, update.ProductID)
			if err != nil {
				return storeErr(err, "product", update.ProductID)
			}
			product.Price = update.NewPrice
			product.UpdatedAt = now
			if err := tx.Products().Update(ctx, product); err != nil {
				return storeErr(err, "product", update.ProductID)
			}
			ids = append(ids, product.ID)
		}
		result.Updated = len(ids)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, ids...)
	logrus.WithField("updated", result.Updated).Info("Bulk price update applied")
	return result, nil
}

func (s *AdminService) CleanupStaleCarts(ctx context.Context, caller models.Caller, olderThan time.Duration) (*CleanupResult, error) {
	deleted, err := s.carts.CleanupStaleCarts(ctx, caller, olderThan)
	if err != nil {
		return nil, err
	}
	return &CleanupResult{Deleted: deleted}, nil
}

// BackupCollection dumps one collection as JSON. With backup storage
// configured the dump is uploaded and only its location returned.
func (s *AdminService) BackupCollection(ctx context.Context, caller models.Caller, collection string) (*BackupResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	docs, count, err := s.dump(ctx, collection)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s backup: %w", collection, err)
	}

	now := s.now()
	result := &BackupResult{Collection: collection, Count: count, CreatedAt: now}
	if s.storage.Enabled() {
		upload, err := s.storage.UploadBackup(ctx, collection, payload, now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		result.URL = upload.URL
		result.Key = upload.Key
	} else {
		result.Data = payload
	}

	logrus.WithFields(logrus.Fields{
		"collection": collection,
		"count":      count,
		"uploaded":   result.URL != "",
	}).Info("Collection backed up")
	return result, nil
}

func (s *AdminService) dump(ctx context.Context, collection string) (interface{}, int, error) {
	switch collection {
	case CollectionUsers:
		docs, err := s.store.Users().List(ctx)
		return docs, len(docs), storeErr(err, collection, "")
	case CollectionProducts:
		docs, err := s.store.Products().List(ctx, repository.ProductFilter{IncludeInactive: true})
		return docs, len(docs), storeErr(err, collection, "")
	case CollectionEvents:
		docs, err := s.store.Events().List(ctx, repository.EventFilter{IncludeInactive: true})
		return docs, len(docs), storeErr(err, collection, "")
	case CollectionOrders:
		docs, err := s.store.Orders().List(ctx, repository.OrderFilter{})
		return docs, len(docs), storeErr(err, collection, "")
	case CollectionCarts:
		docs, err := s.store.Carts().List(ctx)
		return docs, len(docs), storeErr(err, collection, "")
	default:
		return nil, 0, invalid("unknown collection %q", collection)
	}
}
