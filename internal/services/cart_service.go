// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/config"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
	"github.com/bierstube/storefront/internal/utils"
)

// CartService owns the per-user cart document. Every mutation is a
// read-modify-write inside one store transaction, so two sessions of the same
// user adding at once both land.
type CartService struct {
	store repository.Store
	cfg   config.StorefrontConfig
	now   func() time.Time
}

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	VariantID string    `json:"variant_id,omitempty" validate:"max=64"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=10000"`
}

func NewCartService(store repository.Store, cfg config.StorefrontConfig) *CartService {
	return &CartService{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// GetCart returns nil without error when the user has no cart.
func (s *CartService) GetCart(ctx context.Context, caller models.Caller, userID uuid.UUID) (*models.Cart, error) {
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}

	cart, err := s.store.Carts().Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err, "cart", userID)
	}
	return cart, nil
}

func (s *CartService) AddToCart(ctx context.Context, caller models.Caller, userID uuid.UUID, req *AddToCartRequest) (*models.Cart, error) {
	if err := requireSelf(caller, userID); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}
	if req.Quantity > s.cfg.MaxLineQuantity {
		return nil, invalid("quantity cannot exceed %d", s.cfg.MaxLineQuantity)
	}

	var saved *models.Cart
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		product, err := tx.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return storeErr(err, "product", req.ProductID)
		}
		if !product.IsActive {
			return invalid("product %s is not available", product.Name)
		}
		if req.VariantID != "" {
			if _, ok := product.FindVariant(req.VariantID); !ok {
				return invalid("product %s has no variant %q", product.Name, req.VariantID)
			}
		}

		now := s.now()
		cart, err := tx.Carts().GetOrCreate(ctx, userID, now)
		if err != nil {
			return storeErr(err, "cart", userID)
		}

		if existing, ok := cart.Line(req.ProductID, req.VariantID); ok && existing.Quantity > s.cfg.MaxLineQuantity-req.Quantity {
			return invalid("quantity cannot exceed %d", s.cfg.MaxLineQuantity)
		}
		cart.Merge(models.CartItem{
			ProductID:  req.ProductID,
			VariantID:  req.VariantID,
			Quantity:   req.Quantity,
			SelectedAt: now,
		}, now)
		if len(cart.Items) > s.cfg.MaxCartItems {
			return invalid("cart cannot hold more than %d lines", s.cfg.MaxCartItems)
		}

		if err := tx.Carts().Save(ctx, cart); err != nil {
			return storeErr(err, "cart", userID)
		}
		saved = cart
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": req.ProductID,
		"variant_id": req.VariantID,
		"quantity":   req.Quantity,
	}).Debug("Cart item added")
	return saved, nil
}

// RemoveFromCart drops the (productID, variantID) line. Removing a line that
// is not in the cart still succeeds.
func (s *CartService) RemoveFromCart(ctx context.Context, caller models.Caller, userID, productID uuid.UUID, variantID string) (*models.Cart, error) {
	if err := requireSelf(caller, userID); err != nil {
		return nil, err
	}

	var saved *models.Cart
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		cart, err := tx.Carts().Get(ctx, userID)
		if err != nil {
			return storeErr(err, "cart", userID)
		}
		cart.Remove(productID, variantID, s.now())
		if err := tx.Carts().Save(ctx, cart); err != nil {
			return storeErr(err, "cart", userID)
		}
		saved = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *CartService) ClearCart(ctx context.Context, caller models.Caller, userID uuid.UUID) error {
	if err := requireSelf(caller, userID); err != nil {
		return err
	}
	if err := s.store.Carts().Delete(ctx, userID); err != nil {
		return storeErr(err, "cart", userID)
	}
	return nil
}

// CleanupStaleCarts purges carts not touched for olderThan (the configured
// stale age when zero) in one batch.
func (s *CartService) CleanupStaleCarts(ctx context.Context, caller models.Caller, olderThan time.Duration) (int64, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if olderThan <= 0 {
		olderThan = s.cfg.StaleCartAge
	}

	cutoff := s.now().Add(-olderThan)
	var deleted int64
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		n, err := tx.Carts().DeleteUpdatedBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"cutoff":  cutoff,
		"deleted": deleted,
	}).Info("Stale carts cleaned up")
	return deleted, nil
}
