// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/cache"
	"github.com/bierstube/storefront/internal/config"
	"github.com/bierstube/storefront/internal/messaging"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
	"github.com/bierstube/storefront/internal/utils"
)

type OrderService struct {
	store     repository.Store
	publisher messaging.Publisher
	topics    messaging.Topics
	cache     cache.ProductCache
	cfg       config.StorefrontConfig
	now       func() time.Time
}

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	VariantID string    `json:"variant_id,omitempty" validate:"max=64"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=10000"`
}

// CreateOrderRequest places an order for either the listed Items or, when
// Items is empty, the contents of the user's cart.
type CreateOrderRequest struct {
	Items           []OrderLineRequest    `json:"items,omitempty" validate:"omitempty,dive"`
	CustomerInfo    models.CustomerInfo   `json:"customer_info"`
	ShippingAddress models.Address        `json:"shipping_address"`
	BillingAddress  *models.Address       `json:"billing_address,omitempty"`
	ShippingMethod  models.ShippingMethod `json:"shipping_method"`
	PaymentMethod   models.PaymentMethod  `json:"payment_method"`
	Tax             decimal.Decimal       `json:"tax" validate:"gte=0"`
	Shipping        decimal.Decimal       `json:"shipping" validate:"gte=0"`
	Discount        decimal.Decimal       `json:"discount" validate:"gte=0"`
	Currency        string                `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Notes           string                `json:"notes,omitempty" validate:"max=1000"`
}

type UpdateOrderStatusRequest struct {
	Status         models.OrderStatus `json:"status" validate:"required,order_status"`
	TrackingNumber string             `json:"tracking_number,omitempty" validate:"max=100"`
}

func NewOrderService(
	store repository.Store,
	publisher messaging.Publisher,
	topics messaging.Topics,
	productCache cache.ProductCache,
	cfg config.StorefrontConfig,
) *OrderService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if productCache == nil {
		productCache = cache.NopProductCache{}
	}
	return &OrderService{
		store:     store,
		publisher: publisher,
		topics:    topics,
		cache:     productCache,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateOrder prices the lines, inserts the order, takes the units out of
// stock and clears the user's cart in one transaction. If any line cannot be
// filled nothing is written.
func (s *OrderService) CreateOrder(ctx context.Context, caller models.Caller, userID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if err := requireSelf(caller, userID); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}
	if len(req.Items) > s.cfg.MaxOrderItems {
		return nil, invalid("an order cannot have more than %d lines", s.cfg.MaxOrderItems)
	}
	for _, item := range req.Items {
		if item.Quantity > s.cfg.MaxLineQuantity {
			return nil, invalid("quantity cannot exceed %d", s.cfg.MaxLineQuantity)
		}
	}
	if req.ShippingMethod.Price.IsNegative() {
		return nil, invalid("shipping method price must not be negative")
	}

	var order *models.Order
	var touched []uuid.UUID
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		lines, err := s.resolveLines(ctx, tx, userID, req.Items)
		if err != nil {
			return err
		}

		now := s.now()
		order = s.newOrder(userID, req, now)

		products := make(map[uuid.UUID]*models.Product)
		touched = touched[:0]
		for _, line := range lines {
			product, ok := products[line.ProductID]
			if !ok {
				product, err = tx.Products().FindByID(ctx, line.ProductID)
				if err != nil {
					return storeErr(err, "product", line.ProductID)
				}
				products[line.ProductID] = product
				touched = append(touched, product.ID)
			}

			item, err := reserve(product, line)
			if err != nil {
				return err
			}
			order.Items = append(order.Items, item)
		}

		order.ComputeTotals()
		if order.Total.IsNegative() {
			return invalid("discount exceeds order value")
		}
		if err := order.Validate(); err != nil {
			return invalidErr(err)
		}

		order.OrderNumber, err = s.allocateOrderNumber(ctx, tx, now)
		if err != nil {
			return err
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: order number %s already taken", ErrTransactionFailed, order.OrderNumber)
			}
			return storeErr(err, "order", order.ID)
		}

		for _, id := range touched {
			product := products[id]
			product.UpdatedAt = now
			if err := tx.Products().Update(ctx, product); err != nil {
				return storeErr(err, "product", id)
			}
		}

		if err := tx.Carts().Delete(ctx, userID); err != nil {
			return storeErr(err, "cart", userID)
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("Order creation failed")
		return nil, err
	}

	s.cache.Invalidate(ctx, touched...)
	s.publish(ctx, s.topics.OrderPlaced, order.ID, messaging.NewOrderPlaced(order))

	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"user_id":      userID,
		"total":        order.Total.StringFixed(2),
		"lines":        len(order.Items),
	}).Info("Order created")
	return order, nil
}

func (s *OrderService) resolveLines(ctx context.Context, tx repository.Store, userID uuid.UUID, direct []OrderLineRequest) ([]OrderLineRequest, error) {
	if len(direct) > 0 {
		return direct, nil
	}

	cart, err := tx.Carts().Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("cart is empty")
	}
	if err != nil {
		return nil, storeErr(err, "cart", userID)
	}
	if len(cart.Items) == 0 {
		return nil, invalid("cart is empty")
	}
	if len(cart.Items) > s.cfg.MaxOrderItems {
		return nil, invalid("an order cannot have more than %d lines", s.cfg.MaxOrderItems)
	}

	lines := make([]OrderLineRequest, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.Quantity < 1 || item.Quantity > s.cfg.MaxLineQuantity {
			return nil, invalid("cart line %s has quantity %d", item.ProductID, item.Quantity)
		}
		lines = append(lines, OrderLineRequest{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

// reserve checks one line against the (possibly already decremented) product,
// takes the units out of stock and returns the priced snapshot.
func reserve(product *models.Product, line OrderLineRequest) (models.OrderItem, error) {
	if !product.IsActive {
		return models.OrderItem{}, invalid("product %s is not available", product.Name)
	}

	item := models.OrderItem{
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductImage: product.MainImage(),
		Quantity:     line.Quantity,
		UnitPrice:    product.UnitPrice(line.VariantID),
		SKU:          product.SKU,
	}
	if line.VariantID != "" {
		i, ok := product.FindVariant(line.VariantID)
		if !ok {
			return models.OrderItem{}, invalid("product %s has no variant %q", product.Name, line.VariantID)
		}
		variant := product.Variants[i]
		item.VariantID = variant.ID
		item.VariantName = strings.TrimSpace(variant.Name + " " + variant.Value)
		if variant.SKU != "" {
			item.SKU = variant.SKU
		}
	}

	available := product.AvailableStock(line.VariantID)
	if available < line.Quantity {
		return models.OrderItem{}, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			VariantID:   line.VariantID,
			Available:   available,
			Requested:   line.Quantity,
		}
	}
	if err := product.AdjustStock(line.VariantID, -line.Quantity); err != nil {
		return models.OrderItem{}, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
	}

	item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	return item, nil
}

func (s *OrderService) newOrder(userID uuid.UUID, req *CreateOrderRequest, now time.Time) *models.Order {
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.cfg.Currency
	}
	shipping := req.Shipping
	if shipping.IsZero() {
		shipping = req.ShippingMethod.Price
	}
	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	order := &models.Order{
		UserID:          userID,
		CustomerInfo:    req.CustomerInfo,
		Items:           make(models.OrderItems, 0, len(req.Items)),
		Tax:             req.Tax,
		Shipping:        shipping,
		Discount:        req.Discount,
		Currency:        currency,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		ShippingMethod:  req.ShippingMethod,
		Notes:           req.Notes,
	}
	order.ID = uuid.New()
	order.CreatedAt = now
	order.UpdatedAt = now
	return order
}

func (s *OrderService) allocateOrderNumber(ctx context.Context, tx repository.Store, now time.Time) (string, error) {
	attempts := s.cfg.OrderNumberAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		number, err := utils.GenerateOrderNumber(s.cfg.OrderNumberPrefix, now)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrTransactionFailed, err)
		}
		exists, err := tx.Orders().ExistsOrderNumber(ctx, number)
		if err != nil {
			return "", storeErr(err, "order number", number)
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("%w: no free order number after %d attempts", ErrTransactionFailed, attempts)
}

// UpdateOrderStatus moves an order along its status machine. Entering
// cancelled or refunded puts every line back into stock in the same
// transaction.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, caller models.Caller, orderID uuid.UUID, req *UpdateOrderStatusRequest) (*models.Order, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}

	var order *models.Order
	var from models.OrderStatus
	var restocked []uuid.UUID
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		var err error
		order, err = tx.Orders().FindByID(ctx, orderID)
		if err != nil {
			return storeErr(err, "order", orderID)
		}

		from = order.Status
		if !from.CanTransitionTo(req.Status) {
			return &TransitionError{From: from, To: req.Status}
		}

		now := s.now()
		order.Status = req.Status
		order.UpdatedAt = now
		if req.Status == models.OrderStatusShipped && req.TrackingNumber != "" {
			order.TrackingNumber = req.TrackingNumber
		}
		if req.Status == models.OrderStatusRefunded {
			order.PaymentStatus = models.PaymentStatusRefunded
		}

		restocked = restocked[:0]
		if req.Status.ReleasesStock() {
			restocked, err = s.restock(ctx, tx, order, now)
			if err != nil {
				return err
			}
		}

		if err := tx.Orders().Update(ctx, order); err != nil {
			return storeErr(err, "order", orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, restocked...)
	s.publish(ctx, s.topics.OrderStatusChanged, order.ID, messaging.OrderStatusChanged{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		From:           from,
		To:             order.Status,
		TrackingNumber: order.TrackingNumber,
		Restocked:      len(restocked) > 0,
		ChangedAt:      order.UpdatedAt,
	})

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     from,
		"to":       order.Status,
	}).Info("Order status updated")
	return order, nil
}

// restock returns the order's units to inventory. Lines whose product or
// variant no longer exists are skipped.
func (s *OrderService) restock(ctx context.Context, tx repository.Store, order *models.Order, now time.Time) ([]uuid.UUID, error) {
	products := make(map[uuid.UUID]*models.Product)
	var ids []uuid.UUID

	for _, item := range order.Items {
		product, ok := products[item.ProductID]
		if !ok {
			found, err := tx.Products().FindByID(ctx, item.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				logrus.WithFields(logrus.Fields{
					"order_id":   order.ID,
					"product_id": item.ProductID,
				}).Warn("Product gone, line not restocked")
				continue
			}
			if err != nil {
				return nil, storeErr(err, "product", item.ProductID)
			}
			product = found
			products[item.ProductID] = product
			ids = append(ids, product.ID)
		}

		if err := product.AdjustStock(item.VariantID, item.Quantity); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
				"variant_id": item.VariantID,
			}).Warn("Line not restocked")
		}
	}

	for _, id := range ids {
		product := products[id]
		product.UpdatedAt = now
		if err := tx.Products().Update(ctx, product); err != nil {
			return nil, storeErr(err, "product", id)
		}
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"products": len(ids),
	}).Info("Order stock restored")
	return ids, nil
}

func (s *OrderService) GetOrder(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Order, error) {
	if err := requireAuthenticated(caller); err != nil {
		return nil, err
	}
	order, err := s.store.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "order", id)
	}
	if err := requireOwnerOrAdmin(caller, order.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// GetUserOrders lists the user's orders, newest first.
func (s *OrderService) GetUserOrders(ctx context.Context, caller models.Caller, userID uuid.UUID) ([]models.Order, error) {
	if err := requireOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	orders, err := s.store.Orders().List(ctx, repository.OrderFilter{UserID: &userID, Limit: s.cfg.ReportScanLimit})
	if err != nil {
		return nil, storeErr(err, "orders", userID)
	}
	return orders, nil
}

func (s *OrderService) GetOrdersByStatus(ctx context.Context, caller models.Caller, status models.OrderStatus) ([]models.Order, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, invalid("unknown order status %q", status)
	}
	orders, err := s.store.Orders().List(ctx, repository.OrderFilter{
		Statuses: []models.OrderStatus{status},
		Limit:    s.cfg.ReportScanLimit,
	})
	if err != nil {
		return nil, storeErr(err, "orders", status)
	}
	return orders, nil
}

// publish is best effort: the order is already committed.
func (s *OrderService) publish(ctx context.Context, topic string, key uuid.UUID, event any) {
	if topic == "" {
		return
	}
	if err := s.publisher.PublishEvent(ctx, topic, key.String(), event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"topic": topic,
			"key":   key,
		}).Error("Failed to publish order event")
	}
}
