// internal/services/order_service_test.go
package services

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bierstube/storefront/internal/messaging"
	"github.com/bierstube/storefront/internal/models"
)

func (suite *ServiceTestSuite) TestCreateOrderPricesLinesAndTakesStock() {
	stein := suite.addProduct("Stein", "12.50", 10)

	req := suite.checkout(line(stein.ID, "", 3))
	req.Tax = decimal.RequireFromString("2.00")
	req.Shipping = decimal.RequireFromString("5.00")

	order, err := suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID, req)
	suite.Require().NoError(err)

	suite.Equal(models.OrderStatusPending, order.Status)
	suite.Equal(models.PaymentStatusPending, order.PaymentStatus)
	suite.Equal("USD", order.Currency)
	suite.True(strings.HasPrefix(order.OrderNumber, "BS"))
	suite.True(order.Subtotal.Equal(decimal.RequireFromString("37.50")))
	suite.True(order.Total.Equal(decimal.RequireFromString("44.50")))
	suite.Equal(order.ShippingAddress, order.BillingAddress)

	suite.Require().Len(order.Items, 1)
	suite.Equal("Stein", order.Items[0].ProductName)
	suite.True(order.Items[0].TotalPrice.Equal(decimal.RequireFromString("37.50")))

	suite.Equal(7, suite.reload(stein.ID).Stock)

	published := suite.publisher.Published()
	suite.Require().Len(published, 1)
	suite.Equal("orders.placed", published[0].Topic)
	placed, ok := published[0].Event.(messaging.OrderPlaced)
	suite.Require().True(ok)
	suite.Equal(order.ID, placed.OrderID)
}

func (suite *ServiceTestSuite) TestCreateOrderFromCartClearsCart() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)

	for i := 0; i < 2; i++ {
		_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
			&AddToCartRequest{ProductID: glass.ID, Quantity: 2})
		suite.Require().NoError(err)
	}

	order := suite.placeOrder()
	suite.Require().Len(order.Items, 1)
	suite.Equal(4, order.Items[0].Quantity)
	suite.Equal(6, suite.reload(glass.ID).Stock)

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.NoError(err)
	suite.Nil(cart)
}

func (suite *ServiceTestSuite) TestCreateOrderWithEmptyCartIsRejected() {
	_, err := suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID, suite.checkout())
	suite.assertKind(err, ErrValidationFailed)
}

func (suite *ServiceTestSuite) TestCreateOrderWritesNothingWhenOneLineFails() {
	opener := suite.addProduct("Bottle Opener", "6.00", 5)
	stein := suite.addProduct("Stein", "12.50", 1)
	coasters := suite.addProduct("Coasters", "9.00", 5)

	_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: opener.ID, Quantity: 1})
	suite.Require().NoError(err)

	_, err = suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID, suite.checkout(
		line(opener.ID, "", 2),
		line(stein.ID, "", 2),
		line(coasters.ID, "", 1),
	))
	suite.assertKind(err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	suite.Require().True(errors.As(err, &stockErr))
	suite.Equal(stein.ID, stockErr.ProductID)
	suite.Equal(1, stockErr.Available)
	suite.Equal(2, stockErr.Requested)

	suite.Equal(5, suite.reload(opener.ID).Stock)
	suite.Equal(1, suite.reload(stein.ID).Stock)
	suite.Equal(5, suite.reload(coasters.ID).Stock)

	orders, err := suite.orders.GetUserOrders(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.NoError(err)
	suite.Empty(orders)

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.NoError(err)
	suite.Require().NotNil(cart)
	suite.Len(cart.Items, 1)
}

func (suite *ServiceTestSuite) TestCreateOrderCountsRepeatedLinesAgainstStock() {
	stein := suite.addProduct("Stein", "12.50", 3)

	_, err := suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID, suite.checkout(
		line(stein.ID, "", 2),
		line(stein.ID, "", 2),
	))
	suite.assertKind(err, ErrInsufficientStock)
	suite.Equal(3, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestCreateOrderTakesVariantAndParentStock() {
	shirt := suite.addShirt()

	order := suite.placeOrder(line(shirt.ID, "m", 3))
	suite.Equal("Size Medium", order.Items[0].VariantName)
	suite.Equal("TS-M", order.Items[0].SKU)

	stored := suite.reload(shirt.ID)
	suite.Equal(2, stored.Stock)
	suite.Equal(0, stored.Variants[1].Stock)
	suite.Equal(2, stored.Variants[0].Stock)
	suite.Equal(stored.Stock, stored.VariantStockTotal())

	_, err := suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID,
		suite.checkout(line(shirt.ID, "m", 1)))
	suite.assertKind(err, ErrInsufficientStock)

	_, err = suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID,
		suite.checkout(line(shirt.ID, "xl", 1)))
	suite.assertKind(err, ErrValidationFailed)
}

func (suite *ServiceTestSuite) TestConcurrentOrdersNeverOversell() {
	stein := suite.addProduct("Stein", "12.50", 5)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buyer := models.Caller{UID: uuid.New()}
			_, err := suite.orders.CreateOrder(suite.ctx, buyer, buyer.UID, suite.checkout(line(stein.ID, "", 1)))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	placed, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			placed++
		case errors.Is(err, ErrInsufficientStock):
			rejected++
		default:
			suite.Failf("unexpected error", "%v", err)
		}
	}
	suite.Equal(5, placed)
	suite.Equal(5, rejected)
	suite.Equal(0, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestOrderSnapshotIgnoresCatalogEdits() {
	stein := suite.addProduct("Stein", "12.50", 10)
	order := suite.placeOrder(line(stein.ID, "", 1))

	name := "Stein Deluxe"
	price := decimal.RequireFromString("99.00")
	_, err := suite.catalog.UpdateProduct(suite.ctx, suite.adminCaller, stein.ID, &ProductUpdate{Name: &name, Price: &price})
	suite.Require().NoError(err)

	stored, err := suite.orders.GetOrder(suite.ctx, suite.shopper, order.ID)
	suite.Require().NoError(err)
	suite.Equal("Stein", stored.Items[0].ProductName)
	suite.True(stored.Items[0].UnitPrice.Equal(decimal.RequireFromString("12.50")))
	suite.True(stored.Total.Equal(order.Total))
}

func (suite *ServiceTestSuite) TestCreateOrderRequiresTheOwner() {
	stein := suite.addProduct("Stein", "12.50", 10)

	_, err := suite.orders.CreateOrder(suite.ctx, suite.stranger, suite.shopper.UID, suite.checkout(line(stein.ID, "", 1)))
	suite.assertKind(err, ErrUnauthorized)

	_, err = suite.orders.CreateOrder(suite.ctx, models.Anonymous(), suite.shopper.UID, suite.checkout(line(stein.ID, "", 1)))
	suite.assertKind(err, ErrUnauthenticated)

	suite.Equal(10, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestCreateOrderCommitFailure() {
	stein := suite.addProduct("Stein", "12.50", 10)
	suite.store.FailNextCommit(errors.New("write conflict"))

	_, err := suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID, suite.checkout(line(stein.ID, "", 2)))
	suite.assertKind(err, ErrTransactionFailed)
	suite.Equal(10, suite.reload(stein.ID).Stock)
	suite.Empty(suite.publisher.Published())
}

func (suite *ServiceTestSuite) TestCreateOrderSurvivesPublishFailure() {
	stein := suite.addProduct("Stein", "12.50", 10)
	suite.publisher.err = errors.New("broker down")

	order := suite.placeOrder(line(stein.ID, "", 1))
	suite.NotEqual(uuid.Nil, order.ID)
	suite.Equal(9, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestCreateOrderRejectsDiscountAboveValue() {
	stein := suite.addProduct("Stein", "12.50", 10)
	req := suite.checkout(line(stein.ID, "", 1))
	req.Discount = decimal.RequireFromString("20.00")

	_, err := suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID, req)
	suite.assertKind(err, ErrValidationFailed)
	suite.Equal(10, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestUpdateOrderStatusFollowsLifecycle() {
	stein := suite.addProduct("Stein", "12.50", 10)
	order := suite.placeOrder(line(stein.ID, "", 1))

	_, err := suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusShipped})
	suite.assertKind(err, ErrInvalidTransition)
	var transition *TransitionError
	suite.Require().True(errors.As(err, &transition))
	suite.Equal(models.OrderStatusPending, transition.From)

	_, err = suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusPending})
	suite.assertKind(err, ErrInvalidTransition)

	for _, status := range []models.OrderStatus{
		models.OrderStatusConfirmed, models.OrderStatusProcessing, models.OrderStatusShipped,
	} {
		_, err = suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
			&UpdateOrderStatusRequest{Status: status, TrackingNumber: "1Z999"})
		suite.Require().NoError(err)
	}

	shipped, err := suite.orders.GetOrder(suite.ctx, suite.adminCaller, order.ID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusShipped, shipped.Status)
	suite.Equal("1Z999", shipped.TrackingNumber)

	_, err = suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusDelivered})
	suite.Require().NoError(err)

	_, err = suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})
	suite.assertKind(err, ErrInvalidTransition)
	suite.Equal(9, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestCancelReturnsStock() {
	shirt := suite.addShirt()
	stein := suite.addProduct("Stein", "12.50", 10)
	order := suite.placeOrder(line(shirt.ID, "s", 2), line(stein.ID, "", 4))

	updated, err := suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusCancelled, updated.Status)

	restored := suite.reload(shirt.ID)
	suite.Equal(5, restored.Stock)
	suite.Equal(2, restored.Variants[0].Stock)
	suite.Equal(10, suite.reload(stein.ID).Stock)

	published := suite.publisher.Published()
	suite.Require().Len(published, 2)
	changed, ok := published[1].Event.(messaging.OrderStatusChanged)
	suite.Require().True(ok)
	suite.Equal(models.OrderStatusPending, changed.From)
	suite.Equal(models.OrderStatusCancelled, changed.To)
	suite.True(changed.Restocked)
}

func (suite *ServiceTestSuite) TestRefundMarksPaymentAndRestocks() {
	stein := suite.addProduct("Stein", "12.50", 10)
	order := suite.placeOrder(line(stein.ID, "", 3))

	_, err := suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusConfirmed})
	suite.Require().NoError(err)

	refunded, err := suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusRefunded})
	suite.Require().NoError(err)
	suite.Equal(models.PaymentStatusRefunded, refunded.PaymentStatus)
	suite.Equal(10, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestCancelSkipsDeletedProducts() {
	stein := suite.addProduct("Stein", "12.50", 10)
	pin := suite.addProduct("Enamel Pin", "5.00", 10)
	order := suite.placeOrder(line(stein.ID, "", 2), line(pin.ID, "", 1))

	suite.Require().NoError(suite.catalog.DeleteProduct(suite.ctx, suite.adminCaller, pin.ID))

	_, err := suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})
	suite.Require().NoError(err)
	suite.Equal(10, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestUpdateOrderStatusRequiresAdmin() {
	stein := suite.addProduct("Stein", "12.50", 10)
	order := suite.placeOrder(line(stein.ID, "", 2))

	_, err := suite.orders.UpdateOrderStatus(suite.ctx, suite.shopper, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusCancelled})
	suite.assertKind(err, ErrUnauthorized)

	stored, err := suite.orders.GetOrder(suite.ctx, suite.shopper, order.ID)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusPending, stored.Status)
	suite.Equal(8, suite.reload(stein.ID).Stock)
}

func (suite *ServiceTestSuite) TestGetOrderVisibility() {
	stein := suite.addProduct("Stein", "12.50", 10)
	order := suite.placeOrder(line(stein.ID, "", 1))

	_, err := suite.orders.GetOrder(suite.ctx, suite.stranger, order.ID)
	suite.assertKind(err, ErrUnauthorized)

	_, err = suite.orders.GetOrder(suite.ctx, models.Anonymous(), order.ID)
	suite.assertKind(err, ErrUnauthenticated)

	_, err = suite.orders.GetOrder(suite.ctx, suite.adminCaller, order.ID)
	suite.NoError(err)

	_, err = suite.orders.GetOrder(suite.ctx, suite.adminCaller, uuid.New())
	suite.assertKind(err, ErrNotFound)

	_, err = suite.orders.GetUserOrders(suite.ctx, suite.stranger, suite.shopper.UID)
	suite.assertKind(err, ErrUnauthorized)
}

func (suite *ServiceTestSuite) TestGetOrdersByStatus() {
	stein := suite.addProduct("Stein", "12.50", 10)
	first := suite.placeOrder(line(stein.ID, "", 1))
	suite.placeOrder(line(stein.ID, "", 1))

	_, err := suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, first.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusConfirmed})
	suite.Require().NoError(err)

	confirmed, err := suite.orders.GetOrdersByStatus(suite.ctx, suite.adminCaller, models.OrderStatusConfirmed)
	suite.Require().NoError(err)
	suite.Require().Len(confirmed, 1)
	suite.Equal(first.ID, confirmed[0].ID)

	_, err = suite.orders.GetOrdersByStatus(suite.ctx, suite.adminCaller, models.OrderStatus("lost"))
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.orders.GetOrdersByStatus(suite.ctx, suite.shopper, models.OrderStatusPending)
	suite.assertKind(err, ErrUnauthorized)
}
