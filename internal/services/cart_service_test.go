// internal/services/cart_service_test.go
package services

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bierstube/storefront/internal/models"
)

func (suite *ServiceTestSuite) TestAddToCartMergesSameLine() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	shirt := suite.addShirt()

	add := func(productID uuid.UUID, variantID string, qty int) *models.Cart {
		cart, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
			&AddToCartRequest{ProductID: productID, VariantID: variantID, Quantity: qty})
		suite.Require().NoError(err)
		return cart
	}

	add(glass.ID, "", 2)
	cart := add(glass.ID, "", 2)
	suite.Require().Len(cart.Items, 1)
	suite.Equal(4, cart.Items[0].Quantity)

	add(shirt.ID, "s", 1)
	cart = add(shirt.ID, "m", 1)
	suite.Len(cart.Items, 3)
	suite.Equal(6, cart.TotalQuantity())
}

func (suite *ServiceTestSuite) TestConcurrentAddsToSameCartBothLand() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
				&AddToCartRequest{ProductID: glass.ID, Quantity: 2})
			suite.NoError(err)
		}()
	}
	wg.Wait()

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.Require().NoError(err)
	suite.Require().Len(cart.Items, 1)
	suite.Equal(4, cart.Items[0].Quantity)
}

func (suite *ServiceTestSuite) TestAddToCartRejectsUnavailableProducts() {
	hidden := suite.addProduct("Retired Stein", "12.50", 10)
	hidden.IsActive = false
	suite.Require().NoError(suite.store.Products().Update(suite.ctx, hidden))
	shirt := suite.addShirt()

	_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: hidden.ID, Quantity: 1})
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: uuid.New(), Quantity: 1})
	suite.assertKind(err, ErrNotFound)

	_, err = suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: shirt.ID, VariantID: "xxl", Quantity: 1})
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: shirt.ID, Quantity: 0})
	suite.assertKind(err, ErrValidationFailed)

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.NoError(err)
	suite.Nil(cart)
}

func (suite *ServiceTestSuite) TestAddToCartEnforcesLineLimit() {
	suite.carts.cfg.MaxCartItems = 2
	for i, name := range []string{"Stein", "Opener", "Coasters"} {
		product := suite.addProduct(name, "5.00", 10)
		_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
			&AddToCartRequest{ProductID: product.ID, Quantity: 1})
		if i < 2 {
			suite.Require().NoError(err)
		} else {
			suite.assertKind(err, ErrValidationFailed)
		}
	}

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.Require().NoError(err)
	suite.Len(cart.Items, 2)
}

func (suite *ServiceTestSuite) TestCartBelongsToItsOwner() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: glass.ID, Quantity: 1})
	suite.Require().NoError(err)

	_, err = suite.carts.GetCart(suite.ctx, suite.stranger, suite.shopper.UID)
	suite.assertKind(err, ErrUnauthorized)

	_, err = suite.carts.AddToCart(suite.ctx, suite.stranger, suite.shopper.UID,
		&AddToCartRequest{ProductID: glass.ID, Quantity: 1})
	suite.assertKind(err, ErrUnauthorized)

	_, err = suite.carts.GetCart(suite.ctx, models.Anonymous(), suite.shopper.UID)
	suite.assertKind(err, ErrUnauthenticated)

	cart, err := suite.carts.GetCart(suite.ctx, suite.adminCaller, suite.shopper.UID)
	suite.Require().NoError(err)
	suite.Equal(1, cart.TotalQuantity())
}

func (suite *ServiceTestSuite) TestRemoveFromCartIsIdempotent() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	stein := suite.addProduct("Stein", "12.50", 10)

	_, err := suite.carts.RemoveFromCart(suite.ctx, suite.shopper, suite.shopper.UID, glass.ID, "")
	suite.assertKind(err, ErrNotFound)

	for _, id := range []uuid.UUID{glass.ID, stein.ID} {
		_, err = suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
			&AddToCartRequest{ProductID: id, Quantity: 1})
		suite.Require().NoError(err)
	}

	for i := 0; i < 2; i++ {
		cart, err := suite.carts.RemoveFromCart(suite.ctx, suite.shopper, suite.shopper.UID, glass.ID, "")
		suite.Require().NoError(err)
		suite.Require().Len(cart.Items, 1)
		suite.Equal(stein.ID, cart.Items[0].ProductID)
	}
}

func (suite *ServiceTestSuite) TestClearCartIsIdempotent() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: glass.ID, Quantity: 3})
	suite.Require().NoError(err)

	suite.NoError(suite.carts.ClearCart(suite.ctx, suite.shopper, suite.shopper.UID))
	suite.NoError(suite.carts.ClearCart(suite.ctx, suite.shopper, suite.shopper.UID))

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.NoError(err)
	suite.Nil(cart)
}

func (suite *ServiceTestSuite) TestCleanupStaleCarts() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
		&AddToCartRequest{ProductID: glass.ID, Quantity: 1})
	suite.Require().NoError(err)

	suite.advance(31 * 24 * time.Hour)
	_, err = suite.carts.AddToCart(suite.ctx, suite.stranger, suite.stranger.UID,
		&AddToCartRequest{ProductID: glass.ID, Quantity: 1})
	suite.Require().NoError(err)

	_, err = suite.carts.CleanupStaleCarts(suite.ctx, suite.shopper, 0)
	suite.assertKind(err, ErrUnauthorized)

	deleted, err := suite.carts.CleanupStaleCarts(suite.ctx, suite.adminCaller, 0)
	suite.Require().NoError(err)
	suite.EqualValues(1, deleted)

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.NoError(err)
	suite.Nil(cart)

	cart, err = suite.carts.GetCart(suite.ctx, suite.stranger, suite.stranger.UID)
	suite.NoError(err)
	suite.NotNil(cart)
}

func (suite *ServiceTestSuite) TestAddToCartCapsLineQuantity() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	add := func(qty int) error {
		_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID,
			&AddToCartRequest{ProductID: glass.ID, Quantity: qty})
		return err
	}

	suite.assertKind(add(math.MaxInt), ErrValidationFailed)
	suite.assertKind(add(suite.cfg.MaxLineQuantity+1), ErrValidationFailed)

	suite.Require().NoError(add(suite.cfg.MaxLineQuantity - 1))
	suite.Require().NoError(add(1))
	suite.assertKind(add(1), ErrValidationFailed)

	cart, err := suite.carts.GetCart(suite.ctx, suite.shopper, suite.shopper.UID)
	suite.Require().NoError(err)
	suite.Require().Len(cart.Items, 1)
	suite.Equal(suite.cfg.MaxLineQuantity, cart.Items[0].Quantity)
}

func (suite *ServiceTestSuite) TestCreateOrderRejectsOversizedLine() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)

	_, err := suite.orders.CreateOrder(suite.ctx, suite.shopper, suite.shopper.UID,
		suite.checkout(line(glass.ID, "", suite.cfg.MaxLineQuantity+1)))
	suite.assertKind(err, ErrValidationFailed)
	suite.Equal(10, suite.reload(glass.ID).Stock)
}
