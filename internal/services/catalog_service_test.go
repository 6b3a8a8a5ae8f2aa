// internal/services/catalog_service_test.go
package services

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/utils"
)

func (suite *ServiceTestSuite) TestListProductsPagesNewestFirst() {
	for i := 0; i < 25; i++ {
		suite.addProduct(fmt.Sprintf("Sticker %02d", i), "3.00", 10)
		suite.advance(time.Minute)
	}

	first, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{PageParams: utils.PageParams{Page: 1, PageSize: 10}})
	suite.Require().NoError(err)
	suite.Len(first.Items, 10)
	suite.True(first.HasNext)
	suite.False(first.HasPrev)
	suite.Equal("Sticker 24", first.Items[0].Name)

	last, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{PageParams: utils.PageParams{Page: 3, PageSize: 10}})
	suite.Require().NoError(err)
	suite.Len(last.Items, 5)
	suite.False(last.HasNext)
	suite.True(last.HasPrev)

	clamped, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{PageParams: utils.PageParams{PageSize: 500}})
	suite.Require().NoError(err)
	suite.Equal(suite.cfg.MaxPageSize, clamped.PageSize)

	far, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{PageParams: utils.PageParams{Page: math.MaxInt/20 + 2, PageSize: 20}})
	suite.Require().NoError(err)
	suite.Empty(far.Items)
	suite.False(far.HasNext)
}

func (suite *ServiceTestSuite) TestListProductsFilters() {
	suite.addProduct("Pint Glass", "8.00", 10)
	suite.addProduct("Stein", "24.00", 0)
	gift := suite.addProduct("Gift Card", "50.00", 100)
	gift.Category = models.ProductCategoryGiftCards
	gift.Tags = []string{"gift"}
	suite.Require().NoError(suite.store.Products().Update(suite.ctx, gift))

	minPrice := decimal.RequireFromString("10")
	inStock := true
	page, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{MinPrice: &minPrice, InStock: &inStock})
	suite.Require().NoError(err)
	suite.Require().Len(page.Items, 1)
	suite.Equal("Gift Card", page.Items[0].Name)

	page, err = suite.catalog.ListProducts(suite.ctx, ProductSearchParams{Tags: []string{" GIFT "}})
	suite.Require().NoError(err)
	suite.Len(page.Items, 1)

	page, err = suite.catalog.ListProducts(suite.ctx, ProductSearchParams{Category: models.ProductCategoryDrinkware})
	suite.Require().NoError(err)
	suite.Len(page.Items, 2)

	maxPrice := decimal.RequireFromString("5")
	_, err = suite.catalog.ListProducts(suite.ctx, ProductSearchParams{MinPrice: &minPrice, MaxPrice: &maxPrice})
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.catalog.ListProducts(suite.ctx, ProductSearchParams{Category: "furniture"})
	suite.assertKind(err, ErrValidationFailed)
}

func (suite *ServiceTestSuite) TestInactiveProductsAreHiddenFromShoppers() {
	hidden := suite.addProduct("Prototype Stein", "30.00", 3)
	hidden.IsActive = false
	suite.Require().NoError(suite.store.Products().Update(suite.ctx, hidden))

	_, err := suite.catalog.GetProduct(suite.ctx, models.Anonymous(), hidden.ID)
	suite.assertKind(err, ErrNotFound)

	product, err := suite.catalog.GetProduct(suite.ctx, suite.adminCaller, hidden.ID)
	suite.Require().NoError(err)
	suite.False(product.IsActive)

	page, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{})
	suite.Require().NoError(err)
	suite.Empty(page.Items)

	_, err = suite.catalog.GetProduct(suite.ctx, models.Anonymous(), uuid.New())
	suite.assertKind(err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestCreateProductRequiresAdmin() {
	req := &CreateProductRequest{
		Name:     "Bier Stube Hoodie",
		Category: models.ProductCategoryApparel,
		Price:    decimal.RequireFromString("44.99"),
		Stock:    4,
		Tags:     []string{"Apparel", "apparel", "winter"},
	}

	_, err := suite.catalog.CreateProduct(suite.ctx, suite.shopper, req)
	suite.assertKind(err, ErrUnauthorized)
	_, err = suite.catalog.CreateProduct(suite.ctx, models.Anonymous(), req)
	suite.assertKind(err, ErrUnauthenticated)

	page, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{})
	suite.Require().NoError(err)
	suite.Empty(page.Items)

	product, err := suite.catalog.CreateProduct(suite.ctx, suite.adminCaller, req)
	suite.Require().NoError(err)
	suite.True(product.IsActive)
	suite.Equal([]string{"apparel", "winter"}, []string(product.Tags))
	suite.Equal(suite.clock, product.CreatedAt)
}

func (suite *ServiceTestSuite) TestCreateProductRejectsMismatchedVariants() {
	_, err := suite.catalog.CreateProduct(suite.ctx, suite.adminCaller, &CreateProductRequest{
		Name:     "Bier Stube Hoodie",
		Category: models.ProductCategoryApparel,
		Price:    decimal.RequireFromString("44.99"),
		Stock:    10,
		Variants: models.ProductVariants{
			{ID: "m", Name: "Size", Value: "Medium", Stock: 3},
			{ID: "l", Name: "Size", Value: "Large", Stock: 3},
		},
	})
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.catalog.CreateProduct(suite.ctx, suite.adminCaller, &CreateProductRequest{
		Name:     "Negative",
		Category: models.ProductCategoryApparel,
		Price:    decimal.RequireFromString("-1"),
	})
	suite.assertKind(err, ErrValidationFailed)
}

func (suite *ServiceTestSuite) TestUpdateProductByShopperChangesNothing() {
	stein := suite.addProduct("Stein", "12.50", 10)
	price := decimal.RequireFromString("0.01")

	_, err := suite.catalog.UpdateProduct(suite.ctx, suite.shopper, stein.ID, &ProductUpdate{Price: &price})
	suite.assertKind(err, ErrUnauthorized)

	stored := suite.reload(stein.ID)
	suite.True(stored.Price.Equal(decimal.RequireFromString("12.50")))
	suite.Equal(stein.UpdatedAt, stored.UpdatedAt)
}

func (suite *ServiceTestSuite) TestUpdateProductStampsUpdatedAt() {
	stein := suite.addProduct("Stein", "12.50", 10)
	created := stein.CreatedAt
	suite.advance(time.Hour)

	featured := true
	updated, err := suite.catalog.UpdateProduct(suite.ctx, suite.adminCaller, stein.ID, &ProductUpdate{IsFeatured: &featured})
	suite.Require().NoError(err)
	suite.True(updated.IsFeatured)
	suite.Equal(created, updated.CreatedAt)
	suite.Equal(suite.clock, updated.UpdatedAt)

	negative := -1
	_, err = suite.catalog.UpdateProduct(suite.ctx, suite.adminCaller, stein.ID, &ProductUpdate{Stock: &negative})
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.catalog.UpdateProduct(suite.ctx, suite.adminCaller, uuid.New(), &ProductUpdate{IsFeatured: &featured})
	suite.assertKind(err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestSearchAndFeaturedProducts() {
	suite.addProduct("Pint Glass", "8.00", 10)
	stein := suite.addProduct("Oktoberfest Stein", "24.00", 10)
	featured := true
	_, err := suite.catalog.UpdateProduct(suite.ctx, suite.adminCaller, stein.ID, &ProductUpdate{IsFeatured: &featured})
	suite.Require().NoError(err)

	matches, err := suite.catalog.SearchProducts(suite.ctx, "STEIN")
	suite.Require().NoError(err)
	suite.Require().Len(matches, 1)
	suite.Equal(stein.ID, matches[0].ID)

	_, err = suite.catalog.SearchProducts(suite.ctx, "   ")
	suite.assertKind(err, ErrValidationFailed)

	top, err := suite.catalog.GetFeaturedProducts(suite.ctx, 0)
	suite.Require().NoError(err)
	suite.Require().Len(top, 1)
	suite.Equal(stein.ID, top[0].ID)
}

func (suite *ServiceTestSuite) TestSearchWarnsAtScanLimit() {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	cfg := suite.cfg
	cfg.ReportScanLimit = 2
	catalog := NewCatalogService(suite.store, nil, cfg)
	suite.addProduct("Pint Glass", "8.00", 10)
	suite.addProduct("Stein", "12.50", 10)

	matches, err := catalog.SearchProducts(suite.ctx, "stein")
	suite.Require().NoError(err)
	suite.Len(matches, 1)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "Product search hit the scan limit" {
			warned = true
		}
	}
	suite.True(warned)
}

func (suite *ServiceTestSuite) newEventRequest(title string, start time.Time) *CreateEventRequest {
	return &CreateEventRequest{
		Title:     title,
		Category:  models.EventCategoryLiveMusic,
		StartDate: start,
		StartTime: "8:00 PM",
		Location:  models.EventLocation{Name: "Bier Stube", Address: "2438 N High St, Columbus, OH"},
	}
}

func (suite *ServiceTestSuite) TestEventsListByStartDate() {
	base := suite.clock
	for i, title := range []string{"Polka Night", "Trivia", "Oktoberfest"} {
		_, err := suite.catalog.CreateEvent(suite.ctx, suite.adminCaller,
			suite.newEventRequest(title, base.Add(time.Duration(3-i)*24*time.Hour)))
		suite.Require().NoError(err)
	}

	page, err := suite.catalog.ListEvents(suite.ctx, EventSearchParams{})
	suite.Require().NoError(err)
	suite.Require().Len(page.Items, 3)
	suite.Equal("Oktoberfest", page.Items[0].Title)
	suite.Equal("Polka Night", page.Items[2].Title)

	from := base.Add(36 * time.Hour)
	page, err = suite.catalog.ListEvents(suite.ctx, EventSearchParams{StartFrom: &from})
	suite.Require().NoError(err)
	suite.Len(page.Items, 2)

	to := base
	_, err = suite.catalog.ListEvents(suite.ctx, EventSearchParams{StartFrom: &from, StartTo: &to})
	suite.assertKind(err, ErrValidationFailed)
}

func (suite *ServiceTestSuite) TestEventLifecycle() {
	req := suite.newEventRequest("Game Day", suite.clock.Add(48*time.Hour))
	req.Category = models.EventCategoryGameDay
	inactive := false
	req.IsActive = &inactive

	_, err := suite.catalog.CreateEvent(suite.ctx, suite.shopper, req)
	suite.assertKind(err, ErrUnauthorized)

	event, err := suite.catalog.CreateEvent(suite.ctx, suite.adminCaller, req)
	suite.Require().NoError(err)

	_, err = suite.catalog.GetEvent(suite.ctx, models.Anonymous(), event.ID)
	suite.assertKind(err, ErrNotFound)

	active := true
	price := decimal.RequireFromString("15.00")
	updated, err := suite.catalog.UpdateEvent(suite.ctx, suite.adminCaller, event.ID, &EventUpdate{IsActive: &active, TicketPrice: &price})
	suite.Require().NoError(err)
	suite.True(updated.HasTickets())

	visible, err := suite.catalog.GetEvent(suite.ctx, models.Anonymous(), event.ID)
	suite.Require().NoError(err)
	suite.Equal("Game Day", visible.Title)

	earlier := event.StartDate.Add(-time.Hour)
	_, err = suite.catalog.UpdateEvent(suite.ctx, suite.adminCaller, event.ID, &EventUpdate{EndDate: &earlier})
	suite.assertKind(err, ErrValidationFailed)

	suite.Require().NoError(suite.catalog.DeleteEvent(suite.ctx, suite.adminCaller, event.ID))
	suite.assertKind(suite.catalog.DeleteEvent(suite.ctx, suite.adminCaller, event.ID), ErrNotFound)
}
