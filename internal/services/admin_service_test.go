// internal/services/admin_service_test.go
package services

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bierstube/storefront/internal/config"
	"github.com/bierstube/storefront/internal/models"
)

type fakeS3 struct {
	s3iface.S3API
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[aws.StringValue(input.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (suite *ServiceTestSuite) TestDashboardStats() {
	_, err := suite.auth.Register(suite.ctx, &RegisterRequest{Email: "greta@example.com", Password: "Prost2025"})
	suite.Require().NoError(err)

	stein := suite.addProduct("Stein", "12.50", 10)
	suite.addProduct("Empty", "5.00", 0)
	_, err = suite.catalog.CreateEvent(suite.ctx, suite.adminCaller, suite.newEventRequest("Polka Night", suite.clock.Add(24*time.Hour)))
	suite.Require().NoError(err)

	order := suite.placeOrder(line(stein.ID, "", 2))
	_, err = suite.orders.UpdateOrderStatus(suite.ctx, suite.adminCaller, order.ID,
		&UpdateOrderStatusRequest{Status: models.OrderStatusConfirmed})
	suite.Require().NoError(err)
	suite.placeOrder(line(stein.ID, "", 1))
	_, err = suite.carts.AddToCart(suite.ctx, suite.stranger, suite.stranger.UID, &AddToCartRequest{ProductID: stein.ID, Quantity: 1})
	suite.Require().NoError(err)

	_, err = suite.admin.GetDashboardStats(suite.ctx, suite.shopper)
	suite.assertKind(err, ErrUnauthorized)

	stats, err := suite.admin.GetDashboardStats(suite.ctx, suite.adminCaller)
	suite.Require().NoError(err)
	suite.Equal(1, stats.TotalUsers)
	suite.Equal(1, stats.NewUsersThisMonth)
	suite.Equal(2, stats.ActiveProducts)
	suite.Equal(1, stats.OutOfStock)
	suite.Equal(1, stats.UpcomingEvents)
	suite.Equal(1, stats.OpenCarts)
	suite.Equal(1, stats.OrdersByStatus[models.OrderStatusConfirmed])
	suite.Equal(1, stats.OrdersByStatus[models.OrderStatusPending])
	suite.True(stats.RevenueToDate.Equal(decimal.RequireFromString("25.00")))
}

func (suite *ServiceTestSuite) TestDeleteUserRemovesProfileAndCart() {
	resp := suite.register("greta@example.com")
	greta := models.Caller{UID: resp.User.ID}
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	_, err := suite.carts.AddToCart(suite.ctx, greta, greta.UID, &AddToCartRequest{ProductID: glass.ID, Quantity: 1})
	suite.Require().NoError(err)

	suite.assertKind(suite.admin.DeleteUser(suite.ctx, greta, greta.UID), ErrUnauthorized)
	suite.assertKind(suite.admin.DeleteUser(suite.ctx, suite.adminCaller, suite.adminCaller.UID), ErrValidationFailed)

	suite.store.FailNextCommit(errors.New("write conflict"))
	suite.assertKind(suite.admin.DeleteUser(suite.ctx, suite.adminCaller, greta.UID), ErrTransactionFailed)
	_, err = suite.store.Users().FindByID(suite.ctx, greta.UID)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.admin.DeleteUser(suite.ctx, suite.adminCaller, greta.UID))
	_, err = suite.auth.Me(suite.ctx, greta)
	suite.assertKind(err, ErrNotFound)
	cart, err := suite.carts.GetCart(suite.ctx, greta, greta.UID)
	suite.NoError(err)
	suite.Nil(cart)

	suite.assertKind(suite.admin.DeleteUser(suite.ctx, suite.adminCaller, greta.UID), ErrNotFound)
}

func (suite *ServiceTestSuite) TestInitializeSampleData() {
	_, err := suite.admin.InitializeSampleData(suite.ctx, suite.shopper)
	suite.assertKind(err, ErrUnauthorized)

	result, err := suite.admin.InitializeSampleData(suite.ctx, suite.adminCaller)
	suite.Require().NoError(err)
	suite.Equal(10, result.ProductsCreated)
	suite.Equal(8, result.EventsCreated)

	products, err := suite.catalog.SearchProducts(suite.ctx, "t-shirt")
	suite.Require().NoError(err)
	suite.Require().NotEmpty(products)
	suite.Equal(products[0].Stock, products[0].VariantStockTotal())
}

func (suite *ServiceTestSuite) TestInitializeSampleDataIsAllOrNothing() {
	suite.store.FailNextCommit(errors.New("write conflict"))

	_, err := suite.admin.InitializeSampleData(suite.ctx, suite.adminCaller)
	suite.assertKind(err, ErrTransactionFailed)

	page, err := suite.catalog.ListProducts(suite.ctx, ProductSearchParams{})
	suite.Require().NoError(err)
	suite.Empty(page.Items)
}

func (suite *ServiceTestSuite) TestUpdateProductStockKeepsVariantTotal() {
	shirt := suite.addShirt()
	glass := suite.addProduct("Pint Glass", "8.00", 10)

	_, err := suite.admin.UpdateProductStock(suite.ctx, suite.adminCaller, shirt.ID, &UpdateStockRequest{Stock: 9})
	suite.assertKind(err, ErrValidationFailed)
	suite.Equal(5, suite.reload(shirt.ID).Stock)

	_, err = suite.admin.UpdateProductStock(suite.ctx, suite.adminCaller, shirt.ID, &UpdateStockRequest{Stock: 5})
	suite.NoError(err)

	updated, err := suite.admin.UpdateProductStock(suite.ctx, suite.adminCaller, glass.ID, &UpdateStockRequest{Stock: 42})
	suite.Require().NoError(err)
	suite.Equal(42, updated.Stock)

	_, err = suite.admin.UpdateProductStock(suite.ctx, suite.adminCaller, glass.ID, &UpdateStockRequest{Stock: -1})
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.admin.UpdateProductStock(suite.ctx, suite.shopper, glass.ID, &UpdateStockRequest{Stock: 0})
	suite.assertKind(err, ErrUnauthorized)
	suite.Equal(42, suite.reload(glass.ID).Stock)
}

func (suite *ServiceTestSuite) TestBulkUpdatePricesIsAllOrNothing() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	stein := suite.addProduct("Stein", "12.50", 10)

	_, err := suite.admin.BulkUpdatePrices(suite.ctx, suite.adminCaller, &BulkPriceRequest{Updates: []PriceUpdate{
		{ProductID: glass.ID, NewPrice: decimal.RequireFromString("9.00")},
		{ProductID: uuid.New(), NewPrice: decimal.RequireFromString("1.00")},
	}})
	suite.assertKind(err, ErrNotFound)
	suite.True(suite.reload(glass.ID).Price.Equal(decimal.RequireFromString("8.00")))

	_, err = suite.admin.BulkUpdatePrices(suite.ctx, suite.adminCaller, &BulkPriceRequest{Updates: []PriceUpdate{
		{ProductID: glass.ID, NewPrice: decimal.RequireFromString("-2.00")},
	}})
	suite.assertKind(err, ErrValidationFailed)

	result, err := suite.admin.BulkUpdatePrices(suite.ctx, suite.adminCaller, &BulkPriceRequest{Updates: []PriceUpdate{
		{ProductID: glass.ID, NewPrice: decimal.RequireFromString("9.00")},
		{ProductID: stein.ID, NewPrice: decimal.RequireFromString("14.00")},
	}})
	suite.Require().NoError(err)
	suite.Equal(2, result.Updated)
	suite.True(suite.reload(stein.ID).Price.Equal(decimal.RequireFromString("14.00")))

	_, err = suite.admin.BulkUpdatePrices(suite.ctx, suite.adminCaller, &BulkPriceRequest{})
	suite.assertKind(err, ErrValidationFailed)
}

func (suite *ServiceTestSuite) TestAdminCleanupStaleCarts() {
	glass := suite.addProduct("Pint Glass", "8.00", 10)
	_, err := suite.carts.AddToCart(suite.ctx, suite.shopper, suite.shopper.UID, &AddToCartRequest{ProductID: glass.ID, Quantity: 1})
	suite.Require().NoError(err)
	suite.advance(2 * time.Hour)

	result, err := suite.admin.CleanupStaleCarts(suite.ctx, suite.adminCaller, time.Hour)
	suite.Require().NoError(err)
	suite.EqualValues(1, result.Deleted)
}

func (suite *ServiceTestSuite) TestBackupCollectionInline() {
	suite.addProduct("Pint Glass", "8.00", 10)
	hidden := suite.addProduct("Retired", "5.00", 0)
	hidden.IsActive = false
	suite.Require().NoError(suite.store.Products().Update(suite.ctx, hidden))

	result, err := suite.admin.BackupCollection(suite.ctx, suite.adminCaller, CollectionProducts)
	suite.Require().NoError(err)
	suite.Equal(2, result.Count)
	suite.Empty(result.URL)

	var docs []models.Product
	suite.Require().NoError(json.Unmarshal(result.Data, &docs))
	suite.Len(docs, 2)

	_, err = suite.admin.BackupCollection(suite.ctx, suite.adminCaller, "invoices")
	suite.assertKind(err, ErrValidationFailed)

	_, err = suite.admin.BackupCollection(suite.ctx, suite.shopper, CollectionUsers)
	suite.assertKind(err, ErrUnauthorized)
}

func (suite *ServiceTestSuite) TestBackupCollectionUploads() {
	client := &fakeS3{}
	storage := NewStorageServiceWithClient(client, config.AWSConfig{
		Region:       "us-east-2",
		BackupBucket: "bierstube-backups",
		BackupPrefix: "nightly",
	})
	admin := NewAdminService(suite.store, suite.carts, storage, nil)
	admin.now = func() time.Time { return suite.clock }

	_, err := suite.auth.Register(suite.ctx, &RegisterRequest{Email: "greta@example.com", Password: "Prost2025"})
	suite.Require().NoError(err)

	result, err := admin.BackupCollection(suite.ctx, suite.adminCaller, CollectionUsers)
	suite.Require().NoError(err)
	suite.Equal(1, result.Count)
	suite.Nil(result.Data)
	suite.True(strings.HasPrefix(result.Key, "nightly/users/20250615T120000Z_"))
	suite.Equal("https://bierstube-backups.s3.us-east-2.amazonaws.com/"+result.Key, result.URL)

	body, ok := client.puts[result.Key]
	suite.Require().True(ok)
	suite.Contains(string(body), "greta@example.com")
	suite.NotContains(string(body), "password")

	client.err = errors.New("access denied")
	_, err = admin.BackupCollection(suite.ctx, suite.adminCaller, CollectionUsers)
	suite.assertKind(err, ErrStoreUnavailable)
}
