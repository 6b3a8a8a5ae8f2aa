// internal/services/report_service.go
package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/config"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
)

const topProductsLimit = 10

// ReportService builds the admin dashboards. It only reads.
type ReportService struct {
	store repository.Store
	cfg   config.StorefrontConfig
}

type ProductSales struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type SalesAnalytics struct {
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int             `json:"total_orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	TopProducts       []ProductSales  `json:"top_products"`
	Truncated         bool            `json:"truncated,omitempty"`
}

type InventoryReport struct {
	LowStock      []models.Product `json:"low_stock"`
	OutOfStock    []models.Product `json:"out_of_stock"`
	TotalProducts int              `json:"total_products"`
	TotalValue    decimal.Decimal  `json:"total_value"`
	Threshold     int              `json:"low_stock_threshold"`
	Truncated     bool             `json:"truncated,omitempty"`
}

func NewReportService(store repository.Store, cfg config.StorefrontConfig) *ReportService {
	return &ReportService{store: store, cfg: cfg}
}

// GetSalesAnalytics folds the sale-status orders created in [start, end].
// Product revenue comes from the order snapshots, not current prices.
func (s *ReportService) GetSalesAnalytics(ctx context.Context, caller models.Caller, start, end time.Time) (*SalesAnalytics, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, invalid("start and end dates are required")
	}
	if end.Before(start) {
		return nil, invalid("end date is before start date")
	}

	orders, err := s.store.Orders().List(ctx, repository.OrderFilter{
		Statuses:    models.SaleStatuses(),
		CreatedFrom: &start,
		CreatedTo:   &end,
		Limit:       s.cfg.ReportScanLimit,
	})
	if err != nil {
		return nil, storeErr(err, "orders", "")
	}

	report := &SalesAnalytics{
		StartDate:         start,
		EndDate:           end,
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TopProducts:       []ProductSales{},
		Truncated:         s.cfg.ReportScanLimit > 0 && len(orders) >= s.cfg.ReportScanLimit,
	}

	sales := make(map[uuid.UUID]*ProductSales)
	var seen []uuid.UUID
	for _, order := range orders {
		if !order.Status.CountsAsSale() {
			continue
		}
		report.TotalRevenue = report.TotalRevenue.Add(order.Total)
		report.TotalOrders++

		for _, item := range order.Items {
			entry, ok := sales[item.ProductID]
			if !ok {
				entry = &ProductSales{ProductID: item.ProductID, ProductName: item.ProductName, Revenue: decimal.Zero}
				sales[item.ProductID] = entry
				seen = append(seen, item.ProductID)
			}
			entry.Quantity += item.Quantity
			entry.Revenue = entry.Revenue.Add(item.TotalPrice)
		}
	}

	if report.TotalOrders > 0 {
		report.AverageOrderValue = report.TotalRevenue.DivRound(decimal.NewFromInt(int64(report.TotalOrders)), 2)
	}

	for _, id := range seen {
		report.TopProducts = append(report.TopProducts, *sales[id])
	}
	sort.SliceStable(report.TopProducts, func(i, j int) bool {
		return report.TopProducts[i].Revenue.GreaterThan(report.TopProducts[j].Revenue)
	})
	if len(report.TopProducts) > topProductsLimit {
		report.TopProducts = report.TopProducts[:topProductsLimit]
	}

	if report.Truncated {
		logrus.WithField("limit", s.cfg.ReportScanLimit).Warn("Sales analytics hit the scan limit")
	}
	return report, nil
}

// GetInventoryReport classifies active products: stock 0 is out of stock,
// 1..threshold is low stock.
func (s *ReportService) GetInventoryReport(ctx context.Context, caller models.Caller) (*InventoryReport, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	products, err := s.store.Products().List(ctx, repository.ProductFilter{Limit: s.cfg.ReportScanLimit})
	if err != nil {
		return nil, storeErr(err, "products", "")
	}

	report := &InventoryReport{
		LowStock:   []models.Product{},
		OutOfStock: []models.Product{},
		TotalValue: decimal.Zero,
		Threshold:  s.cfg.LowStockThreshold,
		Truncated:  s.cfg.ReportScanLimit > 0 && len(products) >= s.cfg.ReportScanLimit,
	}
	for _, product := range products {
		report.TotalProducts++
		report.TotalValue = report.TotalValue.Add(product.Price.Mul(decimal.NewFromInt(int64(product.Stock))))

		switch {
		case product.Stock == 0:
			report.OutOfStock = append(report.OutOfStock, product)
		case product.Stock <= s.cfg.LowStockThreshold:
			report.LowStock = append(report.LowStock, product)
		}
	}

	if report.Truncated {
		logrus.WithField("limit", s.cfg.ReportScanLimit).Warn("Inventory report hit the scan limit")
	}
	return report, nil
}
