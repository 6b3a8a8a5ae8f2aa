// internal/services/catalog_service.go
package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/bierstube/storefront/internal/cache"
	"github.com/bierstube/storefront/internal/config"
	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
	"github.com/bierstube/storefront/internal/utils"
)

type CatalogService struct {
	store repository.Store
	cache cache.ProductCache
	cfg   config.StorefrontConfig
	now   func() time.Time
}

type ProductSearchParams struct {
	utils.PageParams
	Category models.ProductCategory `json:"category,omitempty" validate:"omitempty,product_category"`
	MinPrice *decimal.Decimal       `json:"min_price,omitempty"`
	MaxPrice *decimal.Decimal       `json:"max_price,omitempty"`
	InStock  *bool                  `json:"in_stock,omitempty"`
	Featured *bool                  `json:"featured,omitempty"`
	Tags     []string               `json:"tags,omitempty"`
}

type ProductPage struct {
	Items []models.Product `json:"items"`
	utils.PageMeta
}

type CreateProductRequest struct {
	Name           string                 `json:"name" validate:"required,min=1,max=200"`
	Description    string                 `json:"description" validate:"max=2000"`
	Category       models.ProductCategory `json:"category" validate:"required,product_category"`
	Price          decimal.Decimal        `json:"price" validate:"gte=0"`
	CompareAtPrice *decimal.Decimal       `json:"compare_at_price,omitempty"`
	Images         models.ProductImages   `json:"images,omitempty"`
	Variants       models.ProductVariants `json:"variants,omitempty"`
	Stock          int                    `json:"stock" validate:"gte=0"`
	SKU            string                 `json:"sku" validate:"max=64"`
	IsActive       *bool                  `json:"is_active,omitempty"`
	IsFeatured     bool                   `json:"is_featured"`
	Tags           []string               `json:"tags,omitempty"`
	SEOTitle       string                 `json:"seo_title,omitempty" validate:"max=200"`
	SEODescription string                 `json:"seo_description,omitempty" validate:"max=500"`
	Weight         *float64               `json:"weight,omitempty"`
}

// ProductUpdate is a partial edit. Nil fields are left alone; identity and
// creation time have no field here and cannot be changed.
type ProductUpdate struct {
	Name           *string                 `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description    *string                 `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category       *models.ProductCategory `json:"category,omitempty" validate:"omitempty,product_category"`
	Price          *decimal.Decimal        `json:"price,omitempty"`
	CompareAtPrice *decimal.Decimal        `json:"compare_at_price,omitempty"`
	Images         *models.ProductImages   `json:"images,omitempty"`
	Variants       *models.ProductVariants `json:"variants,omitempty"`
	Stock          *int                    `json:"stock,omitempty" validate:"omitempty,gte=0"`
	SKU            *string                 `json:"sku,omitempty" validate:"omitempty,max=64"`
	IsActive       *bool                   `json:"is_active,omitempty"`
	IsFeatured     *bool                   `json:"is_featured,omitempty"`
	Tags           []string                `json:"tags,omitempty"`
	SEOTitle       *string                 `json:"seo_title,omitempty" validate:"omitempty,max=200"`
	SEODescription *string                 `json:"seo_description,omitempty" validate:"omitempty,max=500"`
	Weight         *float64                `json:"weight,omitempty"`
}

type EventSearchParams struct {
	utils.PageParams
	Category   models.EventCategory `json:"category,omitempty" validate:"omitempty,event_category"`
	StartFrom  *time.Time           `json:"start_from,omitempty"`
	StartTo    *time.Time           `json:"start_to,omitempty"`
	Featured   *bool                `json:"featured,omitempty"`
	HasTickets *bool                `json:"has_tickets,omitempty"`
}

type EventPage struct {
	Items []models.Event `json:"items"`
	utils.PageMeta
}

type CreateEventRequest struct {
	Title            string                    `json:"title" validate:"required,min=1,max=200"`
	Description      string                    `json:"description" validate:"max=5000"`
	Category         models.EventCategory      `json:"category" validate:"required,event_category"`
	StartDate        time.Time                 `json:"start_date" validate:"required"`
	EndDate          *time.Time                `json:"end_date,omitempty"`
	StartTime        string                    `json:"start_time,omitempty" validate:"max=20"`
	EndTime          string                    `json:"end_time,omitempty" validate:"max=20"`
	Location         models.EventLocation      `json:"location"`
	Images           []string                  `json:"images,omitempty"`
	IsRecurring      bool                      `json:"is_recurring"`
	RecurringPattern *models.RecurringPattern  `json:"recurring_pattern,omitempty"`
	Capacity         *int                      `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	TicketPrice      *decimal.Decimal          `json:"ticket_price,omitempty"`
	IsActive         *bool                     `json:"is_active,omitempty"`
	IsFeatured       bool                      `json:"is_featured"`
	Tags             []string                  `json:"tags,omitempty"`
	SpecialOffers    models.EventSpecialOffers `json:"special_offers,omitempty"`
}

type EventUpdate struct {
	Title            *string                    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description      *string                    `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category         *models.EventCategory      `json:"category,omitempty" validate:"omitempty,event_category"`
	StartDate        *time.Time                 `json:"start_date,omitempty"`
	EndDate          *time.Time                 `json:"end_date,omitempty"`
	StartTime        *string                    `json:"start_time,omitempty"`
	EndTime          *string                    `json:"end_time,omitempty"`
	Location         *models.EventLocation      `json:"location,omitempty"`
	Images           []string                   `json:"images,omitempty"`
	IsRecurring      *bool                      `json:"is_recurring,omitempty"`
	RecurringPattern *models.RecurringPattern   `json:"recurring_pattern,omitempty"`
	Capacity         *int                       `json:"capacity,omitempty"`
	CurrentAttendees *int                       `json:"current_attendees,omitempty"`
	TicketPrice      *decimal.Decimal           `json:"ticket_price,omitempty"`
	IsActive         *bool                      `json:"is_active,omitempty"`
	IsFeatured       *bool                      `json:"is_featured,omitempty"`
	Tags             []string                   `json:"tags,omitempty"`
	SpecialOffers    *models.EventSpecialOffers `json:"special_offers,omitempty"`
}

func NewCatalogService(store repository.Store, productCache cache.ProductCache, cfg config.StorefrontConfig) *CatalogService {
	if productCache == nil {
		productCache = cache.NopProductCache{}
	}
	return &CatalogService{
		store: store,
		cache: productCache,
		cfg:   cfg,
		now:   time.Now,
	}
}

func normalizeTags(tags []string) pq.StringArray {
	if tags == nil {
		return nil
	}
	out := make(pq.StringArray, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func (s *CatalogService) ListProducts(ctx context.Context, params ProductSearchParams) (*ProductPage, error) {
	if err := utils.ValidateStruct(params); err != nil {
		return nil, invalidErr(err)
	}
	if params.MinPrice != nil && params.MaxPrice != nil && params.MinPrice.GreaterThan(*params.MaxPrice) {
		return nil, invalid("min_price is greater than max_price")
	}

	page := params.PageParams.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	products, err := s.store.Products().List(ctx, repository.ProductFilter{
		Category: params.Category,
		MinPrice: params.MinPrice,
		MaxPrice: params.MaxPrice,
		InStock:  params.InStock,
		Featured: params.Featured,
		Tags:     normalizeTags(params.Tags),
		Offset:   page.Offset(),
		Limit:    page.PageSize + 1,
	})
	if err != nil {
		return nil, storeErr(err, "products", "")
	}

	items, meta := utils.Trim(products, page)
	return &ProductPage{Items: items, PageMeta: meta}, nil
}

// GetProduct returns an active product. Admins can also read inactive ones.
func (s *CatalogService) GetProduct(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Product, error) {
	if product, ok := s.cache.Get(ctx, id); ok {
		return product, nil
	}

	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product", id)
	}
	if !product.IsActive && !caller.Privileged() {
		return nil, notFound("product", id)
	}
	if product.IsActive {
		s.cache.Set(ctx, product)
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, caller models.Caller, req *CreateProductRequest) (*models.Product, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	now := s.now()
	product := &models.Product{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Category:       req.Category,
		Price:          req.Price,
		CompareAtPrice: req.CompareAtPrice,
		Images:         req.Images,
		Variants:       req.Variants,
		Stock:          req.Stock,
		SKU:            req.SKU,
		IsActive:       active,
		IsFeatured:     req.IsFeatured,
		Tags:           normalizeTags(req.Tags),
		SEOTitle:       req.SEOTitle,
		SEODescription: req.SEODescription,
		Weight:         req.Weight,
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := product.Validate(); err != nil {
		return nil, invalidErr(err)
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, storeErr(err, "product", product.ID)
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created")
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, caller models.Caller, id uuid.UUID, update *ProductUpdate) (*models.Product, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(update); err != nil {
		return nil, invalidErr(err)
	}

	var updated *models.Product
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		product, err := tx.Products().FindByID(ctx, id)
		if err != nil {
			return storeErr(err, "product", id)
		}

		update.apply(product)
		product.UpdatedAt = s.now()
		if err := product.Validate(); err != nil {
			return invalidErr(err)
		}
		if err := tx.Products().Update(ctx, product); err != nil {
			return storeErr(err, "product", id)
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, id)
	logrus.WithField("product_id", id).Info("Product updated")
	return updated, nil
}

func (u *ProductUpdate) apply(p *models.Product) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.CompareAtPrice != nil {
		v := *u.CompareAtPrice
		p.CompareAtPrice = &v
	}
	if u.Images != nil {
		p.Images = *u.Images
	}
	if u.Variants != nil {
		p.Variants = *u.Variants
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.SKU != nil {
		p.SKU = *u.SKU
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	if u.IsFeatured != nil {
		p.IsFeatured = *u.IsFeatured
	}
	if u.Tags != nil {
		p.Tags = normalizeTags(u.Tags)
	}
	if u.SEOTitle != nil {
		p.SEOTitle = *u.SEOTitle
	}
	if u.SEODescription != nil {
		p.SEODescription = *u.SEODescription
	}
	if u.Weight != nil {
		w := *u.Weight
		p.Weight = &w
	}
}

func (s *CatalogService) DeleteProduct(ctx context.Context, caller models.Caller, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.store.Products().Delete(ctx, id); err != nil {
		return storeErr(err, "product", id)
	}
	s.cache.Invalidate(ctx, id)
	logrus.WithField("product_id", id).Info("Product deleted")
	return nil
}

// SearchProducts matches term against name and description, case-insensitively.
func (s *CatalogService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, invalid("search term is required")
	}

	products, err := s.store.Products().List(ctx, repository.ProductFilter{Limit: s.cfg.ReportScanLimit})
	if err != nil {
		return nil, storeErr(err, "products", "")
	}

	if s.cfg.ReportScanLimit > 0 && len(products) >= s.cfg.ReportScanLimit {
		logrus.WithFields(logrus.Fields{
			"limit": s.cfg.ReportScanLimit,
			"term":  term,
		}).Warn("Product search hit the scan limit")
	}

	matches := make([]models.Product, 0)
	for i := range products {
		if products[i].MatchesTerm(term) {
			matches = append(matches, products[i])
		}
	}
	return matches, nil
}

func (s *CatalogService) GetFeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit < 1 {
		limit = s.cfg.FeaturedProductLimit
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}
	featured := true
	products, err := s.store.Products().List(ctx, repository.ProductFilter{Featured: &featured, Limit: limit})
	if err != nil {
		return nil, storeErr(err, "products", "")
	}
	return products, nil
}

func (s *CatalogService) ListEvents(ctx context.Context, params EventSearchParams) (*EventPage, error) {
	if err := utils.ValidateStruct(params); err != nil {
		return nil, invalidErr(err)
	}
	if params.StartFrom != nil && params.StartTo != nil && params.StartTo.Before(*params.StartFrom) {
		return nil, invalid("start_to is before start_from")
	}

	page := params.PageParams.Normalize(s.cfg.EventsPageSize, s.cfg.MaxPageSize)
	events, err := s.store.Events().List(ctx, repository.EventFilter{
		Category:   params.Category,
		StartFrom:  params.StartFrom,
		StartTo:    params.StartTo,
		Featured:   params.Featured,
		HasTickets: params.HasTickets,
		Offset:     page.Offset(),
		Limit:      page.PageSize + 1,
	})
	if err != nil {
		return nil, storeErr(err, "events", "")
	}

	items, meta := utils.Trim(events, page)
	return &EventPage{Items: items, PageMeta: meta}, nil
}

func (s *CatalogService) GetEvent(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Event, error) {
	event, err := s.store.Events().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "event", id)
	}
	if !event.IsActive && !caller.Privileged() {
		return nil, notFound("event", id)
	}
	return event, nil
}

func (s *CatalogService) CreateEvent(ctx context.Context, caller models.Caller, req *CreateEventRequest) (*models.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalidErr(err)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	now := s.now()
	event := &models.Event{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Category:         req.Category,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Location:         req.Location,
		Images:           req.Images,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: req.RecurringPattern,
		Capacity:         req.Capacity,
		TicketPrice:      req.TicketPrice,
		IsActive:         active,
		IsFeatured:       req.IsFeatured,
		Tags:             normalizeTags(req.Tags),
		SpecialOffers:    req.SpecialOffers,
	}
	event.CreatedAt = now
	event.UpdatedAt = now

	if err := event.Validate(); err != nil {
		return nil, invalidErr(err)
	}
	if err := s.store.Events().Create(ctx, event); err != nil {
		return nil, storeErr(err, "event", event.ID)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"title":    event.Title,
	}).Info("Event created")
	return event, nil
}

func (s *CatalogService) UpdateEvent(ctx context.Context, caller models.Caller, id uuid.UUID, update *EventUpdate) (*models.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(update); err != nil {
		return nil, invalidErr(err)
	}

	var updated *models.Event
	err := atomically(ctx, s.store, func(tx repository.Store) error {
		event, err := tx.Events().FindByID(ctx, id)
		if err != nil {
			return storeErr(err, "event", id)
		}

		update.apply(event)
		event.UpdatedAt = s.now()
		if err := event.Validate(); err != nil {
			return invalidErr(err)
		}
		if err := tx.Events().Update(ctx, event); err != nil {
			return storeErr(err, "event", id)
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("event_id", id).Info("Event updated")
	return updated, nil
}

func (u *EventUpdate) apply(e *models.Event) {
	if u.Title != nil {
		e.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		t := *u.EndDate
		e.EndDate = &t
	}
	if u.StartTime != nil {
		e.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		e.EndTime = *u.EndTime
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Images != nil {
		e.Images = u.Images
	}
	if u.IsRecurring != nil {
		e.IsRecurring = *u.IsRecurring
	}
	if u.RecurringPattern != nil {
		rp := *u.RecurringPattern
		e.RecurringPattern = &rp
	}
	if u.Capacity != nil {
		n := *u.Capacity
		e.Capacity = &n
	}
	if u.CurrentAttendees != nil {
		e.CurrentAttendees = *u.CurrentAttendees
	}
	if u.TicketPrice != nil {
		p := *u.TicketPrice
		e.TicketPrice = &p
	}
	if u.IsActive != nil {
		e.IsActive = *u.IsActive
	}
	if u.IsFeatured != nil {
		e.IsFeatured = *u.IsFeatured
	}
	if u.Tags != nil {
		e.Tags = normalizeTags(u.Tags)
	}
	if u.SpecialOffers != nil {
		e.SpecialOffers = *u.SpecialOffers
	}
}

func (s *CatalogService) DeleteEvent(ctx context.Context, caller models.Caller, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.store.Events().Delete(ctx, id); err != nil {
		return storeErr(err, "event", id)
	}
	logrus.WithField("event_id", id).Info("Event deleted")
	return nil
}
