// internal/repository/postgres/store.go
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
)

// Store implements repository.Store on gorm/postgres. Inside a transaction
// every single-row read takes a FOR UPDATE lock so concurrent checkouts and
// cart writes serialize on the rows they touch.
type Store struct {
	db   *gorm.DB
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Products() repository.ProductRepository { return productRepo{s} }
func (s *Store) Events() repository.EventRepository     { return eventRepo{s} }
func (s *Store) Orders() repository.OrderRepository     { return orderRepo{s} }
func (s *Store) Carts() repository.CartRepository       { return cartRepo{s} }
func (s *Store) Users() repository.UserRepository       { return userRepo{s} }

func (s *Store) query(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) locking(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return repository.ErrDuplicate
	}
	if strings.Contains(err.Error(), "SQLSTATE 23505") {
		return repository.ErrDuplicate
	}
	return err
}

func affected(result *gorm.DB) error {
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type productRepo struct{ s *Store }

func (r productRepo) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return translate(r.s.query(ctx).Create(product).Error)
}

func (r productRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.s.locking(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r productRepo) Update(ctx context.Context, product *models.Product) error {
	return affected(r.s.query(ctx).Model(product).Select("*").Omit("created_at").Updates(product))
}

func (r productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.s.query(ctx).Delete(&models.Product{}, "id = ?", id))
}

func (r productRepo) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	query := r.s.query(ctx).Model(&models.Product{})

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock != nil {
		if *filter.InStock {
			query = query.Where("stock > 0")
		} else {
			query = query.Where("stock = 0")
		}
	}
	if filter.Featured != nil {
		query = query.Where("is_featured = ?", *filter.Featured)
	}
	if len(filter.Tags) > 0 {
		// tags are stored lowercased by the catalog service
		lowered := make([]string, len(filter.Tags))
		for i, tag := range filter.Tags {
			lowered[i] = strings.ToLower(tag)
		}
		query = query.Where("tags && ?", pq.StringArray(lowered))
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

type eventRepo struct{ s *Store }

func (r eventRepo) Create(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return translate(r.s.query(ctx).Create(event).Error)
}

func (r eventRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.s.locking(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &event, nil
}

func (r eventRepo) Update(ctx context.Context, event *models.Event) error {
	return affected(r.s.query(ctx).Model(event).Select("*").Omit("created_at").Updates(event))
}

func (r eventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.s.query(ctx).Delete(&models.Event{}, "id = ?", id))
}

func (r eventRepo) List(ctx context.Context, filter repository.EventFilter) ([]models.Event, error) {
	query := r.s.query(ctx).Model(&models.Event{})

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.StartFrom != nil {
		query = query.Where("start_date >= ?", *filter.StartFrom)
	}
	if filter.StartTo != nil {
		query = query.Where("start_date <= ?", *filter.StartTo)
	}
	if filter.Featured != nil {
		query = query.Where("is_featured = ?", *filter.Featured)
	}
	if filter.HasTickets != nil {
		if *filter.HasTickets {
			query = query.Where("ticket_price > 0")
		} else {
			query = query.Where("ticket_price IS NULL OR ticket_price = 0")
		}
	}

	query = query.Order("start_date ASC").Order("id ASC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return translate(r.s.query(ctx).Create(order).Error)
}

func (r orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.s.locking(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r orderRepo) Update(ctx context.Context, order *models.Order) error {
	return affected(r.s.query(ctx).Model(order).Select("*").Omit("created_at").Updates(order))
}

func (r orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	query := r.s.query(ctx).Model(&models.Order{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r orderRepo) ExistsOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.s.query(ctx).Model(&models.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	return count > 0, err
}

type cartRepo struct{ s *Store }

func (r cartRepo) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.s.locking(ctx).First(&cart, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// GetOrCreate inserts an empty cart row before reading so that the FOR UPDATE
// lock always has a row to hold; a missing row locks nothing.
func (r cartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Cart, error) {
	err := r.s.query(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(models.NewCart(userID, now)).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.Get(ctx, userID)
}

func (r cartRepo) Save(ctx context.Context, cart *models.Cart) error {
	return translate(r.s.query(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(cart).Error)
}

func (r cartRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	return r.s.query(ctx).Delete(&models.Cart{}, "user_id = ?", userID).Error
}

func (r cartRepo) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.s.query(ctx).Where("updated_at < ?", cutoff).Delete(&models.Cart{})
	return result.RowsAffected, result.Error
}

func (r cartRepo) List(ctx context.Context) ([]models.Cart, error) {
	var carts []models.Cart
	if err := r.s.query(ctx).Order("created_at ASC").Find(&carts).Error; err != nil {
		return nil, err
	}
	return carts, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.UserProfile) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(user.Email)
	return translate(r.s.query(ctx).Create(user).Error)
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := r.s.locking(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var user models.UserProfile
	if err := r.s.query(ctx).First(&user, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r userRepo) Update(ctx context.Context, user *models.UserProfile) error {
	return affected(r.s.query(ctx).Model(user).Select("*").Omit("created_at").Updates(user))
}

func (r userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.s.query(ctx).Delete(&models.UserProfile{}, "id = ?", id))
}

func (r userRepo) List(ctx context.Context) ([]models.UserProfile, error) {
	var users []models.UserProfile
	if err := r.s.query(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
