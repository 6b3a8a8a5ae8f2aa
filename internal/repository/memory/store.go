// internal/repository/memory/store.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
)

// Store is an in-process repository.Store. A transaction works on a copy of
// the whole dataset under the store lock and swaps it in on success, so a
// failed callback leaves no trace.
type Store struct {
	mu   *sync.Mutex
	data *dataset
	inTx bool
	now  func() time.Time

	commitErr *error
}

var _ repository.Store = (*Store)(nil)

type entry[T any] struct {
	doc *T
	seq uint64
}

type dataset struct {
	seq      uint64
	products map[uuid.UUID]entry[models.Product]
	events   map[uuid.UUID]entry[models.Event]
	orders   map[uuid.UUID]entry[models.Order]
	carts    map[uuid.UUID]entry[models.Cart]
	users    map[uuid.UUID]entry[models.UserProfile]
}

func newDataset() *dataset {
	return &dataset{
		products: make(map[uuid.UUID]entry[models.Product]),
		events:   make(map[uuid.UUID]entry[models.Event]),
		orders:   make(map[uuid.UUID]entry[models.Order]),
		carts:    make(map[uuid.UUID]entry[models.Cart]),
		users:    make(map[uuid.UUID]entry[models.UserProfile]),
	}
}

func cloneTable[T any](src map[uuid.UUID]entry[T], clone func(*T) *T) map[uuid.UUID]entry[T] {
	dst := make(map[uuid.UUID]entry[T], len(src))
	for id, e := range src {
		dst[id] = entry[T]{doc: clone(e.doc), seq: e.seq}
	}
	return dst
}

func (d *dataset) clone() *dataset {
	return &dataset{
		seq:      d.seq,
		products: cloneTable(d.products, (*models.Product).Clone),
		events:   cloneTable(d.events, (*models.Event).Clone),
		orders:   cloneTable(d.orders, (*models.Order).Clone),
		carts:    cloneTable(d.carts, (*models.Cart).Clone),
		users:    cloneTable(d.users, (*models.UserProfile).Clone),
	}
}

func (d *dataset) next() uint64 {
	d.seq++
	return d.seq
}

func New() *Store {
	var commitErr error
	return &Store{
		mu:        &sync.Mutex{},
		data:      newDataset(),
		now:       time.Now,
		commitErr: &commitErr,
	}
}

// SetClock replaces the timestamp source used for created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNextCommit makes the next top-level transaction abort with err after its
// callback succeeds, as a store-side conflict would.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.commitErr = err
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.data.clone()
	tx := &Store{mu: s.mu, data: work, inTx: true, now: s.now, commitErr: s.commitErr}
	if err := fn(tx); err != nil {
		return err
	}

	if err := *s.commitErr; err != nil {
		*s.commitErr = nil
		return err
	}

	s.data = work
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Products() repository.ProductRepository { return productRepo{s} }
func (s *Store) Events() repository.EventRepository     { return eventRepo{s} }
func (s *Store) Orders() repository.OrderRepository     { return orderRepo{s} }
func (s *Store) Carts() repository.CartRepository       { return cartRepo{s} }
func (s *Store) Users() repository.UserRepository       { return userRepo{s} }

func stamp(base *models.BaseModel, now time.Time) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	if base.UpdatedAt.IsZero() {
		base.UpdatedAt = now
	}
}

// newestFirst orders by created_at descending, later inserts first on ties.
func newestFirst[T any](entries []entry[T], createdAt func(*T) time.Time) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := createdAt(entries[i].doc), createdAt(entries[j].doc)
		if !a.Equal(b) {
			return a.After(b)
		}
		return entries[i].seq > entries[j].seq
	})
}

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset > len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type productRepo struct{ s *Store }

func (r productRepo) Create(ctx context.Context, product *models.Product) error {
	defer r.s.lock()()
	stamp(&product.BaseModel, r.s.now())
	r.s.data.products[product.ID] = entry[models.Product]{doc: product.Clone(), seq: r.s.data.next()}
	return nil
}

func (r productRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	defer r.s.lock()()
	e, ok := r.s.data.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.doc.Clone(), nil
}

func (r productRepo) Update(ctx context.Context, product *models.Product) error {
	defer r.s.lock()()
	e, ok := r.s.data.products[product.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.s.data.products[product.ID] = entry[models.Product]{doc: product.Clone(), seq: e.seq}
	return nil
}

func (r productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.products, id)
	return nil
}

func (r productRepo) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	defer r.s.lock()()

	var matched []entry[models.Product]
	for _, e := range r.s.data.products {
		if productMatches(e.doc, filter) {
			matched = append(matched, e)
		}
	}
	newestFirst(matched, func(p *models.Product) time.Time { return p.CreatedAt })

	out := make([]models.Product, 0, len(matched))
	for _, e := range window(matched, filter.Offset, filter.Limit) {
		out = append(out, *e.doc.Clone())
	}
	return out, nil
}

func productMatches(p *models.Product, f repository.ProductFilter) bool {
	if !f.IncludeInactive && !p.IsActive {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.InStock != nil && (p.Stock > 0) != *f.InStock {
		return false
	}
	if f.Featured != nil && p.IsFeatured != *f.Featured {
		return false
	}
	if len(f.Tags) > 0 && !p.HasAnyTag(f.Tags) {
		return false
	}
	return true
}

type eventRepo struct{ s *Store }

func (r eventRepo) Create(ctx context.Context, event *models.Event) error {
	defer r.s.lock()()
	stamp(&event.BaseModel, r.s.now())
	r.s.data.events[event.ID] = entry[models.Event]{doc: event.Clone(), seq: r.s.data.next()}
	return nil
}

func (r eventRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	defer r.s.lock()()
	e, ok := r.s.data.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.doc.Clone(), nil
}

func (r eventRepo) Update(ctx context.Context, event *models.Event) error {
	defer r.s.lock()()
	e, ok := r.s.data.events[event.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.s.data.events[event.ID] = entry[models.Event]{doc: event.Clone(), seq: e.seq}
	return nil
}

func (r eventRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.events, id)
	return nil
}

func (r eventRepo) List(ctx context.Context, filter repository.EventFilter) ([]models.Event, error) {
	defer r.s.lock()()

	var matched []entry[models.Event]
	for _, e := range r.s.data.events {
		if eventMatches(e.doc, filter) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].doc.StartDate, matched[j].doc.StartDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]models.Event, 0, len(matched))
	for _, e := range window(matched, filter.Offset, filter.Limit) {
		out = append(out, *e.doc.Clone())
	}
	return out, nil
}

func eventMatches(e *models.Event, f repository.EventFilter) bool {
	if !f.IncludeInactive && !e.IsActive {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.StartFrom != nil && e.StartDate.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && e.StartDate.After(*f.StartTo) {
		return false
	}
	if f.Featured != nil && e.IsFeatured != *f.Featured {
		return false
	}
	if f.HasTickets != nil && e.HasTickets() != *f.HasTickets {
		return false
	}
	return true
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order *models.Order) error {
	defer r.s.lock()()
	for _, e := range r.s.data.orders {
		if e.doc.OrderNumber == order.OrderNumber {
			return repository.ErrDuplicate
		}
	}
	stamp(&order.BaseModel, r.s.now())
	r.s.data.orders[order.ID] = entry[models.Order]{doc: order.Clone(), seq: r.s.data.next()}
	return nil
}

func (r orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	defer r.s.lock()()
	e, ok := r.s.data.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.doc.Clone(), nil
}

func (r orderRepo) Update(ctx context.Context, order *models.Order) error {
	defer r.s.lock()()
	e, ok := r.s.data.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.s.data.orders[order.ID] = entry[models.Order]{doc: order.Clone(), seq: e.seq}
	return nil
}

func (r orderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	defer r.s.lock()()

	var matched []entry[models.Order]
	for _, e := range r.s.data.orders {
		if orderMatches(e.doc, filter) {
			matched = append(matched, e)
		}
	}
	newestFirst(matched, func(o *models.Order) time.Time { return o.CreatedAt })

	out := make([]models.Order, 0, len(matched))
	for _, e := range window(matched, 0, filter.Limit) {
		out = append(out, *e.doc.Clone())
	}
	return out, nil
}

func orderMatches(o *models.Order, f repository.OrderFilter) bool {
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, status := range f.Statuses {
			if o.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && o.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func (r orderRepo) ExistsOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	defer r.s.lock()()
	for _, e := range r.s.data.orders {
		if e.doc.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

type cartRepo struct{ s *Store }

func (r cartRepo) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	defer r.s.lock()()
	e, ok := r.s.data.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.doc.Clone(), nil
}

func (r cartRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Cart, error) {
	defer r.s.lock()()
	e, ok := r.s.data.carts[userID]
	if !ok {
		e = entry[models.Cart]{doc: models.NewCart(userID, now), seq: r.s.data.next()}
		r.s.data.carts[userID] = e
	}
	return e.doc.Clone(), nil
}

func (r cartRepo) Save(ctx context.Context, cart *models.Cart) error {
	defer r.s.lock()()
	now := r.s.now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = now
	}
	seq := r.s.data.next()
	if e, ok := r.s.data.carts[cart.UserID]; ok {
		seq = e.seq
	}
	r.s.data.carts[cart.UserID] = entry[models.Cart]{doc: cart.Clone(), seq: seq}
	return nil
}

func (r cartRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	defer r.s.lock()()
	delete(r.s.data.carts, userID)
	return nil
}

func (r cartRepo) DeleteUpdatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	defer r.s.lock()()
	var n int64
	for id, e := range r.s.data.carts {
		if e.doc.UpdatedAt.Before(cutoff) {
			delete(r.s.data.carts, id)
			n++
		}
	}
	return n, nil
}

func (r cartRepo) List(ctx context.Context) ([]models.Cart, error) {
	defer r.s.lock()()
	entries := make([]entry[models.Cart], 0, len(r.s.data.carts))
	for _, e := range r.s.data.carts {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]models.Cart, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e.doc.Clone())
	}
	return out, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.UserProfile) error {
	defer r.s.lock()()
	for _, e := range r.s.data.users {
		if strings.EqualFold(e.doc.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	stamp(&user.BaseModel, r.s.now())
	r.s.data.users[user.ID] = entry[models.UserProfile]{doc: user.Clone(), seq: r.s.data.next()}
	return nil
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error) {
	defer r.s.lock()()
	e, ok := r.s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e.doc.Clone(), nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	defer r.s.lock()()
	for _, e := range r.s.data.users {
		if strings.EqualFold(e.doc.Email, email) {
			return e.doc.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) Update(ctx context.Context, user *models.UserProfile) error {
	defer r.s.lock()()
	e, ok := r.s.data.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	r.s.data.users[user.ID] = entry[models.UserProfile]{doc: user.Clone(), seq: e.seq}
	return nil
}

func (r userRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.data.users, id)
	return nil
}

func (r userRepo) List(ctx context.Context) ([]models.UserProfile, error) {
	defer r.s.lock()()
	entries := make([]entry[models.UserProfile], 0, len(r.s.data.users))
	for _, e := range r.s.data.users {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]models.UserProfile, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e.doc.Clone())
	}
	return out, nil
}
