package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
	"marketplace/internal/repo"
)

// fakeTx runs fn without a transaction; the fakes ignore tx.
type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(nil)
}

// fakeOrderRepo stores orders in memory. UpdateOrderStatus is a
// compare-and-set on the stored status, like the conditional UPDATE.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]domain.Order
	// lockDelay widens the window between read and write in LockById.
	lockDelay time.Duration
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]domain.Order)}
}

func (r *fakeOrderRepo) put(o domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
}

func (r *fakeOrderRepo) get(id uuid.UUID) (domain.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	return o, ok
}

func (r *fakeOrderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := r.get(id)
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *fakeOrderRepo) LockById(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error) {
	o, ok := r.get(id)
	if r.lockDelay > 0 {
		time.Sleep(r.lockDelay)
	}
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *fakeOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return domain.Conflict("duplicate order")
	}
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, tx *sql.Tx, order *domain.Order, from domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok || stored.Status != from {
		return domain.Conflict("order changed concurrently")
	}
	stored.Status = order.Status
	if stored.AcceptedAt == nil {
		stored.AcceptedAt = order.AcceptedAt
	}
	r.orders[order.ID] = stored
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, filter repo.OrderFilter) ([]domain.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.Order
	for _, o := range r.orders {
		if filter.ClientID != nil && o.ClientID != *filter.ClientID {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RequestedAt.After(all[j].RequestedAt) })

	total := len(all)
	if filter.Offset >= total {
		return []domain.Order{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)
	return all[filter.Offset:end], total, nil
}

func (r *fakeOrderRepo) FindStaleOrders(ctx context.Context, status domain.OrderStatus, from, to time.Time) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.Status == status && !o.RequestedAt.Before(from) && o.RequestedAt.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeCatalogRepo struct {
	mu         sync.Mutex
	clients    map[uuid.UUID]domain.Client
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		clients:    make(map[uuid.UUID]domain.Client),
		categories: make(map[uuid.UUID]domain.Category),
		products:   make(map[uuid.UUID]domain.Product),
	}
}

func (r *fakeCatalogRepo) addClient(name string) domain.Client {
	c := domain.Client{ID: uuid.New(), Name: name}
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()
	return c
}

func (r *fakeCatalogRepo) addProduct(clientID uuid.UUID, desc string) domain.Product {
	p := domain.Product{ID: uuid.New(), Description: desc, ClientID: clientID}
	r.mu.Lock()
	r.products[p.ID] = p
	r.mu.Unlock()
	return p
}

func (r *fakeCatalogRepo) FindClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeCatalogRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Client{}
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCatalogRepo) CreateClient(ctx context.Context, tx *sql.Tx, client *domain.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		if c.Name == client.Name {
			return domain.Conflict("client name taken")
		}
	}
	r.clients[client.ID] = *client
	return nil
}

func (r *fakeCatalogRepo) FindCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeCatalogRepo) ListCategories(ctx context.Context, clientID uuid.UUID) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Category{}
	for _, c := range r.categories {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) CreateCategory(ctx context.Context, tx *sql.Tx, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[category.ID] = *category
	return nil
}

func (r *fakeCatalogRepo) FindProducts(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]domain.Product)
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) ListProducts(ctx context.Context, clientID uuid.UUID) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.products {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) CreateProduct(ctx context.Context, tx *sql.Tx, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = *product
	return nil
}

// recordingNotifier captures status notifications in order.
type recordingNotifier struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (n *recordingNotifier) SendOrderStatusUpdate(ctx context.Context, order domain.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

func (n *recordingNotifier) sent() []domain.Order {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Order(nil), n.orders...)
}
