package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps everything in process. It backs STORE_BACKEND=memory and
// the tests; semantics mirror the Postgres repo, including the conditional
// decrement on confirmation.
type MemoryStore struct {
	mu sync.Mutex

	products  map[int64]Product
	orders    map[int64]Order
	confirmed map[int64]ConfirmedItem
	deployed  map[int64]DeployedItem

	nextProduct, nextOrder, nextConfirmed, nextDeployed int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  map[int64]Product{},
		orders:    map[int64]Order{},
		confirmed: map[int64]ConfirmedItem{},
		deployed:  map[int64]DeployedItem{},
	}
}

var _ Store = (*MemoryStore)(nil)

// ---- products ----

func (m *MemoryStore) ListProducts(ctx context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id int64) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return p, nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProduct++
	p := Product{
		ID:        m.nextProduct,
		Name:      in.Name,
		Category:  in.Category,
		Price:     in.Price,
		ImageRef:  in.ImageRef,
		CreatedAt: time.Now().UTC(),
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	p.Name, p.Category, p.Price = in.Name, in.Category, in.Price
	if in.ImageRef != "" {
		p.ImageRef = in.ImageRef
	}
	m.products[id] = p
	return p, nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	for _, o := range m.orders {
		if o.ProductID == id {
			return fmt.Errorf("%w: product %d", ErrProductInUse, id)
		}
	}
	delete(m.products, id)
	return nil
}

// ---- orders ----

func (m *MemoryStore) joinOrder(o Order) Order {
	if p, ok := m.products[o.ProductID]; ok {
		o.ProductName, o.Category = p.Name, p.Category
	}
	o.SerialNumbers = append([]string(nil), o.SerialNumbers...)
	return o
}

func (m *MemoryStore) ListOrders(ctx context.Context) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, m.joinOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w %d", ErrOrderNotFound, id)
	}
	return m.joinOrder(o), nil
}

func (m *MemoryStore) FindOrderRow(ctx context.Context, orderID string, productID int64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		found Order
		ok    bool
	)
	// prefer the oldest row that still has quantity left
	for _, o := range m.orders {
		if o.OrderID != orderID || o.ProductID != productID {
			continue
		}
		if !ok || better(o, found) {
			found, ok = o, true
		}
	}
	if !ok {
		return Order{}, fmt.Errorf("%w: order %s product %d", ErrOrderNotFound, orderID, productID)
	}
	return m.joinOrder(found), nil
}

func better(a, b Order) bool {
	if (a.Quantity > 0) != (b.Quantity > 0) {
		return a.Quantity > 0
	}
	return a.ID < b.ID
}

func (m *MemoryStore) lastOrderID() string {
	var (
		maxID int64
		last  string
	)
	for id, o := range m.orders {
		if id > maxID {
			maxID, last = id, o.OrderID
		}
	}
	return last
}

func (m *MemoryStore) LastOrderID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOrderID(), nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, in CreateOrderInput) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range in.Lines {
		if _, ok := m.products[l.ProductID]; !ok {
			return nil, validationf("unknown product_id %d", l.ProductID)
		}
	}
	orderID := in.OrderID
	if orderID == "" {
		orderID = NextOrderID(m.lastOrderID())
	}
	now := time.Now().UTC()
	out := make([]Order, 0, len(in.Lines))
	for _, l := range in.Lines {
		m.nextOrder++
		o := Order{
			ID:          m.nextOrder,
			OrderID:     orderID,
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			OrderDate:   in.OrderDate,
			OrderedBy:   in.OrderedBy,
			Comment:     in.Comment,
			ItemComment: l.ItemComment,
			CreatedAt:   now,
		}
		m.orders[o.ID] = o
		out = append(out, m.joinOrder(o))
	}
	return out, nil
}

func (m *MemoryStore) CorrectOrder(ctx context.Context, id int64, c OrderCorrection) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("%w %d", ErrOrderNotFound, id)
	}
	if c.Quantity != nil {
		o.Quantity = *c.Quantity
	}
	if c.OrderedBy != nil {
		o.OrderedBy = *c.OrderedBy
	}
	if c.OrderDate != nil {
		o.OrderDate = *c.OrderDate
	}
	m.orders[id] = o
	return m.joinOrder(o), nil
}

func (m *MemoryStore) DeleteOrder(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("%w %d", ErrOrderNotFound, id)
	}
	if o.ConfirmedQuantity > 0 {
		return fmt.Errorf("%w: row %d", ErrOrderHasConfirmations, id)
	}
	delete(m.orders, id)
	return nil
}

func (m *MemoryStore) UpdateBasketComment(ctx context.Context, orderID string, c Comment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, o := range m.orders {
		if o.OrderID == orderID {
			o.Comment = c
			m.orders[id] = o
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: order %s", ErrOrderNotFound, orderID)
	}
	return n, nil
}

func (m *MemoryStore) UpdateItemComment(ctx context.Context, rowID int64, c Comment) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[rowID]
	if !ok {
		return Order{}, fmt.Errorf("%w %d", ErrOrderNotFound, rowID)
	}
	o.ItemComment = c
	m.orders[rowID] = o
	return m.joinOrder(o), nil
}

// ---- confirmation ----

func (m *MemoryStore) serialTaken(serial string) bool {
	for _, c := range m.confirmed {
		if c.SerialNumber != nil && strings.EqualFold(*c.SerialNumber, serial) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) ConfirmUnits(ctx context.Context, rowID int64, units []Unit) ([]ConfirmedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[rowID]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrOrderNotFound, rowID)
	}
	if o.Quantity < len(units) {
		return nil, fmt.Errorf("%w: row %d has %d left, %d requested", ErrAlreadyFullyConfirmed, rowID, o.Quantity, len(units))
	}
	seen := map[string]bool{}
	for _, u := range units {
		if u.SerialNumber == "" {
			continue
		}
		key := strings.ToLower(u.SerialNumber)
		if seen[key] || m.serialTaken(u.SerialNumber) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSerial, u.SerialNumber)
		}
		seen[key] = true
	}

	now := time.Now().UTC()
	out := make([]ConfirmedItem, 0, len(units))
	for _, u := range units {
		m.nextConfirmed++
		c := ConfirmedItem{
			ID:          m.nextConfirmed,
			OrderRowID:  rowID,
			OrderID:     o.OrderID,
			ProductID:   o.ProductID,
			ItemComment: u.ItemComment,
			ConfirmedAt: now,
		}
		if u.SerialNumber != "" {
			s := u.SerialNumber
			c.SerialNumber = &s
		}
		m.confirmed[c.ID] = c
		out = append(out, m.joinConfirmed(c))
	}
	o.Quantity -= len(units)
	o.ConfirmedQuantity += len(units)
	m.orders[rowID] = o
	return out, nil
}

func (m *MemoryStore) joinConfirmed(c ConfirmedItem) ConfirmedItem {
	if p, ok := m.products[c.ProductID]; ok {
		c.ProductName, c.Category = p.Name, p.Category
	}
	return c
}

func (m *MemoryStore) ListConfirmed(ctx context.Context, includeDeployed bool) ([]ConfirmedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConfirmedItem, 0, len(m.confirmed))
	for _, c := range m.confirmed {
		if c.Deployed && !includeDeployed {
			continue
		}
		out = append(out, m.joinConfirmed(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) SearchConfirmed(ctx context.Context, serial string) ([]ConfirmedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(serial)
	var out []ConfirmedItem
	for _, c := range m.confirmed {
		if c.SerialNumber != nil && strings.Contains(strings.ToLower(*c.SerialNumber), needle) {
			out = append(out, m.joinConfirmed(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- deployment ----

func (m *MemoryStore) Deploy(ctx context.Context, in DeployInput) (DeployedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.confirmed[in.ConfirmedItemID]
	if !ok {
		return DeployedItem{}, fmt.Errorf("%w %d", ErrConfirmedItemNotFound, in.ConfirmedItemID)
	}
	if !CanTransition(c.Status(), StatusDeployed) {
		return DeployedItem{}, fmt.Errorf("%w: confirmed item %d", ErrAlreadyDeployed, c.ID)
	}
	c.Deployed = true
	m.confirmed[c.ID] = c

	m.nextDeployed++
	d := DeployedItem{
		ID:                 m.nextDeployed,
		ConfirmedItemID:    c.ID,
		OrderID:            c.OrderID,
		ProductID:          c.ProductID,
		SerialNumber:       c.SerialNumber,
		ItemComment:        c.ItemComment,
		DeployedBy:         in.DeployedBy,
		DeploymentLocation: in.DeploymentLocation,
		DeployedAt:         time.Now().UTC(),
		ConfirmedAt:        c.ConfirmedAt,
	}
	m.deployed[d.ID] = d
	return m.joinDeployed(d), nil
}

func (m *MemoryStore) Undeploy(ctx context.Context, deployedItemID int64) (ConfirmedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deployed[deployedItemID]
	if !ok {
		return ConfirmedItem{}, fmt.Errorf("%w %d", ErrDeployedItemNotFound, deployedItemID)
	}
	c, ok := m.confirmed[d.ConfirmedItemID]
	if !ok {
		// mirrors the FK: cannot happen unless the map was tampered with
		return ConfirmedItem{}, fmt.Errorf("%w %d", ErrConfirmedItemNotFound, d.ConfirmedItemID)
	}
	c.Deployed = false
	m.confirmed[c.ID] = c
	delete(m.deployed, deployedItemID)
	return m.joinConfirmed(c), nil
}

func (m *MemoryStore) joinDeployed(d DeployedItem) DeployedItem {
	if p, ok := m.products[d.ProductID]; ok {
		d.ProductName, d.Category = p.Name, p.Category
	}
	return d
}

func (m *MemoryStore) ListDeployed(ctx context.Context) ([]DeployedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeployedItem, 0, len(m.deployed))
	for _, d := range m.deployed {
		out = append(out, m.joinDeployed(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryStore) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Products, err = m.ListProducts(ctx); err != nil {
		return s, err
	}
	if s.Orders, err = m.ListOrders(ctx); err != nil {
		return s, err
	}
	if s.Confirmed, err = m.ListConfirmed(ctx, true); err != nil {
		return s, err
	}
	s.Deployed, err = m.ListDeployed(ctx)
	return s, err
}
