package cart

import (
	"sync"

	"storefront/internal/cartstore"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Manager owns the authoritative in-memory cart for one storefront profile
// and mirrors it to the persisted store after every mutation. The in-memory
// state is the source of truth: a failed mirror write is logged and counted
// but never blocks or rolls back a mutation.
//
// Invariants held here: at most one line per product id, and quantity >= 1
// on every present line (a mutation that would drive a quantity to zero or
// below removes the line instead).
type Manager struct {
	mu     sync.Mutex
	lines  []models.CartLine
	store  cartstore.Store
	logger *zap.Logger
}

// NewManager creates a cart manager hydrated from the persisted store.
func NewManager(store cartstore.Store) *Manager {
	return &Manager{
		lines:  store.Load(),
		store:  store,
		logger: util.GetLogger(),
	}
}

// AddItem merges quantity into an existing line for the product, or appends
// a new line snapshotting the product's name, price, image and stock. A
// quantity below 1 is treated as 1. Always succeeds.
func (m *Manager) AddItem(product models.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lines {
		if m.lines[i].ProductID == product.ProductID {
			m.lines[i].Quantity += quantity
			m.persistLocked()
			util.CartMutationsTotal.WithLabelValues("add").Inc()
			return
		}
	}

	m.lines = append(m.lines, models.CartLine{
		ProductID:   product.ProductID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		Quantity:    quantity,
		ImageURL:    product.ImageURL,
		StockAtAdd:  product.Stock,
	})
	m.persistLocked()
	util.CartMutationsTotal.WithLabelValues("add").Inc()
}

// RemoveItem deletes the line for the product id. Removing an absent line
// is a no-op, not an error.
func (m *Manager) RemoveItem(productID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(productID)
	util.CartMutationsTotal.WithLabelValues("remove").Inc()
}

// UpdateQuantity sets the line's quantity. A quantity of zero or below
// removes the line.
func (m *Manager) UpdateQuantity(productID int64, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if quantity <= 0 {
		m.removeLocked(productID)
		util.CartMutationsTotal.WithLabelValues("update").Inc()
		return
	}

	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines[i].Quantity = quantity
			m.persistLocked()
			break
		}
	}
	util.CartMutationsTotal.WithLabelValues("update").Inc()
}

// ClearCart empties the cart and removes the persisted mirror entirely.
func (m *Manager) ClearCart() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lines = nil
	if err := m.store.Clear(); err != nil {
		util.CartPersistFailuresTotal.Inc()
		m.logger.Warn("Failed to clear cart mirror", zap.Error(err))
	}
	util.CartMutationsTotal.WithLabelValues("clear").Inc()
}

// Total returns sum(unitPrice * quantity) over all lines.
func (m *Manager) Total() models.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := models.ZeroAmount()
	for _, l := range m.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount returns sum(quantity) over all lines.
func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, l := range m.lines {
		count += l.Quantity
	}
	return count
}

// Lines returns a display-order snapshot of the cart.
func (m *Manager) Lines() []models.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.CartLine, len(m.lines))
	copy(out, m.lines)
	return out
}

// IsEmpty reports whether the cart has no lines.
func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines) == 0
}

func (m *Manager) removeLocked(productID int64) {
	for i := range m.lines {
		if m.lines[i].ProductID == productID {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			m.persistLocked()
			return
		}
	}
}

// persistLocked mirrors the cart after an in-memory mutation. The mirror
// write happens-after the mutation and is best effort.
func (m *Manager) persistLocked() {
	if err := m.store.Save(m.lines); err != nil {
		util.CartPersistFailuresTotal.Inc()
		m.logger.Warn("Failed to persist cart", zap.Error(err))
	}
}
