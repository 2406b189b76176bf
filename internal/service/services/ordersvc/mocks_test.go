package ordersvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/corray333/backend-labs/cafe/internal/service/models/notification"
	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
)

// MockRepository is an in-memory order store with the same conditional confirm semantics.
type MockRepository struct {
	mu        sync.Mutex
	orders    map[string]order.Order
	seq       int
	InsertErr error
	QueryErr  error
	LastQuery *order.QueryOrdersModel
}

func NewMockRepository() *MockRepository {
	return &MockRepository{orders: make(map[string]order.Order)}
}

func (m *MockRepository) Insert(_ context.Context, o order.Order) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return order.Order{}, m.InsertErr
	}

	m.seq++
	o.ID = fmt.Sprintf("order-%d", m.seq)
	m.orders[o.ID] = o

	return o, nil
}

func (m *MockRepository) GetByID(_ context.Context, id string) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}

	return o, nil
}

func (m *MockRepository) ConfirmPending(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusPending {
		return false, nil
	}
	o.Status = order.StatusConfirmed
	m.orders[id] = o

	return true, nil
}

func (m *MockRepository) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastQuery = filter
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	var result []order.Order
	for _, o := range m.orders {
		if filter.Status == "" || o.Status == filter.Status {
			result = append(result, o)
		}
	}

	return result, nil
}

// MockNotifier captures notifications.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []notification.Notification
}

func (m *MockNotifier) Notify(_ context.Context, n notification.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
}

// MockLimiter counts attempts in memory.
type MockLimiter struct {
	mu       sync.Mutex
	Attempts map[string]int64
	Err      error
}

func NewMockLimiter() *MockLimiter {
	return &MockLimiter{Attempts: make(map[string]int64)}
}

func (m *MockLimiter) Count(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Attempts[id], m.Err
}

func (m *MockLimiter) Increment(_ context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return 0, m.Err
	}
	m.Attempts[id]++

	return m.Attempts[id], nil
}

func (m *MockLimiter) Reset(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Attempts, id)

	return m.Err
}
