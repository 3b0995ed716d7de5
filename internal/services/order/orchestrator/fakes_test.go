package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	internalErrors "github.com/tumbleweedd/food_ordering_system/internal/lib/errors"
)

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]models.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]models.Order)}
}

func (m *memOrders) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.OrderUUID]; ok {
		return fmt.Errorf("duplicate key value violates unique constraint \"order_pkey\"")
	}

	m.orders[order.OrderUUID] = cloneOrder(*order)
	return nil
}

func (m *memOrders) Update(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.OrderUUID]; !ok {
		return internalErrors.ErrOrderNotFound
	}

	m.orders[order.OrderUUID] = cloneOrder(*order)
	return nil
}

func (m *memOrders) Order(_ context.Context, orderUUID uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderUUID]
	if !ok {
		return nil, internalErrors.ErrOrderNotFound
	}

	order = cloneOrder(order)
	return &order, nil
}

func (m *memOrders) get(orderUUID uuid.UUID) models.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.orders[orderUUID]
}

func (m *memOrders) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := make(map[uuid.UUID]models.Order, len(m.orders))
	for k, v := range m.orders {
		saved[k] = cloneOrder(v)
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.orders = saved
	}
}

func cloneOrder(order models.Order) models.Order {
	order.Items = append([]models.OrderItem(nil), order.Items...)
	order.FailureMessages = append([]string(nil), order.FailureMessages...)
	return order
}

// memOutbox keeps rows in insertion order, the last matching row is the newest.
type memOutbox struct {
	mu        sync.Mutex
	rows      []models.OutboxMessage
	staleOnce bool
}

func (m *memOutbox) Save(_ context.Context, msg *models.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.rows {
		if row.Type == msg.Type && row.SagaID == msg.SagaID && row.SagaStatus == msg.SagaStatus {
			return fmt.Errorf("duplicate key value violates unique constraint \"outbox_saga_step_idx\"")
		}
	}

	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memOutbox) Find(_ context.Context, sagaID uuid.UUID, msgType models.MessageType, sagaStatus models.SagaStatus) (*models.OutboxMessage, error) {
	return m.last(func(row models.OutboxMessage) bool {
		return row.SagaID == sagaID && row.Type == msgType && row.SagaStatus == sagaStatus
	})
}

func (m *memOutbox) Latest(_ context.Context, sagaID uuid.UUID, msgType models.MessageType) (*models.OutboxMessage, error) {
	return m.last(func(row models.OutboxMessage) bool {
		return row.SagaID == sagaID && row.Type == msgType
	})
}

func (m *memOutbox) Update(_ context.Context, msg *models.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.staleOnce {
		m.staleOnce = false
		return fmt.Errorf("id %s: %w", msg.ID, internalErrors.ErrOutboxStale)
	}

	for i := range m.rows {
		if m.rows[i].ID != msg.ID {
			continue
		}

		if m.rows[i].Version != msg.Version {
			return internalErrors.ErrOutboxStale
		}

		msg.Version++
		m.rows[i] = *msg
		return nil
	}

	return internalErrors.ErrOutboxNotFound
}

// complete plays the relay: every STARTED row is acknowledged.
func (m *memOutbox) complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.rows {
		if m.rows[i].OutboxStatus == models.OutboxStatusStarted {
			m.rows[i].OutboxStatus = models.OutboxStatusCompleted
			m.rows[i].Version++
		}
	}
}

func (m *memOutbox) byType(msgType models.MessageType) []models.OutboxMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.OutboxMessage
	for _, row := range m.rows {
		if row.Type == msgType {
			out = append(out, row)
		}
	}

	return out
}

func (m *memOutbox) last(match func(models.OutboxMessage) bool) (*models.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.rows) - 1; i >= 0; i-- {
		if match(m.rows[i]) {
			row := m.rows[i]
			return &row, nil
		}
	}

	return nil, internalErrors.ErrOutboxNotFound
}

func (m *memOutbox) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := append([]models.OutboxMessage(nil), m.rows...)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.rows = saved
	}
}

// memTx rolls both stores back when fn fails.
type memTx struct {
	orders *memOrders
	outBox *memOutbox
	calls  int
}

func (t *memTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++

	restoreOrders, restoreOutbox := t.orders.snapshot(), t.outBox.snapshot()
	if err := fn(ctx); err != nil {
		restoreOrders()
		restoreOutbox()
		return err
	}

	return nil
}
