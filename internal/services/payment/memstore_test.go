package payment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/magabrotheeeer/premium-access/internal/models"
	"github.com/magabrotheeeer/premium-access/internal/storage"
)

// memStore хранилище в памяти с семантикой storage.Storage:
// условная финализация, уникальные ссылки, транзакции выполняются по одной.
type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	users    map[string]models.User
	payments map[string]models.PaymentRecord
}

type memTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]models.User{},
		payments: map[string]models.PaymentRecord{},
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}

func (m *memStore) addUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) user(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserForUpdate(ctx context.Context, userID string) (*models.User, error) {
	return m.GetUser(ctx, userID)
}

func (m *memStore) SaveSubscription(_ context.Context, userID string, sub models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.Subscription = sub
	m.users[userID] = u
	return nil
}

func (m *memStore) CreatePayment(_ context.Context, p models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[p.UserID]; !ok {
		return storage.ErrUserNotFound
	}
	for _, existing := range m.payments {
		if existing.Reference == p.Reference {
			return storage.ErrReferenceExists
		}
	}
	m.payments[p.ID] = p
	return nil
}

func (m *memStore) GetPayment(_ context.Context, id string) (*models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, storage.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *memStore) GetPaymentForUpdate(ctx context.Context, id string) (*models.PaymentRecord, error) {
	return m.GetPayment(ctx, id)
}

func (m *memStore) GetPaymentByReference(_ context.Context, ref string) (*models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.Reference == ref {
			return &p, nil
		}
	}
	return nil, storage.ErrPaymentNotFound
}

func (m *memStore) FinalizePayment(_ context.Context, id string, status models.RecordStatus, approvedAt *time.Time, reason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return storage.ErrPaymentNotFound
	}
	if p.Status != models.RecordPending {
		return storage.ErrNotPending
	}
	p.Status = status
	p.ApprovedAt = approvedAt
	p.RejectReason = reason
	m.payments[id] = p
	return nil
}

func (m *memStore) ListPaymentsByUser(_ context.Context, userID string) ([]*models.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PaymentRecord
	for _, p := range m.payments {
		if p.UserID == userID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// nopCache кэш, в котором ничего не задерживается.
type nopCache struct{}

func (nopCache) GetUser(context.Context, string) (*models.User, bool, error) { return nil, false, nil }

func (nopCache) UserFence(context.Context, string) (int64, error) { return 0, nil }

func (nopCache) SetUserIfFence(context.Context, *models.User, int64) (bool, error) {
	return false, nil
}

func (nopCache) InvalidateUser(context.Context, string) error { return nil }
