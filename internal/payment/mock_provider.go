package payment

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

// MockPaymentProvider keeps checkout sessions in memory. Sessions start unpaid until MarkPaid
// is called.
type MockPaymentProvider struct {
	mu       sync.Mutex
	sessions map[string]*domain.CheckoutSession
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{
		sessions: make(map[string]*domain.CheckoutSession),
	}
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	_ context.Context,
	params domain.CheckoutSessionParams) (*domain.CheckoutSession, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	id := "cs_test_" + uuid.NewString()
	cs := &domain.CheckoutSession{
		ID:            id,
		URL:           "https://checkout.example.com/pay/" + id,
		PaymentStatus: domain.PaymentStatusUnpaid,
		Metadata:      maps.Clone(params.Metadata),
	}
	m.sessions[id] = cs

	return copySession(cs), nil
}

func (m *MockPaymentProvider) GetCheckoutSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrPaymentSessionNotFound
	}

	return copySession(cs), nil
}

// MarkPaid flips the session to paid and reports whether it exists.
func (m *MockPaymentProvider) MarkPaid(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, ok := m.sessions[id]
	if ok {
		cs.PaymentStatus = domain.PaymentStatusPaid
	}

	return ok
}

func copySession(cs *domain.CheckoutSession) *domain.CheckoutSession {
	c := *cs
	c.Metadata = maps.Clone(cs.Metadata)
	return &c
}
