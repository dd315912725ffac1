package mocks

import (
	"context"

	"github.com/metinatakli/cinema-ticketing/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPurchaseRepo struct {
	mock.Mock
	domain.PurchaseRepository
}

func (m *MockPurchaseRepo) Create(ctx context.Context, purchase *domain.Purchase) error {
	args := m.Called(ctx, purchase)
	return args.Error(0)
}

func (m *MockPurchaseRepo) GetByPaymentSessionID(ctx context.Context, sessionID string) (*domain.Purchase, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(*domain.Purchase), args.Error(1)
}

func (m *MockPurchaseRepo) RedemptionCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseRepo) GetSoldSeatsByShowing(ctx context.Context, showingID int) ([]domain.SoldSeatRow, error) {
	args := m.Called(ctx, showingID)
	return args.Get(0).([]domain.SoldSeatRow), args.Error(1)
}
