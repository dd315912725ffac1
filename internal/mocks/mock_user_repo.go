package mocks

import (
	"context"

	"github.com/metinatakli/cinema-ticketing/internal/domain"
)

type MockUserRepo struct {
	domain.UserRepository
	GetByIdFunc func(ctx context.Context, id int) (*domain.Buyer, error)
}

func (m *MockUserRepo) GetById(ctx context.Context, id int) (*domain.Buyer, error) {
	return m.GetByIdFunc(ctx, id)
}
