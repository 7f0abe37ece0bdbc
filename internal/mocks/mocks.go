// internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	"github.com/stretchr/testify/mock"
)

// MockStore mocks the repository.Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Set(ctx context.Context, domain repository.Domain, key string, value []byte) error {
	args := m.Called(ctx, domain, key, value)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, domain repository.Domain, key string) ([]byte, error) {
	args := m.Called(ctx, domain, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, domain repository.Domain, key string) error {
	args := m.Called(ctx, domain, key)
	return args.Error(0)
}

func (m *MockStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRateSource mocks the rate source interface
type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) FetchRate(ctx context.Context, from, to string) (*entity.RateRecord, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.RateRecord), args.Error(1)
}

func (m *MockRateSource) FetchCurrencies(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}
