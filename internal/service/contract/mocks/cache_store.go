package mocks

import (
	"context"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/stretchr/testify/mock"
)

// MockCacheStore contract.CacheStore의 Mock 구현체입니다.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = (*MockCacheStore)(nil)

func (m *MockCacheStore) Load(ctx context.Context, query string) (*contract.CacheEntry, error) {
	args := m.Called(ctx, query)
	if e := args.Get(0); e != nil {
		return e.(*contract.CacheEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCacheStore) Save(ctx context.Context, entry *contract.CacheEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockCacheStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
