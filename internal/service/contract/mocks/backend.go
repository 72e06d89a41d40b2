package mocks

import (
	"context"

	"github.com/darkkaiser/domain-sync/internal/service/contract"
	"github.com/stretchr/testify/mock"
)

// MockBackend contract.Backend의 Mock 구현체입니다.
type MockBackend struct {
	mock.Mock
}

var _ contract.Backend = (*MockBackend)(nil)

func (m *MockBackend) Generate(ctx context.Context, query string) (*contract.GenerateResult, error) {
	args := m.Called(ctx, query)
	if r := args.Get(0); r != nil {
		return r.(*contract.GenerateResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) PollStatus(ctx context.Context, taskID contract.TaskID) (*contract.StatusReport, error) {
	args := m.Called(ctx, taskID)
	if r := args.Get(0); r != nil {
		return r.(*contract.StatusReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) FetchResults(ctx context.Context, taskID contract.TaskID) (*contract.ResultBatch, error) {
	args := m.Called(ctx, taskID)
	if r := args.Get(0); r != nil {
		return r.(*contract.ResultBatch), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) GenerateOne(ctx context.Context, query, itemName string) (*contract.ResultRecord, error) {
	args := m.Called(ctx, query, itemName)
	if r := args.Get(0); r != nil {
		return r.(*contract.ResultRecord), args.Error(1)
	}
	return nil, args.Error(1)
}
