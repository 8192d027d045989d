package mocks

import (
	"context"

	"fileapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Insert(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if f, ok := args.Get(0).(func(context.Context, *model.FileRecord) *model.FileRecord); ok {
		return f(ctx, rec), args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileRepository) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileRepository) List(ctx context.Context) ([]model.FileRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockFileRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
