package mocks

import (
	"context"
	"io"

	"fileapi/internal/model"
	"fileapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) UploadBatch(ctx context.Context, files []service.FileInput) (*service.BatchResult, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockFileService) List(ctx context.Context) ([]model.FileRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockFileService) Download(ctx context.Context, id string) (io.ReadCloser, *model.FileRecord, error) {
	args := m.Called(ctx, id)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	var rec *model.FileRecord
	if args.Get(1) != nil {
		rec = args.Get(1).(*model.FileRecord)
	}
	return rc, rec, args.Error(2)
}

func (m *MockFileService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
