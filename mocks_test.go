package blog_test

import (
	"context"

	"github.com/goliatone/go-blog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserFinder implements blog.UserFinder
type MockUserFinder struct {
	mock.Mock
}

func (m *MockUserFinder) GetByEmail(ctx context.Context, email string) (*blog.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blog.User), args.Error(1)
}

func (m *MockUserFinder) FindByID(ctx context.Context, id uuid.UUID) (*blog.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blog.User), args.Error(1)
}

// MockActivitySink implements blog.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event blog.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
