package blog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-blog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserProviderVerifyCredentials(t *testing.T) {
	ctx := context.Background()

	user := blog.NewUser("test@example.com", "tester", time.Now())
	user.ID = uuid.New()
	require.NoError(t, user.SetPassword("password123"))

	eventOf := func(kind blog.ActivityEventType) any {
		return mock.MatchedBy(func(e blog.ActivityEvent) bool { return e.EventType == kind })
	}

	t.Run("Successful verification", func(t *testing.T) {
		store := new(MockUserFinder)
		sink := new(MockActivitySink)
		provider := blog.NewUserProvider(store).WithActivitySink(sink).WithLogger(blog.NopLogger{})

		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()
		sink.On("Record", ctx, eventOf(blog.ActivityEventLoginSuccess)).Return(nil).Once()

		found, err := provider.VerifyCredentials(ctx, "test@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		store.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("Wrong password", func(t *testing.T) {
		store := new(MockUserFinder)
		sink := new(MockActivitySink)
		provider := blog.NewUserProvider(store).WithActivitySink(sink).WithLogger(blog.NopLogger{})

		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()
		sink.On("Record", ctx, eventOf(blog.ActivityEventLoginFailure)).Return(nil).Once()

		found, err := provider.VerifyCredentials(ctx, "test@example.com", "nope")
		assert.Nil(t, found)
		assert.ErrorIs(t, err, blog.ErrInvalidCredentials)
		sink.AssertExpectations(t)
	})

	t.Run("Unknown email fails the same way", func(t *testing.T) {
		store := new(MockUserFinder)
		sink := new(MockActivitySink)
		provider := blog.NewUserProvider(store).WithActivitySink(sink).WithLogger(blog.NopLogger{})

		store.On("GetByEmail", ctx, "ghost@example.com").Return(nil, blog.NotFound("user")).Once()
		sink.On("Record", ctx, eventOf(blog.ActivityEventLoginFailure)).Return(nil).Once()

		found, err := provider.VerifyCredentials(ctx, "ghost@example.com", "password123")
		assert.Nil(t, found)
		assert.ErrorIs(t, err, blog.ErrInvalidCredentials)
	})

	t.Run("Empty input never reaches the store", func(t *testing.T) {
		store := new(MockUserFinder)
		provider := blog.NewUserProvider(store).WithLogger(blog.NopLogger{})

		_, err := provider.VerifyCredentials(ctx, "", "password123")
		assert.ErrorIs(t, err, blog.ErrInvalidCredentials)
		_, err = provider.VerifyCredentials(ctx, "test@example.com", "")
		assert.ErrorIs(t, err, blog.ErrInvalidCredentials)
		store.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Store failure is not reported as bad credentials", func(t *testing.T) {
		store := new(MockUserFinder)
		provider := blog.NewUserProvider(store).WithLogger(blog.NopLogger{})

		store.On("GetByEmail", ctx, "test@example.com").Return(nil, errors.New("database is locked")).Once()

		_, err := provider.VerifyCredentials(ctx, "test@example.com", "password123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, blog.ErrInvalidCredentials)
	})

	t.Run("Sink errors do not fail login", func(t *testing.T) {
		store := new(MockUserFinder)
		sink := new(MockActivitySink)
		provider := blog.NewUserProvider(store).WithActivitySink(sink).WithLogger(blog.NopLogger{})

		store.On("GetByEmail", ctx, "test@example.com").Return(user, nil).Once()
		sink.On("Record", ctx, mock.Anything).Return(errors.New("sink down")).Once()

		found, err := provider.VerifyCredentials(ctx, "test@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})
}

func TestUserProviderFindByID(t *testing.T) {
	ctx := context.Background()
	store := new(MockUserFinder)
	provider := blog.NewUserProvider(store)

	id := uuid.New()
	store.On("FindByID", ctx, id).Return(&blog.User{ID: id}, nil).Once()

	user, err := provider.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	store.AssertExpectations(t)
}
