package blog

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserFinder is the subset of Users the provider needs
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// UserProvider verifies credentials and resolves users for the HTTP
// layers. Unknown emails and wrong passwords fail identically.
type UserProvider struct {
	store    UserFinder
	activity ActivitySink
	logger   Logger
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash is compared against when the email is unknown so both
// failure paths spend a bcrypt comparison.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword(uuid.NewString())
	})
	return dummyHash
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	return &UserProvider{
		store:    store,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithActivitySink sets the sink used to emit login events.
func (u *UserProvider) WithActivitySink(sink ActivitySink) *UserProvider {
	u.activity = normalizeActivitySink(sink)
	return u
}

// VerifyCredentials returns the user owning email if password matches.
// Any failure is ErrInvalidCredentials.
func (u *UserProvider) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			_ = ComparePasswordAndHash(password, dummyPasswordHash())
			u.record(ctx, ActivityEventLoginFailure, "", map[string]any{"reason": "unknown_email"})
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if !user.VerifyPassword(password) {
		u.record(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{"reason": "password_mismatch"})
		return nil, ErrInvalidCredentials
	}

	u.record(ctx, ActivityEventLoginSuccess, user.ID.String(), nil)
	return user, nil
}

// FindByID loads a user for a verified token subject
func (u *UserProvider) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return u.store.FindByID(ctx, id)
}

func (u *UserProvider) record(ctx context.Context, kind ActivityEventType, userID string, meta map[string]any) {
	event := ActivityEvent{
		EventType:  kind,
		Actor:      ActorRef{ID: userID, Type: "user"},
		UserID:     userID,
		Metadata:   meta,
		OccurredAt: time.Now(),
	}
	if err := normalizeActivitySink(u.activity).Record(ctx, event); err != nil {
		u.logger.Warn("activity sink error during login: %v", err)
	}
}
