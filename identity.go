package blog

// AuthMethod records how a request identity was established
type AuthMethod string

const (
	AuthMethodNone     AuthMethod = "none"
	AuthMethodPassword AuthMethod = "password"
	AuthMethodToken    AuthMethod = "token"
	AuthMethodSession  AuthMethod = "session"
)

// Identity is the actor behind a request. It is either anonymous or an
// authenticated user and answers permission checks the same way for both.
type Identity interface {
	ID() string
	IsAnonymous() bool
	IsConfirmed() bool
	Can(p Permission) bool
	IsAdministrator() bool
	User() *User
	Method() AuthMethod
}

// UserIdentity wraps an authenticated *User
type UserIdentity struct {
	user   *User
	method AuthMethod
}

var (
	_ Identity = UserIdentity{}
	_ Identity = AnonymousIdentity{}
)

// NewUserIdentity returns the identity for user, authenticated by method.
// A nil user yields AnonymousIdentity.
func NewUserIdentity(user *User, method AuthMethod) Identity {
	if user == nil {
		return AnonymousIdentity{}
	}
	return UserIdentity{user: user, method: method}
}

func (u UserIdentity) ID() string            { return u.user.ID.String() }
func (u UserIdentity) IsAnonymous() bool     { return false }
func (u UserIdentity) IsConfirmed() bool     { return u.user.Confirmed }
func (u UserIdentity) Can(p Permission) bool { return u.user.Can(p) }
func (u UserIdentity) IsAdministrator() bool { return u.user.IsAdministrator() }
func (u UserIdentity) User() *User           { return u.user }
func (u UserIdentity) Method() AuthMethod    { return u.method }

// AnonymousIdentity is the unauthenticated actor. It holds no
// permissions.
type AnonymousIdentity struct{}

func (AnonymousIdentity) ID() string          { return "" }
func (AnonymousIdentity) IsAnonymous() bool   { return true }
func (AnonymousIdentity) IsConfirmed() bool   { return false }
func (AnonymousIdentity) Can(Permission) bool { return false }
func (AnonymousIdentity) IsAdministrator() bool {
	return false
}
func (AnonymousIdentity) User() *User        { return nil }
func (AnonymousIdentity) Method() AuthMethod { return AuthMethodNone }
