package websession

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// SessionTokens mints and redeems the signed session cookie value
type SessionTokens interface {
	GenerateSessionToken(userID uuid.UUID, ttl time.Duration) (string, error)
	VerifySessionToken(token string) (uuid.UUID, error)
}

// UserStore loads session users and records their activity
type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*blog.User, error)
	Ping(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Config struct {
	CookieName       string
	Tokens           SessionTokens
	Users            UserStore
	Duration         time.Duration
	RememberDuration time.Duration
	Cookie           blog.CookieOptions
	// UnconfirmedPath receives authenticated users that did not confirm
	// their email yet
	UnconfirmedPath string
	// ExemptPrefixes stay reachable for unconfirmed users
	ExemptPrefixes []string
	LoginPath      string
	Logger         blog.Logger
	Clock          func() time.Time
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Tokens == nil {
		panic("WEBSESSION: configuration: Tokens is required.")
	}

	if cfg.Users == nil {
		panic("WEBSESSION: configuration: Users is required.")
	}

	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}

	if cfg.Duration <= 0 {
		cfg.Duration = 24 * time.Hour
	}

	if cfg.RememberDuration <= 0 {
		cfg.RememberDuration = 365 * 24 * time.Hour
	}

	if cfg.UnconfirmedPath == "" {
		cfg.UnconfirmedPath = "/auth/unconfirmed"
	}

	if cfg.ExemptPrefixes == nil {
		cfg.ExemptPrefixes = []string{"/auth/", "/static/"}
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}

	if cfg.Logger == nil {
		cfg.Logger = blog.NopLogger{}
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return cfg
}

// Manager owns the session cookie
type Manager struct {
	cfg Config
}

func New(config ...Config) *Manager {
	return &Manager{cfg: GetDefaultConfig(config...)}
}

// Middleware resolves the identity from the session cookie, refreshes
// last_seen for authenticated users and sends unconfirmed users to
// UnconfirmedPath. A bad cookie is cleared and the request continues
// anonymously.
func (m *Manager) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			identity := m.identity(c)
			blog.SetRequestIdentity(c, identity)

			if identity.IsAnonymous() {
				return c.Next()
			}

			if err := m.cfg.Users.Ping(c.Context(), identity.User().ID, m.cfg.Clock()); err != nil {
				m.cfg.Logger.Warn("failed to update last seen for %s: %v", identity.ID(), err)
			}

			if !identity.IsConfirmed() && !m.exempt(c.Path()) {
				return c.Redirect(m.cfg.UnconfirmedPath, router.StatusFound)
			}
			return c.Next()
		}
	}
}

func (m *Manager) identity(c router.Context) blog.Identity {
	raw := c.Cookies(m.cfg.CookieName)
	if raw == "" {
		return blog.AnonymousIdentity{}
	}

	id, err := m.cfg.Tokens.VerifySessionToken(raw)
	if err != nil {
		m.cfg.Logger.Debug("discarding invalid session cookie: %v", err)
		blog.ClearCookie(c, m.cfg.Cookie, m.cfg.CookieName)
		return blog.AnonymousIdentity{}
	}

	user, err := m.cfg.Users.FindByID(c.Context(), id)
	if err != nil {
		if !goerrors.IsNotFound(err) {
			m.cfg.Logger.Error("failed to load session user %s: %v", id, err)
		}
		blog.ClearCookie(c, m.cfg.Cookie, m.cfg.CookieName)
		return blog.AnonymousIdentity{}
	}
	return blog.NewUserIdentity(user, blog.AuthMethodSession)
}

func (m *Manager) exempt(path string) bool {
	for _, prefix := range m.cfg.ExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return path == m.cfg.UnconfirmedPath
}

// Login starts a session for user. remember selects the long lived
// cookie.
func (m *Manager) Login(c router.Context, user *blog.User, remember bool) error {
	duration := m.cfg.Duration
	if remember {
		duration = m.cfg.RememberDuration
	}

	token, err := m.cfg.Tokens.GenerateSessionToken(user.ID, duration)
	if err != nil {
		return err
	}

	blog.SetCookie(c, m.cfg.Cookie, m.cfg.CookieName, token, duration)
	blog.SetRequestIdentity(c, blog.NewUserIdentity(user, blog.AuthMethodSession))
	return nil
}

// Logout ends the session
func (m *Manager) Logout(c router.Context) {
	blog.ClearCookie(c, m.cfg.Cookie, m.cfg.CookieName)
	blog.SetRequestIdentity(c, blog.AnonymousIdentity{})
}

// LoginRequired redirects anonymous requests to the login path, keeping
// the original URL in the next query parameter.
func (m *Manager) LoginRequired() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if blog.RequestIdentity(c).IsAnonymous() {
				target := m.cfg.LoginPath + "?next=" + url.QueryEscape(c.OriginalURL())
				return c.Redirect(target, router.StatusFound)
			}
			return c.Next()
		}
	}
}
