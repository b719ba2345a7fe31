package csrf_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/middleware/csrf"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSecureKey() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

type fixture struct {
	app *fiber.App
	now time.Time
	// user is the identity assumed by requests carrying X-User
	user *blog.User
}

func setup(t *testing.T, cfg csrf.Config) *fixture {
	t.Helper()
	f := &fixture{
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		user: blog.NewUser("john@example.com", "john", time.Now()),
	}
	cfg.SecureKey = newTestSecureKey()
	cfg.Clock = func() time.Time { return f.now }

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{ErrorHandler: blog.FiberErrorHandler})
	})
	r := srv.Router()
	r.Use(func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if c.Header("X-User") != "" {
				blog.SetRequestIdentity(c, blog.NewUserIdentity(f.user, blog.AuthMethodSession))
			}
			return c.Next()
		}
	})
	r.Use(csrf.New(cfg))
	csrf.RegisterRoutes(r)
	r.Get("/form", func(c router.Context) error { return c.SendString(csrf.Token(c)) })
	r.Post("/form", func(c router.Context) error { return c.SendStatus(router.StatusNoContent) })
	f.app = srv.WrappedRouter()
	return f
}

func (f *fixture) token(t *testing.T, asUser bool) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	if asUser {
		req.Header.Set("X-User", "1")
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token := resp.Header.Get(csrf.DefaultHeaderName)
	require.NotEmpty(t, token)
	return token
}

func (f *fixture) post(t *testing.T, token string, asUser bool) int {
	t.Helper()
	form := url.Values{csrf.DefaultFormFieldName: {token}}
	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	if asUser {
		req.Header.Set("X-User", "1")
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestStatelessTokenValidationSuccess(t *testing.T) {
	f := setup(t, csrf.Config{})
	token := f.token(t, false)
	assert.Equal(t, http.StatusNoContent, f.post(t, token, false))

	req := httptest.NewRequest(http.MethodPost, "/form", nil)
	req.Header.Set(csrf.DefaultHeaderName, token)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStatelessTokenValidationFailures(t *testing.T) {
	f := setup(t, csrf.Config{})

	assert.Equal(t, http.StatusBadRequest, f.post(t, "", false))
	assert.Equal(t, http.StatusForbidden, f.post(t, "tampered", false))

	anonymous := f.token(t, false)
	assert.Equal(t, http.StatusForbidden, f.post(t, anonymous, true), "token bound to another session")

	user := f.token(t, true)
	assert.Equal(t, http.StatusNoContent, f.post(t, user, true))
	f.user = blog.NewUser("susan@example.com", "susan", time.Now())
	f.user.ID = uuid.New()
	assert.Equal(t, http.StatusForbidden, f.post(t, user, true), "token bound to another user")
}

func TestStatelessTokenExpiration(t *testing.T) {
	f := setup(t, csrf.Config{Expiration: time.Minute})
	token := f.token(t, false)

	f.now = f.now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusForbidden, f.post(t, token, false))
}

func TestSkip(t *testing.T) {
	f := setup(t, csrf.Config{Skip: func(router.Context) bool { return true }})
	assert.Equal(t, http.StatusNoContent, f.post(t, "", false))
}

func TestShortSecureKeyPanics(t *testing.T) {
	require.Panics(t, func() {
		csrf.New(csrf.Config{SecureKey: []byte("short")})
	})
	assert.Len(t, csrf.DeriveKey("short"), 32)
}

func TestTokenRoute(t *testing.T) {
	f := setup(t, csrf.Config{})

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/csrf", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store, max-age=0", resp.Header.Get(fiber.HeaderCacheControl))

	var body csrf.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, csrf.DefaultFormFieldName, body.FieldName)
	assert.Equal(t, csrf.DefaultHeaderName, body.HeaderName)
	assert.Equal(t, http.StatusNoContent, f.post(t, body.Token, false))
}
