package blog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, resp *http.Response) blog.ErrorResponse {
	t.Helper()
	var out blog.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func newTestServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{ErrorHandler: blog.FiberErrorHandler})
	})
}

func TestSendError(t *testing.T) {
	srv := newTestServer()
	r := srv.Router()
	r.Get("/forbidden", func(c router.Context) error {
		return blog.SendError(c, blog.ErrInsufficientPermissions)
	})
	r.Get("/internal", func(c router.Context) error {
		return blog.SendError(c, goerrors.New("database password is hunter2", goerrors.CategoryInternal))
	})
	r.Get("/fiber", func(c router.Context) error {
		return blog.SendError(c, fiber.NewError(fiber.StatusNotFound, "Cannot GET /fiber"))
	})
	r.Get("/returned", func(c router.Context) error {
		return blog.ErrEmailTaken
	})
	app := srv.WrappedRouter()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/forbidden", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, "Insufficient permissions", body.Message)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/internal", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body = decodeError(t, resp)
	assert.Equal(t, "internal_error", body.Error)
	assert.NotContains(t, body.Message, "hunter2")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/fiber", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Cannot GET /fiber", decodeError(t, resp).Message)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/returned", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decodeError(t, resp).Error)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, resp).Error)
}

func TestRequestIdentityAndPermissionRequired(t *testing.T) {
	writer := blog.NewUser("writer@example.com", "writer", time.Now())
	writer.Role = roleFor(t, blog.RoleNameUser)

	srv := newTestServer()
	r := srv.Router()
	r.Use(func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if c.Header("X-User") == "writer" {
				blog.SetRequestIdentity(c, blog.NewUserIdentity(writer, blog.AuthMethodSession))
			}
			return c.Next()
		}
	})
	r.Get("/who", func(c router.Context) error {
		return c.JSON(router.StatusOK, map[string]string{
			"locals":  blog.RequestIdentity(c).ID(),
			"context": blog.IdentityFromContext(c.Context()).ID(),
		})
	})
	r.Post("/write", func(c router.Context) error {
		return c.SendStatus(router.StatusCreated)
	}, blog.PermissionRequired(blog.PermissionWriteArticles, blog.SendError))
	r.Post("/moderate", func(c router.Context) error {
		return c.SendStatus(router.StatusOK)
	}, blog.PermissionRequired(blog.PermissionModerateComments, blog.SendError))
	app := srv.WrappedRouter()

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("X-User", "writer")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var who map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
	assert.Equal(t, writer.ID.String(), who["locals"])
	assert.Equal(t, writer.ID.String(), who["context"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/who", nil))
	require.NoError(t, err)
	who = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
	assert.Empty(t, who["locals"], "anonymous by default")

	req = httptest.NewRequest(http.MethodPost, "/write", nil)
	req.Header.Set("X-User", "writer")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/write", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/moderate", nil)
	req.Header.Set("X-User", "writer")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCookies(t *testing.T) {
	srv := newTestServer()
	opts := blog.CookieOptions{Secure: true}
	srv.Router().Get("/set", func(c router.Context) error {
		blog.SetCookie(c, opts, "flavour", "oat", time.Hour)
		return nil
	})
	srv.Router().Get("/clear", func(c router.Context) error {
		blog.ClearCookie(c, opts, "flavour")
		return nil
	})
	app := srv.WrappedRouter()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil))
	require.NoError(t, err)
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "oat", cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/clear", nil))
	require.NoError(t, err)
	cookies = resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
}
