package tokengate_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/middleware/tokengate"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) VerifyCredentials(ctx context.Context, email, password string) (*blog.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blog.User), args.Error(1)
}

func (m *MockAuthenticator) FindByID(ctx context.Context, id uuid.UUID) (*blog.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blog.User), args.Error(1)
}

func basic(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func newUser(email string, confirmed bool) *blog.User {
	u := blog.NewUser(email, "u"+uuid.NewString()[:8], time.Now())
	u.ID = uuid.New()
	u.Confirmed = confirmed
	u.Role = &blog.Role{Name: blog.RoleNameUser, Permissions: blog.PermissionFollow | blog.PermissionComment}
	return u
}

type whoami struct {
	ID        string `json:"id"`
	Anonymous bool   `json:"anonymous"`
	Method    string `json:"method"`
	FromCtx   string `json:"from_ctx"`
}

func setup(t *testing.T, users *MockAuthenticator) (*fiber.App, *blog.TokenService) {
	t.Helper()
	tokens := blog.NewTokenService("gate-secret", blog.WithTokenLogger(blog.NopLogger{}))

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New()
	})
	api := srv.Router().Group("/api/v1.0")
	api.Use(tokengate.New(tokengate.Config{Users: users, Tokens: tokens}))
	api.Get("/whoami", func(c router.Context) error {
		identity := blog.RequestIdentity(c)
		return c.JSON(router.StatusOK, whoami{
			ID:        identity.ID(),
			Anonymous: identity.IsAnonymous(),
			Method:    string(identity.Method()),
			FromCtx:   blog.IdentityFromContext(c.Context()).ID(),
		})
	})
	api.Get("/token", tokengate.TokenHandler(tokens, time.Hour))
	api.Post("/write", func(c router.Context) error {
		return c.NoContent(router.StatusNoContent)
	}, blog.PermissionRequired(blog.PermissionComment, blog.SendError))
	return srv.WrappedRouter(), tokens
}

func do(t *testing.T, app *fiber.App, path, auth string) (*http.Response, []byte) {
	t.Helper()
	return doMethod(t, app, http.MethodGet, path, auth)
}

func doMethod(t *testing.T, app *fiber.App, method, path, auth string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func decodeError(t *testing.T, body []byte) blog.ErrorResponse {
	t.Helper()
	var out blog.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestAnonymousRequests(t *testing.T) {
	users := new(MockAuthenticator)
	app, _ := setup(t, users)

	for name, auth := range map[string]string{"no header": "", "empty username": basic("", "")} {
		t.Run(name, func(t *testing.T) {
			resp, body := do(t, app, "/api/v1.0/whoami", auth)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var who whoami
			require.NoError(t, json.Unmarshal(body, &who))
			assert.True(t, who.Anonymous)
		})
	}
	users.AssertNotCalled(t, "VerifyCredentials", mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordAuthentication(t *testing.T) {
	users := new(MockAuthenticator)
	app, _ := setup(t, users)
	john := newUser("john@example.com", true)

	users.On("VerifyCredentials", mock.Anything, "john@example.com", "cat").Return(john, nil)
	users.On("VerifyCredentials", mock.Anything, "john@example.com", "dog").Return(nil, blog.ErrInvalidCredentials)
	users.On("VerifyCredentials", mock.Anything, "ghost@example.com", "cat").Return(nil, blog.ErrInvalidCredentials)

	resp, body := do(t, app, "/api/v1.0/whoami", basic("john@example.com", "cat"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var who whoami
	require.NoError(t, json.Unmarshal(body, &who))
	assert.Equal(t, john.ID.String(), who.ID)
	assert.Equal(t, john.ID.String(), who.FromCtx)
	assert.Equal(t, string(blog.AuthMethodPassword), who.Method)

	wrongResp, wrongBody := do(t, app, "/api/v1.0/whoami", basic("john@example.com", "dog"))
	ghostResp, ghostBody := do(t, app, "/api/v1.0/whoami", basic("ghost@example.com", "cat"))

	assert.Equal(t, http.StatusUnauthorized, wrongResp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, ghostResp.StatusCode)
	assert.Equal(t, wrongBody, ghostBody, "unknown email and wrong password are indistinguishable")
	assert.Equal(t, blog.ErrorResponse{Error: "unauthorized", Message: "Invalid credentials"}, decodeError(t, wrongBody))
}

func TestUnconfirmedAccountIsForbidden(t *testing.T) {
	users := new(MockAuthenticator)
	app, _ := setup(t, users)
	susan := newUser("susan@example.com", false)
	users.On("VerifyCredentials", mock.Anything, "susan@example.com", "cat").Return(susan, nil)

	resp, body := do(t, app, "/api/v1.0/whoami", basic("susan@example.com", "cat"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, blog.ErrorResponse{Error: "forbidden", Message: "Unconfirmed account"}, decodeError(t, body))
}

func TestGateStatusByMethod(t *testing.T) {
	users := new(MockAuthenticator)
	app, _ := setup(t, users)
	susan := newUser("susan@example.com", false)
	john := newUser("john@example.com", true)
	users.On("VerifyCredentials", mock.Anything, "susan@example.com", "cat").Return(susan, nil)
	users.On("VerifyCredentials", mock.Anything, "john@example.com", "cat").Return(john, nil)

	tests := []struct {
		name    string
		method  string
		path    string
		auth    string
		status  int
		message string
	}{
		{
			name: "unconfirmed read", method: http.MethodGet, path: "/api/v1.0/whoami",
			auth: basic("susan@example.com", "cat"), status: http.StatusForbidden, message: "Unconfirmed account",
		},
		{
			name: "unconfirmed write", method: http.MethodPost, path: "/api/v1.0/write",
			auth: basic("susan@example.com", "cat"), status: http.StatusForbidden, message: "Unconfirmed account",
		},
		{
			name: "anonymous write", method: http.MethodPost, path: "/api/v1.0/write",
			status: http.StatusForbidden, message: "Insufficient permissions",
		},
		{
			name: "confirmed write", method: http.MethodPost, path: "/api/v1.0/write",
			auth: basic("john@example.com", "cat"), status: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doMethod(t, app, tt.method, tt.path, tt.auth)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.message != "" {
				assert.Equal(t, blog.ErrorResponse{Error: "forbidden", Message: tt.message}, decodeError(t, body))
			}
		})
	}
}

func TestTokenAuthentication(t *testing.T) {
	users := new(MockAuthenticator)
	app, tokens := setup(t, users)
	john := newUser("john@example.com", true)
	users.On("FindByID", mock.Anything, john.ID).Return(john, nil)

	token, err := tokens.GenerateAuthToken(john.ID, time.Hour)
	require.NoError(t, err)

	for name, auth := range map[string]string{"basic": basic(token, ""), "bearer": "Bearer " + token} {
		t.Run(name, func(t *testing.T) {
			resp, body := do(t, app, "/api/v1.0/whoami", auth)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var who whoami
			require.NoError(t, json.Unmarshal(body, &who))
			assert.Equal(t, john.ID.String(), who.ID)
			assert.Equal(t, string(blog.AuthMethodToken), who.Method)
		})
	}

	confirmToken, err := tokens.GenerateConfirmationToken(john.ID, time.Hour)
	require.NoError(t, err)
	for name, auth := range map[string]string{
		"garbage":            basic("not-a-token", ""),
		"confirmation token": basic(confirmToken, ""),
		"bad scheme":         "Digest abc",
		"bad base64":         "Basic ***",
	} {
		t.Run(name, func(t *testing.T) {
			resp, body := do(t, app, "/api/v1.0/whoami", auth)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "Invalid credentials", decodeError(t, body).Message)
		})
	}
}

func TestDeletedUserTokenIsRejected(t *testing.T) {
	users := new(MockAuthenticator)
	app, tokens := setup(t, users)
	id := uuid.New()
	users.On("FindByID", mock.Anything, id).Return(nil, blog.NotFound("user"))

	token, err := tokens.GenerateAuthToken(id, time.Hour)
	require.NoError(t, err)

	resp, _ := do(t, app, "/api/v1.0/whoami", basic(token, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTokenEndpoint(t *testing.T) {
	users := new(MockAuthenticator)
	app, tokens := setup(t, users)
	john := newUser("john@example.com", true)
	users.On("VerifyCredentials", mock.Anything, "john@example.com", "cat").Return(john, nil)
	users.On("FindByID", mock.Anything, john.ID).Return(john, nil)

	resp, body := do(t, app, "/api/v1.0/token", basic("john@example.com", "cat"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var issued tokengate.TokenResponse
	require.NoError(t, json.Unmarshal(body, &issued))
	assert.Equal(t, 3600, issued.Expiration)

	id, err := tokens.VerifyAuthToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, john.ID, id)

	resp, body = do(t, app, "/api/v1.0/token", basic(issued.Token, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "tokens cannot renew themselves")
	assert.Equal(t, "Invalid credentials", decodeError(t, body).Message)

	resp, _ = do(t, app, "/api/v1.0/token", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "anonymous cannot get a token")
}
