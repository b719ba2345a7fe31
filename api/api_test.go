package api_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/api"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testConfig struct{}

func (testConfig) GetSecretKey() string              { return "api-secret" }
func (testConfig) GetTokenExpiration() time.Duration { return time.Hour }
func (testConfig) GetAdminEmail() string             { return "admin@example.com" }
func (testConfig) GetBaseURL() string                { return "http://blog.test" }
func (testConfig) GetPostsPerPage() int              { return 7 }
func (testConfig) GetFollowersPerPage() int          { return 6 }
func (testConfig) GetCommentsPerPage() int           { return 6 }

type inbox struct {
	mu   sync.Mutex
	last blog.MailMessage
}

func (i *inbox) Send(_ context.Context, msg blog.MailMessage) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last = msg
	return nil
}

type env struct {
	app *fiber.App
	svc blog.Services
	box *inbox
}

func newEnv(t *testing.T) *env {
	t.Helper()
	blog.PasswordHashCost = bcrypt.MinCost
	ctx := context.Background()

	db, err := blog.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := blog.NewRepositoryManager(db)
	box := &inbox{}
	svc := blog.Services{
		Repo:   repo,
		Tokens: blog.NewTokenService("api-secret", blog.WithTokenLogger(blog.NopLogger{})),
		Mailer: box,
		Config: testConfig{},
		Logger: blog.NopLogger{},
	}
	require.NoError(t, blog.NewDeployHandler(svc, db).Execute(ctx, blog.DeployMessage{CreateSchema: true}))

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{ErrorHandler: blog.FiberErrorHandler})
	})
	provider := blog.NewUserProvider(repo.Users()).WithLogger(blog.NopLogger{})
	api.New(svc, provider).Mount(srv.Router())

	return &env{app: srv.WrappedRouter(), svc: svc, box: box}
}

func (e *env) user(t *testing.T, email, username string, confirm bool) *blog.User {
	t.Helper()
	ctx := context.Background()
	var user *blog.User
	require.NoError(t, blog.NewRegisterUserHandler(e.svc).Execute(ctx, blog.RegisterUserMessage{
		Email: email, Username: username, Password: "cat",
		OnResponse: func(u *blog.User) { user = u },
	}))
	if confirm {
		token := e.box.last.Params["token"].(string)
		require.NoError(t, blog.NewConfirmAccountHandler(e.svc).Execute(ctx, blog.ConfirmAccountMessage{
			UserID: user.ID, Token: token,
		}))
	}
	return user
}

func basic(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func (e *env) call(t *testing.T, method, path, auth string, payload any) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(fiber.HeaderAuthorization, auth)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestPostLifecycle(t *testing.T) {
	e := newEnv(t)
	e.user(t, "john@example.com", "john", true)
	e.user(t, "susan@example.com", "susan", true)
	john := basic("john@example.com", "cat")

	status, raw := e.call(t, http.MethodPost, "/api/v1.0/posts", "", api.BodyPayload{Body: "anon"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, blog.ErrorResponse{Error: "forbidden", Message: "Insufficient permissions"}, decode[blog.ErrorResponse](t, raw))

	status, raw = e.call(t, http.MethodPost, "/api/v1.0/posts", john, api.BodyPayload{Body: ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", decode[blog.ErrorResponse](t, raw).Error)

	status, raw = e.call(t, http.MethodPost, "/api/v1.0/posts", john, api.BodyPayload{Body: "body of the *blog* post"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode[api.PostResource](t, raw)
	assert.Contains(t, created.BodyHTML, "<em>blog</em>")
	assert.Equal(t, 0, created.CommentCount)

	path := strings.TrimPrefix(created.URL, "http://example.com")
	status, raw = e.call(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "body of the *blog* post", decode[api.PostResource](t, raw).Body)

	status, _ = e.call(t, http.MethodPut, path, basic("susan@example.com", "cat"), api.BodyPayload{Body: "mine now"})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = e.call(t, http.MethodPut, path, john, api.BodyPayload{Body: "updated body"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "updated body", decode[api.PostResource](t, raw).Body)

	status, raw = e.call(t, http.MethodGet, "/api/v1.0/posts/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", decode[blog.ErrorResponse](t, raw).Error)

	status, raw = e.call(t, http.MethodDelete, path, john, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "method_not_allowed", decode[blog.ErrorResponse](t, raw).Error)
}

func TestAuthenticationFailures(t *testing.T) {
	e := newEnv(t)
	e.user(t, "john@example.com", "john", true)
	e.user(t, "pending@example.com", "pending", false)

	status, raw := e.call(t, http.MethodGet, "/api/v1.0/posts", basic("john@example.com", "dog"), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, blog.ErrorResponse{Error: "unauthorized", Message: "Invalid credentials"}, decode[blog.ErrorResponse](t, raw))

	_, unknown := e.call(t, http.MethodGet, "/api/v1.0/posts", basic("ghost@example.com", "dog"), nil)
	assert.Equal(t, raw, unknown)

	status, raw = e.call(t, http.MethodGet, "/api/v1.0/posts", basic("pending@example.com", "cat"), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Unconfirmed account", decode[blog.ErrorResponse](t, raw).Message)
}

func TestTokenRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.user(t, "john@example.com", "john", true)

	status, raw := e.call(t, http.MethodGet, "/api/v1.0/token", basic("john@example.com", "cat"), nil)
	require.Equal(t, http.StatusOK, status)
	issued := decode[map[string]any](t, raw)
	token := issued["token"].(string)
	assert.EqualValues(t, 3600, issued["expiration"])

	status, raw = e.call(t, http.MethodPost, "/api/v1.0/posts", basic(token, ""), api.BodyPayload{Body: "via token"})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, _ = e.call(t, http.MethodGet, "/api/v1.0/token", basic(token, ""), nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestPaginationAndTimeline(t *testing.T) {
	e := newEnv(t)
	john := e.user(t, "john@example.com", "john", true)
	e.user(t, "susan@example.com", "susan", true)

	for i := range 8 {
		status, _ := e.call(t, http.MethodPost, "/api/v1.0/posts", basic("john@example.com", "cat"), api.BodyPayload{Body: fmt.Sprintf("post %d", i)})
		require.Equal(t, http.StatusCreated, status)
	}
	status, _ := e.call(t, http.MethodPost, "/api/v1.0/posts", basic("susan@example.com", "cat"), api.BodyPayload{Body: "susan"})
	require.Equal(t, http.StatusCreated, status)

	status, raw := e.call(t, http.MethodGet, "/api/v1.0/posts", "", nil)
	require.Equal(t, http.StatusOK, status)
	first := decode[api.PostList](t, raw)
	assert.Equal(t, 9, first.Count)
	assert.Len(t, first.Posts, 7)
	assert.Nil(t, first.Prev)
	require.NotNil(t, first.Next)
	assert.True(t, strings.HasSuffix(*first.Next, "/api/v1.0/posts?page=2"))

	status, raw = e.call(t, http.MethodGet, "/api/v1.0/posts?page=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	second := decode[api.PostList](t, raw)
	assert.Len(t, second.Posts, 2)
	assert.NotNil(t, second.Prev)
	assert.Nil(t, second.Next)

	status, raw = e.call(t, http.MethodGet, "/api/v1.0/users/"+john.ID.String()+"/timeline", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 8, decode[api.PostList](t, raw).Count, "john only follows himself")

	status, raw = e.call(t, http.MethodGet, "/api/v1.0/users/"+john.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[api.UserResource](t, raw)
	assert.Equal(t, "john", profile.Username)
	assert.Equal(t, 8, profile.PostCount)

	status, _ = e.call(t, http.MethodGet, "/api/v1.0/users/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCommentsAndModeration(t *testing.T) {
	e := newEnv(t)
	e.user(t, "john@example.com", "john", true)
	e.user(t, "susan@example.com", "susan", true)
	e.user(t, "admin@example.com", "admin", true)

	status, raw := e.call(t, http.MethodPost, "/api/v1.0/posts", basic("john@example.com", "cat"), api.BodyPayload{Body: "post"})
	require.Equal(t, http.StatusCreated, status)
	post := decode[api.PostResource](t, raw)
	postPath := strings.TrimPrefix(post.URL, "http://example.com")

	status, raw = e.call(t, http.MethodPost, postPath+"/comments", basic("susan@example.com", "cat"), api.BodyPayload{Body: "**great**"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	comment := decode[api.CommentResource](t, raw)
	assert.Contains(t, comment.BodyHTML, "<strong>great</strong>")
	commentPath := strings.TrimPrefix(comment.URL, "http://example.com")

	status, raw = e.call(t, http.MethodGet, postPath+"/comments", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[api.CommentList](t, raw).Count)

	status, _ = e.call(t, http.MethodPut, commentPath+"/moderation", basic("john@example.com", "cat"), api.ModerationPayload{Disabled: true})
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = e.call(t, http.MethodPut, commentPath+"/moderation", basic("admin@example.com", "cat"), api.ModerationPayload{Disabled: true})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, decode[api.CommentResource](t, raw).Disabled)

	status, raw = e.call(t, http.MethodGet, "/api/v1.0/comments", "", nil)
	require.Equal(t, http.StatusOK, status)
	comments := decode[api.CommentList](t, raw)
	assert.Equal(t, 1, comments.Count)
	require.Len(t, comments.Comments, 1)
	assert.True(t, comments.Comments[0].Disabled)

	status, _ = e.call(t, http.MethodPost, "/api/v1.0/posts/4242/comments", basic("susan@example.com", "cat"), api.BodyPayload{Body: "lost"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListEnvelopesNameTheirCollection(t *testing.T) {
	e := newEnv(t)
	e.user(t, "john@example.com", "john", true)
	john := basic("john@example.com", "cat")

	status, raw := e.call(t, http.MethodPost, "/api/v1.0/posts", john, api.BodyPayload{Body: "post"})
	require.Equal(t, http.StatusCreated, status)
	postPath := strings.TrimPrefix(decode[api.PostResource](t, raw).URL, "http://example.com")

	status, _ = e.call(t, http.MethodPost, postPath+"/comments", john, api.BodyPayload{Body: "comment"})
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		path string
		key  string
	}{
		{path: "/api/v1.0/posts", key: "posts"},
		{path: postPath + "/comments", key: "comments"},
		{path: "/api/v1.0/comments", key: "comments"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, raw := e.call(t, http.MethodGet, tt.path, "", nil)
			require.Equal(t, http.StatusOK, status)

			body := decode[map[string]json.RawMessage](t, raw)
			assert.Contains(t, body, tt.key)
			assert.NotContains(t, body, "items")
			for _, key := range []string{"prev", "next", "count"} {
				assert.Contains(t, body, key)
			}

			var list []map[string]any
			require.NoError(t, json.Unmarshal(body[tt.key], &list))
			assert.Len(t, list, 1)
		})
	}
}
