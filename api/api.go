package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/middleware/tokengate"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Prefix is the mount point of the versioned API
const Prefix = "/api/v1.0"

// API serves the token authenticated JSON interface
type API struct {
	svc      blog.Services
	users    tokengate.Authenticator
	tokenTTL time.Duration
	logger   blog.Logger
}

// New builds the API handlers. users resolves Basic credentials.
func New(svc blog.Services, users tokengate.Authenticator) *API {
	logger := svc.Logger
	if logger == nil {
		logger = blog.NopLogger{}
	}

	ttl := blog.DefaultTokenTTL
	if svc.Config != nil && svc.Config.GetTokenExpiration() > 0 {
		ttl = svc.Config.GetTokenExpiration()
	}

	return &API{
		svc:      svc,
		users:    users,
		tokenTTL: ttl,
		logger:   logger,
	}
}

// Mount registers every API route under Prefix on r. The group only
// runs the token gate, browser sessions never reach it.
func (a *API) Mount(r router.Router[*fiber.App]) router.Router[*fiber.App] {
	g := r.Group(Prefix)
	g.Use(tokengate.New(tokengate.Config{
		Users:        a.users,
		Tokens:       a.svc.Tokens,
		ErrorHandler: a.sendError,
		Logger:       a.logger,
	}))

	can := func(p blog.Permission) router.MiddlewareFunc {
		return blog.PermissionRequired(p, a.sendError)
	}

	g.Get("/token", tokengate.TokenHandler(a.svc.Tokens, a.tokenTTL, a.sendError)).SetName("api.token")

	g.Get("/users/:id", a.GetUser).SetName("api.user")
	g.Get("/users/:id/posts", a.GetUserPosts).SetName("api.user_posts")
	g.Get("/users/:id/timeline", a.GetUserTimeline).SetName("api.user_timeline")

	g.Get("/posts", a.ListPosts).SetName("api.posts")
	g.Post("/posts", a.CreatePost, can(blog.PermissionWriteArticles))
	g.Get("/posts/:id", a.GetPost).SetName("api.post")
	g.Put("/posts/:id", a.EditPost, can(blog.PermissionWriteArticles))
	g.Get("/posts/:id/comments", a.ListPostComments).SetName("api.post_comments")
	g.Post("/posts/:id/comments", a.CreateComment, can(blog.PermissionComment))

	g.Get("/comments", a.ListComments).SetName("api.comments")
	g.Get("/comments/:id", a.GetComment).SetName("api.comment")
	g.Put("/comments/:id/moderation", a.ModerateComment, can(blog.PermissionModerateComments))

	return g
}

func (a *API) sendError(c router.Context, err error) error {
	status := blog.StatusCode(err)
	if status >= router.StatusInternalServerError {
		a.logger.Error("api %s %s failed: %v", c.Method(), c.Path(), err)
	} else {
		a.logger.Debug("api %s %s rejected: %v", c.Method(), c.Path(), err)
	}
	return blog.SendError(c, err)
}

func (a *API) perPage(get func(blog.Config) int) int {
	if a.svc.Config == nil {
		return blog.DefaultPageSize
	}
	return get(a.svc.Config)
}

func postsPerPage(cfg blog.Config) int    { return cfg.GetPostsPerPage() }
func commentsPerPage(cfg blog.Config) int { return cfg.GetCommentsPerPage() }

func pageFrom(c router.Context, size int) blog.Page {
	return blog.NewPage(c.QueryInt("page", 1), size)
}

func userID(c router.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, blog.NotFound("user")
	}
	return id, nil
}

func intID(c router.Context, resource string) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, blog.NotFound(resource)
	}
	return id, nil
}

func bindBody(c router.Context, out any) error {
	if err := c.Bind(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed request body").
			WithCode(goerrors.CodeBadRequest)
	}
	return nil
}

// links builds absolute URLs relative to the request's base URL
type links struct {
	base string
}

func linksFor(c router.Context) links {
	return links{base: baseURL(c) + Prefix}
}

// baseURL is scheme and host of the request, honoring a proxy's
// X-Forwarded-Proto
func baseURL(c router.Context) string {
	scheme := strings.ToLower(c.Header("X-Forwarded-Proto"))
	if scheme != "https" {
		scheme = "http"
	}
	return scheme + "://" + strings.TrimRight(c.Header("Host"), "/")
}

func (l links) to(format string, args ...any) string {
	return l.base + fmt.Sprintf(format, args...)
}

func (l links) user(id uuid.UUID) string { return l.to("/users/%s", id) }
func (l links) post(id int64) string     { return l.to("/posts/%d", id) }
