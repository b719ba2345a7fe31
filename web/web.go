package web

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/middleware/csrf"
	"github.com/goliatone/go-blog/middleware/websession"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// CredentialVerifier checks an email and password pair
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*blog.User, error)
}

// Routes holds the paths the controllers redirect to
type Routes struct {
	Index          string
	Login          string
	Logout         string
	Register       string
	Confirm        string
	Unconfirmed    string
	ChangePassword string
	PasswordReset  string
	ChangeEmail    string
	Moderate       string
}

func DefaultRoutes() *Routes {
	return &Routes{
		Index:          "/",
		Login:          "/auth/login",
		Logout:         "/auth/logout",
		Register:       "/auth/register",
		Confirm:        "/auth/confirm",
		Unconfirmed:    "/auth/unconfirmed",
		ChangePassword: "/auth/change-password",
		PasswordReset:  "/auth/reset",
		ChangeEmail:    "/auth/change-email",
		Moderate:       "/moderate",
	}
}

// showFollowedCookie selects the followed timeline on the index page
const showFollowedCookie = "show_followed"

// Web serves the browser facing routes. Pages are JSON documents,
// form posts answer with redirects and flash messages.
type Web struct {
	Debug    bool
	Routes   *Routes
	svc      blog.Services
	users    CredentialVerifier
	sessions *websession.Manager
	cookie   blog.CookieOptions
	logger   blog.Logger
}

// New builds the web controllers
func New(svc blog.Services, users CredentialVerifier, sessions *websession.Manager, cookie blog.CookieOptions) *Web {
	logger := svc.Logger
	if logger == nil {
		logger = blog.NopLogger{}
	}
	return &Web{
		Routes:   DefaultRoutes(),
		svc:      svc,
		users:    users,
		sessions: sessions,
		cookie:   cookie,
		logger:   logger,
	}
}

// Mount registers the auth and main routes on r. The session and flash
// middlewares must already run on r.
func (w *Web) Mount(r router.Router[*fiber.App]) {
	w.mountAuth(r.Group("/auth"))
	w.mountMain(r)
}

func (w *Web) mountAuth(r router.Router[*fiber.App]) {
	login := w.sessions.LoginRequired()

	r.Get("/login", w.form("login")).SetName("auth.login")
	r.Post("/login", w.LoginPost)
	r.Get("/logout", w.Logout, login).SetName("auth.logout")

	r.Get("/register", w.form("register")).SetName("auth.register")
	r.Post("/register", w.RegisterPost)

	r.Get("/unconfirmed", w.Unconfirmed).SetName("auth.unconfirmed")
	r.Get("/confirm", w.ResendConfirmation, login)
	r.Get("/confirm/:token", w.Confirm, login).SetName("auth.confirm")

	r.Get("/change-password", w.form("change_password"), login).SetName("auth.change_password")
	r.Post("/change-password", w.ChangePasswordPost, login)

	r.Get("/reset", w.form("reset_password_request"), w.anonymousOnly()).SetName("auth.password_reset_request")
	r.Post("/reset", w.PasswordResetPost, w.anonymousOnly())
	r.Get("/reset/:token", w.form("reset_password"), w.anonymousOnly()).SetName("auth.password_reset")
	r.Post("/reset/:token", w.PasswordResetExecute, w.anonymousOnly())

	r.Get("/change-email", w.form("change_email"), login).SetName("auth.change_email_request")
	r.Post("/change-email", w.ChangeEmailPost, login)
	r.Get("/change-email/:token", w.ChangeEmail, login).SetName("auth.change_email")
}

func (w *Web) mountMain(r router.Router[*fiber.App]) {
	login := w.sessions.LoginRequired()
	can := func(p blog.Permission) router.MiddlewareFunc {
		return blog.PermissionRequired(p, w.abort)
	}

	r.Get("/", w.Index).SetName("main.index")
	r.Post("/", w.CreatePost, login, can(blog.PermissionWriteArticles))
	r.Get("/all", w.ShowAll, login).SetName("main.show_all")
	r.Get("/followed", w.ShowFollowed, login).SetName("main.show_followed")

	r.Get("/user/:username", w.Profile).SetName("main.user")
	r.Post("/edit-profile", w.EditProfile, login)
	r.Post("/edit-profile/:id", w.AdminEditProfile, login, can(blog.PermissionAdminister))

	r.Get("/post/:id", w.Post).SetName("main.post")
	r.Post("/post/:id", w.CreateComment, login, can(blog.PermissionComment))
	r.Post("/edit/:id", w.EditPost, login)

	r.Get("/follow/:username", w.Follow, login, can(blog.PermissionFollow)).SetName("main.follow")
	r.Get("/unfollow/:username", w.Unfollow, login, can(blog.PermissionFollow)).SetName("main.unfollow")
	r.Get("/followers/:username", w.Followers).SetName("main.followers")
	r.Get("/followed-by/:username", w.FollowedBy).SetName("main.followed_by")

	r.Get("/moderate", w.Moderate, login, can(blog.PermissionModerateComments)).SetName("main.moderate")
	r.Get("/moderate/enable/:id", w.ModerateEnable, login, can(blog.PermissionModerateComments))
	r.Get("/moderate/disable/:id", w.ModerateDisable, login, can(blog.PermissionModerateComments))
}

// render writes content wrapped in a PageResponse together with the flash
// data the flash middleware loaded for this request
func (w *Web) render(c router.Context, content any) error {
	identity := blog.RequestIdentity(c)
	resp := PageResponse{
		CSRFToken: csrf.Token(c),
		Content:   content,
	}
	if data, ok := c.Locals("flash").(router.ViewContext); ok && len(data) > 0 {
		resp.Flash = data
	}
	if user := identity.User(); user != nil {
		view := userView(user, identity)
		resp.CurrentUser = &view
	}
	return c.JSON(router.StatusOK, resp)
}

func (w *Web) form(name string) router.HandlerFunc {
	return func(c router.Context) error {
		return w.render(c, FormView{Form: name})
	}
}

// abort answers with the JSON error envelope, for failures a redirect
// cannot recover from
func (w *Web) abort(c router.Context, err error) error {
	if blog.StatusCode(err) >= router.StatusInternalServerError {
		w.logger.Error("web %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return blog.SendError(c, err)
}

// fail flashes a recoverable error and redirects to target. Not found,
// forbidden and internal errors abort instead.
func (w *Web) fail(c router.Context, err error, target, message string) error {
	switch blog.StatusCode(err) {
	case router.StatusBadRequest, router.StatusUnauthorized, router.StatusConflict:
		w.logger.Debug("web %s %s rejected: %v", c.Method(), c.Path(), err)
		return flash.WithError(c, flashFor(err, message)).Redirect(target, router.StatusSeeOther)
	}
	return w.abort(c, err)
}

func (w *Web) success(c router.Context, target, message string) error {
	return flash.WithSuccess(c, router.ViewContext{
		"system_message": message,
	}).Redirect(target, router.StatusSeeOther)
}

func (w *Web) redirect(c router.Context, target string) error {
	return c.Redirect(target, router.StatusSeeOther)
}

func (w *Web) anonymousOnly() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if !blog.RequestIdentity(c).IsAnonymous() {
				return w.redirect(c, w.Routes.Index)
			}
			return c.Next()
		}
	}
}

// flashFor turns a recoverable error into flash data. message replaces
// the error text when set. Field errors land under validation_<field>.
func flashFor(err error, message string) router.ViewContext {
	data := router.ViewContext{}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if message == "" {
			message = richErr.Message
		}
		if richErr.Category == goerrors.CategoryValidation {
			for field, msg := range richErr.Metadata {
				data["validation_"+field] = fmt.Sprint(msg)
			}
		}
	}

	if message == "" {
		message = err.Error()
	}
	data["error_message"] = message
	return data
}

func (w *Web) perPage(get func(blog.Config) int) int {
	if w.svc.Config == nil {
		return blog.DefaultPageSize
	}
	return get(w.svc.Config)
}

func postsPerPage(cfg blog.Config) int     { return cfg.GetPostsPerPage() }
func followersPerPage(cfg blog.Config) int { return cfg.GetFollowersPerPage() }
func commentsPerPage(cfg blog.Config) int  { return cfg.GetCommentsPerPage() }

// safeNext keeps redirects on this site
func safeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
