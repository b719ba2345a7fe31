package app

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-blog/activitymap"
	"github.com/goliatone/go-blog/api"
	"github.com/goliatone/go-blog/config"
	"github.com/goliatone/go-blog/mailer"
	"github.com/goliatone/go-blog/middleware/csrf"
	"github.com/goliatone/go-blog/middleware/websession"
	"github.com/goliatone/go-blog/web"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
)

// App holds every wired component of the blog server
type App struct {
	config   *config.Config
	db       *bun.DB
	ownsDB   bool
	repo     blog.RepositoryManager
	services blog.Services
	mailer   *mailer.AsyncMailer
	sessions *websession.Manager
	srv      router.Server[*fiber.App]
	logger   *blog.ZerologLogger
}

type options struct {
	logWriter io.Writer
	transport mailer.Transport
	db        *bun.DB
	clock     func() time.Time
}

type Option func(*options)

// WithLogWriter sends log output to w instead of stdout
func WithLogWriter(w io.Writer) Option {
	return func(o *options) {
		o.logWriter = w
	}
}

// WithTransport overrides the mail transport picked from configuration
func WithTransport(t mailer.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithDB uses an already open database. The App will not close it.
func WithDB(db *bun.DB) Option {
	return func(o *options) {
		o.db = db
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// New wires the application from cfg. The database is opened but the
// schema is left alone, see Deploy.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{logWriter: os.Stdout, clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{
		config: cfg,
		logger: blog.NewConsoleLogger(o.logWriter, cfg.LogLevel),
	}

	if err := a.initDB(ctx, o); err != nil {
		return nil, err
	}

	if err := a.initServices(o); err != nil {
		return nil, err
	}

	a.initServer()
	return a, nil
}

func (a *App) initDB(ctx context.Context, o *options) error {
	a.db = o.db
	if a.db == nil {
		db, err := blog.OpenSQLite(ctx, a.config.DatabaseURL)
		if err != nil {
			return err
		}
		a.db = db
		a.ownsDB = true
	}

	a.repo = blog.NewRepositoryManager(a.db)
	if err := a.repo.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid repository manager")
	}
	return nil
}

func (a *App) initServices(o *options) error {
	tokens := blog.NewTokenService(
		a.config.GetSecretKey(),
		blog.WithTokenLogger(a.logger.Named("tokens")),
		blog.WithDefaultTokenTTL(a.config.GetTokenExpiration()),
		blog.WithClock(o.clock),
	)

	transport := o.transport
	if transport == nil {
		transport = a.mailTransport()
	}

	m, err := mailer.New(transport,
		mailer.WithSender(a.config.Mail.Sender),
		mailer.WithSubjectPrefix(a.config.Mail.SubjectPrefix),
		mailer.WithLogger(a.logger.Named("mailer")),
	)
	if err != nil {
		return err
	}
	a.mailer = m

	a.services = blog.Services{
		Repo:     a.repo,
		Tokens:   tokens,
		Mailer:   m,
		Config:   a.config,
		Activity: activitymap.Sink(a.logger.Named("activity").Zerolog(), activitymap.WithClock(o.clock)),
		Logger:   a.logger.Named("commands"),
		Clock:    o.clock,
	}

	a.sessions = websession.New(websession.Config{
		Tokens:           tokens,
		Users:            a.repo.Users(),
		Duration:         a.config.SessionDuration,
		RememberDuration: a.config.RememberDuration,
		Cookie:           a.cookieOptions(),
		Logger:           a.logger.Named("session"),
		Clock:            o.clock,
	})
	return nil
}

func (a *App) mailTransport() mailer.Transport {
	mail := a.config.Mail
	if mail.Server == "" {
		return mailer.NewLogTransport(a.logger.Named("mail"))
	}
	return mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:     mail.Server,
		Port:     mail.Port,
		Username: mail.Username,
		Password: mail.Password,
		UseSSL:   mail.UseSSL,
	})
}

func (a *App) cookieOptions() blog.CookieOptions {
	return blog.CookieOptions{Secure: a.config.CookieSecure, Path: "/"}
}

// initServer mounts the API and the browser site as sibling groups. The
// API group only runs the token gate, the site group runs sessions,
// flash messages and CSRF.
func (a *App) initServer() {
	a.srv = router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			AppName:               "blog",
			DisableStartupMessage: true,
			ErrorHandler:          a.errorHandler,
		})
		app.Use(recover.New())
		app.Use(requestLogger(a.logger.Named("http")))
		return app
	})

	r := a.srv.Router()
	r.WithLogger(newRouterLogger(a.logger.Named("router")))

	users := blog.NewUserProvider(a.repo.Users()).
		WithLogger(a.logger.Named("users")).
		WithActivitySink(a.services.Activity)

	api.New(a.services, users).Mount(r)

	site := r.Group("/")
	site.Use(a.sessions.Middleware())
	site.Use(mflash.New(mflash.ConfigDefault))
	if a.config.CSRFEnabled {
		site.Use(csrf.New(csrf.Config{
			SecureKey: csrf.DeriveKey(a.config.GetSecretKey()),
		}))
		csrf.RegisterRoutes(site.Group("/auth"))
	}

	w := web.New(a.services, users, a.sessions, a.cookieOptions())
	w.Debug = strings.EqualFold(a.config.LogLevel, "debug")
	w.Mount(site)
}

// errorHandler catches what escapes the route chains, including fiber's
// own 404 and 405
func (a *App) errorHandler(c *fiber.Ctx, err error) error {
	if blog.StatusCode(err) >= fiber.StatusInternalServerError {
		a.logger.Error("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return blog.FiberErrorHandler(c, err)
}

// Server exposes the fiber app, mostly for tests through app.Test
func (a *App) Server() *fiber.App {
	return a.srv.WrappedRouter()
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Services() blog.Services {
	return a.services
}

func (a *App) DB() *bun.DB {
	return a.db
}

func (a *App) Logger() blog.Logger {
	return a.logger
}

// Deploy creates the schema, inserts the roles and repairs self follows
func (a *App) Deploy(ctx context.Context) (*blog.DeployResponse, error) {
	var out *blog.DeployResponse
	err := blog.NewDeployHandler(a.services, a.db).Execute(ctx, blog.DeployMessage{
		CreateSchema: true,
		OnResponse:   func(r *blog.DeployResponse) { out = r },
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("deploy done: roles=%d self_follows=%d", len(out.Roles), out.SelfFollows)
	return out, nil
}

// Listen blocks serving on the configured address
func (a *App) Listen() error {
	a.logger.Info("listening on %s profile=%s", a.config.ListenAddr, a.config.Profile)
	return a.srv.Serve(a.config.ListenAddr)
}

// Shutdown stops the server, waits for queued mail and closes the
// database
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.srv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.mailer.Wait(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.ownsDB {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return goerrors.Wrap(errors.Join(errs...), goerrors.CategoryInternal, "shutdown failed")
	}
	return nil
}

func requestLogger(logger blog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = blog.StatusCode(err)
		}
		logger.Debug("%s %s %d %s", c.Method(), c.OriginalURL(), status, time.Since(start))
		return err
	}
}
