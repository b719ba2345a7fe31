package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-blog"
)

const (
	ProfileDevelopment = "development"
	ProfileTesting     = "testing"
	ProfileProduction  = "production"
)

const developmentSecret = "hard to guess string"

// Config is the application configuration, read from the environment
type Config struct {
	Profile     string `env:"BLOG_CONFIG" envDefault:"development"`
	SecretKey   string `env:"SECRET_KEY"`
	DatabaseURL string `env:"DATABASE_URL"`
	AdminEmail  string `env:"BLOG_ADMIN"`
	BaseURL     string `env:"BLOG_BASE_URL" envDefault:"http://localhost:5000"`
	ListenAddr  string `env:"BLOG_ADDR" envDefault:":5000"`
	LogLevel    string `env:"BLOG_LOG_LEVEL" envDefault:"info"`

	TokenTTL         time.Duration `env:"BLOG_TOKEN_TTL" envDefault:"1h"`
	SessionDuration  time.Duration `env:"BLOG_SESSION_DURATION" envDefault:"24h"`
	RememberDuration time.Duration `env:"BLOG_REMEMBER_DURATION" envDefault:"8760h"`
	CookieSecure     bool          `env:"BLOG_COOKIE_SECURE"`
	// CSRFEnabled guards web form posts. The testing profile turns it off
	// unless set explicitly.
	CSRFEnabled bool `env:"BLOG_CSRF_ENABLED" envDefault:"true"`

	PostsPerPage     int `env:"BLOG_POSTS_PER_PAGE" envDefault:"7"`
	FollowersPerPage int `env:"BLOG_FOLLOWERS_PER_PAGE" envDefault:"6"`
	CommentsPerPage  int `env:"BLOG_COMMENTS_PER_PAGE" envDefault:"6"`

	Mail Mail
}

// Mail holds outgoing email settings. An empty Server logs messages
// instead of sending them.
type Mail struct {
	Server        string `env:"MAIL_SERVER"`
	Port          int    `env:"MAIL_PORT" envDefault:"465"`
	Username      string `env:"MAIL_USERNAME"`
	Password      string `env:"MAIL_PASSWORD"`
	UseSSL        bool   `env:"MAIL_USE_SSL" envDefault:"true"`
	Sender        string `env:"BLOG_MAIL_SENDER"`
	SubjectPrefix string `env:"BLOG_MAIL_SUBJECT_PREFIX" envDefault:"[Blog] "`
}

var _ blog.Config = (*Config)(nil)

// Load reads the process environment
func Load() (*Config, error) {
	return LoadFrom(Environ())
}

// LoadFrom reads configuration from vars instead of the process
// environment
func LoadFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, blog.ValidationError(err, "failed to parse configuration")
	}

	cfg.applyProfile()
	if _, set := vars["BLOG_CSRF_ENABLED"]; !set && cfg.IsTesting() {
		cfg.CSRFEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, blog.ValidationError(err, "invalid configuration")
	}
	return cfg, nil
}

func (c *Config) applyProfile() {
	c.Profile = strings.ToLower(strings.TrimSpace(c.Profile))

	if c.DatabaseURL == "" {
		switch c.Profile {
		case ProfileTesting:
			c.DatabaseURL = "file:data-test.sqlite"
		case ProfileProduction:
			c.DatabaseURL = "file:data.sqlite"
		default:
			c.DatabaseURL = "file:data-dev.sqlite"
		}
	}

	if c.SecretKey == "" && c.Profile != ProfileProduction {
		c.SecretKey = developmentSecret
	}

	if c.Mail.Sender == "" {
		c.Mail.Sender = c.Mail.Username
	}
}

// Validate will validate the configuration
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Profile, validation.In(ProfileDevelopment, ProfileTesting, ProfileProduction)),
		validation.Field(&c.SecretKey, validation.Required),
		validation.Field(&c.DatabaseURL, validation.Required),
		validation.Field(&c.AdminEmail, is.Email),
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.PostsPerPage, validation.Min(1)),
		validation.Field(&c.FollowersPerPage, validation.Min(1)),
		validation.Field(&c.CommentsPerPage, validation.Min(1)),
	)
}

func (c *Config) IsProduction() bool {
	return c.Profile == ProfileProduction
}

func (c *Config) IsTesting() bool {
	return c.Profile == ProfileTesting
}

func (c *Config) GetSecretKey() string {
	return c.SecretKey
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.TokenTTL
}

func (c *Config) GetAdminEmail() string {
	return c.AdminEmail
}

func (c *Config) GetBaseURL() string {
	return c.BaseURL
}

func (c *Config) GetPostsPerPage() int {
	return c.PostsPerPage
}

func (c *Config) GetFollowersPerPage() int {
	return c.FollowersPerPage
}

func (c *Config) GetCommentsPerPage() int {
	return c.CommentsPerPage
}

// Environ returns the process environment as a map
func Environ() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
