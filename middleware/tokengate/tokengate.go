package tokengate

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Authenticator resolves users from credentials or from a token subject
type Authenticator interface {
	VerifyCredentials(ctx context.Context, email, password string) (*blog.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*blog.User, error)
}

// TokenVerifier redeems API bearer tokens
type TokenVerifier interface {
	VerifyAuthToken(token string) (uuid.UUID, error)
}

// TokenIssuer mints API bearer tokens
type TokenIssuer interface {
	GenerateAuthToken(userID uuid.UUID, ttl time.Duration) (string, error)
}

type Config struct {
	// Filter skips the gate when it returns true
	Filter       func(router.Context) bool
	Users        Authenticator
	Tokens       TokenVerifier
	ErrorHandler router.ErrorHandler
	Logger       blog.Logger
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Users == nil {
		panic("TOKENGATE: configuration: Users is required.")
	}

	if cfg.Tokens == nil {
		panic("TOKENGATE: configuration: Tokens is required.")
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = blog.SendError
	}

	if cfg.Logger == nil {
		cfg.Logger = blog.NopLogger{}
	}
	return cfg
}

// New returns a middleware resolving the request identity from HTTP Basic
// credentials. An empty username is anonymous, an empty password means
// the username is an API token, anything else is email and password.
// A bearer Authorization header is accepted as a token as well.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if cfg.Filter != nil && cfg.Filter(c) {
				return c.Next()
			}

			identifier, secret, err := credentials(c.Header("Authorization"))
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			identity, err := cfg.authenticate(c.Context(), identifier, secret)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			if !identity.IsAnonymous() && !identity.IsConfirmed() {
				return cfg.ErrorHandler(c, blog.ErrUnconfirmedAccount)
			}

			blog.SetRequestIdentity(c, identity)
			return c.Next()
		}
	}
}

func (cfg Config) authenticate(ctx context.Context, identifier, secret string) (blog.Identity, error) {
	if identifier == "" {
		return blog.AnonymousIdentity{}, nil
	}

	if secret == "" {
		id, err := cfg.Tokens.VerifyAuthToken(identifier)
		if err != nil {
			cfg.Logger.Debug("api token rejected: %v", err)
			return nil, blog.ErrInvalidCredentials
		}

		user, err := cfg.Users.FindByID(ctx, id)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return nil, blog.ErrInvalidCredentials
			}
			return nil, err
		}
		return blog.NewUserIdentity(user, blog.AuthMethodToken), nil
	}

	user, err := cfg.Users.VerifyCredentials(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}
	return blog.NewUserIdentity(user, blog.AuthMethodPassword), nil
}

// credentials splits an Authorization header into identifier and secret.
// A missing header yields empty values.
func credentials(header string) (string, string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", "", nil
	}

	scheme, value, _ := strings.Cut(header, " ")
	value = strings.TrimSpace(value)

	switch {
	case strings.EqualFold(scheme, "Bearer"):
		return value, "", nil
	case strings.EqualFold(scheme, "Basic"):
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return "", "", blog.ErrInvalidCredentials
		}
		identifier, secret, ok := strings.Cut(string(raw), ":")
		if !ok {
			return "", "", blog.ErrInvalidCredentials
		}
		return identifier, secret, nil
	}
	return "", "", blog.ErrInvalidCredentials
}

// TokenResponse is returned by the token endpoint
type TokenResponse struct {
	Token      string `json:"token"`
	Expiration int    `json:"expiration"`
}

// TokenHandler issues an API token for identities that authenticated with
// a password. Anonymous and token authenticated identities are refused so
// a token cannot be used to renew itself.
func TokenHandler(issuer TokenIssuer, ttl time.Duration, errorHandler ...router.ErrorHandler) router.HandlerFunc {
	onError := blog.SendError
	if len(errorHandler) > 0 && errorHandler[0] != nil {
		onError = errorHandler[0]
	}
	if ttl <= 0 {
		ttl = blog.DefaultTokenTTL
	}

	return func(c router.Context) error {
		identity := blog.RequestIdentity(c)
		if identity.IsAnonymous() || identity.Method() == blog.AuthMethodToken {
			return onError(c, blog.ErrInvalidCredentials)
		}

		token, err := issuer.GenerateAuthToken(identity.User().ID, ttl)
		if err != nil {
			return onError(c, err)
		}

		return c.JSON(router.StatusOK, TokenResponse{
			Token:      token,
			Expiration: int(ttl / time.Second),
		})
	}
}
