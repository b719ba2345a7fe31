package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch = goerrors.New("CSRF token mismatch", goerrors.CategoryAuthz).
				WithCode(goerrors.CodeForbidden).
				WithTextCode("CSRF_MISMATCH")
	ErrTokenMissing = goerrors.New("CSRF token missing", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("CSRF_MISSING")
	ErrTokenExpired = goerrors.New("CSRF token expired", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode("CSRF_EXPIRED")
)

// DefaultTokenLength is the default nonce length for CSRF tokens
const DefaultTokenLength = 32

// DefaultContextKey is the default key for storing CSRF tokens in locals
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "csrf_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// TokenLength defines the length of the random nonce
	TokenLength int

	// ContextKey defines the key for storing the token in locals
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// HeaderName defines the header carrying the token. Safe requests
	// get a fresh token in the same header.
	HeaderName string

	ErrorHandler router.ErrorHandler

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long tokens are valid
	Expiration time.Duration

	// SecureKey signs the tokens. It must be at least 32 bytes.
	SecureKey []byte

	Clock func() time.Time
}

// New creates a new CSRF middleware. Tokens are stateless: they are
// signed with SecureKey and bound to the request identity, so a login
// or logout invalidates earlier tokens.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if cfg.Skip != nil && cfg.Skip(c) {
				return c.Next()
			}

			method := strings.ToUpper(c.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				token, err := generateToken(c, cfg)
				if err != nil {
					return cfg.ErrorHandler(c, err)
				}
				c.Locals(cfg.ContextKey, token)
				c.SetHeader(cfg.HeaderName, token)
				return c.Next()
			}

			if err := validateToken(c, cfg); err != nil {
				return cfg.ErrorHandler(c, err)
			}
			return c.Next()
		}
	}
}

// Token returns the token generated for the current request
func Token(c router.Context) string {
	token, _ := c.Locals(DefaultContextKey).(string)
	return token
}

func generateToken(c router.Context, cfg Config) (string, error) {
	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := cfg.Clock().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), sessionKey(c))

	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(c router.Context, cfg Config) error {
	token := extractToken(c, cfg)
	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	payload := strings.Join(parts[:3], ":")
	if !hmac.Equal(signature, sign(cfg.SecureKey, payload)) {
		return ErrTokenMismatch
	}

	if !hmac.Equal([]byte(parts[2]), []byte(sessionKey(c))) {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if cfg.Clock().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

func extractToken(c router.Context, cfg Config) string {
	if token := c.Header(cfg.HeaderName); token != "" {
		return token
	}
	return c.FormValue(cfg.FormFieldName)
}

// sessionKey binds tokens to the authenticated user, falling back to
// the client address for anonymous visitors
func sessionKey(c router.Context) string {
	if identity := blog.RequestIdentity(c); !identity.IsAnonymous() {
		return "user_" + identity.ID()
	}
	return "ip_" + c.IP()
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = blog.SendError
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)
	return cfg
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}

// DeriveKey stretches an application secret of any length into a
// signing key
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return sum[:]
}
