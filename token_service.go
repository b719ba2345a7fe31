package blog

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenTTL is used when Issue receives a non positive ttl
const DefaultTokenTTL = time.Hour

const (
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
)

// TokenService signs and verifies claim maps with a single process
// secret. Rotating the secret invalidates every outstanding token.
type TokenService struct {
	secret     []byte
	defaultTTL time.Duration
	clock      func() time.Time
	logger     Logger
}

// TokenServiceOption configures a TokenService
type TokenServiceOption func(*TokenService)

// WithClock overrides the time source used to issue and verify tokens
func WithClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if clock != nil {
			ts.clock = clock
		}
	}
}

// WithDefaultTokenTTL overrides DefaultTokenTTL
func WithDefaultTokenTTL(ttl time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		if ttl > 0 {
			ts.defaultTTL = ttl
		}
	}
}

// WithTokenLogger sets the logger used to report verification causes
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance
func NewTokenService(secret string, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		secret:     []byte(secret),
		defaultTTL: DefaultTokenTTL,
		clock:      time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// Issue signs claims with an expiry ttl from now. Claims must not use
// the reserved names exp or iat.
func (ts *TokenService) Issue(claims map[string]any, ttl time.Duration) (string, error) {
	if len(ts.secret) == 0 {
		return "", goerrors.New("token signing secret is not configured", goerrors.CategoryInternal)
	}

	if ttl <= 0 {
		ttl = ts.defaultTTL
	}

	mc := make(jwt.MapClaims, len(claims)+2)
	for k, v := range claims {
		if k == claimExpiresAt || k == claimIssuedAt {
			return "", ErrReservedClaim
		}
		mc[k] = v
	}

	now := ts.clock()
	mc[claimIssuedAt] = now.Unix()
	mc[claimExpiresAt] = now.Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the caller supplied
// claims. Any failure yields ErrInvalidToken.
func (ts *TokenService) Verify(tokenString string) (map[string]any, error) {
	if tokenString == "" || len(ts.secret) == 0 {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		ts.logger.Debug("token rejected: %v", err)
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		ts.logger.Debug("token rejected: unable to map claims")
		return nil, ErrInvalidToken
	}

	out := make(map[string]any, len(mc))
	for k, v := range mc {
		if k == claimExpiresAt || k == claimIssuedAt {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// DefaultTTL returns the ttl applied when Issue gets a non positive one
func (ts *TokenService) DefaultTTL() time.Duration {
	return ts.defaultTTL
}
