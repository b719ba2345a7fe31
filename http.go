package blog

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// LocalsIdentityKey is the Locals key holding the request Identity
const LocalsIdentityKey = "identity"

// SetRequestIdentity stores identity on the request Locals and on its
// user context so command handlers can read it with IdentityFromContext.
func SetRequestIdentity(c router.Context, identity Identity) {
	if identity == nil {
		identity = AnonymousIdentity{}
	}
	c.Locals(LocalsIdentityKey, identity)
	c.SetContext(WithIdentity(c.Context(), identity))
}

// RequestIdentity returns the identity set by an authentication
// middleware, anonymous when none ran.
func RequestIdentity(c router.Context) Identity {
	if identity, ok := c.Locals(LocalsIdentityKey).(Identity); ok && identity != nil {
		return identity
	}
	return AnonymousIdentity{}
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusCode maps err to an HTTP status by category
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		var fiberErr *fiber.Error
		if goerrors.As(err, &fiberErr) {
			return fiberErr.Code
		}
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrorName is the machine readable name of an error status
func ErrorName(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	}
	return "internal_error"
}

// SendErrorMessage writes the JSON envelope for status
func SendErrorMessage(c router.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{
		Error:   ErrorName(status),
		Message: message,
	})
}

// SendError writes err as a JSON envelope. Internal failures never leak
// their message.
func SendError(c router.Context, err error) error {
	return SendErrorMessage(c, StatusCode(err), errorMessage(err))
}

// FiberErrorHandler writes the JSON envelope for errors that reach the
// fiber app, unknown routes and unsupported methods included.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	return c.Status(status).JSON(ErrorResponse{
		Error:   ErrorName(status),
		Message: errorMessage(err),
	})
}

func errorMessage(err error) string {
	status := StatusCode(err)
	message := http.StatusText(status)

	var richErr *goerrors.Error
	var fiberErr *fiber.Error
	switch {
	case status == http.StatusInternalServerError:
	case goerrors.As(err, &richErr):
		message = richErr.Message
	case goerrors.As(err, &fiberErr):
		message = fiberErr.Message
	}
	return message
}

// PermissionRequired lets the request through when the request identity
// holds p, otherwise it calls denied.
func PermissionRequired(p Permission, denied router.ErrorHandler) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if err := RequirePermission(RequestIdentity(c), p); err != nil {
				return denied(c, err)
			}
			return c.Next()
		}
	}
}

// CookieOptions controls the attributes of cookies set by the web layers
type CookieOptions struct {
	Secure bool
	Path   string
}

// SetCookie sets an HTTP only, SameSite Lax cookie that expires after
// duration
func SetCookie(c router.Context, opts CookieOptions, name, value string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Path:     cookiePath(opts),
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: router.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires name on the client
func ClearCookie(c router.Context, opts CookieOptions, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     cookiePath(opts),
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   opts.Secure,
		SameSite: router.CookieSameSiteLaxMode,
	})
}

func cookiePath(opts CookieOptions) string {
	if opts.Path == "" {
		return "/"
	}
	return opts.Path
}
