package blog

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeUnconfirmedAccount = "UNCONFIRMED_ACCOUNT"
	TextCodePermissionDenied   = "PERMISSION_DENIED"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeValidation         = "VALIDATION_FAILED"
)

// ErrInvalidToken is returned for every token that fails to verify,
// whatever the cause: bad signature, expiry, wrong purpose or subject.
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidToken)

// ErrInvalidCredentials is the uniform authentication failure
var ErrInvalidCredentials = goerrors.New("Invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrUnconfirmedAccount an authenticated identity that did not confirm its email
var ErrUnconfirmedAccount = goerrors.New("Unconfirmed account", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeUnconfirmedAccount)

// ErrInsufficientPermissions identity lacks the permission bits required
var ErrInsufficientPermissions = goerrors.New("Insufficient permissions", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodePermissionDenied)

// ErrEmailTaken email already registered
var ErrEmailTaken = goerrors.New("Email already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrUsernameTaken username already in use
var ErrUsernameTaken = goerrors.New("Username already in use", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeUsernameTaken)

// ErrPasswordNotReadable password is write only
var ErrPasswordNotReadable = goerrors.New("password is not a readable attribute", goerrors.CategoryInternal)

// ErrNoEmptyString passwords must not be empty
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword password does not match the stored hash
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrReservedClaim claims named exp or iat are managed by TokenService
var ErrReservedClaim = goerrors.New("claims must not set reserved names", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrPostEmptyBody posts require a body
var ErrPostEmptyBody = goerrors.New("post does not have a body", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrCommentEmptyBody comments require a body
var ErrCommentEmptyBody = goerrors.New("comment does not have a body", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// NotFound builds a not found error for the named resource
func NotFound(resource string) *goerrors.Error {
	return goerrors.New(resource+" not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

// ValidationError converts ozzo validation errors into a rich error with
// one metadata entry per field.
func ValidationError(err error, message string) *goerrors.Error {
	if err == nil {
		return nil
	}

	fields := map[string]any{}
	var verrs validation.Errors
	if goerrors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, message).
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(TextCodeValidation).
		WithMetadata(fields)
}

// asRichError returns err as a rich error, wrapping unknown errors as
// internal failures with message.
func asRichError(err error, message string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
