package blog

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost is the bcrypt cost used by HashPassword. Tests may
// lower it to bcrypt.MinCost.
var PasswordHashCost = passwordHashCost()

// HashPassword returns the salted bcrypt hash of password
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// ComparePasswordAndHash reports ErrMismatchedHashAndPassword when
// password does not produce hash. A malformed hash is an internal error.
func ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatchedHashAndPassword
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "stored password hash is unreadable")
}
