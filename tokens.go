package blog

import (
	"time"

	"github.com/google/uuid"
)

// Claim markers, one per token purpose. A token minted for one purpose
// never carries another purpose's marker.
const (
	ClaimConfirm     = "confirm"
	ClaimReset       = "reset"
	ClaimChangeEmail = "change_email"
	ClaimNewEmail    = "new_email"
	ClaimAuth        = "id"
	ClaimSession     = "session"
)

// GenerateConfirmationToken proves ownership of the registered email
func (ts *TokenService) GenerateConfirmationToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	return ts.Issue(map[string]any{ClaimConfirm: userID.String()}, ttl)
}

// VerifyConfirmationToken succeeds only for a confirmation token minted
// for userID
func (ts *TokenService) VerifyConfirmationToken(token string, userID uuid.UUID) error {
	id, err := ts.subject(token, ClaimConfirm)
	if err != nil {
		return err
	}
	if id != userID {
		return ErrInvalidToken
	}
	return nil
}

// GenerateResetToken authorizes a password reset for userID
func (ts *TokenService) GenerateResetToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	return ts.Issue(map[string]any{ClaimReset: userID.String()}, ttl)
}

// VerifyResetToken returns the user a reset token was minted for
func (ts *TokenService) VerifyResetToken(token string) (uuid.UUID, error) {
	return ts.subject(token, ClaimReset)
}

// GenerateEmailChangeToken binds userID to the requested address
func (ts *TokenService) GenerateEmailChangeToken(userID uuid.UUID, newEmail string, ttl time.Duration) (string, error) {
	return ts.Issue(map[string]any{
		ClaimChangeEmail: userID.String(),
		ClaimNewEmail:    NormalizeEmail(newEmail),
	}, ttl)
}

// VerifyEmailChangeToken returns the new address bound to userID
func (ts *TokenService) VerifyEmailChangeToken(token string, userID uuid.UUID) (string, error) {
	claims, err := ts.Verify(token)
	if err != nil {
		return "", err
	}
	id, err := claimUUID(claims, ClaimChangeEmail)
	if err != nil || id != userID {
		return "", ErrInvalidToken
	}
	email, ok := claims[ClaimNewEmail].(string)
	if !ok || email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}

// GenerateAuthToken mints an API bearer token for userID
func (ts *TokenService) GenerateAuthToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	return ts.Issue(map[string]any{ClaimAuth: userID.String()}, ttl)
}

// VerifyAuthToken returns the user an API token was minted for
func (ts *TokenService) VerifyAuthToken(token string) (uuid.UUID, error) {
	return ts.subject(token, ClaimAuth)
}

// GenerateSessionToken mints the value of the web session cookie
func (ts *TokenService) GenerateSessionToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	return ts.Issue(map[string]any{ClaimSession: userID.String()}, ttl)
}

// VerifySessionToken returns the user of a web session cookie
func (ts *TokenService) VerifySessionToken(token string) (uuid.UUID, error) {
	return ts.subject(token, ClaimSession)
}

func (ts *TokenService) subject(token, marker string) (uuid.UUID, error) {
	claims, err := ts.Verify(token)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := claimUUID(claims, marker)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

func claimUUID(claims map[string]any, key string) (uuid.UUID, error) {
	raw, ok := claims[key].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
