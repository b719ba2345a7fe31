package blog

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string                                `json:"email" form:"email"`
	OnResponse func(*InitializePasswordResetResponse) `json:"-" form:"-"`
}

func (e InitializePasswordResetMessage) Type() string { return "password.reset.init" }

// Validate will validate the message
func (e InitializePasswordResetMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(1, 64), is.Email),
	)
}

// InitializePasswordResetResponse is identical whether or not the email
// belongs to an account
type InitializePasswordResetResponse struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PasswordResetRequestedMessage is shown to every requester
const PasswordResetRequestedMessage = "An email with instructions to reset your password has been sent to you."

// InitializePasswordResetHandler emails a reset token when the address
// is registered. The outcome reported to the caller never reveals whether
// it was.
type InitializePasswordResetHandler struct {
	svc Services
}

func NewInitializePasswordResetHandler(svc Services) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{svc: svc}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := cancelled(ctx, "password reset initialization"); err != nil {
		return err
	}
	return h.execute(ctx, event)
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return ValidationError(err, "invalid password reset request")
	}

	resp := &InitializePasswordResetResponse{
		Email:   NormalizeEmail(event.Email),
		Success: true,
		Message: PasswordResetRequestedMessage,
	}

	user, err := h.svc.Repo.Users().GetByEmail(ctx, event.Email)
	switch {
	case err == nil:
		if err := h.sendReset(ctx, user); err != nil {
			h.svc.logger().Error("password reset for %s not sent: %v", user.ID, err)
		}
	case goerrors.IsNotFound(err):
		h.svc.logger().Debug("password reset requested for unknown email")
	default:
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account for password reset")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}
	return nil
}

func (h *InitializePasswordResetHandler) sendReset(ctx context.Context, user *User) error {
	token, err := h.svc.Tokens.GenerateResetToken(user.ID, h.svc.tokenTTL())
	if err != nil {
		return err
	}

	h.svc.mail(ctx, MailMessage{
		To:       user.Email,
		Subject:  "Reset Your Password",
		Template: "auth/email/reset_password",
		Params: map[string]any{
			"username": user.Username,
			"token":    token,
			"url":      h.svc.link("/auth/reset/" + token),
		},
	})
	h.svc.record(ctx, userActivity(ActivityEventPasswordResetRequest, user, nil))
	return nil
}
